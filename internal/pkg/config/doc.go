// Package config holds the settings of the signer service and CLI.
//
// SignerConfig is read from a YAML file with viper; any key can be
// overridden through a SIGNER_ prefixed environment variable, with dots
// replaced by underscores (SIGNER_SOFTWARE_TOKEN_DIRECTORY). Every settings
// section validates itself with go-playground/validator before use.
package config
