// Package signer defines the entities of the signer (tokens, keys,
// certificates, certificate requests and member identifiers) together with
// the service contracts offered to callers.
package signer
