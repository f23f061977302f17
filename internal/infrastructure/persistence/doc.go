// Package persistence provides the GORM-backed signer store. It keeps
// token, key, certificate and certificate request metadata for the
// registry and the cached OCSP responses, on sqlite or PostgreSQL.
package persistence
