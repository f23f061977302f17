// Package softtoken implements the software token: a PIN-protected keystore
// in a directory on disk.
//
// The PIN file holds a bcrypt verifier, an scrypt salt and a random data key
// sealed with AES-GCM under the scrypt-derived PIN key. Private keys are
// PKCS#8 blobs sealed under the data key, so changing the PIN rewrites only
// the PIN file, which is replaced atomically. Public keys are stored in the
// clear so keys can be listed while the token is logged out.
package softtoken
