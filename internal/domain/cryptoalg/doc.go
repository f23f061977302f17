// Package cryptoalg defines the signature algorithm table and the key pair
// and sealing primitives used by software-backed tokens.
package cryptoalg
