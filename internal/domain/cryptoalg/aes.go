package cryptoalg

// AESProcessor seals data with AES-GCM. The software token uses it to
// encrypt key files at rest.
type AESProcessor interface {
	// GenerateKey generates a random AES key of 16, 24 or 32 bytes.
	GenerateKey(keySize int) ([]byte, error)

	// Encrypt seals data with key. The nonce is prepended to the output.
	Encrypt(data, key []byte) ([]byte, error)

	// Decrypt opens a value produced by Encrypt.
	Decrypt(ciphertext, key []byte) ([]byte, error)
}
