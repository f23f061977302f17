//go:build unit
// +build unit

package cryptography

import (
	"crypto"
	"crypto/sha256"
	"crypto/sha512"
	"testing"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	TestKeySize = 1024
)

func setupRSAProcessor(t *testing.T) cryptoalg.RSAProcessor {
	t.Helper()
	logger := testutil.SetupTestLogger(t)
	processor, err := NewRSAProcessor(logger)
	require.NoError(t, err)
	return processor
}

func TestRSAProcessor(t *testing.T) {
	processor := setupRSAProcessor(t)

	t.Run("GenerateKeys", func(t *testing.T) {
		privateKey, publicKey, err := processor.GenerateKeys(TestKeySize)
		require.NoError(t, err)
		assert.Equal(t, TestKeySize, privateKey.N.BitLen())
		assert.True(t, privateKey.PublicKey.Equal(publicKey))
	})

	t.Run("SignAndVerifyPKCS1", func(t *testing.T) {
		privateKey, publicKey, err := processor.GenerateKeys(TestKeySize)
		require.NoError(t, err)

		digest := sha256.Sum256([]byte("message"))
		signature, err := processor.SignDigest(privateKey, crypto.SHA256, digest[:], false)
		require.NoError(t, err)
		assert.NoError(t, processor.VerifyDigest(publicKey, crypto.SHA256, digest[:], signature, false))

		tampered := sha256.Sum256([]byte("tampered"))
		assert.Error(t, processor.VerifyDigest(publicKey, crypto.SHA256, tampered[:], signature, false))
	})

	t.Run("SignAndVerifyPSS", func(t *testing.T) {
		privateKey, publicKey, err := processor.GenerateKeys(TestKeySize)
		require.NoError(t, err)

		digest := sha512.Sum384([]byte("message"))
		signature, err := processor.SignDigest(privateKey, crypto.SHA384, digest[:], true)
		require.NoError(t, err)
		assert.NoError(t, processor.VerifyDigest(publicKey, crypto.SHA384, digest[:], signature, true))
		assert.Error(t, processor.VerifyDigest(publicKey, crypto.SHA384, digest[:], signature, false))
	})

	t.Run("DigestLengthMismatch", func(t *testing.T) {
		privateKey, publicKey, err := processor.GenerateKeys(TestKeySize)
		require.NoError(t, err)

		// PKCS#1 v1.5 signs the DigestInfo over the digest as supplied
		digest := sha256.Sum256([]byte("message"))
		signature, err := processor.SignDigest(privateKey, crypto.SHA512, digest[:], false)
		require.NoError(t, err)
		assert.NoError(t, processor.VerifyDigest(publicKey, crypto.SHA512, digest[:], signature, false))
		assert.Error(t, processor.VerifyDigest(publicKey, crypto.SHA256, digest[:], signature, false))

		_, err = processor.SignDigest(privateKey, crypto.SHA512, digest[:], true)
		assert.Error(t, err)
	})

	t.Run("NilKey", func(t *testing.T) {
		_, err := processor.SignDigest(nil, crypto.SHA256, make([]byte, 32), false)
		assert.Error(t, err)
		assert.Error(t, processor.VerifyDigest(nil, crypto.SHA256, nil, nil, false))
	})
}
