//go:build unit
// +build unit

package cryptography

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupECDSAProcessor(t *testing.T) cryptoalg.ECDSAProcessor {
	t.Helper()
	logger := testutil.SetupTestLogger(t)
	processor, err := NewECDSAProcessor(logger)
	require.NoError(t, err)
	return processor
}

func TestECDSAProcessor(t *testing.T) {
	processor := setupECDSAProcessor(t)

	t.Run("GenerateKeys", func(t *testing.T) {
		priv, pub, err := processor.GenerateKeys(elliptic.P256())
		require.NoError(t, err)
		assert.Equal(t, elliptic.P256(), priv.PublicKey.Curve)
		assert.Equal(t, elliptic.P256(), pub.Curve)
	})

	t.Run("SignAndVerify", func(t *testing.T) {
		priv, pub, err := processor.GenerateKeys(elliptic.P384())
		require.NoError(t, err)

		digest := sha256.Sum256([]byte("message"))
		signature, err := processor.SignDigest(priv, digest[:])
		require.NoError(t, err)
		assert.True(t, processor.VerifyDigest(pub, digest[:], signature))

		other := sha256.Sum256([]byte("other"))
		assert.False(t, processor.VerifyDigest(pub, other[:], signature))
		assert.False(t, processor.VerifyDigest(nil, digest[:], signature))
	})

	t.Run("InvalidPrivateKey", func(t *testing.T) {
		_, err := processor.SignDigest(nil, []byte("digest"))
		assert.Error(t, err)

		zero := &ecdsa.PrivateKey{PublicKey: ecdsa.PublicKey{Curve: elliptic.P256()}, D: big.NewInt(0)}
		_, err = processor.SignDigest(zero, []byte("digest"))
		assert.Error(t, err)
	})
}

func TestCurveForSize(t *testing.T) {
	curve, err := CurveForSize(384)
	require.NoError(t, err)
	assert.Equal(t, elliptic.P384(), curve)

	_, err = CurveForSize(224)
	assert.Error(t, err)
}
