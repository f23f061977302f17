//go:build unit
// +build unit

package softtoken

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/testutil"
)

const testPin = "Secret1234"

func newTestToken(t *testing.T, settings config.SoftwareTokenSettings) *Token {
	t.Helper()
	settings.Enabled = true
	if settings.Directory == "" {
		settings.Directory = t.TempDir()
	}
	if settings.Algorithm == "" {
		settings.Algorithm = "RSA"
		settings.KeySize = 1024
	}
	token, err := NewToken(settings, testutil.SetupTestLogger(t), WithBcryptCost(bcrypt.MinCost), WithScryptN(1<<10))
	require.NoError(t, err)
	return token
}

func TestToken_Lifecycle(t *testing.T) {
	token := newTestToken(t, config.SoftwareTokenSettings{})

	status, err := token.Status()
	require.NoError(t, err)
	assert.False(t, status.Initialized)
	assert.Equal(t, signer.TokenStateUninitialized, status.TokenState())

	assert.ErrorIs(t, token.Login(testPin), device.ErrNotInitialized)

	require.NoError(t, token.Initialize(testPin))
	assert.ErrorIs(t, token.Initialize(testPin), device.ErrAlreadyInitialized)

	status, err = token.Status()
	require.NoError(t, err)
	assert.Equal(t, signer.TokenStateInitialized, status.TokenState())

	_, err = token.GenerateKey("k")
	assert.ErrorIs(t, err, device.ErrNotLoggedIn)

	require.NoError(t, token.Login(testPin))
	status, err = token.Status()
	require.NoError(t, err)
	assert.Equal(t, signer.TokenStateActive, status.TokenState())
	assert.Equal(t, signer.PinStateOK, status.PinState)

	require.NoError(t, token.Logout())
	status, err = token.Status()
	require.NoError(t, err)
	assert.False(t, status.LoggedIn)
}

func TestToken_Info(t *testing.T) {
	token := newTestToken(t, config.SoftwareTokenSettings{})
	info := token.Info()
	assert.Equal(t, signer.SoftwareTokenID, info.ID)
	assert.Equal(t, signer.TokenTypeSoftware, info.Type)
	assert.True(t, info.BatchSigningEnabled)
}

func TestToken_GenerateSignDelete(t *testing.T) {
	tests := []struct {
		name     string
		settings config.SoftwareTokenSettings
		alg      string
	}{
		{"RSA PKCS1", config.SoftwareTokenSettings{Algorithm: "RSA", KeySize: 1024}, "SHA256withRSA"},
		{"RSA PSS", config.SoftwareTokenSettings{Algorithm: "RSA", KeySize: 1024}, "SHA256withRSAandMGF1"},
		{"ECDSA P-256", config.SoftwareTokenSettings{Algorithm: "ECDSA", KeySize: 256}, "SHA256withECDSA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := newTestToken(t, tt.settings)
			require.NoError(t, token.Initialize(testPin))
			require.NoError(t, token.Login(testPin))

			key, err := token.GenerateKey("my key")
			require.NoError(t, err)
			assert.NotEmpty(t, key.ID)
			assert.Equal(t, "my key", key.Label)

			keys, err := token.ListKeys()
			require.NoError(t, err)
			require.Len(t, keys, 1)
			assert.Equal(t, key, keys[0])

			alg, ok := cryptoalg.SignAlgorithmByID(tt.alg)
			require.True(t, ok)
			digest := sha256.Sum256([]byte("payload"))

			sig, err := token.Sign(key.ID, alg, digest[:])
			require.NoError(t, err)

			pub, _, err := cryptoalg.ParsePublicKey(key.PublicKey)
			require.NoError(t, err)
			switch p := pub.(type) {
			case *rsa.PublicKey:
				if alg.PSS {
					assert.NoError(t, rsa.VerifyPSS(p, alg.Hash, digest[:], sig, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash}))
				} else {
					assert.NoError(t, rsa.VerifyPKCS1v15(p, alg.Hash, digest[:], sig))
				}
			case *ecdsa.PublicKey:
				assert.True(t, ecdsa.VerifyASN1(p, digest[:], sig))
			}

			require.NoError(t, token.DeleteKey(key.ID))
			assert.ErrorIs(t, token.DeleteKey(key.ID), device.ErrKeyNotFound)
			_, err = token.Sign(key.ID, alg, digest[:])
			assert.ErrorIs(t, err, device.ErrKeyNotFound)
		})
	}
}

func TestToken_SignWrongAlgorithm(t *testing.T) {
	token := newTestToken(t, config.SoftwareTokenSettings{})
	require.NoError(t, token.Initialize(testPin))
	require.NoError(t, token.Login(testPin))

	key, err := token.GenerateKey("")
	require.NoError(t, err)

	alg, _ := cryptoalg.SignAlgorithmByID("SHA256withECDSA")
	digest := sha256.Sum256([]byte("x"))
	_, err = token.Sign(key.ID, alg, digest[:])
	assert.Error(t, err)
}

func TestToken_KeysSurviveRelogin(t *testing.T) {
	dir := t.TempDir()
	token := newTestToken(t, config.SoftwareTokenSettings{Directory: dir})
	require.NoError(t, token.Initialize(testPin))
	require.NoError(t, token.Login(testPin))
	key, err := token.GenerateKey("persisted")
	require.NoError(t, err)
	require.NoError(t, token.Logout())

	// listing does not need the PIN
	keys, err := token.ListKeys()
	require.NoError(t, err)
	require.Len(t, keys, 1)

	reopened := newTestToken(t, config.SoftwareTokenSettings{Directory: dir})
	require.NoError(t, reopened.Login(testPin))
	alg := cryptoalg.DefaultSignAlgorithm(cryptoalg.KeyAlgorithmRSA)
	digest := sha256.Sum256([]byte("x"))
	_, err = reopened.Sign(key.ID, alg, digest[:])
	assert.NoError(t, err)

	sealed, err := os.ReadFile(filepath.Join(dir, key.ID+privateKeyExt))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "PRIVATE KEY")
}

func TestToken_PinAttempts(t *testing.T) {
	token := newTestToken(t, config.SoftwareTokenSettings{PinMaxAttempts: 3})
	require.NoError(t, token.Initialize(testPin))

	assert.ErrorIs(t, token.Login("wrong"), device.ErrPinIncorrect)
	status, err := token.Status()
	require.NoError(t, err)
	assert.Equal(t, signer.PinStateIncorrect, status.PinState)

	assert.ErrorIs(t, token.Login("wrong"), device.ErrPinIncorrect)
	status, err = token.Status()
	require.NoError(t, err)
	assert.Equal(t, signer.PinStateFinalTry, status.PinState)

	// a correct PIN resets the counter
	require.NoError(t, token.Login(testPin))
	status, err = token.Status()
	require.NoError(t, err)
	assert.Equal(t, signer.PinStateOK, status.PinState)
	require.NoError(t, token.Logout())

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, token.Login("wrong"), device.ErrPinIncorrect)
	}
	assert.ErrorIs(t, token.Login("wrong"), device.ErrPinLocked)
	assert.ErrorIs(t, token.Login(testPin), device.ErrPinLocked)

	status, err = token.Status()
	require.NoError(t, err)
	assert.Equal(t, signer.PinStateLocked, status.PinState)
}

func TestToken_ChangePin(t *testing.T) {
	token := newTestToken(t, config.SoftwareTokenSettings{})
	require.NoError(t, token.Initialize(testPin))
	require.NoError(t, token.Login(testPin))
	key, err := token.GenerateKey("")
	require.NoError(t, err)
	require.NoError(t, token.Logout())

	assert.ErrorIs(t, token.ChangePin("wrong", "NewPin1"), device.ErrPinIncorrect)
	require.NoError(t, token.ChangePin(testPin, "NewPin1"))

	assert.ErrorIs(t, token.Login(testPin), device.ErrPinIncorrect)
	require.NoError(t, token.Login("NewPin1"))

	alg := cryptoalg.DefaultSignAlgorithm(cryptoalg.KeyAlgorithmRSA)
	digest := sha256.Sum256([]byte("x"))
	_, err = token.Sign(key.ID, alg, digest[:])
	assert.NoError(t, err)
}

func TestProvider_Devices(t *testing.T) {
	log := testutil.SetupTestLogger(t)

	disabled, err := NewProvider(config.SoftwareTokenSettings{}, log)
	require.NoError(t, err)
	devices, err := disabled.Devices(t.Context())
	require.NoError(t, err)
	assert.Empty(t, devices)

	enabled, err := NewProvider(config.SoftwareTokenSettings{Enabled: true, Directory: t.TempDir()}, log)
	require.NoError(t, err)
	devices, err = enabled.Devices(t.Context())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, signer.SoftwareTokenID, devices[0].Info().ID)
	assert.Equal(t, "softtoken", enabled.Name())
	assert.NoError(t, enabled.Close())
}
