//go:build integration
// +build integration

package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/testutil"
)

func testConfig(t *testing.T) *config.SignerConfig {
	dir := t.TempDir()
	return &config.SignerConfig{
		Port: config.DefaultPort,
		Database: config.DatabaseSettings{
			Type: config.SqliteDbType,
			DSN:  filepath.Join(dir, "signer.db"),
			Name: "signer",
		},
		SoftwareToken: config.SoftwareTokenSettings{
			Enabled:   true,
			Directory: filepath.Join(dir, "softtoken"),
			Algorithm: "ECDSA",
			KeySize:   256,
		},
		Signer: config.SignerSettings{
			LockTimeout: 5 * time.Second,
		},
	}
}

func TestRuntime_PersistsAcrossRestart(t *testing.T) {
	cfg := testConfig(t)
	log := testutil.SetupTestLogger(t)
	ctx := context.Background()

	rt, err := New(ctx, cfg, log)
	require.NoError(t, err)

	require.NoError(t, rt.Signer.Tokens.InitSoftwareToken(ctx, "1234"))
	require.NoError(t, rt.Signer.Tokens.ActivateToken(ctx, signer.SoftwareTokenID, "1234"))
	key, err := rt.Signer.Keys.GenerateKey(ctx, signer.SoftwareTokenID, "sign")
	require.NoError(t, err)
	require.NoError(t, rt.Signer.Keys.SetKeyFriendlyName(ctx, key.ID, "primary"))
	require.NoError(t, rt.Signer.Ocsp.SetOcspResponses(ctx, []string{"aa"}, [][]byte{[]byte("resp")}))
	require.NoError(t, rt.Close())

	rt, err = New(ctx, cfg, log)
	require.NoError(t, err)
	defer func() { require.NoError(t, rt.Close()) }()

	token, err := rt.Signer.Tokens.GetToken(ctx, signer.SoftwareTokenID)
	require.NoError(t, err)
	assert.Equal(t, signer.TokenStateInitialized, token.State)
	assert.True(t, token.Available)
	require.Len(t, token.Keys, 1)
	assert.Equal(t, key.ID, token.Keys[0].ID)
	assert.Equal(t, "primary", token.Keys[0].FriendlyName)

	responses, err := rt.Signer.Ocsp.GetOcspResponses(ctx, []string{"aa"})
	require.NoError(t, err)
	assert.Equal(t, []byte("resp"), responses[0])
}

func TestProviders_SkipsBrokenModule(t *testing.T) {
	cfg := testConfig(t)
	cfg.PKCS11.Modules = []config.PKCS11ModuleSettings{
		{Name: "missing", LibraryPath: "/nonexistent/libpkcs11.so"},
	}

	providers, err := Providers(cfg, testutil.SetupTestLogger(t))
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "softtoken", providers[0].Name())
}
