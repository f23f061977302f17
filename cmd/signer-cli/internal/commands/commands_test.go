//go:build unit
// +build unit

package commands

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MGTheTrain/crypto-signer/internal/app"
	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/softtoken"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/testutil"
)

// newTestHandler returns a handler over one in-memory signer backed by a
// software token in a temporary directory.
func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	log := testutil.SetupTestLogger(t)

	provider, err := softtoken.NewProvider(config.SoftwareTokenSettings{
		Enabled:   true,
		Directory: t.TempDir(),
		Algorithm: "ECDSA",
		KeySize:   256,
	}, log)
	require.NoError(t, err)

	s, err := app.NewSigner(config.SignerSettings{LockTimeout: 5 * time.Second}, nil, nil, []device.Provider{provider}, log)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	h, err := NewHandler(func(context.Context) (*app.Signer, func() error, error) {
		return s, func() error { return nil }, nil
	})
	require.NoError(t, err)
	return h
}

func execute(t *testing.T, h *Handler, args ...string) (string, error) {
	t.Helper()
	rootCmd := &cobra.Command{Use: "signer-cli", SilenceUsage: true, SilenceErrors: true}
	InitCommands(rootCmd, h)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands_KeyAndCertificateFlow(t *testing.T) {
	h := newTestHandler(t)
	dir := t.TempDir()

	_, err := execute(t, h, "tokens", "init-software", "--pin", "1234")
	require.NoError(t, err)

	out, err := execute(t, h, "tokens", "generate-key", signer.SoftwareTokenID, "--label", "sign", "--pin", "1234")
	require.NoError(t, err)
	var key signer.KeyInfo
	require.NoError(t, json.Unmarshal([]byte(out), &key))
	require.NotEmpty(t, key.ID)

	input := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(input, []byte("payload"), 0o600))
	sigFile := filepath.Join(dir, "data.sig")
	_, err = execute(t, h, "keys", "sign", key.ID, "--algorithm", "SHA256withECDSA", "--input-file", input, "--out", sigFile)
	require.NoError(t, err)

	sig, err := os.ReadFile(sigFile)
	require.NoError(t, err)
	pub, err := x509.ParsePKIXPublicKey(key.PublicKey)
	require.NoError(t, err)
	sum := sha256.Sum256([]byte("payload"))
	assert.True(t, ecdsa.VerifyASN1(pub.(*ecdsa.PublicKey), sum[:], sig))

	certFile := filepath.Join(dir, "cert.der")
	_, err = execute(t, h, "keys", "self-signed", key.ID, "--subject", "CN=cli,O=Example", "--member", "EE/GOV/1234", "--out", certFile)
	require.NoError(t, err)
	der, err := os.ReadFile(certFile)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	assert.Equal(t, "cli", cert.Subject.CommonName)

	out, err = execute(t, h, "members", "signing-info", "EE/GOV/1234")
	require.NoError(t, err)
	assert.Contains(t, out, key.ID)

	out, err = execute(t, h, "tokens", "list")
	require.NoError(t, err)
	var tokens []signer.TokenInfo
	require.NoError(t, json.Unmarshal([]byte(out), &tokens))
	require.Len(t, tokens, 1)
	require.Len(t, tokens[0].Keys, 1)
	assert.Len(t, tokens[0].Keys[0].Certs, 1)
}

func TestCommands_Errors(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown token", args: []string{"tokens", "get", "missing"}, wantErr: "Signer.TokenNotFound"},
		{name: "inactive token", args: []string{"tokens", "generate-key", signer.SoftwareTokenID}, wantErr: "Signer.TokenNotActive"},
		{name: "bad member id", args: []string{"members", "signing-info", "EE/GOV"}, wantErr: "invalid member id"},
		{name: "missing flag", args: []string{"tokens", "init-software"}, wantErr: "pin"},
		{name: "unknown algorithm", args: []string{"keys", "sign", "k", "--algorithm", "FOO", "--input-file", "x"}, wantErr: "unknown sign algorithm id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, h, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCommands_Ocsp(t *testing.T) {
	h := newTestHandler(t)
	respFile := filepath.Join(t.TempDir(), "resp.der")
	require.NoError(t, os.WriteFile(respFile, []byte("resp"), 0o600))

	_, err := execute(t, h, "ocsp", "set", "aa", respFile)
	require.NoError(t, err)

	out, err := execute(t, h, "ocsp", "get", "aa", "bb")
	require.NoError(t, err)
	var got map[string]*string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got["aa"])
	assert.Equal(t, "cmVzcA==", *got["aa"])
	assert.Nil(t, got["bb"])
}
