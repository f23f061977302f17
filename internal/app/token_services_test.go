//go:build unit
// +build unit

package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	signererrors "github.com/MGTheTrain/crypto-signer/internal/pkg/errors"
)

func TestTokenService_ListTokens(t *testing.T) {
	st := NewSignerTests(t)
	ctx := context.Background()

	tokens, err := st.signer.Tokens.ListTokens(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, signer.SoftwareTokenID, tokens[0].ID)
	assert.Equal(t, "hsm-1", tokens[1].ID)
	assert.Equal(t, "label-hsm-1", tokens[1].FriendlyName)
	assert.Equal(t, signer.TokenStateInitialized, tokens[1].State)
	assert.True(t, tokens[1].Available)

	st.hsm.setStatusErr(errors.New("slot not responding"))
	tokens, err = st.signer.Tokens.ListTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, signer.TokenStateUnknown, tokens[1].State)
	assert.Equal(t, signer.TokenStateInitialized, tokens[0].State)

	operational, err := st.signer.Tokens.IsHSMOperational(ctx)
	require.NoError(t, err)
	assert.False(t, operational)
}

func TestTokenService_GetToken(t *testing.T) {
	st := NewSignerTests(t)
	ctx := context.Background()

	token, err := st.signer.Tokens.GetToken(ctx, "hsm-1")
	require.NoError(t, err)
	assert.Equal(t, signer.TokenTypeHardware, token.Type)
	assert.Equal(t, "serial-hsm-1", token.SerialNumber)

	_, err = st.signer.Tokens.GetToken(ctx, "missing")
	assert.True(t, signererrors.Match(signererrors.TokenNotFound, err))
	assert.Contains(t, err.Error(), "missing")
}

func TestTokenService_InitSoftwareToken(t *testing.T) {
	st := NewSignerTests(t)
	ctx := context.Background()

	err := st.signer.Tokens.InitSoftwareToken(ctx, testPin)
	assert.True(t, signererrors.Match(signererrors.AlreadyInitialized, err))

	st.soft.initialized = false
	require.NoError(t, st.signer.Reconciler.Reconcile(ctx))

	err = st.signer.Tokens.InitSoftwareToken(ctx, "")
	assert.True(t, signererrors.Match(signererrors.InvalidParameter, err))

	require.NoError(t, st.signer.Tokens.InitSoftwareToken(ctx, "5678"))
	token, err := st.signer.Tokens.GetToken(ctx, signer.SoftwareTokenID)
	require.NoError(t, err)
	assert.Equal(t, signer.TokenStateInitialized, token.State)

	err = st.signer.Tokens.InitSoftwareToken(ctx, "5678")
	assert.True(t, signererrors.Match(signererrors.AlreadyInitialized, err))

	require.NoError(t, st.signer.Tokens.ActivateToken(ctx, signer.SoftwareTokenID, "5678"))
}

func TestTokenService_ActivateToken(t *testing.T) {
	tests := []struct {
		name            string
		tokenID         string
		pin             string
		wantCode        signererrors.Code
		wantTranslation string
		wantState       signer.TokenState
	}{
		{
			name:      "correct PIN",
			tokenID:   "hsm-1",
			pin:       testPin,
			wantState: signer.TokenStateActive,
		},
		{
			name:            "wrong PIN",
			tokenID:         "hsm-1",
			pin:             "0000",
			wantCode:        signererrors.AuthFailed,
			wantTranslation: "pin_incorrect",
			wantState:       signer.TokenStateInitialized,
		},
		{
			name:     "unknown token",
			tokenID:  "nope",
			pin:      testPin,
			wantCode: signererrors.TokenNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewSignerTests(t)
			ctx := context.Background()

			err := st.signer.Tokens.ActivateToken(ctx, tt.tokenID, tt.pin)
			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.True(t, signererrors.Match(tt.wantCode, err), err.Error())
				if tt.wantTranslation != "" {
					assert.Equal(t, tt.wantTranslation, signererrors.Convert(err).TranslationCode())
				}
			} else {
				require.NoError(t, err)
			}

			if tt.wantState != "" {
				token, err := st.signer.Tokens.GetToken(ctx, tt.tokenID)
				require.NoError(t, err)
				assert.Equal(t, tt.wantState, token.State)
			}
		})
	}
}

func TestTokenService_PinLocked(t *testing.T) {
	st := NewSignerTests(t)
	ctx := context.Background()

	err := st.signer.Tokens.ActivateToken(ctx, "hsm-1", "bad")
	assert.Equal(t, "pin_incorrect", signererrors.Convert(err).TranslationCode())

	err = st.signer.Tokens.ActivateToken(ctx, "hsm-1", "bad")
	assert.True(t, signererrors.Match(signererrors.AuthFailed, err))
	token, _ := st.signer.Tokens.GetToken(ctx, "hsm-1")
	assert.Equal(t, signer.PinStateFinalTry, token.PinState)

	err = st.signer.Tokens.ActivateToken(ctx, "hsm-1", "bad")
	assert.True(t, signererrors.Match(signererrors.AuthFailed, err))
	assert.Equal(t, signererrors.TranslationPinLocked, signererrors.Convert(err).TranslationCode())

	err = st.signer.Tokens.ActivateToken(ctx, "hsm-1", testPin)
	assert.Equal(t, signererrors.TranslationPinLocked, signererrors.Convert(err).TranslationCode())
	token, _ = st.signer.Tokens.GetToken(ctx, "hsm-1")
	assert.Equal(t, signer.PinStateLocked, token.PinState)
}

func TestTokenService_DeactivateToken(t *testing.T) {
	st := NewSignerTests(t)
	ctx := context.Background()
	st.activate(t, "hsm-1")

	require.NoError(t, st.signer.Tokens.DeactivateToken(ctx, "hsm-1"))
	require.NoError(t, st.signer.Tokens.DeactivateToken(ctx, "hsm-1"))

	token, err := st.signer.Tokens.GetToken(ctx, "hsm-1")
	require.NoError(t, err)
	assert.Equal(t, signer.TokenStateInitialized, token.State)

	err = st.signer.Tokens.DeactivateToken(ctx, "nope")
	assert.True(t, signererrors.Match(signererrors.TokenNotFound, err))
}

func TestTokenService_UpdateTokenPin(t *testing.T) {
	st := NewSignerTests(t)
	ctx := context.Background()

	err := st.signer.Tokens.UpdateTokenPin(ctx, "hsm-1", "wrong", "4321")
	assert.True(t, signererrors.Match(signererrors.AuthFailed, err))

	err = st.signer.Tokens.UpdateTokenPin(ctx, "nope", testPin, "4321")
	assert.True(t, signererrors.Match(signererrors.TokenNotFound, err))

	require.NoError(t, st.signer.Tokens.UpdateTokenPin(ctx, "hsm-1", testPin, "4321"))
	require.NoError(t, st.signer.Tokens.ActivateToken(ctx, "hsm-1", "4321"))
}

func TestTokenService_SetTokenFriendlyName(t *testing.T) {
	st := NewSignerTests(t)
	ctx := context.Background()

	require.NoError(t, st.signer.Tokens.SetTokenFriendlyName(ctx, "hsm-1", "primary"))
	token, err := st.signer.Tokens.GetToken(ctx, "hsm-1")
	require.NoError(t, err)
	assert.Equal(t, "primary", token.FriendlyName)

	err = st.signer.Tokens.SetTokenFriendlyName(ctx, "nope", "x")
	assert.True(t, signererrors.Match(signererrors.TokenNotFound, err))
}

func TestTokenService_LookupsByKeyAndRequest(t *testing.T) {
	st := NewSignerTests(t)
	ctx := context.Background()
	st.activate(t, signer.SoftwareTokenID)
	key := st.generateKey(t, signer.SoftwareTokenID, "auth")

	token, err := st.signer.Tokens.GetTokenForKeyID(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, signer.SoftwareTokenID, token.ID)
	require.Len(t, token.Keys, 1)

	csr, err := st.signer.Certs.GenerateCertRequest(ctx, signer.CertRequestParams{
		KeyID:       key.ID,
		Usage:       signer.KeyUsageAuthentication,
		SubjectName: "CN=node",
		Format:      signer.CertRequestFormatDER,
	})
	require.NoError(t, err)

	pair, err := st.signer.Tokens.GetTokenAndKeyIDForCertRequestID(ctx, csr.ID)
	require.NoError(t, err)
	assert.Equal(t, key.ID, pair.KeyID)
	assert.Equal(t, signer.SoftwareTokenID, pair.Token.ID)

	_, err = st.signer.Tokens.GetTokenAndKeyIDForCertRequestID(ctx, "nope")
	assert.True(t, signererrors.Match(signererrors.CsrNotFound, err))

	_, err = st.signer.Tokens.GetTokenForKeyID(ctx, "nope")
	assert.True(t, signererrors.Match(signererrors.KeyNotFound, err))
}
