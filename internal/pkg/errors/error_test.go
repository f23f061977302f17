//go:build unit
// +build unit

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErr_Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "token not found",
			err:  ErrTokenNotFound("test", "some-token-id"),
			want: "Signer.TokenNotFound: Token 'some-token-id' not found",
		},
		{
			name: "key not found",
			err:  ErrKeyNotFound("test", "some-key-id"),
			want: "Signer.KeyNotFound: Key 'some-key-id' not found",
		},
		{
			name: "cert not found",
			err:  ErrCertNotFound("test", "some-cert"),
			want: "Signer.CertNotFound: Certificate with id 'some-cert' not found",
		},
		{
			name: "csr not found",
			err:  ErrCsrNotFound("test", "some-csr"),
			want: "Signer.CsrNotFound: Certificate request 'some-csr' not found",
		},
		{
			name: "cannot sign",
			err:  New(CannotSign, "test", "Unknown sign algorithm id: NOT-ALGORITHM-ID"),
			want: "Signer.CannotSign.InternalError: Unknown sign algorithm id: NOT-ALGORITHM-ID",
		},
		{
			name: "message from wrapped",
			err:  New(InternalError, "test", "", WithWrap(fmt.Errorf("disk full"))),
			want: "Signer.InternalError: disk full",
		},
		{
			name: "fault only",
			err:  New(Timeout, "test", ""),
			want: "Signer.Timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErr_TranslationCode(t *testing.T) {
	err := Convert(ErrCertWithHashNotFound("test", "abc"))
	assert.Equal(t, CertNotFound, err.Code)
	assert.Equal(t, "certificate_with_hash_not_found", err.TranslationCode())

	err = Convert(ErrCertNotFound("test", "abc"))
	assert.Equal(t, "cert_with_id_not_found", err.TranslationCode())

	err = Convert(New(CannotSign, "test", "x"))
	assert.Empty(t, err.TranslationCode())
}

func TestWrap(t *testing.T) {
	t.Run("preserves code", func(t *testing.T) {
		inner := New(WrongCertUsage, "inner", "nope", WithTranslation(TranslationAuthCertUnderSoftToken))
		err := Wrap(inner, "outer")
		require.True(t, Match(WrongCertUsage, err))

		e := Convert(err)
		assert.Equal(t, Op("outer"), e.Op)
		assert.Equal(t, "auth_cert_under_softtoken", e.TranslationCode())
		assert.Equal(t, "Signer.WrongCertUsage: nope", e.Error())
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		plain := fmt.Errorf("boom")
		err := Wrap(plain, "outer")
		assert.True(t, Match(InternalError, err))
		assert.True(t, stderrors.Is(err, plain))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "outer"))
	})
}

func TestErr_Is(t *testing.T) {
	err := fmt.Errorf("context: %w", ErrKeyNotFound("test", "k"))
	assert.True(t, stderrors.Is(err, &Err{Code: KeyNotFound}))
	assert.False(t, stderrors.Is(err, &Err{Code: TokenNotFound}))
	assert.False(t, Match(KeyNotFound, fmt.Errorf("plain")))
	assert.False(t, Match(KeyNotFound, nil))
}

func TestKind_Mapping(t *testing.T) {
	tests := []struct {
		code     Code
		httpCode int
		grpcCode codes.Code
	}{
		{TokenNotFound, http.StatusNotFound, codes.NotFound},
		{InvalidParameter, http.StatusBadRequest, codes.InvalidArgument},
		{AuthFailed, http.StatusUnauthorized, codes.Unauthenticated},
		{KeyInUse, http.StatusConflict, codes.AlreadyExists},
		{TokenNotActive, http.StatusConflict, codes.FailedPrecondition},
		{Timeout, http.StatusServiceUnavailable, codes.DeadlineExceeded},
		{CannotSign, http.StatusInternalServerError, codes.Internal},
		{Code(999), http.StatusInternalServerError, codes.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			kind := tt.code.Info().Kind
			assert.Equal(t, tt.httpCode, kind.HTTPStatus())
			assert.Equal(t, tt.grpcCode, kind.GRPCCode())
		})
	}
}

func TestErr_GRPCStatus(t *testing.T) {
	err := ErrTokenNotFound("test", "t1")
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
	assert.Equal(t, "Signer.TokenNotFound: Token 't1' not found", st.Message())
}
