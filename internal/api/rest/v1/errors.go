package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"

	signererrors "github.com/MGTheTrain/crypto-signer/internal/pkg/errors"
)

// newErrorResponse renders err and picks the status code of its kind.
// Errors outside the taxonomy are internal errors.
func newErrorResponse(err error) (int, ErrorResponse) {
	e := signererrors.Convert(err)
	msg := e.Msg
	if msg == "" {
		msg = e.Error()
	}
	return e.Info().Kind.HTTPStatus(), ErrorResponse{
		FaultCode:       e.Fault(),
		TranslationCode: e.TranslationCode(),
		Message:         msg,
	}
}

func abortWithError(ctx *gin.Context, err error) {
	status, body := newErrorResponse(err)
	ctx.AbortWithStatusJSON(status, body)
}

// bindJSON decodes and validates the body into request. It writes the
// error response and returns false on failure.
func bindJSON(ctx *gin.Context, op signererrors.Op, request any) bool {
	if err := ctx.ShouldBindJSON(request); err != nil {
		abortWithError(ctx, signererrors.New(signererrors.InvalidParameter, op,
			fmt.Sprintf("invalid request body: %v", err), signererrors.WithWrap(err)))
		return false
	}
	if v, ok := request.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			abortWithError(ctx, signererrors.New(signererrors.InvalidParameter, op, err.Error(), signererrors.WithWrap(err)))
			return false
		}
	}
	return true
}
