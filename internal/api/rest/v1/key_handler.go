package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	signererrors "github.com/MGTheTrain/crypto-signer/internal/pkg/errors"
)

// KeyHandler defines the interface for handling key-related operations
type KeyHandler interface {
	Find(ctx *gin.Context)
	GetToken(ctx *gin.Context)
	SetFriendlyName(ctx *gin.Context)
	DeleteByID(ctx *gin.Context)
	GetSignMechanism(ctx *gin.Context)
	IsBatchSigningEnabled(ctx *gin.Context)
	GenerateCertRequest(ctx *gin.Context)
	GenerateSelfSignedCert(ctx *gin.Context)
	Sign(ctx *gin.Context)
	SignCertificate(ctx *gin.Context)
}

// keyHandler struct holds the services
type keyHandler struct {
	tokenService   signer.TokenService
	keyService     signer.KeyService
	certService    signer.CertService
	signingService signer.SigningService
}

// NewKeyHandler creates a new KeyHandler
func NewKeyHandler(tokenService signer.TokenService, keyService signer.KeyService, certService signer.CertService, signingService signer.SigningService) KeyHandler {
	return &keyHandler{
		tokenService:   tokenService,
		keyService:     keyService,
		certService:    certService,
		signingService: signingService,
	}
}

// Find handles GET /keys?tokenName=&keyName=
// @Summary Find a key by friendly names
// @Tags Key
// @Produce json
// @Param tokenName query string true "Token friendly name"
// @Param keyName query string true "Key friendly name"
// @Success 200 {object} signer.KeyInfo
// @Failure 404 {object} ErrorResponse
// @Router /keys [get]
func (handler *keyHandler) Find(ctx *gin.Context) {
	tokenName, keyName := ctx.Query("tokenName"), ctx.Query("keyName")
	if tokenName == "" || keyName == "" {
		abortWithError(ctx, signererrors.New(signererrors.InvalidParameter, "KeyHandler.Find",
			"query parameters tokenName and keyName are required"))
		return
	}
	key, err := handler.keyService.FindKey(ctx.Request.Context(), tokenName, keyName)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, key)
}

// GetToken handles GET /keys/:id/token
func (handler *keyHandler) GetToken(ctx *gin.Context) {
	token, err := handler.tokenService.GetTokenForKeyID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, token)
}

// SetFriendlyName handles PUT /keys/:id/name
func (handler *keyHandler) SetFriendlyName(ctx *gin.Context) {
	var request FriendlyNameRequest
	if !bindJSON(ctx, "KeyHandler.SetFriendlyName", &request) {
		return
	}
	if err := handler.keyService.SetKeyFriendlyName(ctx.Request.Context(), ctx.Param("id"), request.Name); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, InfoResponse{Message: "key renamed"})
}

// DeleteByID handles DELETE /keys/:id?force=
// @Summary Delete a key
// @Description Deletes a key from its token. Without force, keys carrying an active certificate are refused.
// @Tags Key
// @Produce json
// @Param id path string true "Key ID"
// @Param force query bool false "Also delete active certificates"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /keys/{id} [delete]
func (handler *keyHandler) DeleteByID(ctx *gin.Context) {
	force := false
	if raw := ctx.Query("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			abortWithError(ctx, signererrors.New(signererrors.InvalidParameter, "KeyHandler.DeleteByID",
				"query parameter force must be a boolean", signererrors.WithWrap(err)))
			return
		}
		force = parsed
	}
	if err := handler.keyService.DeleteKey(ctx.Request.Context(), ctx.Param("id"), force); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.AbortWithStatus(http.StatusNoContent)
}

// GetSignMechanism handles GET /keys/:id/sign-mechanism
func (handler *keyHandler) GetSignMechanism(ctx *gin.Context) {
	mechanism, err := handler.keyService.GetSignMechanism(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, SignMechanismResponse{SignMechanism: mechanism})
}

// IsBatchSigningEnabled handles GET /keys/:id/batch-signing
func (handler *keyHandler) IsBatchSigningEnabled(ctx *gin.Context) {
	enabled, err := handler.keyService.IsTokenBatchSigningEnabled(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, BatchSigningResponse{BatchSigningEnabled: enabled})
}

// GenerateCertRequest handles POST /keys/:id/csrs
// @Summary Generate a certificate signing request
// @Tags Key
// @Accept json
// @Produce json
// @Param id path string true "Key ID"
// @Param requestBody body CertRequestRequest true "Request parameters"
// @Success 201 {object} signer.GeneratedCertRequest
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /keys/{id}/csrs [post]
func (handler *keyHandler) GenerateCertRequest(ctx *gin.Context) {
	var request CertRequestRequest
	if !bindJSON(ctx, "KeyHandler.GenerateCertRequest", &request) {
		return
	}
	csr, err := handler.certService.GenerateCertRequest(ctx.Request.Context(), request.Params(ctx.Param("id")))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, csr)
}

// GenerateSelfSignedCert handles POST /keys/:id/self-signed
func (handler *keyHandler) GenerateSelfSignedCert(ctx *gin.Context) {
	var request SelfSignedCertRequest
	if !bindJSON(ctx, "KeyHandler.GenerateSelfSignedCert", &request) {
		return
	}
	der, err := handler.certService.GenerateSelfSignedCert(ctx.Request.Context(), request.Params(ctx.Param("id")))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, CertificateResponse{Certificate: der})
}

// Sign handles POST /keys/:id/sign
// @Summary Sign a digest
// @Tags Key
// @Accept json
// @Produce json
// @Param id path string true "Key ID"
// @Param requestBody body SignRequest true "Algorithm and base64 digest"
// @Success 200 {object} SignatureResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /keys/{id}/sign [post]
func (handler *keyHandler) Sign(ctx *gin.Context) {
	var request SignRequest
	if !bindJSON(ctx, "KeyHandler.Sign", &request) {
		return
	}
	signature, err := handler.signingService.Sign(ctx.Request.Context(), ctx.Param("id"), request.AlgorithmID, request.Digest)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, SignatureResponse{Signature: signature})
}

// SignCertificate handles POST /keys/:id/sign-certificate
func (handler *keyHandler) SignCertificate(ctx *gin.Context) {
	var request SignCertificateRequest
	if !bindJSON(ctx, "KeyHandler.SignCertificate", &request) {
		return
	}
	der, err := handler.signingService.SignCertificate(ctx.Request.Context(), ctx.Param("id"), request.AlgorithmID, request.SubjectName, request.PublicKey)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, CertificateResponse{Certificate: der})
}
