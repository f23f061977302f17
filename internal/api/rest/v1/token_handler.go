package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
)

// TokenHandler defines the interface for handling token-related operations
type TokenHandler interface {
	List(ctx *gin.Context)
	GetByID(ctx *gin.Context)
	InitSoftwareToken(ctx *gin.Context)
	Activate(ctx *gin.Context)
	Deactivate(ctx *gin.Context)
	UpdatePin(ctx *gin.Context)
	SetFriendlyName(ctx *gin.Context)
	GenerateKey(ctx *gin.Context)
	IsHSMOperational(ctx *gin.Context)
}

// tokenHandler struct holds the services
type tokenHandler struct {
	tokenService signer.TokenService
	keyService   signer.KeyService
}

// NewTokenHandler creates a new TokenHandler
func NewTokenHandler(tokenService signer.TokenService, keyService signer.KeyService) TokenHandler {
	return &tokenHandler{
		tokenService: tokenService,
		keyService:   keyService,
	}
}

// List handles GET /tokens
// @Summary List tokens
// @Description Lists all known tokens ordered by ID, including their keys, certificates and certificate requests.
// @Tags Token
// @Produce json
// @Success 200 {array} signer.TokenInfo
// @Router /tokens [get]
func (handler *tokenHandler) List(ctx *gin.Context) {
	tokens, err := handler.tokenService.ListTokens(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	if tokens == nil {
		tokens = []signer.TokenInfo{}
	}
	ctx.JSON(http.StatusOK, tokens)
}

// GetByID handles GET /tokens/:id
// @Summary Retrieve a token
// @Tags Token
// @Produce json
// @Param id path string true "Token ID"
// @Success 200 {object} signer.TokenInfo
// @Failure 404 {object} ErrorResponse
// @Router /tokens/{id} [get]
func (handler *tokenHandler) GetByID(ctx *gin.Context) {
	token, err := handler.tokenService.GetToken(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, token)
}

// InitSoftwareToken handles POST /tokens/software/init
// @Summary Initialize the software token
// @Tags Token
// @Accept json
// @Produce json
// @Param requestBody body PinRequest true "PIN"
// @Success 200 {object} InfoResponse
// @Failure 409 {object} ErrorResponse
// @Router /tokens/software/init [post]
func (handler *tokenHandler) InitSoftwareToken(ctx *gin.Context) {
	var request PinRequest
	if !bindJSON(ctx, "TokenHandler.InitSoftwareToken", &request) {
		return
	}
	if err := handler.tokenService.InitSoftwareToken(ctx.Request.Context(), request.Pin); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, InfoResponse{Message: "software token initialized"})
}

// Activate handles POST /tokens/:id/activate
// @Summary Log a token in
// @Tags Token
// @Accept json
// @Produce json
// @Param id path string true "Token ID"
// @Param requestBody body PinRequest true "PIN"
// @Success 200 {object} InfoResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tokens/{id}/activate [post]
func (handler *tokenHandler) Activate(ctx *gin.Context) {
	var request PinRequest
	if !bindJSON(ctx, "TokenHandler.Activate", &request) {
		return
	}
	tokenID := ctx.Param("id")
	if err := handler.tokenService.ActivateToken(ctx.Request.Context(), tokenID, request.Pin); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, InfoResponse{Message: "token " + tokenID + " activated"})
}

// Deactivate handles POST /tokens/:id/deactivate
// @Summary Log a token out
// @Tags Token
// @Produce json
// @Param id path string true "Token ID"
// @Success 200 {object} InfoResponse
// @Failure 404 {object} ErrorResponse
// @Router /tokens/{id}/deactivate [post]
func (handler *tokenHandler) Deactivate(ctx *gin.Context) {
	tokenID := ctx.Param("id")
	if err := handler.tokenService.DeactivateToken(ctx.Request.Context(), tokenID); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, InfoResponse{Message: "token " + tokenID + " deactivated"})
}

// UpdatePin handles PUT /tokens/:id/pin
// @Summary Change the PIN of a token
// @Tags Token
// @Accept json
// @Produce json
// @Param id path string true "Token ID"
// @Param requestBody body UpdatePinRequest true "Old and new PIN"
// @Success 200 {object} InfoResponse
// @Failure 401 {object} ErrorResponse
// @Router /tokens/{id}/pin [put]
func (handler *tokenHandler) UpdatePin(ctx *gin.Context) {
	var request UpdatePinRequest
	if !bindJSON(ctx, "TokenHandler.UpdatePin", &request) {
		return
	}
	if err := handler.tokenService.UpdateTokenPin(ctx.Request.Context(), ctx.Param("id"), request.OldPin, request.NewPin); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, InfoResponse{Message: "PIN updated"})
}

// SetFriendlyName handles PUT /tokens/:id/name
func (handler *tokenHandler) SetFriendlyName(ctx *gin.Context) {
	var request FriendlyNameRequest
	if !bindJSON(ctx, "TokenHandler.SetFriendlyName", &request) {
		return
	}
	if err := handler.tokenService.SetTokenFriendlyName(ctx.Request.Context(), ctx.Param("id"), request.Name); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, InfoResponse{Message: "token renamed"})
}

// GenerateKey handles POST /tokens/:id/keys
// @Summary Generate a key on a token
// @Tags Token
// @Accept json
// @Produce json
// @Param id path string true "Token ID"
// @Param requestBody body GenerateKeyRequest false "Key label"
// @Success 201 {object} signer.KeyInfo
// @Failure 409 {object} ErrorResponse
// @Router /tokens/{id}/keys [post]
func (handler *tokenHandler) GenerateKey(ctx *gin.Context) {
	var request GenerateKeyRequest
	if ctx.Request.ContentLength != 0 && !bindJSON(ctx, "TokenHandler.GenerateKey", &request) {
		return
	}
	key, err := handler.keyService.GenerateKey(ctx.Request.Context(), ctx.Param("id"), request.Label)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, key)
}

// IsHSMOperational handles GET /hsm/operational
func (handler *tokenHandler) IsHSMOperational(ctx *gin.Context) {
	ok, err := handler.tokenService.IsHSMOperational(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OperationalResponse{Operational: ok})
}
