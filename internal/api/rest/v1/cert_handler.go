package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
)

// CertHandler defines the interface for handling certificate and
// certificate request operations
type CertHandler interface {
	RegenerateCertRequest(ctx *gin.Context)
	DeleteCertRequest(ctx *gin.Context)
	GetCertRequestToken(ctx *gin.Context)
	Import(ctx *gin.Context)
	Activate(ctx *gin.Context)
	Deactivate(ctx *gin.Context)
	SetStatus(ctx *gin.Context)
	DeleteByID(ctx *gin.Context)
	GetByHash(ctx *gin.Context)
	GetKeyByHash(ctx *gin.Context)
	GetTokenAndKeyByHash(ctx *gin.Context)
	GetMemberCerts(ctx *gin.Context)
	GetMemberSigningInfo(ctx *gin.Context)
}

// certHandler struct holds the services
type certHandler struct {
	tokenService  signer.TokenService
	certService   signer.CertService
	memberService signer.MemberService
}

// NewCertHandler creates a new CertHandler
func NewCertHandler(tokenService signer.TokenService, certService signer.CertService, memberService signer.MemberService) CertHandler {
	return &certHandler{
		tokenService:  tokenService,
		certService:   certService,
		memberService: memberService,
	}
}

// RegenerateCertRequest handles POST /csrs/:id/regenerate
// @Summary Re-create the bytes of a certificate request
// @Tags Certificate
// @Accept json
// @Produce json
// @Param id path string true "Certificate request ID"
// @Param requestBody body RegenerateCertRequestRequest true "Output format"
// @Success 200 {object} signer.GeneratedCertRequest
// @Failure 404 {object} ErrorResponse
// @Router /csrs/{id}/regenerate [post]
func (handler *certHandler) RegenerateCertRequest(ctx *gin.Context) {
	var request RegenerateCertRequestRequest
	if !bindJSON(ctx, "CertHandler.RegenerateCertRequest", &request) {
		return
	}
	csr, err := handler.certService.RegenerateCertRequest(ctx.Request.Context(), ctx.Param("id"), signer.CertRequestFormat(request.Format))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, csr)
}

// DeleteCertRequest handles DELETE /csrs/:id
func (handler *certHandler) DeleteCertRequest(ctx *gin.Context) {
	if err := handler.certService.DeleteCertRequest(ctx.Request.Context(), ctx.Param("id")); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.AbortWithStatus(http.StatusNoContent)
}

// GetCertRequestToken handles GET /csrs/:id/token
func (handler *certHandler) GetCertRequestToken(ctx *gin.Context) {
	pair, err := handler.tokenService.GetTokenAndKeyIDForCertRequestID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, pair)
}

// Import handles POST /certs/import
// @Summary Import a certificate
// @Description Attaches a certificate to the key holding its public key.
// @Tags Certificate
// @Accept json
// @Produce json
// @Param requestBody body ImportCertRequest true "Base64 DER or PEM certificate"
// @Success 201 {object} ImportCertResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /certs/import [post]
func (handler *certHandler) Import(ctx *gin.Context) {
	var request ImportCertRequest
	if !bindJSON(ctx, "CertHandler.Import", &request) {
		return
	}
	keyID, err := handler.certService.ImportCert(ctx.Request.Context(), request.Certificate, signer.CertStatus(request.InitialStatus), request.MemberID)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, ImportCertResponse{KeyID: keyID})
}

// Activate handles POST /certs/:id/activate
func (handler *certHandler) Activate(ctx *gin.Context) {
	if err := handler.certService.ActivateCert(ctx.Request.Context(), ctx.Param("id")); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, InfoResponse{Message: "certificate activated"})
}

// Deactivate handles POST /certs/:id/deactivate
func (handler *certHandler) Deactivate(ctx *gin.Context) {
	if err := handler.certService.DeactivateCert(ctx.Request.Context(), ctx.Param("id")); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, InfoResponse{Message: "certificate deactivated"})
}

// SetStatus handles PUT /certs/:id/status
func (handler *certHandler) SetStatus(ctx *gin.Context) {
	var request CertStatusRequest
	if !bindJSON(ctx, "CertHandler.SetStatus", &request) {
		return
	}
	if err := handler.certService.SetCertStatus(ctx.Request.Context(), ctx.Param("id"), signer.CertStatus(request.Status)); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, InfoResponse{Message: "certificate status updated"})
}

// DeleteByID handles DELETE /certs/:id
func (handler *certHandler) DeleteByID(ctx *gin.Context) {
	if err := handler.certService.DeleteCert(ctx.Request.Context(), ctx.Param("id")); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.AbortWithStatus(http.StatusNoContent)
}

// GetByHash handles GET /certs/hash/:hash
// @Summary Retrieve the active certificate with a hash
// @Tags Certificate
// @Produce json
// @Param hash path string true "Hex SHA-256 of the DER certificate"
// @Success 200 {object} signer.CertificateInfo
// @Failure 404 {object} ErrorResponse
// @Router /certs/hash/{hash} [get]
func (handler *certHandler) GetByHash(ctx *gin.Context) {
	cert, err := handler.certService.GetCertForHash(ctx.Request.Context(), ctx.Param("hash"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, cert)
}

// GetKeyByHash handles GET /certs/hash/:hash/key
func (handler *certHandler) GetKeyByHash(ctx *gin.Context) {
	key, err := handler.certService.GetKeyIDForCertHash(ctx.Request.Context(), ctx.Param("hash"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, key)
}

// GetTokenAndKeyByHash handles GET /certs/hash/:hash/token-and-key
func (handler *certHandler) GetTokenAndKeyByHash(ctx *gin.Context) {
	pair, err := handler.certService.GetTokenAndKeyIDForCertHash(ctx.Request.Context(), ctx.Param("hash"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, pair)
}

// GetMemberCerts handles POST /members/certs
func (handler *certHandler) GetMemberCerts(ctx *gin.Context) {
	var member signer.MemberID
	if !bindJSON(ctx, "CertHandler.GetMemberCerts", &member) {
		return
	}
	certs, err := handler.certService.GetMemberCerts(ctx.Request.Context(), member)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	if certs == nil {
		certs = []signer.CertificateInfo{}
	}
	ctx.JSON(http.StatusOK, certs)
}

// GetMemberSigningInfo handles POST /members/signing-info
// @Summary Resolve the signing key and certificate of a member
// @Tags Member
// @Accept json
// @Produce json
// @Param requestBody body signer.MemberID true "Member identifier"
// @Success 200 {object} signer.MemberSigningInfo
// @Failure 404 {object} ErrorResponse
// @Router /members/signing-info [post]
func (handler *certHandler) GetMemberSigningInfo(ctx *gin.Context) {
	var member signer.MemberID
	if !bindJSON(ctx, "CertHandler.GetMemberSigningInfo", &member) {
		return
	}
	info, err := handler.memberService.GetMemberSigningInfo(ctx.Request.Context(), member)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, info)
}
