package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
)

// OcspHandler defines the interface for handling OCSP cache operations
type OcspHandler interface {
	SetResponses(ctx *gin.Context)
	Query(ctx *gin.Context)
}

type ocspHandler struct {
	ocspService signer.OcspService
}

// NewOcspHandler creates a new OcspHandler
func NewOcspHandler(ocspService signer.OcspService) OcspHandler {
	return &ocspHandler{ocspService: ocspService}
}

// SetResponses handles PUT /ocsp
// @Summary Cache OCSP responses
// @Description Stores responses[i] under hashes[i]. Both lists must have the same length.
// @Tags OCSP
// @Accept json
// @Produce json
// @Param requestBody body SetOcspResponsesRequest true "Hashes and base64 DER responses"
// @Success 200 {object} InfoResponse
// @Failure 400 {object} ErrorResponse
// @Router /ocsp [put]
func (handler *ocspHandler) SetResponses(ctx *gin.Context) {
	var request SetOcspResponsesRequest
	if !bindJSON(ctx, "OcspHandler.SetResponses", &request) {
		return
	}
	if err := handler.ocspService.SetOcspResponses(ctx.Request.Context(), request.Hashes, request.Responses); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, InfoResponse{Message: "OCSP responses cached"})
}

// Query handles POST /ocsp/query
func (handler *ocspHandler) Query(ctx *gin.Context) {
	var request OcspQueryRequest
	if !bindJSON(ctx, "OcspHandler.Query", &request) {
		return
	}
	responses, err := handler.ocspService.GetOcspResponses(ctx.Request.Context(), request.Hashes)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	if responses == nil {
		responses = [][]byte{}
	}
	ctx.JSON(http.StatusOK, OcspResponsesResponse{Responses: responses})
}
