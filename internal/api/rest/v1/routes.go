package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
)

// Services groups the signer services exposed over REST.
type Services struct {
	Tokens  signer.TokenService
	Keys    signer.KeyService
	Certs   signer.CertService
	Signing signer.SigningService
	Ocsp    signer.OcspService
	Members signer.MemberService
}

// SetupRoutes sets up all the API routes for version 1.
func SetupRoutes(r *gin.Engine, services Services) {
	v1 := r.Group(BasePath)

	// Token Routes
	tokenHandler := NewTokenHandler(services.Tokens, services.Keys)
	v1.GET("/tokens", tokenHandler.List)
	v1.GET("/tokens/:id", tokenHandler.GetByID)
	v1.POST("/tokens/software/init", tokenHandler.InitSoftwareToken)
	v1.POST("/tokens/:id/activate", tokenHandler.Activate)
	v1.POST("/tokens/:id/deactivate", tokenHandler.Deactivate)
	v1.PUT("/tokens/:id/pin", tokenHandler.UpdatePin)
	v1.PUT("/tokens/:id/name", tokenHandler.SetFriendlyName)
	v1.POST("/tokens/:id/keys", tokenHandler.GenerateKey)
	v1.GET("/hsm/operational", tokenHandler.IsHSMOperational)

	// Key Routes
	keyHandler := NewKeyHandler(services.Tokens, services.Keys, services.Certs, services.Signing)
	v1.GET("/keys", keyHandler.Find)
	v1.GET("/keys/:id/token", keyHandler.GetToken)
	v1.PUT("/keys/:id/name", keyHandler.SetFriendlyName)
	v1.DELETE("/keys/:id", keyHandler.DeleteByID)
	v1.GET("/keys/:id/sign-mechanism", keyHandler.GetSignMechanism)
	v1.GET("/keys/:id/batch-signing", keyHandler.IsBatchSigningEnabled)
	v1.POST("/keys/:id/csrs", keyHandler.GenerateCertRequest)
	v1.POST("/keys/:id/self-signed", keyHandler.GenerateSelfSignedCert)
	v1.POST("/keys/:id/sign", keyHandler.Sign)
	v1.POST("/keys/:id/sign-certificate", keyHandler.SignCertificate)

	// Certificate Routes
	certHandler := NewCertHandler(services.Tokens, services.Certs, services.Members)
	v1.POST("/csrs/:id/regenerate", certHandler.RegenerateCertRequest)
	v1.DELETE("/csrs/:id", certHandler.DeleteCertRequest)
	v1.GET("/csrs/:id/token", certHandler.GetCertRequestToken)
	v1.POST("/certs/import", certHandler.Import)
	v1.POST("/certs/:id/activate", certHandler.Activate)
	v1.POST("/certs/:id/deactivate", certHandler.Deactivate)
	v1.PUT("/certs/:id/status", certHandler.SetStatus)
	v1.DELETE("/certs/:id", certHandler.DeleteByID)
	v1.GET("/certs/hash/:hash", certHandler.GetByHash)
	v1.GET("/certs/hash/:hash/key", certHandler.GetKeyByHash)
	v1.GET("/certs/hash/:hash/token-and-key", certHandler.GetTokenAndKeyByHash)
	v1.POST("/members/certs", certHandler.GetMemberCerts)
	v1.POST("/members/signing-info", certHandler.GetMemberSigningInfo)

	// OCSP Routes
	ocspHandler := NewOcspHandler(services.Ocsp)
	v1.PUT("/ocsp", ocspHandler.SetResponses)
	v1.POST("/ocsp/query", ocspHandler.Query)
}
