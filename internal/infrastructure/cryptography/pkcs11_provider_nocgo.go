//go:build !cgo

package cryptography

import (
	"context"
	"errors"

	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

var errNoCGO = errors.New("pkcs11 support requires cgo")

// PKCS11Provider is unavailable without cgo.
type PKCS11Provider struct{}

// NewPKCS11Provider always fails when cgo is disabled.
func NewPKCS11Provider(config.PKCS11ModuleSettings, logger.Logger) (*PKCS11Provider, error) {
	return nil, errNoCGO
}

// Name returns an empty name.
func (p *PKCS11Provider) Name() string { return "" }

// Devices returns errNoCGO.
func (p *PKCS11Provider) Devices(context.Context) ([]device.Device, error) { return nil, errNoCGO }

// Close is a no-op.
func (p *PKCS11Provider) Close() error { return nil }
