package softtoken

import (
	"context"

	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// Provider exposes the software token as a device provider.
type Provider struct {
	token *Token
}

var _ device.Provider = (*Provider)(nil)

// NewProvider creates a provider for the software token described by
// settings. A disabled software token yields a provider with no devices.
func NewProvider(settings config.SoftwareTokenSettings, logger logger.Logger, opt ...Option) (*Provider, error) {
	if !settings.Enabled {
		return &Provider{}, nil
	}
	token, err := NewToken(settings, logger, opt...)
	if err != nil {
		return nil, err
	}
	return &Provider{token: token}, nil
}

// Name implements device.Provider.
func (p *Provider) Name() string {
	return "softtoken"
}

// Devices implements device.Provider.
func (p *Provider) Devices(_ context.Context) ([]device.Device, error) {
	if p.token == nil {
		return nil, nil
	}
	return []device.Device{p.token}, nil
}

// Close implements device.Provider.
func (p *Provider) Close() error {
	if p.token == nil {
		return nil
	}
	return p.token.Logout()
}
