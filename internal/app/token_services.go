package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
	signererrors "github.com/MGTheTrain/crypto-signer/internal/pkg/errors"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// tokenService implements the TokenService interface
type tokenService struct {
	registry    *registry.Registry
	coordinator *Coordinator
	logger      logger.Logger
}

// NewTokenService creates a new tokenService instance
func NewTokenService(registry *registry.Registry, coordinator *Coordinator, logger logger.Logger) (signer.TokenService, error) {
	return &tokenService{
		registry:    registry,
		coordinator: coordinator,
		logger:      logger,
	}, nil
}

// withLiveStatus overlays the device's current login state on a token view.
// Status failures are reported as TokenStateUnknown.
func (s *tokenService) withLiveStatus(info signer.TokenInfo) signer.TokenInfo {
	dev, ok := s.coordinator.Device(info.ID)
	if !ok {
		return info
	}
	st, err := dev.Status()
	if err != nil {
		s.logger.Warn("Failed to read status of token ", info.ID, ": ", err)
		info.State = signer.TokenStateUnknown
		return info
	}
	info.State = st.TokenState()
	info.PinState = st.PinState
	return info
}

// ListTokens returns every known token ordered by ID
func (s *tokenService) ListTokens(_ context.Context) ([]signer.TokenInfo, error) {
	infos := s.registry.Snapshot().TokenInfos()
	for i := range infos {
		infos[i] = s.withLiveStatus(infos[i])
	}
	return infos, nil
}

// GetToken returns a single token
func (s *tokenService) GetToken(_ context.Context, tokenID string) (*signer.TokenInfo, error) {
	const op = "TokenService.GetToken"

	info, ok := s.registry.Snapshot().TokenInfo(tokenID)
	if !ok {
		return nil, signererrors.ErrTokenNotFound(op, tokenID)
	}
	info = s.withLiveStatus(info)
	return &info, nil
}

// GetTokenForKeyID returns the token holding a key
func (s *tokenService) GetTokenForKeyID(_ context.Context, keyID string) (*signer.TokenInfo, error) {
	const op = "TokenService.GetTokenForKeyID"

	snap := s.registry.Snapshot()
	_, t, err := lookupKey(snap, op, keyID)
	if err != nil {
		return nil, err
	}
	info, _ := snap.TokenInfo(t.ID)
	info = s.withLiveStatus(info)
	return &info, nil
}

// GetTokenAndKeyIDForCertRequestID returns the token and key owning a
// certificate request
func (s *tokenService) GetTokenAndKeyIDForCertRequestID(_ context.Context, csrID string) (*signer.TokenInfoAndKeyID, error) {
	const op = "TokenService.GetTokenAndKeyIDForCertRequestID"

	snap := s.registry.Snapshot()
	req, ok := snap.CertRequest(csrID)
	if !ok {
		return nil, signererrors.ErrCsrNotFound(op, csrID)
	}
	_, t, err := lookupKey(snap, op, req.KeyID)
	if err != nil {
		return nil, err
	}
	info, _ := snap.TokenInfo(t.ID)
	return &signer.TokenInfoAndKeyID{Token: s.withLiveStatus(info), KeyID: req.KeyID}, nil
}

// InitSoftwareToken sets the PIN of the uninitialized software token
func (s *tokenService) InitSoftwareToken(ctx context.Context, pin string) error {
	const op = "TokenService.InitSoftwareToken"

	if pin == "" {
		return signererrors.New(signererrors.InvalidParameter, op, "PIN must not be empty")
	}
	tokenID := signer.SoftwareTokenID
	t, err := lookupToken(s.registry.Snapshot(), op, tokenID)
	if err != nil {
		return err
	}
	if t.State != signer.TokenStateUninitialized && t.State != signer.TokenStateUnknown {
		return signererrors.New(signererrors.AlreadyInitialized, op, "Software token already initialized")
	}

	err = s.coordinator.Do(ctx, tokenID, func(dev device.Device) error {
		if err := dev.Initialize(pin); err != nil {
			return deviceError(op, tokenID, err)
		}
		return s.registry.Update(ctx, func(tx *registry.Tx) error {
			cur, ok := tx.Token(tokenID)
			if !ok {
				return signererrors.ErrTokenNotFound(op, tokenID)
			}
			cur.State = signer.TokenStateInitialized
			cur.PinState = signer.PinStateOK
			tx.PutToken(cur)
			return nil
		})
	})
	if err != nil {
		return signererrors.Wrap(err, op)
	}

	s.logger.Info("Initialized software token")
	return nil
}

// ActivateToken logs a token in with pin
func (s *tokenService) ActivateToken(ctx context.Context, tokenID, pin string) error {
	const op = "TokenService.ActivateToken"

	if _, err := lookupToken(s.registry.Snapshot(), op, tokenID); err != nil {
		return err
	}

	err := s.coordinator.Do(ctx, tokenID, func(dev device.Device) error {
		loginErr := dev.Login(pin)
		if loginErr != nil && !errors.Is(loginErr, device.ErrPinIncorrect) && !errors.Is(loginErr, device.ErrPinLocked) {
			return deviceError(op, tokenID, loginErr)
		}

		st, statusErr := dev.Status()
		updateErr := s.registry.Update(ctx, func(tx *registry.Tx) error {
			cur, ok := tx.Token(tokenID)
			if !ok {
				return signererrors.ErrTokenNotFound(op, tokenID)
			}
			switch {
			case statusErr != nil:
				cur.State = signer.TokenStateUnknown
			case loginErr == nil:
				cur.State = signer.TokenStateActive
				cur.PinState = st.PinState
			default:
				cur.State = st.TokenState()
				cur.PinState = st.PinState
			}
			tx.PutToken(cur)
			return nil
		})
		if loginErr != nil {
			return deviceError(op, tokenID, loginErr)
		}
		return updateErr
	})
	if err != nil {
		return signererrors.Wrap(err, op)
	}

	s.logger.Info("Activated token ", tokenID)
	return nil
}

// DeactivateToken logs a token out. Deactivating an inactive token succeeds.
func (s *tokenService) DeactivateToken(ctx context.Context, tokenID string) error {
	const op = "TokenService.DeactivateToken"

	t, err := lookupToken(s.registry.Snapshot(), op, tokenID)
	if err != nil {
		return err
	}

	setLoggedOut := func() error {
		return s.registry.Update(ctx, func(tx *registry.Tx) error {
			cur, ok := tx.Token(tokenID)
			if !ok {
				return signererrors.ErrTokenNotFound(op, tokenID)
			}
			if cur.State == signer.TokenStateActive {
				cur.State = signer.TokenStateInitialized
			}
			tx.PutToken(cur)
			return nil
		})
	}

	if !t.Available {
		err = s.coordinator.Lock(ctx, tokenID, setLoggedOut)
	} else {
		err = s.coordinator.Do(ctx, tokenID, func(dev device.Device) error {
			if err := dev.Logout(); err != nil && !errors.Is(err, device.ErrNotLoggedIn) {
				return deviceError(op, tokenID, err)
			}
			return setLoggedOut()
		})
	}
	if err != nil {
		return signererrors.Wrap(err, op)
	}

	s.logger.Info("Deactivated token ", tokenID)
	return nil
}

// UpdateTokenPin changes the PIN of a token
func (s *tokenService) UpdateTokenPin(ctx context.Context, tokenID, oldPin, newPin string) error {
	const op = "TokenService.UpdateTokenPin"

	if newPin == "" {
		return signererrors.New(signererrors.InvalidParameter, op, "New PIN must not be empty")
	}
	if _, err := lookupToken(s.registry.Snapshot(), op, tokenID); err != nil {
		return err
	}

	err := s.coordinator.Do(ctx, tokenID, func(dev device.Device) error {
		return deviceError(op, tokenID, dev.ChangePin(oldPin, newPin))
	})
	if err != nil {
		return signererrors.Wrap(err, op)
	}

	s.logger.Info("Updated PIN of token ", tokenID)
	return nil
}

// SetTokenFriendlyName renames a token. The token's state does not matter.
func (s *tokenService) SetTokenFriendlyName(ctx context.Context, tokenID, name string) error {
	const op = "TokenService.SetTokenFriendlyName"

	if _, err := lookupToken(s.registry.Snapshot(), op, tokenID); err != nil {
		return err
	}

	err := s.coordinator.Lock(ctx, tokenID, func() error {
		return s.registry.Update(ctx, func(tx *registry.Tx) error {
			cur, ok := tx.Token(tokenID)
			if !ok {
				return signererrors.ErrTokenNotFound(op, tokenID)
			}
			cur.FriendlyName = name
			tx.PutToken(cur)
			return nil
		})
	})
	return signererrors.Wrap(err, op)
}

// IsHSMOperational reports whether every available hardware token answers
// status queries
func (s *tokenService) IsHSMOperational(_ context.Context) (bool, error) {
	for _, t := range s.registry.Snapshot().Tokens() {
		if t.Type != signer.TokenTypeHardware || !t.Available {
			continue
		}
		dev, ok := s.coordinator.Device(t.ID)
		if !ok {
			return false, nil
		}
		if _, err := dev.Status(); err != nil {
			s.logger.Warn(fmt.Sprintf("Hardware token %s is not operational: %v", t.ID, err))
			return false, nil
		}
	}
	return true, nil
}
