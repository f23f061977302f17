package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
	signererrors "github.com/MGTheTrain/crypto-signer/internal/pkg/errors"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// keyService implements the KeyService interface
type keyService struct {
	registry    *registry.Registry
	coordinator *Coordinator
	logger      logger.Logger
}

// NewKeyService creates a new keyService instance
func NewKeyService(registry *registry.Registry, coordinator *Coordinator, logger logger.Logger) (signer.KeyService, error) {
	return &keyService{
		registry:    registry,
		coordinator: coordinator,
		logger:      logger,
	}, nil
}

// newKeyRecord builds the registry record of a key object found on or
// generated by a device.
func newKeyRecord(tokenID string, obj device.KeyObject) registry.Key {
	k := registry.Key{
		ID:           obj.ID,
		TokenID:      tokenID,
		FriendlyName: obj.Label,
		Label:        obj.Label,
		PublicKey:    obj.PublicKey,
		Available:    true,
	}
	if _, alg, err := cryptoalg.ParsePublicKey(obj.PublicKey); err == nil {
		k.SignMechanism = cryptoalg.SignMechanismFor(alg)
	}
	return k
}

// GenerateKey creates a key on an active token
func (s *keyService) GenerateKey(ctx context.Context, tokenID, label string) (*signer.KeyInfo, error) {
	const op = "KeyService.GenerateKey"

	t, err := lookupToken(s.registry.Snapshot(), op, tokenID)
	if err != nil {
		return nil, err
	}
	if err := requireUsable(op, t); err != nil {
		return nil, err
	}

	var keyID string
	err = s.coordinator.Do(ctx, tokenID, func(dev device.Device) error {
		obj, err := dev.GenerateKey(label)
		if err != nil {
			return deviceError(op, tokenID, err)
		}
		keyID = obj.ID
		return s.registry.Update(ctx, func(tx *registry.Tx) error {
			return tx.PutKey(newKeyRecord(tokenID, obj))
		})
	})
	if err != nil {
		return nil, signererrors.Wrap(err, op)
	}

	info, _ := s.registry.Snapshot().KeyInfo(keyID)
	s.logger.Info("Generated key ", keyID, " on token ", tokenID)
	return &info, nil
}

// SetKeyFriendlyName renames a key
func (s *keyService) SetKeyFriendlyName(ctx context.Context, keyID, name string) error {
	const op = "KeyService.SetKeyFriendlyName"

	_, t, err := lookupKey(s.registry.Snapshot(), op, keyID)
	if err != nil {
		return err
	}

	err = s.coordinator.Lock(ctx, t.ID, func() error {
		return s.registry.Update(ctx, func(tx *registry.Tx) error {
			k, ok := tx.Key(keyID)
			if !ok {
				return signererrors.ErrKeyNotFound(op, keyID)
			}
			k.FriendlyName = name
			return tx.PutKey(k)
		})
	})
	return signererrors.Wrap(err, op)
}

// DeleteKey removes a key from its device and the registry. Keys of tokens
// whose device is gone are only removed from the registry.
func (s *keyService) DeleteKey(ctx context.Context, keyID string, force bool) error {
	const op = "KeyService.DeleteKey"

	snap := s.registry.Snapshot()
	_, t, err := lookupKey(snap, op, keyID)
	if err != nil {
		return err
	}

	if !force {
		if err := keyNotInUse(op, keyID, snap.CertsOf(keyID)); err != nil {
			return err
		}
	}

	removeRecord := func() error {
		return s.registry.Update(ctx, func(tx *registry.Tx) error {
			if _, ok := tx.Key(keyID); !ok {
				return signererrors.ErrKeyNotFound(op, keyID)
			}
			if !force {
				if err := keyNotInUse(op, keyID, tx.CertsOf(keyID)); err != nil {
					return err
				}
			}
			tx.DeleteKey(keyID)
			return nil
		})
	}

	if !t.Available {
		err = s.coordinator.Lock(ctx, t.ID, removeRecord)
	} else {
		if t.State != signer.TokenStateActive {
			return signererrors.ErrTokenNotActive(op, t.ID)
		}
		err = s.coordinator.Do(ctx, t.ID, func(dev device.Device) error {
			// checked again under the slot before touching the device
			if !force {
				if err := keyNotInUse(op, keyID, s.registry.Snapshot().CertsOf(keyID)); err != nil {
					return err
				}
			}
			if err := dev.DeleteKey(keyID); err != nil && !errors.Is(err, device.ErrKeyNotFound) {
				return deviceError(op, t.ID, err)
			}
			return removeRecord()
		})
	}
	if err != nil {
		return signererrors.Wrap(err, op)
	}

	s.logger.Info("Deleted key ", keyID)
	return nil
}

func keyNotInUse(op signererrors.Op, keyID string, certs []registry.Cert) error {
	for _, c := range certs {
		if c.Active {
			return signererrors.New(signererrors.KeyInUse, op,
				fmt.Sprintf("Key '%s' has active certificate '%s'", keyID, c.ID))
		}
	}
	return nil
}

// GetSignMechanism returns the PKCS#11 mechanism name of a key
func (s *keyService) GetSignMechanism(_ context.Context, keyID string) (string, error) {
	const op = "KeyService.GetSignMechanism"

	k, _, err := lookupKey(s.registry.Snapshot(), op, keyID)
	if err != nil {
		return "", err
	}
	return k.SignMechanism, nil
}

// IsTokenBatchSigningEnabled reports whether the key's token allows batch signing
func (s *keyService) IsTokenBatchSigningEnabled(_ context.Context, keyID string) (bool, error) {
	const op = "KeyService.IsTokenBatchSigningEnabled"

	_, t, err := lookupKey(s.registry.Snapshot(), op, keyID)
	if err != nil {
		return false, err
	}
	return t.BatchSigningEnabled, nil
}

// FindKey looks a key up by the friendly names of its token and itself. The
// match must be unique.
func (s *keyService) FindKey(_ context.Context, tokenFriendlyName, keyFriendlyName string) (*signer.KeyInfo, error) {
	const op = "KeyService.FindKey"

	snap := s.registry.Snapshot()
	var matches []registry.Key
	for _, t := range snap.Tokens() {
		if t.FriendlyName != tokenFriendlyName {
			continue
		}
		for _, k := range snap.KeysOf(t.ID) {
			if k.FriendlyName == keyFriendlyName {
				matches = append(matches, k)
			}
		}
	}

	switch len(matches) {
	case 0:
		return nil, signererrors.New(signererrors.KeyNotFound, op,
			fmt.Sprintf("Key '%s' not found on token '%s'", keyFriendlyName, tokenFriendlyName))
	case 1:
		info, _ := snap.KeyInfo(matches[0].ID)
		return &info, nil
	default:
		return nil, signererrors.New(signererrors.KeyNotFound, op,
			fmt.Sprintf("Key name '%s' is ambiguous on token '%s'", keyFriendlyName, tokenFriendlyName))
	}
}
