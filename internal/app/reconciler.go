package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// Reconciler merges the devices reported by the providers into the
// registry and binds them to the coordinator.
type Reconciler struct {
	providers   []device.Provider
	registry    *registry.Registry
	coordinator *Coordinator
	logger      logger.Logger

	mu sync.Mutex
	// owner maps token IDs to the provider that last reported them.
	owner map[string]string
}

// NewReconciler creates a reconciler over providers.
func NewReconciler(providers []device.Provider, registry *registry.Registry, coordinator *Coordinator, logger logger.Logger) *Reconciler {
	return &Reconciler{
		providers:   providers,
		registry:    registry,
		coordinator: coordinator,
		logger:      logger,
		owner:       make(map[string]string),
	}
}

// Reconcile enumerates all devices once. Tokens whose device is gone stay in
// the registry as unavailable. Failures of one provider or device do not
// stop the others; they are returned together.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result *multierror.Error
	seen := make(map[string]bool)
	failedProviders := make(map[string]bool)

	for _, p := range r.providers {
		devices, err := p.Devices(ctx)
		if err != nil {
			failedProviders[p.Name()] = true
			result = multierror.Append(result, fmt.Errorf("provider %s: %w", p.Name(), err))
			continue
		}
		for _, dev := range devices {
			tokenID := dev.Info().ID
			seen[tokenID] = true
			r.owner[tokenID] = p.Name()
			if err := r.syncDevice(ctx, dev); err != nil {
				result = multierror.Append(result, fmt.Errorf("token %s: %w", tokenID, err))
			}
		}
	}

	for _, t := range r.registry.Snapshot().Tokens() {
		if seen[t.ID] || failedProviders[r.owner[t.ID]] {
			continue
		}
		if err := r.markGone(ctx, t.ID); err != nil {
			result = multierror.Append(result, fmt.Errorf("token %s: %w", t.ID, err))
		}
	}

	return result.ErrorOrNil()
}

// syncDevice binds dev and refreshes its token and key records.
func (r *Reconciler) syncDevice(ctx context.Context, dev device.Device) error {
	info := dev.Info()
	if err := r.coordinator.Attach(ctx, dev); err != nil {
		return err
	}

	var errs *multierror.Error
	err := r.coordinator.Lock(ctx, info.ID, func() error {
		status, statusErr := dev.Status()
		if statusErr != nil {
			errs = multierror.Append(errs, fmt.Errorf("status: %w", statusErr))
		}
		keys, keysErr := dev.ListKeys()
		if keysErr != nil {
			errs = multierror.Append(errs, fmt.Errorf("list keys: %w", keysErr))
		}

		return r.registry.Update(ctx, func(tx *registry.Tx) error {
			t, known := tx.Token(info.ID)
			if !known {
				t = registry.Token{ID: info.ID, FriendlyName: info.Label}
				r.logger.Info("Discovered token ", info.ID)
			}
			t.Type = info.Type
			t.Label = info.Label
			t.SerialNumber = info.SerialNumber
			t.Manufacturer = info.Manufacturer
			t.Model = info.Model
			t.ReadOnly = info.ReadOnly
			t.BatchSigningEnabled = info.BatchSigningEnabled
			t.Available = true
			if statusErr != nil {
				t.State = signer.TokenStateUnknown
			} else {
				t.State = status.TokenState()
				t.PinState = status.PinState
			}
			tx.PutToken(t)

			if keysErr != nil {
				return nil
			}
			present := make(map[string]bool, len(keys))
			for _, obj := range keys {
				present[obj.ID] = true
				k, ok := tx.Key(obj.ID)
				if !ok {
					if err := tx.PutKey(newKeyRecord(info.ID, obj)); err != nil {
						return err
					}
					continue
				}
				if k.TokenID != info.ID {
					r.logger.Warn("Key ", obj.ID, " reported by token ", info.ID, " belongs to token ", k.TokenID)
					continue
				}
				k.Available = true
				if len(k.PublicKey) == 0 {
					fresh := newKeyRecord(info.ID, obj)
					k.PublicKey = fresh.PublicKey
					k.SignMechanism = fresh.SignMechanism
				}
				if err := tx.PutKey(k); err != nil {
					return err
				}
			}
			for _, k := range tx.KeysOf(info.ID) {
				if !present[k.ID] && k.Available {
					k.Available = false
					if err := tx.PutKey(k); err != nil {
						return err
					}
				}
			}
			return nil
		})
	})
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// markGone detaches a token whose device disappeared.
func (r *Reconciler) markGone(ctx context.Context, tokenID string) error {
	if err := r.coordinator.Detach(ctx, tokenID); err != nil {
		return err
	}
	return r.coordinator.Lock(ctx, tokenID, func() error {
		return r.registry.Update(ctx, func(tx *registry.Tx) error {
			t, ok := tx.Token(tokenID)
			if !ok || (!t.Available && t.State == signer.TokenStateUnknown) {
				return nil
			}
			r.logger.Warn("Token ", tokenID, " is no longer available")
			t.Available = false
			t.State = signer.TokenStateUnknown
			tx.PutToken(t)
			for _, k := range tx.KeysOf(tokenID) {
				if k.Available {
					k.Available = false
					if err := tx.PutKey(k); err != nil {
						return err
					}
				}
			}
			return nil
		})
	})
}
