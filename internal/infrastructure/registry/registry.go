package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// Registry is the in-memory record set of the signer, backed by a Store.
type Registry struct {
	store  Store
	logger logger.Logger

	// writeMu serializes Update and Load.
	writeMu sync.Mutex
	mu      sync.RWMutex
	cur     *state
}

// New creates an empty registry. A nil store keeps records in memory only.
func New(store Store, logger logger.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger,
		cur:    newState(),
	}
}

// Snapshot returns the current immutable view.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Snapshot{s: r.cur}
}

// Load replaces the in-memory state with the store's records. Records whose
// parent is missing are dropped.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	records, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	next := newState()
	tx := newTx(next)
	for _, t := range records.Tokens {
		tx.PutToken(t)
	}
	for _, k := range records.Keys {
		if err := tx.PutKey(k); err != nil {
			r.logger.Warn("Dropping persisted key: ", err)
		}
	}
	for _, c := range records.Certs {
		if err := tx.PutCert(c); err != nil {
			r.logger.Warn("Dropping persisted certificate: ", err)
		}
	}
	for _, cr := range records.CertRequests {
		if err := tx.PutCertRequest(cr); err != nil {
			r.logger.Warn("Dropping persisted certificate request: ", err)
		}
	}

	r.mu.Lock()
	r.cur = next
	r.mu.Unlock()

	r.logger.Info(fmt.Sprintf("Loaded %d tokens, %d keys, %d certificates, %d certificate requests",
		len(next.tokens), len(next.keys), len(next.certs), len(next.certRequests)))
	return nil
}

// Update runs fn against a private copy of the state. When fn succeeds the
// changed records are saved and the copy becomes the current snapshot. When
// fn or the save fails the current snapshot is left untouched.
func (r *Registry) Update(ctx context.Context, fn func(tx *Tx) error) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.RLock()
	next := r.cur.clone()
	r.mu.RUnlock()

	tx := newTx(next)
	if err := fn(tx); err != nil {
		return err
	}

	changes := tx.changes()
	if changes.Empty() {
		return nil
	}
	if r.store != nil {
		if err := r.store.Save(ctx, changes); err != nil {
			return fmt.Errorf("failed to persist registry changes: %w", err)
		}
	}

	r.mu.Lock()
	r.cur = next
	r.mu.Unlock()
	return nil
}
