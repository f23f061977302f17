package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	signererrors "github.com/MGTheTrain/crypto-signer/internal/pkg/errors"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// Hook observes operations entering or leaving a token slot. inFlight is
// the number of operations running on all tokens, including this one on
// enter and excluding it on exit.
type Hook func(tokenID string, inFlight int64)

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithOnEnter registers a hook run when an operation acquires a slot.
func WithOnEnter(h Hook) CoordinatorOption {
	return func(c *Coordinator) {
		c.onEnter = h
	}
}

// WithOnExit registers a hook run when an operation releases a slot.
func WithOnExit(h Hook) CoordinatorOption {
	return func(c *Coordinator) {
		c.onExit = h
	}
}

// slot is the exclusion slot of one token. dev and broken are only changed
// while sem is held.
type slot struct {
	sem    *semaphore.Weighted
	dev    device.Device
	broken bool
	// current mirrors dev for lock-free status reads.
	current atomic.Pointer[device.Device]
}

// Coordinator runs at most one operation per token at a time. Operations on
// different tokens run in parallel. It is the only path from the services to
// a device, except for lock-free status reads.
type Coordinator struct {
	lockTimeout time.Duration
	logger      logger.Logger

	mu    sync.Mutex
	slots map[string]*slot

	inFlight atomic.Int64
	onEnter  Hook
	onExit   Hook
}

// NewCoordinator creates a coordinator with the lock timeout from settings.
func NewCoordinator(settings config.SignerSettings, logger logger.Logger, opt ...CoordinatorOption) *Coordinator {
	timeout := settings.LockTimeout
	if timeout <= 0 {
		timeout = config.DefaultLockTimeout
	}
	c := &Coordinator{
		lockTimeout: timeout,
		logger:      logger,
		slots:       make(map[string]*slot),
	}
	for _, o := range opt {
		if o != nil {
			o(c)
		}
	}
	return c
}

func (c *Coordinator) slot(tokenID string) *slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[tokenID]
	if !ok {
		s = &slot{sem: semaphore.NewWeighted(1)}
		c.slots[tokenID] = s
	}
	return s
}

// acquire waits for the token slot, bounded by the lock timeout and ctx.
func (c *Coordinator) acquire(ctx context.Context, op signererrors.Op, tokenID string) (*slot, error) {
	s := c.slot(tokenID)

	waitCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	defer cancel()
	if err := s.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, signererrors.New(signererrors.Timeout, op,
				fmt.Sprintf("Request for token '%s' cancelled while waiting", tokenID), signererrors.WithWrap(ctx.Err()))
		}
		return nil, signererrors.New(signererrors.Timeout, op,
			fmt.Sprintf("Timed out after %s waiting for token '%s'", c.lockTimeout, tokenID), signererrors.WithWrap(err))
	}
	return s, nil
}

func (c *Coordinator) enter(tokenID string) {
	n := c.inFlight.Add(1)
	if c.onEnter != nil {
		c.onEnter(tokenID, n)
	}
}

func (c *Coordinator) exit(tokenID string) {
	n := c.inFlight.Add(-1)
	if c.onExit != nil {
		c.onExit(tokenID, n)
	}
}

// Lock runs fn holding the token slot. The device need not be attached.
func (c *Coordinator) Lock(ctx context.Context, tokenID string, fn func() error) error {
	const op = "Coordinator.Lock"

	s, err := c.acquire(ctx, op, tokenID)
	if err != nil {
		return err
	}
	defer s.sem.Release(1)

	c.enter(tokenID)
	defer c.exit(tokenID)
	return fn()
}

// Do runs fn against the token's device holding the token slot. Once fn
// has started it runs to completion regardless of ctx. A device reporting
// device.ErrDeviceRemoved is not dispatched to again until re-attached.
func (c *Coordinator) Do(ctx context.Context, tokenID string, fn func(dev device.Device) error) error {
	const op = "Coordinator.Do"

	s, err := c.acquire(ctx, op, tokenID)
	if err != nil {
		return err
	}
	defer s.sem.Release(1)

	if s.dev == nil || s.broken {
		return signererrors.ErrTokenNotAvailable(op, tokenID)
	}

	c.enter(tokenID)
	defer c.exit(tokenID)

	err = fn(s.dev)
	if errors.Is(err, device.ErrDeviceRemoved) {
		s.broken = true
		s.current.Store(nil)
		c.logger.Error("Device of token ", tokenID, " removed: ", err)
	}
	return err
}

// Attach binds dev to its token, replacing any previous device. It waits for
// the operation in flight on the token, if any.
func (c *Coordinator) Attach(ctx context.Context, dev device.Device) error {
	const op = "Coordinator.Attach"

	tokenID := dev.Info().ID
	s, err := c.acquire(ctx, op, tokenID)
	if err != nil {
		return err
	}
	defer s.sem.Release(1)

	s.dev = dev
	s.broken = false
	s.current.Store(&dev)
	return nil
}

// Detach unbinds the device of a token.
func (c *Coordinator) Detach(ctx context.Context, tokenID string) error {
	const op = "Coordinator.Detach"

	s, err := c.acquire(ctx, op, tokenID)
	if err != nil {
		return err
	}
	defer s.sem.Release(1)

	s.dev = nil
	s.broken = false
	s.current.Store(nil)
	return nil
}

// Device returns the attached device for lock-free reads such as Status.
func (c *Coordinator) Device(tokenID string) (device.Device, bool) {
	c.mu.Lock()
	s, ok := c.slots[tokenID]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	d := s.current.Load()
	if d == nil {
		return nil, false
	}
	return *d, true
}

// InFlight returns the number of operations currently holding a slot.
func (c *Coordinator) InFlight() int64 {
	return c.inFlight.Load()
}
