package app

import (
	"errors"
	"fmt"

	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
	signererrors "github.com/MGTheTrain/crypto-signer/internal/pkg/errors"
)

// deviceError maps a device failure of tokenID onto the error taxonomy.
// Errors already in the taxonomy pass through unchanged.
func deviceError(op signererrors.Op, tokenID string, err error) error {
	if err == nil {
		return nil
	}
	var e *signererrors.Err
	if errors.As(err, &e) {
		return err
	}

	switch {
	case errors.Is(err, device.ErrPinIncorrect):
		return signererrors.New(signererrors.AuthFailed, op,
			fmt.Sprintf("PIN incorrect for token '%s'", tokenID), signererrors.WithWrap(err))
	case errors.Is(err, device.ErrPinLocked):
		return signererrors.New(signererrors.AuthFailed, op,
			fmt.Sprintf("PIN locked for token '%s'", tokenID),
			signererrors.WithWrap(err), signererrors.WithTranslation(signererrors.TranslationPinLocked))
	case errors.Is(err, device.ErrNotLoggedIn):
		return signererrors.New(signererrors.TokenNotActive, op,
			fmt.Sprintf("Token '%s' not active", tokenID), signererrors.WithWrap(err))
	case errors.Is(err, device.ErrAlreadyInitialized):
		return signererrors.New(signererrors.AlreadyInitialized, op,
			fmt.Sprintf("Token '%s' already initialized", tokenID), signererrors.WithWrap(err))
	case errors.Is(err, device.ErrNotInitialized):
		return signererrors.New(signererrors.TokenNotActive, op,
			fmt.Sprintf("Token '%s' not initialized", tokenID), signererrors.WithWrap(err))
	case errors.Is(err, device.ErrDeviceRemoved):
		return signererrors.ErrTokenNotAvailable(op, tokenID)
	default:
		return signererrors.New(signererrors.InternalError, op,
			fmt.Sprintf("Token '%s': %s", tokenID, err), signererrors.WithWrap(err))
	}
}

func lookupToken(snap *registry.Snapshot, op signererrors.Op, tokenID string) (registry.Token, error) {
	t, ok := snap.Token(tokenID)
	if !ok {
		return registry.Token{}, signererrors.ErrTokenNotFound(op, tokenID)
	}
	return t, nil
}

// lookupKey returns the key and its token.
func lookupKey(snap *registry.Snapshot, op signererrors.Op, keyID string) (registry.Key, registry.Token, error) {
	k, ok := snap.Key(keyID)
	if !ok {
		return registry.Key{}, registry.Token{}, signererrors.ErrKeyNotFound(op, keyID)
	}
	t, err := lookupToken(snap, op, k.TokenID)
	if err != nil {
		return registry.Key{}, registry.Token{}, err
	}
	return k, t, nil
}

// requireUsable fails unless the token's device is present and logged in.
func requireUsable(op signererrors.Op, t registry.Token) error {
	if !t.Available {
		return signererrors.ErrTokenNotAvailable(op, t.ID)
	}
	if t.State != signer.TokenStateActive {
		return signererrors.ErrTokenNotActive(op, t.ID)
	}
	return nil
}

func invalidParameter(op signererrors.Op, err error) error {
	return signererrors.New(signererrors.InvalidParameter, op, err.Error(), signererrors.WithWrap(err))
}

func sameMember(a, b *signer.MemberID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
