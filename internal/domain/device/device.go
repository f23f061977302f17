package device

import (
	"context"
	"errors"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
)

// Errors reported by devices. Backends wrap them with context.
var (
	ErrPinIncorrect       = errors.New("pin incorrect")
	ErrPinLocked          = errors.New("pin locked")
	ErrNotInitialized     = errors.New("token not initialized")
	ErrAlreadyInitialized = errors.New("token already initialized")
	ErrNotLoggedIn        = errors.New("token not logged in")
	ErrKeyNotFound        = errors.New("key not found on device")
	ErrReadOnly           = errors.New("token is read-only")
	ErrUnsupported        = errors.New("operation not supported by device")
	// ErrDeviceRemoved is fatal for the token: the coordinator stops
	// dispatching to it until the next reconcile.
	ErrDeviceRemoved = errors.New("device removed")
)

// Info is the static description reported by a device.
type Info struct {
	ID                  string
	Type                signer.TokenType
	Label               string
	SerialNumber        string
	Manufacturer        string
	Model               string
	ReadOnly            bool
	BatchSigningEnabled bool
}

// Status is the live login state of a device.
type Status struct {
	Initialized bool
	LoggedIn    bool
	PinState    signer.PinState
}

// TokenState folds a Status into the registry's token state.
func (s Status) TokenState() signer.TokenState {
	switch {
	case !s.Initialized:
		return signer.TokenStateUninitialized
	case s.LoggedIn:
		return signer.TokenStateActive
	default:
		return signer.TokenStateInitialized
	}
}

// KeyObject is a private key stored on a device, identified by ID.
type KeyObject struct {
	ID    string
	Label string
	// PublicKey is the PKIX DER encoding of the key's public half.
	PublicKey []byte
}

// Device is a single token. Implementations must allow Info and Status to
// be called concurrently with any other method; all other methods are
// serialized by the caller.
type Device interface {
	Info() Info
	Status() (Status, error)

	Initialize(pin string) error
	Login(pin string) error
	Logout() error
	ChangePin(oldPin, newPin string) error

	ListKeys() ([]KeyObject, error)
	GenerateKey(label string) (KeyObject, error)
	DeleteKey(keyID string) error
	// Sign signs a digest already computed with alg.Hash. ECDSA signatures
	// are ASN.1 DER encoded.
	Sign(keyID string, alg cryptoalg.SignAlgorithm, digest []byte) ([]byte, error)
}

// Provider enumerates the devices of one backend.
type Provider interface {
	Name() string
	Devices(ctx context.Context) ([]Device, error)
	Close() error
}
