package softtoken

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/cryptography"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/scrypt"
)

const (
	pinFileVersion = 1
	saltSize       = 16
	dataKeySize    = 32
	labelHeader    = "Label"
)

// Token is the software token device. It is safe for concurrent use.
type Token struct {
	dir      string
	settings config.SoftwareTokenSettings
	opts     options
	logger   logger.Logger

	rsa cryptoalg.RSAProcessor
	ec  cryptoalg.ECDSAProcessor
	aes cryptoalg.AESProcessor

	mu sync.RWMutex
	// dataKey is set while logged in.
	dataKey []byte
	keys    map[string]crypto.Signer
}

var _ device.Device = (*Token)(nil)

// NewToken creates the software token backed by settings.Directory. The
// directory is created if missing.
func NewToken(settings config.SoftwareTokenSettings, logger logger.Logger, opt ...Option) (*Token, error) {
	if settings.Directory == "" {
		return nil, fmt.Errorf("software token directory is not set")
	}
	if err := os.MkdirAll(settings.Directory, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create software token directory: %w", err)
	}

	rsaProcessor, err := cryptography.NewRSAProcessor(logger)
	if err != nil {
		return nil, err
	}
	ecProcessor, err := cryptography.NewECDSAProcessor(logger)
	if err != nil {
		return nil, err
	}
	aesProcessor, err := cryptography.NewAESProcessor(logger)
	if err != nil {
		return nil, err
	}

	return &Token{
		dir:      settings.Directory,
		settings: settings,
		opts:     getOpts(opt...),
		logger:   logger,
		rsa:      rsaProcessor,
		ec:       ecProcessor,
		aes:      aesProcessor,
	}, nil
}

// Info implements device.Device.
func (t *Token) Info() device.Info {
	return device.Info{
		ID:                  signer.SoftwareTokenID,
		Type:                signer.TokenTypeSoftware,
		Label:               "softToken-" + signer.SoftwareTokenID,
		SerialNumber:        signer.SoftwareTokenID,
		Model:               "software",
		BatchSigningEnabled: true,
	}
}

// Status implements device.Device.
func (t *Token) Status() (device.Status, error) {
	pf, err := t.readPinFile()
	if errors.Is(err, os.ErrNotExist) {
		return device.Status{PinState: signer.PinStateOK}, nil
	}
	if err != nil {
		return device.Status{}, err
	}

	t.mu.RLock()
	loggedIn := t.dataKey != nil
	t.mu.RUnlock()

	return device.Status{
		Initialized: true,
		LoggedIn:    loggedIn,
		PinState:    t.pinState(pf.FailedAttempts),
	}, nil
}

func (t *Token) pinState(failed int) signer.PinState {
	maxAttempts := t.settings.PinMaxAttempts
	switch {
	case failed == 0:
		return signer.PinStateOK
	case maxAttempts > 0 && failed >= maxAttempts:
		return signer.PinStateLocked
	case maxAttempts > 0 && failed == maxAttempts-1:
		return signer.PinStateFinalTry
	default:
		return signer.PinStateIncorrect
	}
}

// Initialize implements device.Device. It writes a new PIN file with a fresh
// data key.
func (t *Token) Initialize(pin string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := os.Stat(t.pinPath()); err == nil {
		return device.ErrAlreadyInitialized
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	dataKey, err := t.aes.GenerateKey(dataKeySize)
	if err != nil {
		return err
	}
	pf, err := t.sealPinFile(pin, dataKey)
	if err != nil {
		return err
	}
	if err := t.writePinFile(pf); err != nil {
		return err
	}
	t.logger.Info("Software token initialized in ", t.dir)
	return nil
}

// sealPinFile builds a PIN file for pin that wraps dataKey.
func (t *Token) sealPinFile(pin string, dataKey []byte) (*pinFile, error) {
	verifier, err := bcrypt.GenerateFromPassword([]byte(pin), t.opts.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash pin: %w", err)
	}
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	pinKey, err := derivePinKey(pin, salt, t.opts.scryptN)
	if err != nil {
		return nil, err
	}
	sealed, err := t.aes.Encrypt(dataKey, pinKey)
	if err != nil {
		return nil, fmt.Errorf("failed to seal data key: %w", err)
	}
	return &pinFile{
		Version:       pinFileVersion,
		Verifier:      verifier,
		Salt:          salt,
		ScryptN:       t.opts.scryptN,
		SealedDataKey: sealed,
	}, nil
}

func derivePinKey(pin string, salt []byte, n int) ([]byte, error) {
	key, err := scrypt.Key([]byte(pin), salt, n, 8, 1, dataKeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive pin key: %w", err)
	}
	return key, nil
}

// verifyPin checks pin against pf and records the attempt. On success it
// returns the unwrapped data key.
func (t *Token) verifyPin(pf *pinFile, pin string) ([]byte, error) {
	if t.pinState(pf.FailedAttempts) == signer.PinStateLocked {
		return nil, device.ErrPinLocked
	}

	if err := bcrypt.CompareHashAndPassword(pf.Verifier, []byte(pin)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, fmt.Errorf("failed to verify pin: %w", err)
		}
		pf.FailedAttempts++
		if werr := t.writePinFile(pf); werr != nil {
			return nil, werr
		}
		t.logger.Warn(fmt.Sprintf("Software token login failed (%d failed attempts)", pf.FailedAttempts))
		if t.pinState(pf.FailedAttempts) == signer.PinStateLocked {
			return nil, device.ErrPinLocked
		}
		return nil, device.ErrPinIncorrect
	}

	if pf.FailedAttempts != 0 {
		pf.FailedAttempts = 0
		if err := t.writePinFile(pf); err != nil {
			return nil, err
		}
	}

	pinKey, err := derivePinKey(pin, pf.Salt, pf.ScryptN)
	if err != nil {
		return nil, err
	}
	dataKey, err := t.aes.Decrypt(pf.SealedDataKey, pinKey)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal data key: %w", err)
	}
	return dataKey, nil
}

// Login implements device.Device.
func (t *Token) Login(pin string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pf, err := t.readPinFile()
	if errors.Is(err, os.ErrNotExist) {
		return device.ErrNotInitialized
	}
	if err != nil {
		return err
	}

	dataKey, err := t.verifyPin(pf, pin)
	if err != nil {
		return err
	}
	t.dataKey = dataKey
	t.keys = make(map[string]crypto.Signer)
	return nil
}

// Logout implements device.Device.
func (t *Token) Logout() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.dataKey)
	t.dataKey = nil
	t.keys = nil
	return nil
}

// ChangePin implements device.Device. Only the PIN file is rewritten; the
// key files stay sealed under the same data key.
func (t *Token) ChangePin(oldPin, newPin string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pf, err := t.readPinFile()
	if errors.Is(err, os.ErrNotExist) {
		return device.ErrNotInitialized
	}
	if err != nil {
		return err
	}

	dataKey, err := t.verifyPin(pf, oldPin)
	if err != nil {
		return err
	}
	next, err := t.sealPinFile(newPin, dataKey)
	if err != nil {
		return err
	}
	return t.writePinFile(next)
}

// ListKeys implements device.Device. Keys are listed in ID order.
func (t *Token) ListKeys() ([]device.KeyObject, error) {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read software token directory: %w", err)
	}

	var keys []device.KeyObject
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, publicKeyExt) {
			continue
		}
		obj, err := t.readPublicKey(strings.TrimSuffix(name, publicKeyExt))
		if err != nil {
			t.logger.Warn("Skipping unreadable key file ", name, ": ", err)
			continue
		}
		keys = append(keys, obj)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	return keys, nil
}

func (t *Token) readPublicKey(keyID string) (device.KeyObject, error) {
	data, err := os.ReadFile(t.keyPath(keyID, publicKeyExt))
	if errors.Is(err, os.ErrNotExist) {
		return device.KeyObject{}, device.ErrKeyNotFound
	}
	if err != nil {
		return device.KeyObject{}, err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "PUBLIC KEY" {
		return device.KeyObject{}, fmt.Errorf("invalid public key file for key %s", keyID)
	}
	return device.KeyObject{
		ID:        keyID,
		Label:     block.Headers[labelHeader],
		PublicKey: block.Bytes,
	}, nil
}

// GenerateKey implements device.Device. The key algorithm and size come from
// the token settings.
func (t *Token) GenerateKey(label string) (device.KeyObject, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dataKey == nil {
		return device.KeyObject{}, device.ErrNotLoggedIn
	}

	priv, err := t.generatePrivateKey()
	if err != nil {
		return device.KeyObject{}, err
	}
	pkcs8, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return device.KeyObject{}, fmt.Errorf("failed to encode private key: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(priv.Public())
	if err != nil {
		return device.KeyObject{}, fmt.Errorf("failed to encode public key: %w", err)
	}

	id, err := newKeyID()
	if err != nil {
		return device.KeyObject{}, err
	}
	sealed, err := t.aes.Encrypt(pkcs8, t.dataKey)
	if err != nil {
		return device.KeyObject{}, fmt.Errorf("failed to seal private key: %w", err)
	}

	if err := writeFileAtomic(t.keyPath(id, privateKeyExt), sealed, 0o600); err != nil {
		return device.KeyObject{}, err
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: pub}
	if label != "" {
		block.Headers = map[string]string{labelHeader: label}
	}
	if err := writeFileAtomic(t.keyPath(id, publicKeyExt), pem.EncodeToMemory(block), 0o644); err != nil {
		_ = removeIfExists(t.keyPath(id, privateKeyExt))
		return device.KeyObject{}, err
	}

	t.keys[id] = priv
	return device.KeyObject{ID: id, Label: label, PublicKey: pub}, nil
}

func (t *Token) generatePrivateKey() (crypto.Signer, error) {
	switch cryptoalg.KeyAlgorithm(t.settings.Algorithm) {
	case cryptoalg.KeyAlgorithmECDSA:
		size := int(t.settings.KeySize)
		if size == 0 {
			size = 256
		}
		curve, err := cryptography.CurveForSize(size)
		if err != nil {
			return nil, err
		}
		priv, _, err := t.ec.GenerateKeys(curve)
		return priv, err
	case cryptoalg.KeyAlgorithmRSA, "":
		size := int(t.settings.KeySize)
		if size == 0 {
			size = 2048
		}
		priv, _, err := t.rsa.GenerateKeys(size)
		return priv, err
	default:
		return nil, fmt.Errorf("unsupported key algorithm %q", t.settings.Algorithm)
	}
}

func newKeyID() (string, error) {
	b := make([]byte, 20)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate key id: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// DeleteKey implements device.Device.
func (t *Token) DeleteKey(keyID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dataKey == nil {
		return device.ErrNotLoggedIn
	}
	if _, err := os.Stat(t.keyPath(keyID, publicKeyExt)); errors.Is(err, os.ErrNotExist) {
		return device.ErrKeyNotFound
	}
	if err := removeIfExists(t.keyPath(keyID, privateKeyExt)); err != nil {
		return fmt.Errorf("failed to delete private key %s: %w", keyID, err)
	}
	if err := removeIfExists(t.keyPath(keyID, publicKeyExt)); err != nil {
		return fmt.Errorf("failed to delete public key %s: %w", keyID, err)
	}
	delete(t.keys, keyID)
	return nil
}

// Sign implements device.Device.
func (t *Token) Sign(keyID string, alg cryptoalg.SignAlgorithm, digest []byte) ([]byte, error) {
	priv, err := t.privateKey(keyID)
	if err != nil {
		return nil, err
	}

	switch k := priv.(type) {
	case *rsa.PrivateKey:
		if alg.KeyAlgorithm != cryptoalg.KeyAlgorithmRSA {
			return nil, fmt.Errorf("key %s is RSA, cannot sign with %s", keyID, alg.ID)
		}
		return t.rsa.SignDigest(k, alg.Hash, digest, alg.PSS)
	case *ecdsa.PrivateKey:
		if alg.KeyAlgorithm != cryptoalg.KeyAlgorithmECDSA {
			return nil, fmt.Errorf("key %s is ECDSA, cannot sign with %s", keyID, alg.ID)
		}
		return t.ec.SignDigest(k, digest)
	default:
		return nil, fmt.Errorf("unsupported private key type %T", priv)
	}
}

// privateKey returns the decrypted key, loading it from disk on first use.
func (t *Token) privateKey(keyID string) (crypto.Signer, error) {
	t.mu.RLock()
	if t.dataKey == nil {
		t.mu.RUnlock()
		return nil, device.ErrNotLoggedIn
	}
	if k, ok := t.keys[keyID]; ok {
		t.mu.RUnlock()
		return k, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dataKey == nil {
		return nil, device.ErrNotLoggedIn
	}
	if k, ok := t.keys[keyID]; ok {
		return k, nil
	}

	sealed, err := os.ReadFile(t.keyPath(keyID, privateKeyExt))
	if errors.Is(err, os.ErrNotExist) {
		return nil, device.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	pkcs8, err := t.aes.Decrypt(sealed, t.dataKey)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal key %s: %w", keyID, err)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(pkcs8)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key %s: %w", keyID, err)
	}
	k, ok := parsed.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("key %s is not a signing key", keyID)
	}
	t.keys[keyID] = k
	return k, nil
}
