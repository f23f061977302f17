//go:build cgo

package cryptography

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/miekg/pkcs11"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

const defaultHardwareKeyBits = 2048

// PKCS11Provider enumerates the tokens exposed by one PKCS#11 module.
type PKCS11Provider struct {
	settings config.PKCS11ModuleSettings
	ctx      *pkcs11.Ctx
	logger   logger.Logger

	mu      sync.Mutex
	devices map[string]*pkcs11Device
}

// NewPKCS11Provider loads and initializes the module library.
func NewPKCS11Provider(settings config.PKCS11ModuleSettings, logger logger.Logger) (*PKCS11Provider, error) {
	ctx := pkcs11.New(settings.LibraryPath)
	if ctx == nil {
		return nil, fmt.Errorf("failed to load pkcs11 module %s", settings.LibraryPath)
	}
	if err := ctx.Initialize(); err != nil {
		ctx.Destroy()
		return nil, fmt.Errorf("failed to initialize pkcs11 module %s: %w", settings.Name, err)
	}
	logger.Info("Loaded PKCS#11 module ", settings.Name, " from ", settings.LibraryPath)
	return &PKCS11Provider{
		settings: settings,
		ctx:      ctx,
		logger:   logger,
		devices:  make(map[string]*pkcs11Device),
	}, nil
}

// Name returns the configured module name.
func (p *PKCS11Provider) Name() string {
	return p.settings.Name
}

// Devices returns one device per slot with a token present. Device objects
// are reused across calls for the same token serial number.
func (p *PKCS11Provider) Devices(_ context.Context) ([]device.Device, error) {
	slots, err := p.ctx.GetSlotList(true)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots of %s: %w", p.settings.Name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[string]struct{}, len(slots))
	devices := make([]device.Device, 0, len(slots))
	for _, slot := range slots {
		ti, err := p.ctx.GetTokenInfo(slot)
		if err != nil {
			p.logger.Warn("Skipping slot ", slot, " of ", p.settings.Name, ": ", err)
			continue
		}
		serial := strings.TrimSpace(ti.SerialNumber)
		id := p.settings.Name + "-" + serial
		seen[id] = struct{}{}

		d, ok := p.devices[id]
		if !ok || d.slot != slot {
			d = &pkcs11Device{
				provider: p,
				slot:     slot,
				info: device.Info{
					ID:                  id,
					Type:                signer.TokenTypeHardware,
					Label:               strings.TrimSpace(ti.Label),
					SerialNumber:        serial,
					Manufacturer:        strings.TrimSpace(ti.ManufacturerID),
					Model:               strings.TrimSpace(ti.Model),
					ReadOnly:            p.settings.ReadOnly || ti.Flags&pkcs11.CKF_WRITE_PROTECTED != 0,
					BatchSigningEnabled: p.settings.BatchSigningEnabled,
				},
			}
			p.devices[id] = d
		}
		devices = append(devices, d)
	}
	for id := range p.devices {
		if _, ok := seen[id]; !ok {
			delete(p.devices, id)
		}
	}
	return devices, nil
}

// Close finalizes the module.
func (p *PKCS11Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range p.devices {
		d.closeSession()
	}
	err := p.ctx.Finalize()
	p.ctx.Destroy()
	return err
}

// pkcs11Device is one token in a slot. A single session is kept open while
// the user is logged in.
type pkcs11Device struct {
	provider *PKCS11Provider
	slot     uint
	info     device.Info

	mu         sync.Mutex
	session    pkcs11.SessionHandle
	hasSession bool
	loggedIn   bool
}

func (d *pkcs11Device) Info() device.Info {
	return d.info
}

func (d *pkcs11Device) Status() (device.Status, error) {
	ti, err := d.provider.ctx.GetTokenInfo(d.slot)
	if err != nil {
		return device.Status{}, mapPKCS11Error(err)
	}
	d.mu.Lock()
	loggedIn := d.loggedIn
	d.mu.Unlock()

	status := device.Status{
		Initialized: ti.Flags&pkcs11.CKF_TOKEN_INITIALIZED != 0,
		LoggedIn:    loggedIn,
		PinState:    signer.PinStateOK,
	}
	switch {
	case ti.Flags&pkcs11.CKF_USER_PIN_LOCKED != 0:
		status.PinState = signer.PinStateLocked
	case ti.Flags&pkcs11.CKF_USER_PIN_FINAL_TRY != 0:
		status.PinState = signer.PinStateFinalTry
	case ti.Flags&pkcs11.CKF_USER_PIN_COUNT_LOW != 0:
		status.PinState = signer.PinStateIncorrect
	}
	return status, nil
}

// Initialize is not offered for hardware tokens; they are initialized with
// vendor tooling.
func (d *pkcs11Device) Initialize(string) error {
	return device.ErrUnsupported
}

func (d *pkcs11Device) Login(pin string) error {
	sh, err := d.openSession()
	if err != nil {
		return err
	}
	if err := d.provider.ctx.Login(sh, pkcs11.CKU_USER, pin); err != nil {
		var perr pkcs11.Error
		if !errors.As(err, &perr) || perr != pkcs11.CKR_USER_ALREADY_LOGGED_IN {
			return mapPKCS11Error(err)
		}
	}
	d.mu.Lock()
	d.loggedIn = true
	d.mu.Unlock()
	return nil
}

func (d *pkcs11Device) Logout() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.hasSession {
		d.loggedIn = false
		return nil
	}
	err := d.provider.ctx.Logout(d.session)
	d.closeSessionLocked()
	if err != nil {
		var perr pkcs11.Error
		if errors.As(err, &perr) && perr == pkcs11.CKR_USER_NOT_LOGGED_IN {
			return nil
		}
		return mapPKCS11Error(err)
	}
	return nil
}

func (d *pkcs11Device) ChangePin(oldPin, newPin string) error {
	if d.info.ReadOnly {
		return device.ErrReadOnly
	}
	sh, err := d.openSession()
	if err != nil {
		return err
	}
	return mapPKCS11Error(d.provider.ctx.SetPIN(sh, oldPin, newPin))
}

func (d *pkcs11Device) ListKeys() ([]device.KeyObject, error) {
	sh, err := d.openSession()
	if err != nil {
		return nil, err
	}
	handles, err := d.findObjects(sh, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PUBLIC_KEY),
	})
	if err != nil {
		return nil, err
	}

	keys := make([]device.KeyObject, 0, len(handles))
	for _, h := range handles {
		key, err := d.readPublicKey(sh, h)
		if err != nil {
			d.provider.logger.Warn("Skipping unreadable public key on ", d.info.ID, ": ", err)
			continue
		}
		if prefix := d.provider.settings.KeyLabelPrefix; prefix != "" && !strings.HasPrefix(key.Label, prefix) {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (d *pkcs11Device) GenerateKey(label string) (device.KeyObject, error) {
	if d.info.ReadOnly {
		return device.KeyObject{}, device.ErrReadOnly
	}
	sh, err := d.loggedInSession()
	if err != nil {
		return device.KeyObject{}, err
	}

	rawID := make([]byte, 16)
	if _, err := rand.Read(rawID); err != nil {
		return device.KeyObject{}, fmt.Errorf("failed to generate key id: %w", err)
	}
	label = d.provider.settings.KeyLabelPrefix + label

	public := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PUBLIC_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, pkcs11.CKK_RSA),
		pkcs11.NewAttribute(pkcs11.CKA_TOKEN, true),
		pkcs11.NewAttribute(pkcs11.CKA_VERIFY, true),
		pkcs11.NewAttribute(pkcs11.CKA_MODULUS_BITS, defaultHardwareKeyBits),
		pkcs11.NewAttribute(pkcs11.CKA_PUBLIC_EXPONENT, []byte{1, 0, 1}),
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, label),
		pkcs11.NewAttribute(pkcs11.CKA_ID, rawID),
	}
	private := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PRIVATE_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, pkcs11.CKK_RSA),
		pkcs11.NewAttribute(pkcs11.CKA_TOKEN, true),
		pkcs11.NewAttribute(pkcs11.CKA_PRIVATE, true),
		pkcs11.NewAttribute(pkcs11.CKA_SIGN, true),
		pkcs11.NewAttribute(pkcs11.CKA_SENSITIVE, true),
		pkcs11.NewAttribute(pkcs11.CKA_EXTRACTABLE, false),
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, label),
		pkcs11.NewAttribute(pkcs11.CKA_ID, rawID),
	}
	mech := []*pkcs11.Mechanism{pkcs11.NewMechanism(pkcs11.CKM_RSA_PKCS_KEY_PAIR_GEN, nil)}
	pubHandle, _, err := d.provider.ctx.GenerateKeyPair(sh, mech, public, private)
	if err != nil {
		return device.KeyObject{}, mapPKCS11Error(err)
	}
	return d.readPublicKey(sh, pubHandle)
}

func (d *pkcs11Device) DeleteKey(keyID string) error {
	if d.info.ReadOnly {
		return device.ErrReadOnly
	}
	sh, err := d.loggedInSession()
	if err != nil {
		return err
	}
	rawID, err := hex.DecodeString(keyID)
	if err != nil {
		return fmt.Errorf("%w: %s", device.ErrKeyNotFound, keyID)
	}
	handles, err := d.findObjects(sh, []*pkcs11.Attribute{pkcs11.NewAttribute(pkcs11.CKA_ID, rawID)})
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		return fmt.Errorf("%w: %s", device.ErrKeyNotFound, keyID)
	}
	for _, h := range handles {
		if err := d.provider.ctx.DestroyObject(sh, h); err != nil {
			return mapPKCS11Error(err)
		}
	}
	return nil
}

func (d *pkcs11Device) Sign(keyID string, alg cryptoalg.SignAlgorithm, digest []byte) ([]byte, error) {
	sh, err := d.loggedInSession()
	if err != nil {
		return nil, err
	}
	rawID, err := hex.DecodeString(keyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", device.ErrKeyNotFound, keyID)
	}
	handles, err := d.findObjects(sh, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PRIVATE_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_ID, rawID),
	})
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("%w: %s", device.ErrKeyNotFound, keyID)
	}

	mech, input, err := signMechanism(alg, digest)
	if err != nil {
		return nil, err
	}
	if err := d.provider.ctx.SignInit(sh, []*pkcs11.Mechanism{mech}, handles[0]); err != nil {
		return nil, mapPKCS11Error(err)
	}
	signature, err := d.provider.ctx.Sign(sh, input)
	if err != nil {
		return nil, mapPKCS11Error(err)
	}
	if alg.KeyAlgorithm == cryptoalg.KeyAlgorithmECDSA {
		return ECDSARawToASN1(signature)
	}
	return signature, nil
}

var pssHashParams = map[crypto.Hash][2]uint{
	crypto.SHA256: {pkcs11.CKM_SHA256, pkcs11.CKG_MGF1_SHA256},
	crypto.SHA384: {pkcs11.CKM_SHA384, pkcs11.CKG_MGF1_SHA384},
	crypto.SHA512: {pkcs11.CKM_SHA512, pkcs11.CKG_MGF1_SHA512},
}

func signMechanism(alg cryptoalg.SignAlgorithm, digest []byte) (*pkcs11.Mechanism, []byte, error) {
	switch {
	case alg.KeyAlgorithm == cryptoalg.KeyAlgorithmECDSA:
		return pkcs11.NewMechanism(pkcs11.CKM_ECDSA, nil), digest, nil
	case alg.PSS:
		p, ok := pssHashParams[alg.Hash]
		if !ok {
			return nil, nil, fmt.Errorf("unsupported PSS hash %s", alg.Hash)
		}
		params := pkcs11.NewPSSParams(p[0], p[1], uint(alg.Hash.Size()))
		return pkcs11.NewMechanism(pkcs11.CKM_RSA_PKCS_PSS, params), digest, nil
	default:
		info, err := DigestInfo(alg.Hash, digest)
		if err != nil {
			return nil, nil, err
		}
		return pkcs11.NewMechanism(pkcs11.CKM_RSA_PKCS, nil), info, nil
	}
}

func (d *pkcs11Device) readPublicKey(sh pkcs11.SessionHandle, h pkcs11.ObjectHandle) (device.KeyObject, error) {
	attrs, err := d.provider.ctx.GetAttributeValue(sh, h, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_ID, nil),
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, nil),
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, nil),
	})
	if err != nil {
		return device.KeyObject{}, mapPKCS11Error(err)
	}
	key := device.KeyObject{
		ID:    hex.EncodeToString(attrs[0].Value),
		Label: string(attrs[1].Value),
	}

	var pub interface{}
	switch keyType := ulongValue(attrs[2].Value); keyType {
	case pkcs11.CKK_RSA:
		rsaAttrs, err := d.provider.ctx.GetAttributeValue(sh, h, []*pkcs11.Attribute{
			pkcs11.NewAttribute(pkcs11.CKA_MODULUS, nil),
			pkcs11.NewAttribute(pkcs11.CKA_PUBLIC_EXPONENT, nil),
		})
		if err != nil {
			return device.KeyObject{}, mapPKCS11Error(err)
		}
		pub = &rsa.PublicKey{
			N: new(big.Int).SetBytes(rsaAttrs[0].Value),
			E: int(new(big.Int).SetBytes(rsaAttrs[1].Value).Int64()),
		}
	case pkcs11.CKK_EC:
		ecAttrs, err := d.provider.ctx.GetAttributeValue(sh, h, []*pkcs11.Attribute{
			pkcs11.NewAttribute(pkcs11.CKA_EC_PARAMS, nil),
			pkcs11.NewAttribute(pkcs11.CKA_EC_POINT, nil),
		})
		if err != nil {
			return device.KeyObject{}, mapPKCS11Error(err)
		}
		ecPub, err := ECPublicKeyFromAttributes(ecAttrs[0].Value, ecAttrs[1].Value)
		if err != nil {
			return device.KeyObject{}, err
		}
		pub = ecPub
	default:
		return device.KeyObject{}, fmt.Errorf("unsupported key type %d", keyType)
	}

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return device.KeyObject{}, fmt.Errorf("failed to encode public key: %w", err)
	}
	key.PublicKey = der
	return key, nil
}

// ulongValue decodes a CK_ULONG attribute, stored in native byte order.
func ulongValue(b []byte) uint {
	switch len(b) {
	case 8:
		return uint(binary.NativeEndian.Uint64(b))
	case 4:
		return uint(binary.NativeEndian.Uint32(b))
	default:
		return 0
	}
}

func (d *pkcs11Device) findObjects(sh pkcs11.SessionHandle, template []*pkcs11.Attribute) ([]pkcs11.ObjectHandle, error) {
	if err := d.provider.ctx.FindObjectsInit(sh, template); err != nil {
		return nil, mapPKCS11Error(err)
	}
	defer func() {
		_ = d.provider.ctx.FindObjectsFinal(sh)
	}()

	var all []pkcs11.ObjectHandle
	for {
		handles, _, err := d.provider.ctx.FindObjects(sh, 64)
		if err != nil {
			return nil, mapPKCS11Error(err)
		}
		if len(handles) == 0 {
			return all, nil
		}
		all = append(all, handles...)
	}
}

func (d *pkcs11Device) openSession() (pkcs11.SessionHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hasSession {
		return d.session, nil
	}
	flags := uint(pkcs11.CKF_SERIAL_SESSION)
	if !d.info.ReadOnly {
		flags |= pkcs11.CKF_RW_SESSION
	}
	sh, err := d.provider.ctx.OpenSession(d.slot, flags)
	if err != nil {
		return 0, mapPKCS11Error(err)
	}
	d.session = sh
	d.hasSession = true
	return sh, nil
}

func (d *pkcs11Device) loggedInSession() (pkcs11.SessionHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.hasSession || !d.loggedIn {
		return 0, device.ErrNotLoggedIn
	}
	return d.session, nil
}

func (d *pkcs11Device) closeSession() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeSessionLocked()
}

func (d *pkcs11Device) closeSessionLocked() {
	if d.hasSession {
		_ = d.provider.ctx.CloseSession(d.session)
	}
	d.hasSession = false
	d.loggedIn = false
}

func mapPKCS11Error(err error) error {
	if err == nil {
		return nil
	}
	var perr pkcs11.Error
	if !errors.As(err, &perr) {
		return err
	}
	switch perr {
	case pkcs11.CKR_PIN_INCORRECT, pkcs11.CKR_PIN_INVALID, pkcs11.CKR_PIN_LEN_RANGE:
		return fmt.Errorf("%w: %v", device.ErrPinIncorrect, err)
	case pkcs11.CKR_PIN_LOCKED:
		return fmt.Errorf("%w: %v", device.ErrPinLocked, err)
	case pkcs11.CKR_USER_NOT_LOGGED_IN:
		return fmt.Errorf("%w: %v", device.ErrNotLoggedIn, err)
	case pkcs11.CKR_TOKEN_WRITE_PROTECTED:
		return fmt.Errorf("%w: %v", device.ErrReadOnly, err)
	case pkcs11.CKR_DEVICE_REMOVED, pkcs11.CKR_TOKEN_NOT_PRESENT, pkcs11.CKR_SLOT_ID_INVALID:
		return fmt.Errorf("%w: %v", device.ErrDeviceRemoved, err)
	default:
		return err
	}
}
