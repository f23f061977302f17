//go:build unit
// +build unit

package app

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/cryptography"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/testutil"
)

const testPin = "1234"

// fakeDevice is an in-memory token. Its keys are RSA 1024 unless ecdsa is set.
type fakeDevice struct {
	mu          sync.Mutex
	info        device.Info
	ecdsa       bool
	pin         string
	initialized bool
	loggedIn    bool
	failures    int
	maxAttempts int
	keys        map[string]crypto.Signer
	labels      map[string]string
	nextID      int

	statusErr error
	signErr   error
	// gate, when set, blocks Sign until it is closed.
	gate chan struct{}
}

func newFakeDevice(id string, typ signer.TokenType) *fakeDevice {
	return &fakeDevice{
		info: device.Info{
			ID:                  id,
			Type:                typ,
			Label:               "label-" + id,
			SerialNumber:        "serial-" + id,
			BatchSigningEnabled: typ == signer.TokenTypeSoftware,
		},
		pin:         testPin,
		initialized: true,
		maxAttempts: 3,
		keys:        make(map[string]crypto.Signer),
		labels:      make(map[string]string),
	}
}

func (d *fakeDevice) Info() device.Info { return d.info }

func (d *fakeDevice) Status() (device.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.statusErr != nil {
		return device.Status{}, d.statusErr
	}
	return device.Status{Initialized: d.initialized, LoggedIn: d.loggedIn, PinState: d.pinState()}, nil
}

func (d *fakeDevice) pinState() signer.PinState {
	switch {
	case d.failures == 0:
		return signer.PinStateOK
	case d.failures >= d.maxAttempts:
		return signer.PinStateLocked
	case d.failures == d.maxAttempts-1:
		return signer.PinStateFinalTry
	default:
		return signer.PinStateIncorrect
	}
}

func (d *fakeDevice) setStatusErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statusErr = err
}

func (d *fakeDevice) Initialize(pin string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return device.ErrAlreadyInitialized
	}
	d.pin = pin
	d.initialized = true
	return nil
}

func (d *fakeDevice) Login(pin string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return device.ErrNotInitialized
	}
	if d.failures >= d.maxAttempts {
		return device.ErrPinLocked
	}
	if pin != d.pin {
		d.failures++
		if d.failures >= d.maxAttempts {
			return device.ErrPinLocked
		}
		return device.ErrPinIncorrect
	}
	d.failures = 0
	d.loggedIn = true
	return nil
}

func (d *fakeDevice) Logout() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loggedIn {
		return device.ErrNotLoggedIn
	}
	d.loggedIn = false
	return nil
}

func (d *fakeDevice) ChangePin(oldPin, newPin string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if oldPin != d.pin {
		return device.ErrPinIncorrect
	}
	d.pin = newPin
	return nil
}

func (d *fakeDevice) ListKeys() ([]device.KeyObject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]device.KeyObject, 0, len(d.keys))
	for id, k := range d.keys {
		pub, err := x509.MarshalPKIXPublicKey(k.Public())
		if err != nil {
			return nil, err
		}
		out = append(out, device.KeyObject{ID: id, Label: d.labels[id], PublicKey: pub})
	}
	return out, nil
}

func (d *fakeDevice) GenerateKey(label string) (device.KeyObject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loggedIn {
		return device.KeyObject{}, device.ErrNotLoggedIn
	}

	var (
		priv crypto.Signer
		err  error
	)
	if d.ecdsa {
		priv, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	} else {
		priv, err = rsa.GenerateKey(rand.Reader, 1024)
	}
	if err != nil {
		return device.KeyObject{}, err
	}
	pub, err := x509.MarshalPKIXPublicKey(priv.Public())
	if err != nil {
		return device.KeyObject{}, err
	}

	d.nextID++
	id := fmt.Sprintf("%s-key-%02d", d.info.ID, d.nextID)
	d.keys[id] = priv
	d.labels[id] = label
	return device.KeyObject{ID: id, Label: label, PublicKey: pub}, nil
}

func (d *fakeDevice) DeleteKey(keyID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loggedIn {
		return device.ErrNotLoggedIn
	}
	if _, ok := d.keys[keyID]; !ok {
		return device.ErrKeyNotFound
	}
	delete(d.keys, keyID)
	delete(d.labels, keyID)
	return nil
}

func (d *fakeDevice) hasKey(keyID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.keys[keyID]
	return ok
}

func (d *fakeDevice) Sign(keyID string, alg cryptoalg.SignAlgorithm, digest []byte) ([]byte, error) {
	if d.gate != nil {
		<-d.gate
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.signErr != nil {
		return nil, d.signErr
	}
	if !d.loggedIn {
		return nil, device.ErrNotLoggedIn
	}
	priv, ok := d.keys[keyID]
	if !ok {
		return nil, device.ErrKeyNotFound
	}

	switch k := priv.(type) {
	case *rsa.PrivateKey:
		if alg.PSS {
			return rsa.SignPSS(rand.Reader, k, alg.Hash, digest, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
		}
		info, err := cryptography.DigestInfo(alg.Hash, digest)
		if err != nil {
			return nil, err
		}
		return rsa.SignPKCS1v15(rand.Reader, k, crypto.Hash(0), info)
	case *ecdsa.PrivateKey:
		return ecdsa.SignASN1(rand.Reader, k, digest)
	default:
		return nil, errors.New("unsupported key")
	}
}

// fakeProvider reports a fixed device list.
type fakeProvider struct {
	name string

	mu      sync.Mutex
	devices []device.Device
	err     error
	closed  bool
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Devices(context.Context) ([]device.Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return append([]device.Device(nil), p.devices...), nil
}

func (p *fakeProvider) Close() error {
	p.closed = true
	return nil
}

func (p *fakeProvider) set(devices []device.Device, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices = devices
	p.err = err
}

// SignerTests wires a Signer over a software token "0" and a hardware
// token "hsm-1".
type SignerTests struct {
	signer   *Signer
	soft     *fakeDevice
	hsm      *fakeDevice
	softProv *fakeProvider
	hsmProv  *fakeProvider
}

func NewSignerTests(t *testing.T, opt ...CoordinatorOption) *SignerTests {
	t.Helper()

	soft := newFakeDevice(signer.SoftwareTokenID, signer.TokenTypeSoftware)
	hsm := newFakeDevice("hsm-1", signer.TokenTypeHardware)
	softProv := &fakeProvider{name: "softtoken", devices: []device.Device{soft}}
	hsmProv := &fakeProvider{name: "pkcs11", devices: []device.Device{hsm}}

	settings := config.SignerSettings{LockTimeout: 2 * time.Second}
	s, err := NewSigner(settings, nil, nil, []device.Provider{softProv, hsmProv}, testutil.SetupTestLogger(t), opt...)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	return &SignerTests{signer: s, soft: soft, hsm: hsm, softProv: softProv, hsmProv: hsmProv}
}

func (st *SignerTests) activate(t *testing.T, tokenID string) {
	t.Helper()
	require.NoError(t, st.signer.Tokens.ActivateToken(context.Background(), tokenID, testPin))
}

func (st *SignerTests) generateKey(t *testing.T, tokenID, label string) *signer.KeyInfo {
	t.Helper()
	key, err := st.signer.Keys.GenerateKey(context.Background(), tokenID, label)
	require.NoError(t, err)
	return key
}

// selfSigned creates a self-signed certificate on keyID, which also attaches
// it to the key as active.
func (st *SignerTests) selfSigned(t *testing.T, keyID string, member *signer.MemberID, usage signer.KeyUsage) []byte {
	t.Helper()
	now := time.Now()
	der, err := st.signer.Certs.GenerateSelfSignedCert(context.Background(), signer.SelfSignedCertParams{
		KeyID:       keyID,
		MemberID:    member,
		Usage:       usage,
		SubjectName: "CN=test,O=Example",
		NotBefore:   now.Add(-time.Hour),
		NotAfter:    now.Add(time.Hour),
	})
	require.NoError(t, err)
	return der
}

func testMember() *signer.MemberID {
	return &signer.MemberID{XRoadInstance: "EE", MemberClass: "GOV", MemberCode: "1234"}
}
