package registry

import (
	"bytes"
	"slices"
	"strings"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
)

// Snapshot is an immutable view of the registry.
type Snapshot struct {
	s *state
}

// Tokens returns all tokens ordered by ID.
func (v *Snapshot) Tokens() []Token {
	out := make([]Token, 0, len(v.s.tokens))
	for _, t := range v.s.tokens {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Token) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Token looks up a token by ID.
func (v *Snapshot) Token(id string) (Token, bool) {
	t, ok := v.s.tokens[id]
	return t, ok
}

// Key looks up a key by ID.
func (v *Snapshot) Key(id string) (Key, bool) {
	k, ok := v.s.keys[id]
	return k, ok
}

// Cert looks up a certificate by ID.
func (v *Snapshot) Cert(id string) (Cert, bool) {
	c, ok := v.s.certs[id]
	return c, ok
}

// CertRequest looks up a certificate request by ID.
func (v *Snapshot) CertRequest(id string) (CertRequest, bool) {
	r, ok := v.s.certRequests[id]
	return r, ok
}

// CertByHash looks up a certificate by hash, regardless of its state.
func (v *Snapshot) CertByHash(hash string) (Cert, bool) {
	id, ok := v.s.certByHash[strings.ToLower(hash)]
	if !ok {
		return Cert{}, false
	}
	return v.Cert(id)
}

// KeysOf returns the keys of a token ordered by ID.
func (v *Snapshot) KeysOf(tokenID string) []Key {
	var out []Key
	for _, k := range v.s.keys {
		if k.TokenID == tokenID {
			out = append(out, k)
		}
	}
	slices.SortFunc(out, func(a, b Key) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// CertsOf returns the certificates of a key in creation order.
func (v *Snapshot) CertsOf(keyID string) []Cert {
	var out []Cert
	for _, c := range v.s.certs {
		if c.KeyID == keyID {
			out = append(out, c)
		}
	}
	sortCerts(out)
	return out
}

// CertRequestsOf returns the certificate requests of a key in creation order.
func (v *Snapshot) CertRequestsOf(keyID string) []CertRequest {
	var out []CertRequest
	for _, r := range v.s.certRequests {
		if r.KeyID == keyID {
			out = append(out, r)
		}
	}
	sortCertRequests(out)
	return out
}

// Certs returns every certificate in creation order.
func (v *Snapshot) Certs() []Cert {
	out := make([]Cert, 0, len(v.s.certs))
	for _, c := range v.s.certs {
		out = append(out, c)
	}
	sortCerts(out)
	return out
}

// KeyByPublicKey finds the key whose public key equals der.
func (v *Snapshot) KeyByPublicKey(der []byte) (Key, bool) {
	var found []Key
	for _, k := range v.s.keys {
		if len(k.PublicKey) > 0 && bytes.Equal(k.PublicKey, der) {
			found = append(found, k)
		}
	}
	if len(found) == 0 {
		return Key{}, false
	}
	slices.SortFunc(found, func(a, b Key) int { return strings.Compare(a.ID, b.ID) })
	return found[0], true
}

// TokenInfo builds the read view of a token with its keys.
func (v *Snapshot) TokenInfo(id string) (signer.TokenInfo, bool) {
	t, ok := v.s.tokens[id]
	if !ok {
		return signer.TokenInfo{}, false
	}
	return v.tokenInfo(t), true
}

// TokenInfos builds the read view of every token ordered by ID.
func (v *Snapshot) TokenInfos() []signer.TokenInfo {
	tokens := v.Tokens()
	out := make([]signer.TokenInfo, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, v.tokenInfo(t))
	}
	return out
}

// KeyInfo builds the read view of a key with its certificates and requests.
func (v *Snapshot) KeyInfo(id string) (signer.KeyInfo, bool) {
	k, ok := v.s.keys[id]
	if !ok {
		return signer.KeyInfo{}, false
	}
	return v.keyInfo(k), true
}

func (v *Snapshot) tokenInfo(t Token) signer.TokenInfo {
	keys := v.KeysOf(t.ID)
	info := signer.TokenInfo{
		ID:                  t.ID,
		Type:                t.Type,
		FriendlyName:        t.FriendlyName,
		Label:               t.Label,
		SerialNumber:        t.SerialNumber,
		Manufacturer:        t.Manufacturer,
		Model:               t.Model,
		State:               t.State,
		PinState:            t.PinState,
		Available:           t.Available,
		ReadOnly:            t.ReadOnly,
		BatchSigningEnabled: t.BatchSigningEnabled,
		Keys:                make([]signer.KeyInfo, 0, len(keys)),
	}
	for _, k := range keys {
		info.Keys = append(info.Keys, v.keyInfo(k))
	}
	return info
}

func (v *Snapshot) keyInfo(k Key) signer.KeyInfo {
	certs := v.CertsOf(k.ID)
	requests := v.CertRequestsOf(k.ID)
	info := signer.KeyInfo{
		ID:            k.ID,
		TokenID:       k.TokenID,
		FriendlyName:  k.FriendlyName,
		Label:         k.Label,
		Usage:         k.Usage,
		SignMechanism: k.SignMechanism,
		PublicKey:     k.PublicKey,
		Available:     k.Available,
		Certs:         make([]signer.CertificateInfo, 0, len(certs)),
		CertRequests:  make([]signer.CertRequestInfo, 0, len(requests)),
	}
	for _, c := range certs {
		info.Certs = append(info.Certs, c.Info())
	}
	for _, r := range requests {
		info.CertRequests = append(info.CertRequests, r.Info())
	}
	return info
}

// Info converts the record to its read view.
func (c Cert) Info() signer.CertificateInfo {
	return signer.CertificateInfo{
		ID:                   c.ID,
		KeyID:                c.KeyID,
		MemberID:             c.MemberID,
		Certificate:          c.DER,
		Status:               c.Status,
		Hash:                 c.Hash,
		Active:               c.Active,
		ActivatedAt:          c.ActivatedAt,
		SavedToConfiguration: c.SavedToConfiguration,
	}
}

// Info converts the record to its read view.
func (r CertRequest) Info() signer.CertRequestInfo {
	return signer.CertRequestInfo{
		ID:          r.ID,
		KeyID:       r.KeyID,
		MemberID:    r.MemberID,
		Usage:       r.Usage,
		SubjectName: r.SubjectName,
		Format:      r.Format,
	}
}

func sortCerts(certs []Cert) {
	slices.SortFunc(certs, func(a, b Cert) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func sortCertRequests(requests []CertRequest) {
	slices.SortFunc(requests, func(a, b CertRequest) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
