package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Errors returned by Tx mutators.
var (
	ErrParentNotFound = errors.New("parent record not found")
	ErrHashConflict   = errors.New("certificate hash already registered")
)

// Tx is a pending Update. It reads its own writes.
type Tx struct {
	Snapshot

	dirtyTokens       map[string]struct{}
	dirtyKeys         map[string]struct{}
	dirtyCerts        map[string]struct{}
	dirtyCertRequests map[string]struct{}
}

func newTx(s *state) *Tx {
	return &Tx{
		Snapshot:          Snapshot{s: s},
		dirtyTokens:       make(map[string]struct{}),
		dirtyKeys:         make(map[string]struct{}),
		dirtyCerts:        make(map[string]struct{}),
		dirtyCertRequests: make(map[string]struct{}),
	}
}

// PutToken inserts or replaces a token.
func (tx *Tx) PutToken(t Token) {
	tx.s.tokens[t.ID] = t
	tx.dirtyTokens[t.ID] = struct{}{}
}

// DeleteToken removes a token and everything it holds.
func (tx *Tx) DeleteToken(id string) {
	for _, k := range tx.KeysOf(id) {
		tx.DeleteKey(k.ID)
	}
	delete(tx.s.tokens, id)
	tx.dirtyTokens[id] = struct{}{}
}

// PutKey inserts or replaces a key. Its token must exist.
func (tx *Tx) PutKey(k Key) error {
	if _, ok := tx.s.tokens[k.TokenID]; !ok {
		return fmt.Errorf("key %s: token %s: %w", k.ID, k.TokenID, ErrParentNotFound)
	}
	tx.s.keys[k.ID] = k
	tx.dirtyKeys[k.ID] = struct{}{}
	return nil
}

// DeleteKey removes a key with its certificates and certificate requests.
func (tx *Tx) DeleteKey(id string) {
	for _, c := range tx.CertsOf(id) {
		tx.DeleteCert(c.ID)
	}
	for _, r := range tx.CertRequestsOf(id) {
		tx.DeleteCertRequest(r.ID)
	}
	delete(tx.s.keys, id)
	tx.dirtyKeys[id] = struct{}{}
}

// PutCert inserts or replaces a certificate. Its key must exist and its hash
// must not belong to another certificate.
func (tx *Tx) PutCert(c Cert) error {
	if _, ok := tx.s.keys[c.KeyID]; !ok {
		return fmt.Errorf("certificate %s: key %s: %w", c.ID, c.KeyID, ErrParentNotFound)
	}
	c.Hash = strings.ToLower(c.Hash)
	if owner, ok := tx.s.certByHash[c.Hash]; ok && owner != c.ID {
		return fmt.Errorf("certificate %s: %w", c.Hash, ErrHashConflict)
	}
	if prev, ok := tx.s.certs[c.ID]; ok && prev.Hash != c.Hash {
		delete(tx.s.certByHash, prev.Hash)
	}
	tx.s.certs[c.ID] = c
	tx.s.certByHash[c.Hash] = c.ID
	tx.dirtyCerts[c.ID] = struct{}{}
	return nil
}

// DeleteCert removes a certificate and its hash index entry.
func (tx *Tx) DeleteCert(id string) {
	if c, ok := tx.s.certs[id]; ok {
		delete(tx.s.certByHash, c.Hash)
	}
	delete(tx.s.certs, id)
	tx.dirtyCerts[id] = struct{}{}
}

// PutCertRequest inserts or replaces a certificate request. Its key must
// exist.
func (tx *Tx) PutCertRequest(r CertRequest) error {
	if _, ok := tx.s.keys[r.KeyID]; !ok {
		return fmt.Errorf("certificate request %s: key %s: %w", r.ID, r.KeyID, ErrParentNotFound)
	}
	tx.s.certRequests[r.ID] = r
	tx.dirtyCertRequests[r.ID] = struct{}{}
	return nil
}

// DeleteCertRequest removes a certificate request.
func (tx *Tx) DeleteCertRequest(id string) {
	delete(tx.s.certRequests, id)
	tx.dirtyCertRequests[id] = struct{}{}
}

// changes collects the final form of every touched record.
func (tx *Tx) changes() *Changeset {
	cs := &Changeset{}
	for _, id := range sortedIDs(tx.dirtyTokens) {
		if t, ok := tx.s.tokens[id]; ok {
			cs.Upserts.Tokens = append(cs.Upserts.Tokens, t)
		} else {
			cs.DeletedTokens = append(cs.DeletedTokens, id)
		}
	}
	for _, id := range sortedIDs(tx.dirtyKeys) {
		if k, ok := tx.s.keys[id]; ok {
			cs.Upserts.Keys = append(cs.Upserts.Keys, k)
		} else {
			cs.DeletedKeys = append(cs.DeletedKeys, id)
		}
	}
	for _, id := range sortedIDs(tx.dirtyCerts) {
		if c, ok := tx.s.certs[id]; ok {
			cs.Upserts.Certs = append(cs.Upserts.Certs, c)
		} else {
			cs.DeletedCerts = append(cs.DeletedCerts, id)
		}
	}
	for _, id := range sortedIDs(tx.dirtyCertRequests) {
		if r, ok := tx.s.certRequests[id]; ok {
			cs.Upserts.CertRequests = append(cs.Upserts.CertRequests, r)
		} else {
			cs.DeletedCertRequests = append(cs.DeletedCertRequests, id)
		}
	}
	return cs
}

func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
