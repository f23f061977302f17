package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ocsp"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	signererrors "github.com/MGTheTrain/crypto-signer/internal/pkg/errors"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

type ocspEntry struct {
	response   []byte
	nextUpdate *time.Time
}

// OcspCache implements the OcspService interface. Responses are kept in
// memory and written through to the repository, if any.
type OcspCache struct {
	repo   signer.OcspRepository
	logger logger.Logger
	now    func() time.Time

	// writeMu orders writers so the repository and entries apply writes
	// in the same sequence; mu only guards entries.
	writeMu sync.Mutex
	mu      sync.RWMutex
	entries map[string]ocspEntry
}

var _ signer.OcspService = (*OcspCache)(nil)

// NewOcspCache creates an empty cache. A nil repo keeps responses in memory only.
func NewOcspCache(repo signer.OcspRepository, logger logger.Logger) (*OcspCache, error) {
	return &OcspCache{
		repo:    repo,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]ocspEntry),
	}, nil
}

// Load fills the cache from the repository, dropping expired responses.
func (c *OcspCache) Load(ctx context.Context) error {
	if c.repo == nil {
		return nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.repo.DeleteExpired(ctx, c.now()); err != nil {
		return err
	}
	responses, err := c.repo.List(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range responses {
		c.entries[strings.ToLower(r.CertHash)] = ocspEntry{response: r.Response, nextUpdate: r.NextUpdate}
	}
	c.logger.Info("Loaded ", len(responses), " cached OCSP responses")
	return nil
}

// PurgeExpired removes responses past their next update time.
func (c *OcspCache) PurgeExpired(ctx context.Context) error {
	now := c.now()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	for hash, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, hash)
		}
	}
	c.mu.Unlock()

	if c.repo == nil {
		return nil
	}
	_, err := c.repo.DeleteExpired(ctx, now)
	return err
}

func (e ocspEntry) expired(now time.Time) bool {
	return e.nextUpdate != nil && now.After(*e.nextUpdate)
}

// nextUpdateOf returns the NextUpdate of a DER OCSP response. Responses that
// do not parse, or carry no NextUpdate, never expire.
func (c *OcspCache) nextUpdateOf(hash string, der []byte) *time.Time {
	if len(der) == 0 {
		return nil
	}
	resp, err := ocsp.ParseResponse(der, nil)
	if err != nil {
		c.logger.Debug("OCSP response for ", hash, " not parsed: ", err)
		return nil
	}
	if resp.NextUpdate.IsZero() {
		return nil
	}
	next := resp.NextUpdate.UTC()
	return &next
}

// SetOcspResponses upserts responses[i] under hashes[i]
func (c *OcspCache) SetOcspResponses(ctx context.Context, hashes []string, responses [][]byte) error {
	const op = "OcspService.SetOcspResponses"

	if len(hashes) != len(responses) {
		return signererrors.New(signererrors.InvalidParameter, op,
			fmt.Sprintf("Got %d hashes but %d responses", len(hashes), len(responses)))
	}

	batch := make([]signer.OcspResponse, len(hashes))
	for i, hash := range hashes {
		if hash == "" {
			return signererrors.New(signererrors.InvalidParameter, op, fmt.Sprintf("Hash at index %d is empty", i))
		}
		hash = strings.ToLower(hash)
		batch[i] = signer.OcspResponse{
			CertHash:   hash,
			Response:   responses[i],
			NextUpdate: c.nextUpdateOf(hash, responses[i]),
		}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.repo != nil {
		if err := c.repo.Upsert(ctx, dedupeLast(batch)); err != nil {
			return signererrors.Wrap(err, op)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range batch {
		c.entries[r.CertHash] = ocspEntry{response: r.Response, nextUpdate: r.NextUpdate}
	}
	return nil
}

// dedupeLast keeps the last response of every hash, in first-seen order.
func dedupeLast(batch []signer.OcspResponse) []signer.OcspResponse {
	index := make(map[string]int, len(batch))
	out := make([]signer.OcspResponse, 0, len(batch))
	for _, r := range batch {
		if i, ok := index[r.CertHash]; ok {
			out[i] = r
			continue
		}
		index[r.CertHash] = len(out)
		out = append(out, r)
	}
	return out
}

// GetOcspResponses returns one slot per hash, in request order. Unknown or
// expired hashes yield nil.
func (c *OcspCache) GetOcspResponses(_ context.Context, hashes []string) ([][]byte, error) {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([][]byte, len(hashes))
	for i, hash := range hashes {
		e, ok := c.entries[strings.ToLower(hash)]
		if !ok || e.expired(now) {
			continue
		}
		out[i] = e.response
	}
	return out, nil
}
