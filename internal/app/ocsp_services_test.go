//go:build unit
// +build unit

package app

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ocsp"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	signererrors "github.com/MGTheTrain/crypto-signer/internal/pkg/errors"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/testutil"
)

// memoryOcspRepository is an in-memory signer.OcspRepository.
type memoryOcspRepository struct {
	mu          sync.Mutex
	rows        map[string]signer.OcspResponse
	upsertErr   error
	afterUpsert func()
}

func newMemoryOcspRepository() *memoryOcspRepository {
	return &memoryOcspRepository{rows: make(map[string]signer.OcspResponse)}
}

func (r *memoryOcspRepository) Upsert(_ context.Context, responses []signer.OcspResponse) error {
	r.mu.Lock()
	if r.upsertErr != nil {
		r.mu.Unlock()
		return r.upsertErr
	}
	for _, resp := range responses {
		r.rows[resp.CertHash] = resp
	}
	after := r.afterUpsert
	r.mu.Unlock()

	if after != nil {
		after()
	}
	return nil
}

func (r *memoryOcspRepository) row(hash string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[hash].Response
}

func (r *memoryOcspRepository) List(context.Context) ([]signer.OcspResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]signer.OcspResponse, 0, len(r.rows))
	for _, resp := range r.rows {
		out = append(out, resp)
	}
	return out, nil
}

func (r *memoryOcspRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for hash, resp := range r.rows {
		if resp.NextUpdate != nil && resp.NextUpdate.Before(now) {
			delete(r.rows, hash)
			n++
		}
	}
	return n, nil
}

// ocspResponse creates a signed "good" OCSP response valid until nextUpdate.
func ocspResponse(t *testing.T, nextUpdate time.Time) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test CA"},
		NotBefore:             time.Now().Add(-48 * time.Hour),
		NotAfter:              time.Now().Add(48 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	issuer, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	resp, err := ocsp.CreateResponse(issuer, issuer, ocsp.Response{
		Status:       ocsp.Good,
		SerialNumber: big.NewInt(42),
		ThisUpdate:   nextUpdate.Add(-time.Hour),
		NextUpdate:   nextUpdate,
	}, key)
	require.NoError(t, err)
	return resp
}

func newTestOcspCache(t *testing.T, repo signer.OcspRepository) *OcspCache {
	cache, err := NewOcspCache(repo, testutil.SetupTestLogger(t))
	require.NoError(t, err)
	return cache
}

func TestOcspCache_SetAndGet(t *testing.T) {
	cache := newTestOcspCache(t, nil)
	ctx := context.Background()

	err := cache.SetOcspResponses(ctx, []string{"AA", "bb"}, [][]byte{[]byte("one"), []byte("two")})
	require.NoError(t, err)

	got, err := cache.GetOcspResponses(ctx, []string{"bb", "unknown", "aa"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []byte("two"), got[0])
	assert.Nil(t, got[1])
	assert.Equal(t, []byte("one"), got[2])

	require.NoError(t, cache.SetOcspResponses(ctx, []string{"aa"}, [][]byte{[]byte("newer")}))
	got, err = cache.GetOcspResponses(ctx, []string{"AA"})
	require.NoError(t, err)
	assert.Equal(t, []byte("newer"), got[0])

	got, err = cache.GetOcspResponses(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOcspCache_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		hashes    []string
		responses [][]byte
	}{
		{name: "more hashes than responses", hashes: []string{"a", "b"}, responses: [][]byte{[]byte("x")}},
		{name: "more responses than hashes", hashes: []string{"a"}, responses: [][]byte{[]byte("x"), []byte("y")}},
		{name: "empty hash", hashes: []string{""}, responses: [][]byte{[]byte("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newTestOcspCache(t, nil)
			err := cache.SetOcspResponses(context.Background(), tt.hashes, tt.responses)
			assert.True(t, signererrors.Match(signererrors.InvalidParameter, err))
		})
	}
}

func TestOcspCache_Expiry(t *testing.T) {
	repo := newMemoryOcspRepository()
	cache := newTestOcspCache(t, repo)
	ctx := context.Background()
	now := time.Now()

	fresh := ocspResponse(t, now.Add(time.Hour))
	stale := ocspResponse(t, now.Add(-time.Minute))
	require.NoError(t, cache.SetOcspResponses(ctx, []string{"fresh", "stale"}, [][]byte{fresh, stale}))

	got, err := cache.GetOcspResponses(ctx, []string{"fresh", "stale"})
	require.NoError(t, err)
	assert.Equal(t, fresh, got[0])
	assert.Nil(t, got[1])

	require.NotNil(t, repo.rows["fresh"].NextUpdate)
	require.NoError(t, cache.PurgeExpired(ctx))
	assert.Len(t, repo.rows, 1)

	cache.now = func() time.Time { return now.Add(2 * time.Hour) }
	got, err = cache.GetOcspResponses(ctx, []string{"fresh"})
	require.NoError(t, err)
	assert.Nil(t, got[0])
}

func TestOcspCache_Persistence(t *testing.T) {
	repo := newMemoryOcspRepository()
	ctx := context.Background()

	first := newTestOcspCache(t, repo)
	require.NoError(t, first.SetOcspResponses(ctx, []string{"a", "a", "b"}, [][]byte{[]byte("1"), []byte("2"), []byte("3")}))
	assert.Equal(t, []byte("2"), repo.rows["a"].Response)

	second := newTestOcspCache(t, repo)
	require.NoError(t, second.Load(ctx))
	got, err := second.GetOcspResponses(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("2"), []byte("3")}, got)

	repo.upsertErr = errors.New("database is locked")
	err = second.SetOcspResponses(ctx, []string{"c"}, [][]byte{[]byte("4")})
	require.Error(t, err)
	got, err = second.GetOcspResponses(ctx, []string{"c"})
	require.NoError(t, err)
	assert.Nil(t, got[0])
}

func TestOcspCache_ConcurrentSetsAgree(t *testing.T) {
	repo := newMemoryOcspRepository()
	cache := newTestOcspCache(t, repo)
	ctx := context.Background()

	// the first write stalls after reaching the repository
	var calls atomic.Int32
	stalled := make(chan struct{})
	release := make(chan struct{})
	repo.afterUpsert = func() {
		if calls.Add(1) == 1 {
			close(stalled)
			<-release
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, cache.SetOcspResponses(ctx, []string{"h"}, [][]byte{[]byte("first")}))
	}()
	<-stalled
	go func() {
		defer wg.Done()
		assert.NoError(t, cache.SetOcspResponses(ctx, []string{"h"}, [][]byte{[]byte("second")}))
	}()
	time.Sleep(50 * time.Millisecond)

	// readers are not blocked by the stalled write
	got, err := cache.GetOcspResponses(ctx, []string{"h"})
	require.NoError(t, err)
	assert.Nil(t, got[0])

	close(release)
	wg.Wait()

	got, err = cache.GetOcspResponses(ctx, []string{"h"})
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got[0])
	assert.Equal(t, []byte("second"), repo.row("h"))
}
