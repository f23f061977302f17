//go:build integration
// +build integration

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
)

func TestOcspRepositorySqlite_Upsert(t *testing.T) {
	ctx := SetupTestDB(t, config.SqliteDbType)

	require.NoError(t, ctx.OcspRepo.Upsert(context.Background(), []signer.OcspResponse{
		{CertHash: "aa", Response: []byte{1}},
		{CertHash: "bb", Response: []byte{2}},
	}))
	require.NoError(t, ctx.OcspRepo.Upsert(context.Background(), []signer.OcspResponse{
		{CertHash: "aa", Response: []byte{3}},
	}))

	list, err := ctx.OcspRepo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "aa", list[0].CertHash)
	assert.Equal(t, []byte{3}, list[0].Response)
	assert.Equal(t, []byte{2}, list[1].Response)
}

func TestOcspRepositorySqlite_DeleteExpired(t *testing.T) {
	ctx := SetupTestDB(t, config.SqliteDbType)
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	require.NoError(t, ctx.OcspRepo.Upsert(context.Background(), []signer.OcspResponse{
		{CertHash: "expired", Response: []byte{1}, NextUpdate: &past},
		{CertHash: "fresh", Response: []byte{2}, NextUpdate: &future},
		{CertHash: "unbounded", Response: []byte{3}},
	}))

	deleted, err := ctx.OcspRepo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	list, err := ctx.OcspRepo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "fresh", list[0].CertHash)
	assert.Equal(t, "unbounded", list[1].CertHash)
}

func TestOcspRepositorySqlite_UpsertEmpty(t *testing.T) {
	ctx := SetupTestDB(t, config.SqliteDbType)
	assert.NoError(t, ctx.OcspRepo.Upsert(context.Background(), nil))
}
