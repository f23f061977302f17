//go:build integration
// +build integration

package persistence

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/testutil"
)

// TestContext holds test database and repositories
type TestContext struct {
	DB       *gorm.DB
	Store    registry.Store
	OcspRepo signer.OcspRepository
}

// SetupTestDB initializes test database with automatic cleanup
func SetupTestDB(t *testing.T, dbType string) *TestContext {
	t.Helper()

	var settings config.DatabaseSettings
	var cleanupFunc func()

	switch dbType {
	case config.SqliteDbType:
		settings = config.DatabaseSettings{
			Type: config.SqliteDbType,
			DSN:  ":memory:",
			Name: "signer",
		}
		cleanupFunc = func() {}

	case config.PostgresDbType:
		uniqueDBName := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
		settings = config.DatabaseSettings{
			Type: config.PostgresDbType,
			DSN:  "user=postgres password=postgres host=localhost port=5432 sslmode=disable",
			Name: uniqueDBName,
		}
		cleanupFunc = func() {
			adminDSN := "user=postgres password=postgres host=localhost port=5432 dbname=postgres sslmode=disable"
			_ = DropDatabase(adminDSN, uniqueDBName)
		}

	default:
		t.Fatalf("Unsupported database type: %s", dbType)
	}

	db, err := NewDBConnection(settings)
	require.NoError(t, err, "Failed to create database connection")

	t.Cleanup(func() {
		_ = CloseDB(db)
		cleanupFunc()
	})

	require.NoError(t, Migrate(db), "Failed to migrate schema")

	logger := testutil.SetupTestLogger(t)

	store, err := NewGormSignerStore(db, logger)
	require.NoError(t, err, "Failed to create signer store")

	ocspRepo, err := NewGormOcspRepository(db, logger)
	require.NoError(t, err, "Failed to create OCSP repository")

	return &TestContext{
		DB:       db,
		Store:    store,
		OcspRepo: ocspRepo,
	}
}

// CreateTestRecords returns a token with one key, one certificate and one
// certificate request.
func CreateTestRecords(t *testing.T) *registry.Records {
	t.Helper()

	member := &signer.MemberID{XRoadInstance: "EE", MemberClass: "GOV", MemberCode: "1234"}
	now := time.Now().UTC().Truncate(time.Second)
	keyID := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))

	return &registry.Records{
		Tokens: []registry.Token{{
			ID:                  signer.SoftwareTokenID,
			Type:                signer.TokenTypeSoftware,
			FriendlyName:        "soft",
			State:               signer.TokenStateActive,
			PinState:            signer.PinStateOK,
			Available:           true,
			BatchSigningEnabled: true,
		}},
		Keys: []registry.Key{{
			ID:            keyID,
			TokenID:       signer.SoftwareTokenID,
			Usage:         signer.KeyUsageSigning,
			SignMechanism: "CKM_RSA_PKCS",
			PublicKey:     []byte{0x30, 0x00},
			Available:     true,
		}},
		Certs: []registry.Cert{{
			ID:          uuid.NewString(),
			KeyID:       keyID,
			MemberID:    member,
			DER:         []byte{0x30, 0x01},
			Status:      signer.CertStatusRegistered,
			Hash:        "00ff",
			Active:      true,
			ActivatedAt: now,
			CreatedAt:   now,
		}},
		CertRequests: []registry.CertRequest{{
			ID:          uuid.NewString(),
			KeyID:       keyID,
			MemberID:    member,
			Usage:       signer.KeyUsageSigning,
			SubjectName: "CN=1234",
			Format:      signer.CertRequestFormatPEM,
			CreatedAt:   now,
		}},
	}
}
