package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/storage/storetest"
)

func newTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "stokvel-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	dbPath := filepath.Join(tempDir, "nested", "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store, dbPath
}

func TestSQLiteStore(t *testing.T) {
	store, _ := newTestStore(t)
	defer store.Close()

	storetest.Run(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	store, dbPath := newTestStore(t)
	ctx := context.Background()

	stokvel := &models.Stokvel{
		Name:               "Ga-Rankuwa Grocery",
		Type:               models.TypeGrocery,
		Currency:           "ZAR",
		ContributionAmount: decimal.RequireFromString("500"),
		Rules:              models.DefaultRuleSettings(),
	}
	if err := store.CreateStokvel(ctx, stokvel); err != nil {
		t.Fatalf("CreateStokvel failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Migrations must be safe to run against an existing database.
	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetStokvel(ctx, stokvel.ID)
	if err != nil {
		t.Fatalf("GetStokvel after reopen failed: %v", err)
	}
	if got.Type != models.TypeGrocery || !got.ContributionAmount.Equal(decimal.RequireFromString("500")) {
		t.Errorf("GetStokvel = %+v", got)
	}
	if got.ValueBasis != models.ValueBasisCash {
		t.Errorf("ValueBasis = %q, want cash", got.ValueBasis)
	}
}
