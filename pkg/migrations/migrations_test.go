package migrations

import (
	"context"
	"testing"

	"github.com/uptrace/bun/migrate"

	"github.com/crypvault/wallet-api/pkg/migrations/walletdb"
	"github.com/crypvault/wallet-api/pkg/pgutil"
)

func TestWalletDBMigrations_Apply(t *testing.T) {
	pgutil.RequireDockerAccess(t)
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, walletdb.Migrations)

	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if group.IsZero() {
		t.Error("Expected migrations to run, but none were applied")
	}

	expectedTables := []string{
		"profiles",
		"transactions",
		"pin_credentials",
		"bun_migrations",
	}
	for _, table := range expectedTables {
		pgutil.AssertTableExists(t, db, table)
	}

	pgutil.AssertIndexExists(t, db, "idx_profiles_wallet_address")
	pgutil.AssertIndexExists(t, db, "idx_transactions_user_id")
	pgutil.AssertIndexExists(t, db, "idx_transactions_timestamp")
}

func TestWalletDBMigrations_Idempotency(t *testing.T) {
	pgutil.RequireDockerAccess(t)
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, walletdb.Migrations)

	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("First Migrate() failed: %v", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("Second Migrate() failed: %v", err)
	}
	if !group.IsZero() {
		t.Error("Expected no new migrations on second run")
	}

	pgutil.AssertTableExists(t, db, "profiles")
	pgutil.AssertTableExists(t, db, "transactions")
}

func TestWalletDBMigrations_Rollback(t *testing.T) {
	pgutil.RequireDockerAccess(t)
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, walletdb.Migrations)

	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	group, err := migrator.Rollback(ctx)
	if err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}
	if group.IsZero() {
		t.Error("Expected rollback to process a migration")
	}

	// The whole group rolls back together.
	pgutil.AssertTableNotExists(t, db, "pin_credentials")
	pgutil.AssertTableNotExists(t, db, "transactions")
	pgutil.AssertTableNotExists(t, db, "profiles")
}
