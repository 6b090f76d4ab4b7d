package walletdb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/crypvault/wallet-api/pkg/ledgerstore"
	mghelper "github.com/crypvault/wallet-api/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating transactions table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.TransactionDao{}); err != nil {
			return err
		}
		// The log is always read per user, newest first.
		return mghelper.CreateModelIndexes(ctx, db, &ledgerstore.TransactionDao{}, "user_id", "timestamp")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping transactions table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.TransactionDao{})
	})
}
