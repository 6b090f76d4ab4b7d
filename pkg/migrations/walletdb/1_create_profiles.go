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
		log.Println("creating profiles table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.ProfileDao{}); err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx,
			"ALTER TABLE profiles ADD CONSTRAINT btc_balance_non_negative CHECK (btc_balance >= 0)"); err != nil {
			return err
		}
		return mghelper.CreateModelUniqueIndexes(ctx, db, &ledgerstore.ProfileDao{}, "wallet_address")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping profiles table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.ProfileDao{})
	})
}
