package walletdb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/crypvault/wallet-api/pkg/credstore"
	mghelper "github.com/crypvault/wallet-api/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating pin_credentials table...")
		return mghelper.CreateSchema(ctx, db, &credstore.PinCredentialDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping pin_credentials table...")
		return mghelper.DropTables(ctx, db, &credstore.PinCredentialDao{})
	})
}
