package ledgerstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/crypvault/wallet-api/pkg/wallet"
)

// ProfileDao is a data access object that maps directly to the 'profiles' table in PostgreSQL.
type ProfileDao struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`
	ID            uuid.UUID       `bun:"id,pk,type:uuid"`
	Email         string          `bun:"email,notnull,type:varchar(255)"`
	WalletName    string          `bun:"wallet_name,notnull,type:varchar(255)"`
	WalletAddress string          `bun:"wallet_address,unique,notnull,type:varchar(64)"`
	BTCBalance    decimal.Decimal `bun:"btc_balance,notnull,type:numeric(20,8),default:0"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero,default:current_timestamp"`
}

// TransactionDao is a data access object that maps directly to the 'transactions' table in PostgreSQL.
type TransactionDao struct {
	bun.BaseModel       `bun:"table:transactions,alias:t"`
	ID                  uuid.UUID       `bun:"id,pk,type:uuid"`
	UserID              uuid.UUID       `bun:"user_id,notnull,type:uuid"`
	Type                string          `bun:"type,notnull,type:varchar(32)"`
	Amount              decimal.Decimal `bun:"amount,notnull,type:numeric(20,8)"`
	CounterpartyAddress *string         `bun:"counterparty_address,type:varchar(64)"`
	RelatedUserID       *uuid.UUID      `bun:"related_user_id,type:uuid"`
	Memo                *string         `bun:"memo,type:varchar(500)"`
	Status              string          `bun:"status,notnull,type:varchar(16)"`
	Timestamp           time.Time       `bun:"timestamp,nullzero,notnull,default:current_timestamp"`
}

// toProfileDao converts a wallet.Profile to ProfileDao.
func toProfileDao(p *wallet.Profile) *ProfileDao {
	return &ProfileDao{
		ID:            p.ID,
		Email:         p.Email,
		WalletName:    p.WalletName,
		WalletAddress: p.WalletAddress,
		BTCBalance:    p.BTCBalance,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// toProfile converts a ProfileDao to wallet.Profile.
func toProfile(dao *ProfileDao) *wallet.Profile {
	return &wallet.Profile{
		ID:            dao.ID,
		Email:         dao.Email,
		WalletName:    dao.WalletName,
		WalletAddress: dao.WalletAddress,
		BTCBalance:    dao.BTCBalance,
		CreatedAt:     dao.CreatedAt,
		UpdatedAt:     dao.UpdatedAt,
	}
}

// toTransactionDao converts a wallet.Transaction to TransactionDao.
func toTransactionDao(tx *wallet.Transaction) *TransactionDao {
	dao := &TransactionDao{
		ID:            tx.ID,
		UserID:        tx.UserID,
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		RelatedUserID: tx.RelatedUserID,
		Status:        string(tx.Status),
		Timestamp:     tx.Timestamp,
	}
	if tx.CounterpartyAddress != "" {
		dao.CounterpartyAddress = &tx.CounterpartyAddress
	}
	if tx.Memo != "" {
		dao.Memo = &tx.Memo
	}
	return dao
}

// toTransaction converts a TransactionDao to wallet.Transaction.
func toTransaction(dao *TransactionDao) *wallet.Transaction {
	tx := &wallet.Transaction{
		ID:            dao.ID,
		UserID:        dao.UserID,
		Type:          wallet.TransactionType(dao.Type),
		Amount:        dao.Amount,
		RelatedUserID: dao.RelatedUserID,
		Status:        wallet.TransactionStatus(dao.Status),
		Timestamp:     dao.Timestamp,
	}
	if dao.CounterpartyAddress != nil {
		tx.CounterpartyAddress = *dao.CounterpartyAddress
	}
	if dao.Memo != nil {
		tx.Memo = *dao.Memo
	}
	return tx
}
