// Package wallet holds the domain model for the ledger subsystem: profiles,
// transactions and the request/response types exchanged with the HTTP layer.
package wallet

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType identifies which side of a transfer a record represents.
type TransactionType string

const (
	TypeSend                    TransactionType = "send"
	TypeReceive                 TransactionType = "receive"
	TypeInternalTransferSend    TransactionType = "internal_transfer_send"
	TypeInternalTransferReceive TransactionType = "internal_transfer_receive"
)

// TransactionStatus is the settlement state of a transaction record.
// Only external sends are ever created as pending; the pending -> completed
// transition is reserved for a future confirmation flow.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Profile is the in-core record of a principal's wallet state. There is
// exactly one per principal, created at registration with a zero balance and
// a freshly generated address. BTCBalance is never negative.
type Profile struct {
	ID            uuid.UUID
	Email         string
	WalletName    string
	WalletAddress string
	BTCBalance    decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Transaction is an immutable audit record on a single user's ledger.
// Internal transfers always produce two records, one per side, linked
// through RelatedUserID.
type Transaction struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	Type                TransactionType
	Amount              decimal.Decimal
	CounterpartyAddress string
	RelatedUserID       *uuid.UUID
	Memo                string
	Status              TransactionStatus
	Timestamp           time.Time
}

// SendRequest is the payload for POST /transfers.
type SendRequest struct {
	RecipientAddress string `json:"recipient_address" validate:"required"`
	Amount           string `json:"amount" validate:"required"`
	Memo             string `json:"memo,omitzero"`
}

// SendResponse reports the outcome of a send. Warning is set only for the
// partial-failure case: the balance moved but an audit record is missing.
type SendResponse struct {
	Transaction *TransactionResponse `json:"transaction,omitzero"`
	NewBalance  string               `json:"new_balance,omitzero"`
	Warning     string               `json:"warning,omitzero"`
}

// ReceiveRequest is the payload for POST /receive (simulated crediting).
type ReceiveRequest struct {
	Amount        string `json:"amount" validate:"required"`
	SourceAddress string `json:"source_address" validate:"required"`
	Memo          string `json:"memo,omitzero"`
}

// WalletResponse is the profile payload consumed by the UI layer.
type WalletResponse struct {
	WalletName     string `json:"wallet_name"`
	DisplayAddress string `json:"display_address"`
	Balance        string `json:"balance"`
}

// TransactionResponse is the wire form of a Transaction.
type TransactionResponse struct {
	ID                  string `json:"id"`
	Type                string `json:"type"`
	Amount              string `json:"amount"`
	CounterpartyAddress string `json:"counterparty_address,omitzero"`
	RelatedUserID       string `json:"related_user_id,omitzero"`
	Memo                string `json:"memo,omitzero"`
	Status              string `json:"status"`
	Timestamp           string `json:"timestamp"`
}

// UpdateNameRequest is the payload for PATCH /wallet/name.
type UpdateNameRequest struct {
	WalletName string `json:"wallet_name" validate:"required"`
}

// NewTransactionResponse converts a Transaction to its wire form.
func NewTransactionResponse(tx *Transaction) *TransactionResponse {
	resp := &TransactionResponse{
		ID:                  tx.ID.String(),
		Type:                string(tx.Type),
		Amount:              tx.Amount.String(),
		CounterpartyAddress: tx.CounterpartyAddress,
		Memo:                tx.Memo,
		Status:              string(tx.Status),
		Timestamp:           tx.Timestamp.UTC().Format(time.RFC3339),
	}
	if tx.RelatedUserID != nil {
		resp.RelatedUserID = tx.RelatedUserID.String()
	}
	return resp
}

const (
	// addressBodyLength is the number of random characters after the prefix.
	addressBodyLength = 38
	// addressCharset is bech32-like: no 1, b, i or o after the prefix.
	addressCharset = "023456789acdefghjklmnpqrstuvwxyz"
)

// mainnetAddressPattern matches mainnet-class address prefixes (bc1, legacy 1/3).
var mainnetAddressPattern = regexp.MustCompile(`(?i)^(bc1|[13])`)

// NewAddress generates an opaque wallet address with the given prefix.
// Addresses are simulated: the suffix is uniform random over a bech32-like
// charset, not a real encoded key hash.
func NewAddress(prefix string) (string, error) {
	var b strings.Builder
	b.WriteString(prefix)
	max := big.NewInt(int64(len(addressCharset)))
	for i := 0; i < addressBodyLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(addressCharset[n.Int64()])
	}
	return b.String(), nil
}

// DisplayAddress cosmetically rewrites a testnet address prefix for display
// when the masked testnet mode is active. Stored addresses are never rewritten.
func DisplayAddress(addr string, testnetDisplay bool) string {
	if testnetDisplay && strings.HasPrefix(addr, "tb1") {
		return "bc1" + addr[3:]
	}
	return addr
}

// IsMainnetClass reports whether an address matches a mainnet-style prefix.
// Used only as a namespace guard in masked testnet mode; address format
// correctness is deliberately not validated beyond this.
func IsMainnetClass(addr string) bool {
	return mainnetAddressPattern.MatchString(addr)
}

// DefaultWalletName derives the initial wallet name from the account email.
func DefaultWalletName(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return "Wallet"
	}
	return "Wallet-" + local
}
