// Package service implements the transfer engine: all balance-changing
// operations against the ledger store, plus profile binding for newly
// authenticated principals.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crypvault/wallet-api/internal/metrics"
	apperrors "github.com/crypvault/wallet-api/pkg/app/errors"
	"github.com/crypvault/wallet-api/pkg/auth"
	"github.com/crypvault/wallet-api/pkg/config"
	"github.com/crypvault/wallet-api/pkg/ledgerstore"
	"github.com/crypvault/wallet-api/pkg/notify"
	"github.com/crypvault/wallet-api/pkg/wallet"
)

// faucetSourceLabel is the synthetic counterparty recorded for faucet credits.
const faucetSourceLabel = "TestFaucet"

var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfTransfer      = errors.New("cannot send to your own address")
	ErrDisallowedAddress = errors.New("mainnet-class address not allowed in testnet display mode")
	ErrRecipientLookup   = errors.New("recipient lookup failed")
)

// Store is the narrow data-access interface for the transfer engine.
// Defined here to keep the engine decoupled from ledgerstore implementation details.
type Store interface {
	CreateProfile(ctx context.Context, profile *wallet.Profile) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*wallet.Profile, error)
	FindProfileByAddress(ctx context.Context, address string) (*wallet.Profile, error)
	UpdateWalletName(ctx context.Context, userID uuid.UUID, name string) error
	AdjustBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	AppendTransaction(ctx context.Context, tx *wallet.Transaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]*wallet.Transaction, error)
}

// SendOutcome reports a completed send. Warning is non-empty only for the
// partial-failure case: balances moved but an audit record is missing.
type SendOutcome struct {
	Transaction *wallet.Transaction
	NewBalance  decimal.Decimal
	Warning     string
}

// Service defines the transfer engine business logic.
type Service interface {
	EnsureProfile(ctx context.Context, principal *auth.Principal) (*wallet.Profile, error)
	GetWallet(ctx context.Context, userID uuid.UUID) (*wallet.Profile, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]*wallet.Transaction, error)
	UpdateWalletName(ctx context.Context, userID uuid.UUID, name string) error
	SendFunds(ctx context.Context, senderID uuid.UUID, recipientAddress string, amount decimal.Decimal, memo string) (*SendOutcome, error)
	ReceiveFunds(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceAddress, memo string) (*wallet.Transaction, error)
	CreditFaucet(ctx context.Context, userID uuid.UUID) (*wallet.Transaction, error)
}

type transferService struct {
	store     Store
	publisher notify.Publisher
	cfg       config.WalletConfig
	logger    *zap.Logger
}

// NewService creates a new transfer engine. The wallet config is copied in:
// display mode and faucet bounds are fixed for the lifetime of the service.
func NewService(store Store, publisher notify.Publisher, cfg config.WalletConfig, logger *zap.Logger) Service {
	return &transferService{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// EnsureProfile loads the principal's profile, creating it on first sight
// with a zero balance and a freshly generated address.
func (s *transferService) EnsureProfile(ctx context.Context, principal *auth.Principal) (*wallet.Profile, error) {
	profile, err := s.store.GetProfile(ctx, principal.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ledgerstore.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	address, err := wallet.NewAddress(s.cfg.AddressPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to generate address: %w", err)
	}

	profile = &wallet.Profile{
		ID:            principal.ID,
		Email:         principal.Email,
		WalletName:    wallet.DefaultWalletName(principal.Email),
		WalletAddress: address,
		BTCBalance:    decimal.Zero,
	}

	err = s.store.CreateProfile(ctx, profile)
	if errors.Is(err, ledgerstore.ErrProfileExists) {
		// Lost a registration race; the existing row wins.
		return s.store.GetProfile(ctx, principal.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.Info("profile created",
		zap.String("user_id", principal.ID.String()),
		zap.String("wallet_address", address),
	)
	return profile, nil
}

func (s *transferService) GetWallet(ctx context.Context, userID uuid.UUID) (*wallet.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, ledgerstore.ErrProfileNotFound) {
		return nil, apperrors.ResourceNotFoundError(err, "profile not found")
	}
	return profile, err
}

func (s *transferService) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*wallet.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}

func (s *transferService) UpdateWalletName(ctx context.Context, userID uuid.UUID, name string) error {
	if name == "" {
		return apperrors.BadRequestError(nil, "wallet name must not be empty")
	}
	err := s.store.UpdateWalletName(ctx, userID, name)
	if errors.Is(err, ledgerstore.ErrProfileNotFound) {
		return apperrors.ResourceNotFoundError(err, "profile not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update wallet name: %w", err)
	}
	s.publishProfileUpdated(ctx, userID)
	return nil
}

// exceedsSatoshiPrecision reports whether amount carries value below the
// eighth decimal place. Trailing zeros do not count: 0.100000000 is 0.1.
func exceedsSatoshiPrecision(amount decimal.Decimal) bool {
	return !amount.Equal(amount.Round(8))
}

// SendFunds validates and routes a send: to a known profile it settles an
// internal transfer; to an unknown address it records a pending external
// send without touching the balance. Sends are never retried automatically;
// a retry after an ambiguous failure is a new, independently validated attempt.
func (s *transferService) SendFunds(
	ctx context.Context,
	senderID uuid.UUID,
	recipientAddress string,
	amount decimal.Decimal,
	memo string,
) (*SendOutcome, error) {
	if amount.Sign() <= 0 {
		metrics.TransfersTotal.WithLabelValues("send", "rejected").Inc()
		return nil, apperrors.BadRequestError(ErrInvalidAmount, "amount must be greater than zero")
	}
	if exceedsSatoshiPrecision(amount) {
		metrics.TransfersTotal.WithLabelValues("send", "rejected").Inc()
		return nil, apperrors.BadRequestError(ErrInvalidAmount, "amount precision exceeds 8 decimal places")
	}

	// Namespace guard for the masked display mode, checked regardless of
	// balance sufficiency. Not an address format validation.
	if s.cfg.TestnetDisplay && wallet.IsMainnetClass(recipientAddress) {
		metrics.TransfersTotal.WithLabelValues("send", "rejected").Inc()
		return nil, apperrors.ForbiddenError(ErrDisallowedAddress,
			"sending to a mainnet-class address is not allowed in testnet display mode")
	}

	sender, err := s.store.GetProfile(ctx, senderID)
	if err != nil {
		if errors.Is(err, ledgerstore.ErrProfileNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "sender profile not found")
		}
		return nil, fmt.Errorf("failed to load sender profile: %w", err)
	}
	if amount.GreaterThan(sender.BTCBalance) {
		metrics.TransfersTotal.WithLabelValues("send", "rejected").Inc()
		return nil, apperrors.InsufficientFundsError(ErrInsufficientFunds, "insufficient funds")
	}

	recipient, err := s.store.FindProfileByAddress(ctx, recipientAddress)
	switch {
	case err == nil && recipient.ID == senderID:
		metrics.TransfersTotal.WithLabelValues("send", "rejected").Inc()
		return nil, apperrors.ConflictError(ErrSelfTransfer, "cannot send to your own address")
	case err == nil:
		return s.internalTransfer(ctx, sender, recipient, amount, memo)
	case errors.Is(err, ledgerstore.ErrProfileNotFound):
		return s.externalSend(ctx, sender, recipientAddress, amount, memo)
	default:
		metrics.TransfersTotal.WithLabelValues("send", "failed").Inc()
		return nil, apperrors.DependencyFailureError(
			fmt.Errorf("%w: %w", ErrRecipientLookup, err), "recipient lookup failed")
	}
}

// internalTransfer settles a send between two known profiles. The two
// balance updates are not wrapped in a storage transaction; a failed
// recipient credit is compensated by restoring the sender's balance, and a
// failed audit append after both balances moved is reported as a partial
// failure, never swallowed.
func (s *transferService) internalTransfer(
	ctx context.Context,
	sender, recipient *wallet.Profile,
	amount decimal.Decimal,
	memo string,
) (*SendOutcome, error) {
	newSenderBalance, err := s.store.AdjustBalance(ctx, sender.ID, amount.Neg())
	if err != nil {
		metrics.TransfersTotal.WithLabelValues("internal_transfer", "failed").Inc()
		if errors.Is(err, ledgerstore.ErrInsufficientFunds) {
			return nil, apperrors.InsufficientFundsError(ErrInsufficientFunds, "insufficient funds")
		}
		return nil, fmt.Errorf("failed to debit sender: %w", err)
	}

	if _, err := s.store.AdjustBalance(ctx, recipient.ID, amount); err != nil {
		// Compensate: restore the sender's balance so the operation appears
		// to have not happened.
		if _, compErr := s.store.AdjustBalance(ctx, sender.ID, amount); compErr != nil {
			metrics.PartialFailuresTotal.Inc()
			s.logger.Error("reconcile: sender debited, recipient credit and compensation both failed",
				zap.String("sender_id", sender.ID.String()),
				zap.String("recipient_id", recipient.ID.String()),
				zap.String("amount", amount.String()),
				zap.NamedError("credit_error", err),
				zap.NamedError("compensation_error", compErr),
			)
			return nil, apperrors.DependencyFailureError(compErr, "transfer failed; sender balance needs reconciliation")
		}
		metrics.TransfersTotal.WithLabelValues("internal_transfer", "failed").Inc()
		return nil, apperrors.DependencyFailureError(err, "failed to credit recipient")
	}

	senderTx := &wallet.Transaction{
		UserID:              sender.ID,
		Type:                wallet.TypeInternalTransferSend,
		Amount:              amount,
		CounterpartyAddress: recipient.WalletAddress,
		RelatedUserID:       &recipient.ID,
		Memo:                memo,
		Status:              wallet.StatusCompleted,
	}
	recipientTx := &wallet.Transaction{
		UserID:              recipient.ID,
		Type:                wallet.TypeInternalTransferReceive,
		Amount:              amount,
		CounterpartyAddress: sender.WalletAddress,
		RelatedUserID:       &sender.ID,
		Memo:                memo,
		Status:              wallet.StatusCompleted,
	}

	outcome := &SendOutcome{Transaction: senderTx, NewBalance: newSenderBalance}

	// Balances have moved; from here on a failure degrades the audit trail
	// but must surface as success-with-warning, since the user-visible
	// effect did occur.
	for _, tx := range []*wallet.Transaction{senderTx, recipientTx} {
		if err := s.store.AppendTransaction(ctx, tx); err != nil {
			metrics.PartialFailuresTotal.Inc()
			metrics.TransfersTotal.WithLabelValues("internal_transfer", "partial").Inc()
			s.logger.Error("reconcile: balances moved but audit record missing",
				zap.String("sender_id", sender.ID.String()),
				zap.String("recipient_id", recipient.ID.String()),
				zap.String("amount", amount.String()),
				zap.String("missing_side", string(tx.Type)),
				zap.Error(err),
			)
			outcome.Warning = "transfer completed but an audit record could not be written"
			return outcome, nil
		}
	}

	metrics.TransfersTotal.WithLabelValues("internal_transfer", "completed").Inc()
	metrics.TransferAmount.WithLabelValues("internal_transfer").Observe(amount.InexactFloat64())

	s.publishProfileUpdated(ctx, sender.ID)
	s.publishProfileUpdated(ctx, recipient.ID)
	s.publishTransaction(ctx, senderTx)
	s.publishTransaction(ctx, recipientTx)

	return outcome, nil
}

// externalSend records the intent to send to an unknown address. The balance
// is not debited: unconfirmed external sends track intent only.
func (s *transferService) externalSend(
	ctx context.Context,
	sender *wallet.Profile,
	recipientAddress string,
	amount decimal.Decimal,
	memo string,
) (*SendOutcome, error) {
	tx := &wallet.Transaction{
		UserID:              sender.ID,
		Type:                wallet.TypeSend,
		Amount:              amount,
		CounterpartyAddress: recipientAddress,
		Memo:                memo,
		Status:              wallet.StatusPending,
	}
	if err := s.store.AppendTransaction(ctx, tx); err != nil {
		metrics.TransfersTotal.WithLabelValues("send", "failed").Inc()
		return nil, fmt.Errorf("failed to record external send: %w", err)
	}

	metrics.TransfersTotal.WithLabelValues("send", "pending").Inc()
	metrics.TransferAmount.WithLabelValues("send").Observe(amount.InexactFloat64())
	s.publishTransaction(ctx, tx)

	return &SendOutcome{Transaction: tx, NewBalance: sender.BTCBalance}, nil
}

// ReceiveFunds credits the user unconditionally and appends a completed
// receive record. Used only for simulated and faucet crediting; there is no
// counterparty debit.
func (s *transferService) ReceiveFunds(
	ctx context.Context,
	userID uuid.UUID,
	amount decimal.Decimal,
	sourceAddress, memo string,
) (*wallet.Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, apperrors.BadRequestError(ErrInvalidAmount, "amount must be greater than zero")
	}
	if exceedsSatoshiPrecision(amount) {
		return nil, apperrors.BadRequestError(ErrInvalidAmount, "amount precision exceeds 8 decimal places")
	}

	if _, err := s.store.AdjustBalance(ctx, userID, amount); err != nil {
		metrics.TransfersTotal.WithLabelValues("receive", "failed").Inc()
		if errors.Is(err, ledgerstore.ErrProfileNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "profile not found")
		}
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}

	tx := &wallet.Transaction{
		UserID:              userID,
		Type:                wallet.TypeReceive,
		Amount:              amount,
		CounterpartyAddress: sourceAddress,
		Memo:                memo,
		Status:              wallet.StatusCompleted,
	}
	if err := s.store.AppendTransaction(ctx, tx); err != nil {
		metrics.PartialFailuresTotal.Inc()
		metrics.TransfersTotal.WithLabelValues("receive", "partial").Inc()
		s.logger.Error("reconcile: balance credited but receive record missing",
			zap.String("user_id", userID.String()),
			zap.String("amount", amount.String()),
			zap.Error(err),
		)
		return nil, apperrors.PartialFailureError(err, "balance credited but audit record missing")
	}

	metrics.TransfersTotal.WithLabelValues("receive", "completed").Inc()
	metrics.TransferAmount.WithLabelValues("receive").Observe(amount.InexactFloat64())

	s.publishProfileUpdated(ctx, userID)
	s.publishTransaction(ctx, tx)

	return tx, nil
}

// CreditFaucet credits a pseudo-random amount within the configured bounds,
// rounded to 8 decimal places.
func (s *transferService) CreditFaucet(ctx context.Context, userID uuid.UUID) (*wallet.Transaction, error) {
	span := s.cfg.FaucetMax - s.cfg.FaucetMin
	amount := decimal.NewFromFloat(s.cfg.FaucetMin + rand.Float64()*span).Round(8)

	tx, err := s.ReceiveFunds(ctx, userID, amount, faucetSourceLabel, "Test funds")
	if err != nil {
		return nil, err
	}
	metrics.FaucetCreditsTotal.Inc()
	return tx, nil
}

func (s *transferService) publishProfileUpdated(ctx context.Context, userID uuid.UUID) {
	err := s.publisher.Publish(ctx, notify.Event{
		Type:   notify.EventBalanceUpdated,
		UserID: userID.String(),
	})
	if err != nil {
		s.logger.Warn("failed to publish balance update", zap.Error(err))
	}
}

func (s *transferService) publishTransaction(ctx context.Context, tx *wallet.Transaction) {
	err := s.publisher.Publish(ctx, notify.Event{
		Type:   notify.EventTransactionCreated,
		UserID: tx.UserID.String(),
		Payload: map[string]any{
			"transaction_id": tx.ID.String(),
			"type":           string(tx.Type),
			"amount":         tx.Amount.String(),
		},
	})
	if err != nil {
		s.logger.Warn("failed to publish transaction event", zap.Error(err))
	}
}
