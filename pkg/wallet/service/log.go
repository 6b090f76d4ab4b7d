package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crypvault/wallet-api/pkg/auth"
	"github.com/crypvault/wallet-api/pkg/wallet"
)

const serviceName = "TransferService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the transfer Service.
// It logs method entry/exit, duration and errors. Amounts and addresses are
// logged in full; they are not secrets in this system.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) EnsureProfile(ctx context.Context, principal *auth.Principal) (profile *wallet.Profile, err error) {
	start := time.Now()
	defer func() {
		ls.logMethod("EnsureProfile", start, err,
			zap.String("user_id", principal.ID.String()),
		)
	}()
	return ls.svc.EnsureProfile(ctx, principal)
}

func (ls *logService) GetWallet(ctx context.Context, userID uuid.UUID) (profile *wallet.Profile, err error) {
	start := time.Now()
	defer func() {
		ls.logMethod("GetWallet", start, err,
			zap.String("user_id", userID.String()),
		)
	}()
	return ls.svc.GetWallet(ctx, userID)
}

func (ls *logService) ListTransactions(ctx context.Context, userID uuid.UUID) (txs []*wallet.Transaction, err error) {
	start := time.Now()
	defer func() {
		ls.logMethod("ListTransactions", start, err,
			zap.String("user_id", userID.String()),
			zap.Int("count", len(txs)),
		)
	}()
	return ls.svc.ListTransactions(ctx, userID)
}

func (ls *logService) UpdateWalletName(ctx context.Context, userID uuid.UUID, name string) (err error) {
	start := time.Now()
	defer func() {
		ls.logMethod("UpdateWalletName", start, err,
			zap.String("user_id", userID.String()),
		)
	}()
	return ls.svc.UpdateWalletName(ctx, userID, name)
}

func (ls *logService) SendFunds(
	ctx context.Context,
	senderID uuid.UUID,
	recipientAddress string,
	amount decimal.Decimal,
	memo string,
) (outcome *SendOutcome, err error) {
	start := time.Now()

	ls.logger.Info("SendFunds started",
		zap.String("service", serviceName),
		zap.String("method", "SendFunds"),
		zap.String("sender_id", senderID.String()),
		zap.String("recipient_address", recipientAddress),
		zap.String("amount", amount.String()),
	)

	defer func() {
		fields := []zap.Field{
			zap.String("sender_id", senderID.String()),
		}
		if outcome != nil {
			fields = append(fields,
				zap.String("type", string(outcome.Transaction.Type)),
				zap.String("status", string(outcome.Transaction.Status)),
				zap.Bool("partial", outcome.Warning != ""),
			)
		}
		ls.logMethod("SendFunds", start, err, fields...)
	}()

	return ls.svc.SendFunds(ctx, senderID, recipientAddress, amount, memo)
}

func (ls *logService) ReceiveFunds(
	ctx context.Context,
	userID uuid.UUID,
	amount decimal.Decimal,
	sourceAddress, memo string,
) (tx *wallet.Transaction, err error) {
	start := time.Now()
	defer func() {
		ls.logMethod("ReceiveFunds", start, err,
			zap.String("user_id", userID.String()),
			zap.String("amount", amount.String()),
		)
	}()
	return ls.svc.ReceiveFunds(ctx, userID, amount, sourceAddress, memo)
}

func (ls *logService) CreditFaucet(ctx context.Context, userID uuid.UUID) (tx *wallet.Transaction, err error) {
	start := time.Now()
	defer func() {
		fields := []zap.Field{zap.String("user_id", userID.String())}
		if tx != nil {
			fields = append(fields, zap.String("amount", tx.Amount.String()))
		}
		ls.logMethod("CreditFaucet", start, err, fields...)
	}()
	return ls.svc.CreditFaucet(ctx, userID)
}

// logMethod emits the completion log line shared by all wrapped methods.
func (ls *logService) logMethod(method string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("service", serviceName),
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)),
	)
	if err != nil {
		fields = append(fields, zap.Error(err))
		ls.logger.Error(method+" failed", fields...)
		return
	}
	ls.logger.Info(method+" completed", fields...)
}
