// Package metrics defines prometheus collectors for the wallet ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransfersTotal counts balance-changing operations by type and outcome
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_transfers_total",
			Help: "Total number of transfer operations",
		},
		[]string{"type", "status"},
	)

	// TransferAmount tracks the BTC amount moved per operation
	TransferAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallet_transfer_amount_btc",
			Help:    "Amount of BTC moved per transfer",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10, 100},
		},
		[]string{"type"},
	)

	// PinVerificationsTotal counts PIN verification attempts by result
	PinVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_pin_verifications_total",
			Help: "Total number of PIN verification attempts",
		},
		[]string{"result"},
	)

	// FaucetCreditsTotal counts faucet credits issued
	FaucetCreditsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_faucet_credits_total",
			Help: "Total number of faucet credits issued",
		},
	)

	// PartialFailuresTotal counts transfers whose balances moved but whose
	// audit records could not be written. Each one needs manual reconciliation.
	PartialFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_partial_failures_total",
			Help: "Total number of transfers with incomplete audit trails",
		},
	)
)
