package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK       = "ok"
	ResultFailed   = "failed"
	ResultRejected = "rejected"
	ResultReplay   = "replay"
	ResultError    = "error"
	ResultInvalid  = "invalid"
)

var (
	Deposits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solyield_deposits_total",
		Help: "Deposit verification attempts by currency and result.",
	}, []string{"currency", "result"})

	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solyield_ledger_operations_total",
		Help: "Balance ledger operations by kind and result.",
	}, []string{"op", "result"})

	AccrualInvestments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solyield_accrual_investments_total",
		Help: "Investments handled by accrual runs by outcome.",
	}, []string{"outcome"})
)

// ObserveLedger records one ledger operation. err == nil counts as ok.
func ObserveLedger(op string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultFailed
	}
	LedgerOperations.WithLabelValues(op, result).Inc()
}
