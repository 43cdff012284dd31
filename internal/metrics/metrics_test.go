package metrics

import (
	"errors"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, op, result string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, LedgerOperations.WithLabelValues(op, result).Write(&m))
	return m.GetCounter().GetValue()
}

func TestObserveLedger(t *testing.T) {
	okBefore := counterValue(t, "lock", ResultOK)
	failedBefore := counterValue(t, "lock", ResultFailed)

	ObserveLedger("lock", nil)
	ObserveLedger("lock", errors.New("insufficient"))
	ObserveLedger("lock", nil)

	assert.Equal(t, okBefore+2, counterValue(t, "lock", ResultOK))
	assert.Equal(t, failedBefore+1, counterValue(t, "lock", ResultFailed))
}
