package observability

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveStoreOperation(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveStoreOperation("insert_view", nil, 5*time.Millisecond)
	m.ObserveStoreOperation("insert_view", nil, 7*time.Millisecond)
	m.ObserveStoreOperation("dedup_check", errors.New("connection reset"), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoreOperationsTotal.WithLabelValues("insert_view", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperationsTotal.WithLabelValues("dedup_check", "error")))
	assert.Zero(t, testutil.ToFloat64(m.StoreOperationsTotal.WithLabelValues("dedup_check", "ok")))

	// One histogram series per operation
	assert.Equal(t, 2, testutil.CollectAndCount(m.StoreOperationDuration))
}

func TestSetDBStats(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetDBStats(sql.DBStats{InUse: 3, Idle: 2})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.DBConnectionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DBConnectionsIdle))
}

func TestObserveHTTPRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveHTTPRequest("GET", "/api/v1/properties/{id}/analytics", 200, 12*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/properties/{id}/analytics", "200")))
}
