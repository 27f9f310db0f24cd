package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrementAndServe(t *testing.T) {
	m := New()
	m.PacketsSent.Add(3)
	m.ActiveConnections.Set(2)

	require.Equal(t, float64(3), testutil.ToFloat64(m.PacketsSent))
	require.Equal(t, float64(2), testutil.ToFloat64(m.ActiveConnections))

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "tes_packets_sent_total")
}
