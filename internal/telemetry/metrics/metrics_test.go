package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// New registers its collectors with the global Prometheus registry, so
// this package constructs it exactly once and shares it across cases —
// calling New twice in one process panics on duplicate registration.
var testRegistry = New()

func TestCountersAreUsable(t *testing.T) {
	require.NotNil(t, testRegistry)

	testRegistry.ModbusRequests.WithLabelValues("0x03").Inc()
	testRegistry.ModbusExceptions.WithLabelValues("0x02").Inc()
	testRegistry.MemoryOps.WithLabelValues("words16", "read").Inc()
	testRegistry.SimulationTicks.WithLabelValues("counter1").Inc()
	testRegistry.SimulationErrors.WithLabelValues("counter1").Inc()
	testRegistry.RequestDuration.Observe(0.002)
}

func TestHandlerServesMetricsText(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()

	testRegistry.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "plcsim_modbus_requests_total")
}
