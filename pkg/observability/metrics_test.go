package observability_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/statecraft/internal/runtime"
	"github.com/aretw0/statecraft/pkg/clock"
	"github.com/aretw0/statecraft/pkg/machines/network"
	"github.com/aretw0/statecraft/pkg/machines/toast"
	"github.com/aretw0/statecraft/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMetrics_FromNetworkMachine(t *testing.T) {
	metrics := observability.NewMetrics()
	c := clock.NewManual(epoch)
	m := network.New(network.Options{}, runtime.WithClock(c), runtime.WithHooks(metrics.Hooks()))

	m.Send(network.Connect())
	c.Advance(network.DefaultConnectDelay)
	m.Send(network.Connect())

	expected := `
# HELP statecraft_timers_fired_total Delayed transitions fired while their state was still active.
# TYPE statecraft_timers_fired_total counter
statecraft_timers_fired_total{kind="network",state="connecting"} 1
`
	require.NoError(t, testutil.CollectAndCompare(metrics.Registry(), strings.NewReader(expected), "statecraft_timers_fired_total"))

	reg := metrics.Registry()
	n, err := testutil.GatherAndCount(reg, "statecraft_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "connect and timer transitions")

	n, err = testutil.GatherAndCount(reg, "statecraft_events_dropped_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_ChildrenGauge(t *testing.T) {
	metrics := observability.NewMetrics()
	c := clock.NewManual(epoch)
	mgr := toast.New(toast.Options{}, runtime.WithClock(c), runtime.WithHooks(metrics.Hooks()))

	a := mgr.Info("a", time.Second)
	mgr.Info("b", time.Second)
	mgr.Remove(a)

	expected := `
# HELP statecraft_live_children Child machines currently owned by a parent.
# TYPE statecraft_live_children gauge
statecraft_live_children{parent="toasts"} 1
`
	require.NoError(t, testutil.CollectAndCompare(metrics.Registry(), strings.NewReader(expected), "statecraft_live_children"))

	c.Advance(2 * time.Second)
	expected = strings.Replace(expected, "} 1", "} 0", 1)
	require.NoError(t, testutil.CollectAndCompare(metrics.Registry(), strings.NewReader(expected), "statecraft_live_children"))
}

func TestMetrics_Handler(t *testing.T) {
	metrics := observability.NewMetrics()
	network.New(network.Options{}, runtime.WithHooks(metrics.Hooks())).Send(network.Disconnect())

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `statecraft_events_dropped_total{event="DISCONNECT",kind="network"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAuditHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := clock.NewManual(epoch)
	m := network.New(network.Options{}, runtime.WithClock(c), runtime.WithHooks(observability.AuditHooks(logger)))

	m.Send(network.Disconnect())
	m.Send(network.Connect())
	c.Advance(time.Second)

	out := buf.String()
	assert.Contains(t, out, `"msg":"event_dropped"`)
	assert.Contains(t, out, `"msg":"transition"`)
	assert.Contains(t, out, `"msg":"timer_fired"`)
	assert.Contains(t, out, `"to":"connected"`)
}
