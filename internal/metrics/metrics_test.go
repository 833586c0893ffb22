package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmcp-bridge/internal/bridge"
)

func TestObserveCallOutcomes(t *testing.T) {
	m := New()

	m.ObserveCall(bridge.CallEvent{App: "cart", Tool: "get_cart", Result: bridge.Ok("Cart is empty"), Duration: time.Millisecond})
	m.ObserveCall(bridge.CallEvent{App: "cart", Tool: "remove_from_cart", Result: bridge.Failed("Product 9 not found in cart")})
	m.ObserveCall(bridge.CallEvent{App: "cart", Tool: "add_to_cart", Err: &bridge.InputValidationError{Tool: "add_to_cart"}})
	m.ObserveCall(bridge.CallEvent{App: "cart", Tool: "add_to_cart", Err: errors.New("boom")})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("cart", "get_cart", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("cart", "remove_from_cart", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("cart", "add_to_cart", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("cart", "add_to_cart", "error")))
}

func TestSinksAndHooks(t *testing.T) {
	m := New()
	m.NotificationSink("counter")(bridge.Notification{Level: bridge.LevelSuccess})
	m.RenderHook("counter")(nil)
	m.RenderHook("counter")(nil)
	m.SetRegisteredTools("login", 7)
	m.UIAction("counter", "increment")
	m.VoiceFrame("in", "toolCall")
	m.VoiceConnected(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("counter", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Renders.WithLabelValues("counter")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.RegisteredTools.WithLabelValues("login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UIActions.WithLabelValues("counter", "increment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VoiceFrames.WithLabelValues("in", "toolCall")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VoiceConnections))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.UIAction("cart", "add")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `webmcp_ui_actions_total{action="add",app="cart"} 1`)
}

func TestMetricsInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.UIAction("cart", "add")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.UIActions.WithLabelValues("cart", "add")))
}
