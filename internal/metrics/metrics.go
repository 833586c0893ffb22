// Package metrics exposes prometheus collectors for tool calls, notifications, renders and
// voice frames.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"webmcp-bridge/internal/bridge"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	ToolCalls        *prometheus.CounterVec
	ToolDuration     *prometheus.HistogramVec
	Notifications    *prometheus.CounterVec
	Renders          *prometheus.CounterVec
	RegisteredTools  *prometheus.GaugeVec
	UIActions        *prometheus.CounterVec
	VoiceFrames      *prometheus.CounterVec
	VoiceConnections prometheus.Gauge
}

// New creates collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ToolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmcp_tool_calls_total",
				Help: "Tool invocations by app, tool and outcome",
			},
			[]string{"app", "tool", "outcome"},
		),
		ToolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webmcp_tool_duration_seconds",
				Help:    "Tool invocation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"app", "tool"},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmcp_notifications_total",
				Help: "Notifications raised by app and type",
			},
			[]string{"app", "type"},
		),
		Renders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmcp_renders_total",
				Help: "Region renders by app",
			},
			[]string{"app"},
		),
		RegisteredTools: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "webmcp_registered_tools",
				Help: "Tools currently registered per app",
			},
			[]string{"app"},
		),
		UIActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmcp_ui_actions_total",
				Help: "UI actions by app and action",
			},
			[]string{"app", "action"},
		),
		VoiceFrames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmcp_voice_frames_total",
				Help: "Live API frames by direction and kind",
			},
			[]string{"direction", "kind"},
		),
		VoiceConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webmcp_voice_connections",
				Help: "Open live API connections",
			},
		),
	}
}

// Registry exposes the underlying registry (tests, custom gatherers).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCall records a finished tool invocation. It matches bridge.WithObserver.
func (m *Metrics) ObserveCall(evt bridge.CallEvent) {
	m.ToolCalls.WithLabelValues(evt.App, evt.Tool, evt.Outcome()).Inc()
	m.ToolDuration.WithLabelValues(evt.App, evt.Tool).Observe(evt.Duration.Seconds())
}

// NotificationSink counts notifications raised by app.
func (m *Metrics) NotificationSink(app string) bridge.Sink {
	return func(n bridge.Notification) {
		m.Notifications.WithLabelValues(app, string(n.Level)).Inc()
	}
}

// RenderHook counts renders of app.
func (m *Metrics) RenderHook(app string) func(bridge.Regions) {
	return func(bridge.Regions) {
		m.Renders.WithLabelValues(app).Inc()
	}
}

// SetRegisteredTools records the current registry size of app.
func (m *Metrics) SetRegisteredTools(app string, n int) {
	m.RegisteredTools.WithLabelValues(app).Set(float64(n))
}

// UIAction counts a UI-triggered mutation.
func (m *Metrics) UIAction(app, action string) {
	m.UIActions.WithLabelValues(app, action).Inc()
}

// VoiceFrame counts one frame sent ("out") or received ("in").
func (m *Metrics) VoiceFrame(direction, kind string) {
	m.VoiceFrames.WithLabelValues(direction, kind).Inc()
}

// VoiceConnected tracks open live connections.
func (m *Metrics) VoiceConnected(open bool) {
	if open {
		m.VoiceConnections.Inc()
		return
	}
	m.VoiceConnections.Dec()
}
