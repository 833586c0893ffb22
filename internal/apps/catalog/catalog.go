// Package catalog builds demo apps by name and wires each one to its own dispatcher, notifier,
// metrics and flight recorder.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/apps/cart"
	"webmcp-bridge/internal/apps/counter"
	"webmcp-bridge/internal/apps/login"
	"webmcp-bridge/internal/apps/personal"
	"webmcp-bridge/internal/apps/tasks"
	"webmcp-bridge/internal/apps/todos"
	"webmcp-bridge/internal/bridge"
	"webmcp-bridge/internal/metrics"
	"webmcp-bridge/internal/recorder"
)

var constructors = map[string]func(apps.Deps) apps.App{
	cart.Name:     func(d apps.Deps) apps.App { return cart.New(d) },
	counter.Name:  func(d apps.Deps) apps.App { return counter.New(d) },
	login.Name:    func(d apps.Deps) apps.App { return login.New(d) },
	personal.Name: func(d apps.Deps) apps.App { return personal.New(d) },
	tasks.Name:    func(d apps.Deps) apps.App { return tasks.New(d) },
	todos.Name:    func(d apps.Deps) apps.App { return todos.New(d) },
}

// Names lists every known app, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the named app without installing it.
func New(name string, deps apps.Deps) (apps.App, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown app %q", name)
	}
	return ctor(deps), nil
}

// Options configure Start.
type Options struct {
	ServerName      string
	Version         string
	ReadyTimeout    time.Duration
	NotificationTTL time.Duration
	Logger          *zap.Logger
	// Metrics and Recorder are optional.
	Metrics  *metrics.Metrics
	Recorder *recorder.Recorder
}

func (o Options) normalize() Options {
	if o.ServerName == "" {
		o.ServerName = "webmcp-bridge"
	}
	if o.Version == "" {
		o.Version = "dev"
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = bridge.DefaultReadyTimeout
	}
	if o.NotificationTTL <= 0 {
		o.NotificationTTL = bridge.DefaultNotificationTTL
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Runtime is one running app: its state bridge bound to a dedicated MCP server.
type Runtime struct {
	App        apps.App
	Dispatcher *mcpserver.MCPServer

	opts   Options
	logger *zap.Logger
}

// Start builds the named app, binds it to a fresh dispatcher and installs its tools.
func Start(ctx context.Context, name string, opts Options) (*Runtime, error) {
	opts = opts.normalize()
	logger := opts.Logger.With(zap.String("app", name))

	hostOpts := []bridge.HostOption{
		bridge.WithLogger(opts.Logger),
		bridge.WithReadyTimeout(opts.ReadyTimeout),
	}
	if opts.Metrics != nil {
		hostOpts = append(hostOpts, bridge.WithObserver(opts.Metrics.ObserveCall))
	}
	if opts.Recorder != nil {
		hostOpts = append(hostOpts, bridge.WithObserver(opts.Recorder.ObserveCall))
	}
	host := bridge.NewHost(name, hostOpts...)

	notifier := bridge.NewNotifier(opts.NotificationTTL, bridge.LogSink(logger), bridge.BroadcastSink(host))
	if opts.Metrics != nil {
		notifier.AddSink(opts.Metrics.NotificationSink(name))
	}
	if opts.Recorder != nil {
		notifier.AddSink(opts.Recorder.NotificationSink(name))
	}

	app, err := New(name, apps.Deps{Host: host, Notifier: notifier, Logger: logger})
	if err != nil {
		notifier.Close()
		return nil, err
	}
	if opts.Metrics != nil {
		app.OnRender(opts.Metrics.RenderHook(name))
	}

	dispatcher := bridge.NewDispatcher(opts.ServerName+"/"+name, opts.Version)
	if err := host.Bind(dispatcher); err != nil {
		notifier.Close()
		return nil, err
	}
	if err := app.Install(ctx); err != nil {
		notifier.Close()
		return nil, fmt.Errorf("install %s: %w", name, err)
	}

	rt := &Runtime{App: app, Dispatcher: dispatcher, opts: opts, logger: logger}
	rt.syncToolCount()
	logger.Info("app started", zap.Strings("tools", host.Tools()))
	return rt, nil
}

// StartAll starts every named app. On failure the runtimes already started are closed.
func StartAll(ctx context.Context, names []string, opts Options) ([]*Runtime, error) {
	runtimes := make([]*Runtime, 0, len(names))
	for _, name := range names {
		rt, err := Start(ctx, name, opts)
		if err != nil {
			for _, started := range runtimes {
				started.Close()
			}
			return nil, err
		}
		runtimes = append(runtimes, rt)
	}
	return runtimes, nil
}

// Name is the app name.
func (r *Runtime) Name() string { return r.App.Name() }

// Act runs a UI action and records it. Registrations done by the action (login, logout)
// are reflected in the tool gauge.
func (r *Runtime) Act(ctx context.Context, action string, params map[string]string) error {
	if r.opts.Metrics != nil {
		r.opts.Metrics.UIAction(r.Name(), action)
	}
	if r.opts.Recorder != nil {
		r.opts.Recorder.UIAction(r.Name(), action, params)
	}
	err := apps.Dispatch(ctx, r.App, action, params)
	r.syncToolCount()
	if err != nil {
		r.logger.Info("ui action failed", zap.String("action", action), zap.Error(err))
	}
	return err
}

// Close stops pending notification timers.
func (r *Runtime) Close() {
	r.App.Notifier().Close()
}

func (r *Runtime) syncToolCount() {
	if r.opts.Metrics != nil {
		r.opts.Metrics.SetRegisteredTools(r.Name(), len(r.App.Host().Tools()))
	}
}
