// Package bridge is the State-Bridge core shared by every demo app: a tool registry bound to an
// MCP dispatcher, a mutex-owned domain state that re-renders on every mutation, and transient
// notifications.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// DefaultReadyTimeout bounds how long Register waits for Bind.
const DefaultReadyTimeout = 2 * time.Second

// CallEvent describes one finished tool invocation.
type CallEvent struct {
	App      string
	Tool     string
	Args     map[string]interface{}
	Result   interface{}
	Err      error
	Duration time.Duration
}

// Outcome buckets a call for metrics: ok, failed (Reply with success=false), invalid or error.
func (e CallEvent) Outcome() string {
	switch {
	case e.Err != nil && IsInputValidation(e.Err):
		return "invalid"
	case e.Err != nil:
		return "error"
	}
	if reply, ok := e.Result.(Reply); ok && !reply.Succeeded() {
		return "failed"
	}
	return "ok"
}

type registeredTool struct {
	tool   Tool
	schema *openapi3.Schema
	raw    json.RawMessage
}

// Host owns the tool registry of one app and its binding to the external dispatcher.
type Host struct {
	app          string
	logger       *zap.Logger
	readyTimeout time.Duration

	ready     chan struct{}
	readyOnce sync.Once

	mu         sync.RWMutex
	dispatcher *mcpserver.MCPServer
	tools      map[string]registeredTool
	observers  []func(CallEvent)
}

// HostOption customises a Host.
type HostOption func(*Host)

// WithLogger sets the host logger.
func WithLogger(logger *zap.Logger) HostOption {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithReadyTimeout bounds the readiness wait of Register.
func WithReadyTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		if d > 0 {
			h.readyTimeout = d
		}
	}
}

// WithObserver receives every finished call (metrics, flight recorder).
func WithObserver(fn func(CallEvent)) HostOption {
	return func(h *Host) {
		if fn != nil {
			h.observers = append(h.observers, fn)
		}
	}
}

// NewHost creates an unbound host for app.
func NewHost(app string, opts ...HostOption) *Host {
	h := &Host{
		app:          app,
		logger:       zap.NewNop(),
		readyTimeout: DefaultReadyTimeout,
		ready:        make(chan struct{}),
		tools:        make(map[string]registeredTool),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(zap.String("app", app))
	return h
}

// NewDispatcher builds the MCP server a Host binds to.
func NewDispatcher(name, version string) *mcpserver.MCPServer {
	return mcpserver.NewMCPServer(
		name,
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithLogging(),
		mcpserver.WithRecovery(),
	)
}

// App returns the app name the host serves.
func (h *Host) App() string { return h.app }

// Bind attaches the dispatcher and fires the readiness signal.
func (h *Host) Bind(dispatcher *mcpserver.MCPServer) error {
	if dispatcher == nil {
		return fmt.Errorf("bind %s: nil dispatcher", h.app)
	}
	h.mu.Lock()
	if h.dispatcher != nil {
		h.mu.Unlock()
		return ErrAlreadyBound
	}
	h.dispatcher = dispatcher
	h.mu.Unlock()

	h.readyOnce.Do(func() { close(h.ready) })
	h.logger.Debug("dispatcher bound")
	return nil
}

// Ready is closed once a dispatcher is bound.
func (h *Host) Ready() <-chan struct{} { return h.ready }

// Dispatcher returns the bound MCP server, or nil.
func (h *Host) Dispatcher() *mcpserver.MCPServer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dispatcher
}

// Register records tool and exposes it through the dispatcher. It waits for Bind at most the
// ready timeout and fails with ErrBridgeUnavailable after that.
func (h *Host) Register(ctx context.Context, tool Tool) error {
	timer := time.NewTimer(h.readyTimeout)
	defer timer.Stop()
	select {
	case <-h.ready:
	case <-ctx.Done():
		return fmt.Errorf("register %s: %w", tool.Name(), ctx.Err())
	case <-timer.C:
		h.logger.Error("dispatcher never became ready", zap.String("tool", tool.Name()), zap.Duration("waited", h.readyTimeout))
		return fmt.Errorf("register %s: %w after %s", tool.Name(), ErrBridgeUnavailable, h.readyTimeout)
	}

	schema, raw, err := compileSchema(tool.InputSchema())
	if err != nil {
		return fmt.Errorf("register %s: %w", tool.Name(), err)
	}

	h.mu.Lock()
	if _, exists := h.tools[tool.Name()]; exists {
		h.mu.Unlock()
		h.logger.Warn("tool already registered, keeping existing", zap.String("tool", tool.Name()))
		return fmt.Errorf("register %s: %w", tool.Name(), ErrDuplicateTool)
	}
	h.tools[tool.Name()] = registeredTool{tool: tool, schema: schema, raw: raw}
	dispatcher := h.dispatcher
	h.mu.Unlock()

	dispatcher.AddTool(mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), raw), h.wrapTool(tool))
	h.logger.Debug("tool registered", zap.String("tool", tool.Name()))
	return nil
}

// RegisterAll registers tools in order and stops at the first failure.
func (h *Host) RegisterAll(ctx context.Context, tools ...Tool) error {
	for _, tool := range tools {
		if err := h.Register(ctx, tool); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes tools by name and returns how many were present.
func (h *Host) Unregister(names ...string) int {
	h.mu.Lock()
	removed := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := h.tools[name]; ok {
			delete(h.tools, name)
			removed = append(removed, name)
		}
	}
	dispatcher := h.dispatcher
	h.mu.Unlock()

	if len(removed) > 0 && dispatcher != nil {
		dispatcher.DeleteTools(removed...)
	}
	h.logger.Debug("tools unregistered", zap.Strings("tools", removed))
	return len(removed)
}

// Has reports whether name is currently registered.
func (h *Host) Has(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.tools[name]
	return ok
}

// Tools lists registered tool names in lexical order.
func (h *Host) Tools() []string {
	h.mu.RLock()
	names := make([]string, 0, len(h.tools))
	for name := range h.tools {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Invoke validates args against the tool's schema and runs the handler. Validation failures
// return *InputValidationError without invoking the handler.
func (h *Host) Invoke(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	h.mu.RLock()
	entry, ok := h.tools[name]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	start := time.Now()
	validated, err := validateArgs(name, entry.schema, args)
	if err != nil {
		h.observe(CallEvent{App: h.app, Tool: name, Args: args, Err: err, Duration: time.Since(start)})
		h.logger.Info("tool input rejected", zap.String("tool", name), zap.Error(err))
		return nil, err
	}

	result, err := entry.tool.Execute(ctx, validated)
	h.observe(CallEvent{App: h.app, Tool: name, Args: validated, Result: result, Err: err, Duration: time.Since(start)})
	if err != nil {
		h.logger.Warn("tool failed", zap.String("tool", name), zap.Error(err))
		return nil, err
	}
	return result, nil
}

// ExecuteTool invokes a tool directly (used by demos/tests).
func (h *Host) ExecuteTool(name string, args map[string]interface{}) (interface{}, error) {
	return h.Invoke(context.Background(), name, args)
}

func (h *Host) observe(evt CallEvent) {
	for _, fn := range h.observers {
		fn(evt)
	}
}

func (h *Host) wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}

		result, err := h.Invoke(ctx, tool.Name(), args)
		if err == nil {
			var out *mcp.CallToolResult
			if out, err = toCallResult(tool.Name(), result); err == nil {
				return out, nil
			}
			h.logger.Error("tool returned unsupported result", zap.String("tool", tool.Name()), zap.Error(err))
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", tool.Name(), err))},
			IsError: true,
		}, nil
	}
}

// toCallResult converts a handler result. Handlers return Reply or string; anything else is a
// programming error reported to the caller as a failed call.
func toCallResult(toolName string, result interface{}) (*mcp.CallToolResult, error) {
	switch r := result.(type) {
	case Reply:
		out := &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(r.Text)}}
		if len(r.Fields) > 0 {
			out.StructuredContent = r.Fields
		}
		return out, nil
	case *Reply:
		if r != nil {
			return toCallResult(toolName, *r)
		}
	case string:
		return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(r)}}, nil
	}
	return nil, fmt.Errorf("tool %s: %w %T", toolName, ErrUnsupportedResult, result)
}
