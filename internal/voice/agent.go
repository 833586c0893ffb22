package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ToolCaller is the part of an MCP client the agent needs.
type ToolCaller interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Agent offers an MCP server's tools to the live model and answers its tool calls.
type Agent struct {
	live   *Client
	base   LiveConfig
	logger *zap.Logger

	mu     sync.Mutex
	caller ToolCaller
	tools  []mcp.Tool
	ctx    context.Context

	// OnCall, when set, sees every answered function call.
	OnCall func(call FunctionCall, response FunctionResponse)
}

// NewAgent wraps live so that tool calls are answered through the attached MCP client.
// Handlers already set on live keep running after the agent's.
func NewAgent(live *Client, base LiveConfig, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{live: live, base: base, logger: logger, ctx: context.Background()}

	h := live.currentHandlers()
	next := h.OnToolCall
	h.OnToolCall = func(call ToolCall) {
		a.handleToolCall(call)
		if next != nil {
			next(call)
		}
	}
	live.SetHandlers(h)
	return a
}

// Attach lists caller's tools; the next Connect offers them to the model.
func (a *Agent) Attach(ctx context.Context, caller ToolCaller) error {
	listed, err := caller.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	a.mu.Lock()
	a.caller = caller
	a.tools = listed.Tools
	a.mu.Unlock()
	a.logger.Info("mcp tools attached", zap.Int("tools", len(listed.Tools)))
	return nil
}

// Detach forgets the MCP client. Later tool calls are answered with an error.
func (a *Agent) Detach() {
	a.mu.Lock()
	a.caller = nil
	a.tools = nil
	a.mu.Unlock()
}

// Tools returns the attached tool list.
func (a *Agent) Tools() []mcp.Tool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tools
}

// Connect opens the live session with the attached tools declared. ctx also bounds the
// tool calls made on the model's behalf.
func (a *Agent) Connect(ctx context.Context) error {
	a.mu.Lock()
	a.ctx = ctx
	cfg := LiveConfigWithTools(a.base, a.tools)
	a.mu.Unlock()
	return a.live.Connect(ctx, cfg)
}

// Respond runs every function call of call and returns one response per call, in order.
func (a *Agent) Respond(ctx context.Context, call ToolCall) []FunctionResponse {
	a.mu.Lock()
	caller := a.caller
	a.mu.Unlock()

	responses := make([]FunctionResponse, 0, len(call.FunctionCalls))
	for _, fc := range call.FunctionCalls {
		var resp FunctionResponse
		if caller == nil {
			resp = FunctionResponse{ID: fc.ID, Response: map[string]interface{}{"error": "MCP client not available"}}
		} else {
			resp = a.callOne(ctx, caller, fc)
		}
		responses = append(responses, resp)
		if a.OnCall != nil {
			a.OnCall(fc, resp)
		}
	}
	return responses
}

func (a *Agent) callOne(ctx context.Context, caller ToolCaller, fc FunctionCall) FunctionResponse {
	req := mcp.CallToolRequest{}
	req.Params.Name = fc.Name
	args := fc.Args
	if args == nil {
		args = map[string]interface{}{}
	}
	req.Params.Arguments = args

	result, err := caller.CallTool(ctx, req)
	if err != nil {
		a.logger.Warn("tool call failed", zap.String("tool", fc.Name), zap.Error(err))
		return FunctionResponse{ID: fc.ID, Response: map[string]interface{}{
			"error": fmt.Sprintf("Tool call failed: %v", err),
		}}
	}
	return FunctionResponse{ID: fc.ID, Response: result}
}

func (a *Agent) handleToolCall(call ToolCall) {
	a.mu.Lock()
	ctx := a.ctx
	a.mu.Unlock()

	responses := a.Respond(ctx, call)
	if err := a.live.SendToolResponse(responses); err != nil {
		a.logger.Warn("send tool response", zap.Error(err))
	}
}

// LiveConfigWithTools declares tools as functions on top of base. Without tools base is
// returned unchanged.
func LiveConfigWithTools(base LiveConfig, tools []mcp.Tool) LiveConfig {
	if len(tools) == 0 {
		return base
	}
	decls := make([]FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		schema := inputSchemaOf(tool)
		description := tool.Description
		if description == "" {
			description = "Execute " + tool.Name
		}
		required, _ := schema["required"].([]interface{})
		if required == nil {
			required = []interface{}{}
		}
		decls = append(decls, FunctionDeclaration{
			Name:        tool.Name,
			Description: description,
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": convertProperties(schema),
				"required":   required,
			},
		})
	}
	cfg := base
	cfg.Tools = []Tool{{FunctionDeclarations: decls}}
	return cfg
}

// inputSchemaOf reads the schema whichever way the tool carries it.
func inputSchemaOf(tool mcp.Tool) map[string]interface{} {
	data, err := json.Marshal(tool)
	if err != nil {
		return nil
	}
	var decoded struct {
		InputSchema map[string]interface{} `json:"inputSchema"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil
	}
	return decoded.InputSchema
}

// convertProperties keeps the subset of each property the live API understands.
func convertProperties(schema map[string]interface{}) map[string]interface{} {
	props, _ := schema["properties"].(map[string]interface{})
	out := make(map[string]interface{}, len(props))
	for key, raw := range props {
		param, _ := raw.(map[string]interface{})
		converted := map[string]interface{}{
			"type":        "string",
			"description": key,
		}
		if t, ok := param["type"].(string); ok && t != "" {
			converted["type"] = t
		}
		if d, ok := param["description"].(string); ok && d != "" {
			converted["description"] = d
		}
		for _, extra := range []string{"format", "enum", "items"} {
			if v, ok := param[extra]; ok {
				converted[extra] = v
			}
		}
		out[key] = converted
	}
	return out
}

// DialInProcess connects an initialized MCP client straight to dispatcher.
func DialInProcess(ctx context.Context, dispatcher *mcpserver.MCPServer, clientName string) (*client.Client, error) {
	c, err := client.NewInProcessClient(dispatcher)
	if err != nil {
		return nil, fmt.Errorf("in-process client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("start in-process client: %w", err)
	}
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: "1.0.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initialize in-process client: %w", err)
	}
	return c, nil
}
