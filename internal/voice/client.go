// Package voice is a thin client for a bidirectional live generation API over websocket, and an
// agent that answers the model's tool calls through an MCP client.
package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by the send methods before Connect or after a drop.
var ErrNotConnected = errors.New("live websocket is not connected")

const writeWait = 10 * time.Second

// Handlers receive the classified server frames. All of them run on the read loop, in the
// order frames arrive. Nil handlers are skipped.
type Handlers struct {
	OnOpen                 func()
	OnClose                func(reason string)
	OnSetupComplete        func()
	OnAudio                func(pcm []byte)
	OnContent              func(text string)
	OnTurnComplete         func(fullResponse string)
	OnInterrupted          func()
	OnToolCall             func(call ToolCall)
	OnToolCallCancellation func(cancel ToolCallCancellation)
}

// Option configures a Client.
type Option func(*Client)

func WithHandlers(h Handlers) Option {
	return func(c *Client) { c.handlers = h }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDialTimeout bounds the websocket handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialer.HandshakeTimeout = d
		}
	}
}

// WithFrameObserver is told about every frame sent ("out") or received ("in").
func WithFrameObserver(fn func(direction, kind string)) Option {
	return func(c *Client) { c.observeFrame = fn }
}

// WithConnectionObserver is told when a connection opens and closes.
func WithConnectionObserver(fn func(open bool)) Option {
	return func(c *Client) { c.observeConn = fn }
}

// Client is one live session. There is no retry and no reconnection: a dropped socket emits
// OnClose and the caller decides what to do.
type Client struct {
	endpoint string
	apiKey   string
	dialer   *websocket.Dialer
	logger   *zap.Logger

	mu       sync.Mutex
	handlers Handlers
	conn     *websocket.Conn
	config   LiveConfig

	writeMu sync.Mutex

	observeFrame func(direction, kind string)
	observeConn  func(open bool)
}

// NewClient creates a client for endpoint. The API key travels as the key query parameter.
func NewClient(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL is the dial target including the key.
func (c *Client) URL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse live endpoint: %w", err)
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Config returns the config of the current or last connection.
func (c *Client) Config() LiveConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// Connected reports whether a socket is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect dials, sends the setup frame and starts delivering frames. An open connection is
// closed first.
func (c *Client) Connect(ctx context.Context, cfg LiveConfig) error {
	c.Disconnect()

	target, err := c.URL()
	if err != nil {
		return err
	}
	conn, _, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("could not connect to %q: %w", c.endpoint, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.config = cfg
	handlers := c.handlers
	c.mu.Unlock()

	if c.observeConn != nil {
		c.observeConn(true)
	}
	if handlers.OnOpen != nil {
		handlers.OnOpen()
	}

	if err := c.write(conn, "setup", setupMessage{Setup: cfg}); err != nil {
		c.drop(conn)
		return fmt.Errorf("send setup: %w", err)
	}

	go c.readLoop(conn)
	c.logger.Info("live connected", zap.String("model", cfg.Model), zap.Int("tool_groups", len(cfg.Tools)))
	return nil
}

// Disconnect closes the socket. It reports whether one was open.
func (c *Client) Disconnect() bool {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return false
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	_ = conn.Close()
	return true
}

// Send sends a user turn made of parts.
func (c *Client) Send(parts []Part, turnComplete bool) error {
	var msg clientContentMessage
	msg.ClientContent.Turns = []Content{{Role: "user", Parts: parts}}
	msg.ClientContent.TurnComplete = turnComplete
	return c.send("clientContent", msg)
}

// SendText is Send with a single completed text part.
func (c *Client) SendText(text string) error {
	return c.Send([]Part{{Text: text}}, true)
}

// SendRealtimeInput streams media chunks such as audio/pcm or image/jpeg.
func (c *Client) SendRealtimeInput(chunks []Blob) error {
	var msg realtimeInputMessage
	msg.RealtimeInput.MediaChunks = chunks
	return c.send("realtimeInput", msg)
}

// SendToolResponse answers tool calls.
func (c *Client) SendToolResponse(responses []FunctionResponse) error {
	var msg toolResponseMessage
	msg.ToolResponse.FunctionResponses = responses
	return c.send("toolResponse", msg)
}

func (c *Client) send(kind string, msg interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return c.write(conn, kind, msg)
}

func (c *Client) write(conn *websocket.Conn, kind string, msg interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		return err
	}
	if c.observeFrame != nil {
		c.observeFrame("out", kind)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	var fullResponse strings.Builder
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			reason := closeReason(err)
			if c.drop(conn) {
				c.logger.Info("live connection closed", zap.String("reason", reason))
			} else {
				reason = "client disconnected"
			}
			if h := c.currentHandlers(); h.OnClose != nil {
				h.OnClose(reason)
			}
			return
		}

		kind, msg, err := Decode(data)
		if c.observeFrame != nil {
			c.observeFrame("in", string(kind))
		}
		if err != nil {
			c.logger.Warn("unreadable live frame", zap.Error(err))
			continue
		}
		c.dispatch(kind, msg, &fullResponse)
	}
}

func (c *Client) dispatch(kind Kind, msg Incoming, fullResponse *strings.Builder) {
	h := c.currentHandlers()
	switch kind {
	case KindToolCall:
		fullResponse.Reset()
		if h.OnToolCall != nil {
			h.OnToolCall(*msg.ToolCall)
		}
	case KindToolCallCancellation:
		if h.OnToolCallCancellation != nil {
			h.OnToolCallCancellation(*msg.ToolCallCancellation)
		}
	case KindSetupComplete:
		if h.OnSetupComplete != nil {
			h.OnSetupComplete()
		}
	case KindServerContent:
		content := msg.ServerContent
		if content.Interrupted {
			if h.OnInterrupted != nil {
				h.OnInterrupted()
			}
			return
		}
		if content.ModelTurn != nil {
			var text strings.Builder
			for _, part := range content.ModelTurn.Parts {
				if part.InlineData != nil && strings.HasPrefix(part.InlineData.MimeType, "audio/pcm") {
					pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
					if err != nil {
						c.logger.Warn("bad audio chunk", zap.Error(err))
						continue
					}
					if h.OnAudio != nil {
						h.OnAudio(pcm)
					}
					continue
				}
				text.WriteString(part.Text)
			}
			if text.Len() > 0 {
				fullResponse.WriteString(text.String())
				if h.OnContent != nil {
					h.OnContent(text.String())
				}
			}
		}
		if content.TurnComplete {
			if h.OnTurnComplete != nil {
				h.OnTurnComplete(fullResponse.String())
			}
			fullResponse.Reset()
		}
	default:
		c.logger.Debug("unmatched live frame")
	}
}

// SetHandlers replaces the frame handlers. It may be called while connected.
func (c *Client) SetHandlers(h Handlers) {
	c.mu.Lock()
	c.handlers = h
	c.mu.Unlock()
}

func (c *Client) currentHandlers() Handlers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers
}

// drop forgets conn if it is still current and reports whether it was.
func (c *Client) drop(conn *websocket.Conn) bool {
	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
	if c.observeConn != nil {
		c.observeConn(false)
	}
	return current
}

// closeReason turns a read error into the human-readable reason of the close event. Server
// errors arrive as "... ERROR] message"; only the message is kept.
func closeReason(err error) string {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return err.Error()
	}
	reason := ce.Text
	if strings.Contains(strings.ToLower(reason), "error") {
		const prelude = "ERROR]"
		if i := strings.Index(reason, prelude); i > 0 {
			reason = strings.TrimSpace(reason[i+len(prelude):])
		}
	}
	return reason
}
