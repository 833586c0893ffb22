// Package recorder is a rotating JSONL flight recorder for tool calls, notifications and UI
// actions, one trace file per server run.
package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"webmcp-bridge/internal/bridge"
)

const (
	MaxRotatedFiles = 3
	TraceDir        = "data/traces"
)

// Event types written to a trace.
const (
	EventToolCall     = "tool_call"
	EventNotification = "notification"
	EventUIAction     = "ui_action"
	EventVoice        = "voice"
)

// Event represents a single record in the flight recorder.
type Event struct {
	Timestamp time.Time   `json:"ts"`
	Type      string      `json:"type"`
	App       string      `json:"app,omitempty"`
	Data      interface{} `json:"data"`
}

// ToolCall is the payload of an EventToolCall record.
type ToolCall struct {
	Tool       string                 `json:"tool"`
	Args       map[string]interface{} `json:"args,omitempty"`
	Text       string                 `json:"text,omitempty"`
	Outcome    string                 `json:"outcome"`
	Error      string                 `json:"error,omitempty"`
	DurationMS float64                `json:"duration_ms"`
}

// Voice is the payload of an EventVoice record: either one live API frame (Direction and Kind)
// or a function call the model made together with the response it was sent.
type Voice struct {
	Direction string                 `json:"direction,omitempty"`
	Kind      string                 `json:"kind"`
	CallID    string                 `json:"call_id,omitempty"`
	Call      string                 `json:"call,omitempty"`
	Args      map[string]interface{} `json:"args,omitempty"`
	Response  interface{}            `json:"response,omitempty"`
}

// Recorder manages rotating trace files.
type Recorder struct {
	mu       sync.Mutex
	file     *os.File
	encoder  *json.Encoder
	basePath string
	current  string
}

// NewRecorder creates a recorder instance.
// It ensures the directory exists.
func NewRecorder(basePath string) (*Recorder, error) {
	if basePath == "" {
		basePath = TraceDir
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, err
	}
	return &Recorder{
		basePath: basePath,
	}, nil
}

// Start begins a new trace for runID.
// It rotates old files to ensure we only keep the last N traces.
func (r *Recorder) Start(runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}

	if err := r.rotate(); err != nil {
		return fmt.Errorf("rotate traces: %w", err)
	}

	filename := fmt.Sprintf("trace_%s_%d.jsonl", runID, time.Now().UnixMilli())
	path := filepath.Join(r.basePath, filename)
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	r.file = f
	r.encoder = json.NewEncoder(f)
	r.current = path
	return nil
}

// Path returns the trace file being written, or "".
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Log writes an event to the current trace file. It is a no-op before Start.
func (r *Recorder) Log(eventType, app string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return
	}

	evt := Event{
		Timestamp: time.Now(),
		Type:      eventType,
		App:       app,
		Data:      data,
	}

	_ = r.encoder.Encode(evt)
}

// ObserveCall records a finished tool invocation. It matches bridge.WithObserver.
func (r *Recorder) ObserveCall(evt bridge.CallEvent) {
	call := ToolCall{
		Tool:       evt.Tool,
		Args:       evt.Args,
		Outcome:    evt.Outcome(),
		DurationMS: float64(evt.Duration.Microseconds()) / 1000,
	}
	if evt.Err != nil {
		call.Error = evt.Err.Error()
	}
	if reply, ok := evt.Result.(bridge.Reply); ok {
		call.Text = reply.Text
	}
	r.Log(EventToolCall, evt.App, call)
}

// NotificationSink records notifications raised by app.
func (r *Recorder) NotificationSink(app string) bridge.Sink {
	return func(n bridge.Notification) {
		r.Log(EventNotification, app, n)
	}
}

// UIAction records a UI-triggered mutation.
func (r *Recorder) UIAction(app, action string, params map[string]string) {
	r.Log(EventUIAction, app, map[string]interface{}{"action": action, "params": params})
}

// VoiceFrames returns a frame observer recording live API frames of a session driving app.
func (r *Recorder) VoiceFrames(app string) func(direction, kind string) {
	return func(direction, kind string) {
		r.Log(EventVoice, app, Voice{Direction: direction, Kind: kind})
	}
}

// VoiceCall records a function call answered for the live model.
func (r *Recorder) VoiceCall(app, id, name string, args map[string]interface{}, response interface{}) {
	r.Log(EventVoice, app, Voice{Kind: "functionCall", CallID: id, Call: name, Args: args, Response: response})
}

// ReadTrace loads every event of a trace file.
func ReadTrace(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var evt Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			return events, fmt.Errorf("decode %s: %w", path, err)
		}
		events = append(events, evt)
	}
	return events, scanner.Err()
}

// rotate keeps only the newest MaxRotatedFiles.
func (r *Recorder) rotate() error {
	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return err
	}

	type trace struct {
		name string
		mod  time.Time
	}
	var traces []trace

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		traces = append(traces, trace{e.Name(), info.ModTime()})
	}

	sort.Slice(traces, func(i, j int) bool {
		return traces[i].mod.After(traces[j].mod)
	})

	// Keep N-1 to make room for the new one
	if len(traces) >= MaxRotatedFiles {
		for i := MaxRotatedFiles - 1; i < len(traces); i++ {
			_ = os.Remove(filepath.Join(r.basePath, traces[i].name))
		}
	}
	return nil
}

// Close finishes the current recording.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		r.encoder = nil
		return err
	}
	return nil
}
