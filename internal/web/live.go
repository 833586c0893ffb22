package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"webmcp-bridge/internal/bridge"
)

const (
	liveWriteWait = 5 * time.Second
	liveBuffer    = 16
)

// liveMessage is one frame pushed to a page over /live.
type liveMessage struct {
	Type         string               `json:"type"`
	Regions      map[string]string    `json:"regions,omitempty"`
	Notification *bridge.Notification `json:"notification,omitempty"`
}

func regionsMessage(regions bridge.Regions) liveMessage {
	out := make(map[string]string, len(regions))
	for _, r := range regions {
		out[r.ID] = string(r.HTML)
	}
	return liveMessage{Type: "regions", Regions: out}
}

// hub fans render and notification events of one app out to its open pages. A page that falls
// behind loses its queued frames and is resynced with the latest regions frame.
type hub struct {
	mu      sync.Mutex
	subs    map[chan liveMessage]struct{}
	last    *liveMessage
	current func() bridge.Regions
}

func newHub(current func() bridge.Regions) *hub {
	return &hub{subs: make(map[chan liveMessage]struct{}), current: current}
}

// subscribe returns a new page channel and the regions frame the page starts from. Frames
// published after the snapshot arrive on the channel.
func (h *hub) subscribe() (chan liveMessage, liveMessage) {
	ch := make(chan liveMessage, liveBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
	if h.last != nil {
		return ch, *h.last
	}
	return ch, regionsMessage(h.current())
}

func (h *hub) unsubscribe(ch chan liveMessage) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *hub) publish(msg liveMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if msg.Type == "regions" {
		h.last = &msg
	}
	for ch := range h.subs {
		select {
		case ch <- msg:
			continue
		default:
		}
		h.resync(ch, msg)
	}
}

// resync empties a full page channel and queues the latest regions, then msg when it is not
// itself a regions frame.
func (h *hub) resync(ch chan liveMessage, msg liveMessage) {
	for drained := false; !drained; {
		select {
		case <-ch:
		default:
			drained = true
		}
	}
	if h.last != nil {
		ch <- *h.last
	} else {
		ch <- regionsMessage(h.current())
	}
	if msg.Type != "regions" {
		ch <- msg
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.runtime(w, r)
	if !ok {
		return
	}
	h := s.hubs[rt.Name()]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("live upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ch, snapshot := h.subscribe()
	defer h.unsubscribe(ch)

	// pages never send anything; reading only detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg liveMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		return conn.WriteJSON(msg)
	}
	if err := write(snapshot); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case msg := <-ch:
			if err := write(msg); err != nil {
				s.logger.Debug("live write failed", zap.String("app", rt.Name()), zap.Error(err))
				return
			}
		}
	}
}
