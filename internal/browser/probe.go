// Package browser drives a real Chrome through rod to check the rendered pages the way a user
// sees them: regions replaced live over the page's websocket, forms posted by clicks.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"webmcp-bridge/internal/config"
)

// ErrNotConnected is returned when a page is requested before Start.
var ErrNotConnected = errors.New("browser not connected")

// Probe owns one Chrome connection, either attached through debugger_url or launched locally.
type Probe struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu         sync.RWMutex
	browser    *rod.Browser
	launched   *launcher.Launcher
	controlURL string
}

func NewProbe(cfg config.BrowserConfig, logger *zap.Logger) *Probe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Probe{cfg: cfg, logger: logger}
}

// Start connects to an existing Chrome or launches a new one using rod's launcher.
func (p *Probe) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		if _, err := p.browser.Version(); err == nil {
			return nil
		}
		p.logger.Warn("stale browser connection, reconnecting")
		_ = p.browser.Close()
		p.browser = nil
		p.controlURL = ""
	}

	controlURL := p.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(p.cfg.IsHeadless()).Context(ctx)
		if p.cfg.Bin != "" {
			l = l.Bin(p.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		p.launched = l
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		p.killLaunched()
		return fmt.Errorf("connect to chrome: %w", err)
	}

	p.browser = b
	p.controlURL = controlURL
	p.logger.Info("browser connected", zap.String("control_url", controlURL))
	return nil
}

// ControlURL returns the DevTools websocket URL of the connected browser.
func (p *Probe) ControlURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.controlURL
}

func (p *Probe) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.browser != nil
}

// Shutdown closes the browser. A locally launched Chrome is killed and its profile removed.
func (p *Probe) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.browser != nil {
		err = p.browser.Close()
		p.browser = nil
	}
	p.killLaunched()
	p.controlURL = ""
	return err
}

func (p *Probe) killLaunched() {
	if p.launched != nil {
		p.launched.Kill()
		p.launched.Cleanup()
		p.launched = nil
	}
}

// Open loads url in a fresh incognito page and waits for it to settle.
func (p *Probe) Open(ctx context.Context, url string) (*Page, error) {
	p.mu.RLock()
	b := p.browser
	p.mu.RUnlock()
	if b == nil {
		return nil, ErrNotConnected
	}

	incognito, err := b.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	page = page.Context(ctx)

	timeout := p.cfg.NavigationTimeout()
	if err := page.Timeout(timeout).Navigate(url); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("wait load %s: %w", url, err)
	}
	return &Page{page: page, timeout: timeout, logger: p.logger}, nil
}

// Page is one opened app page.
type Page struct {
	page    *rod.Page
	timeout time.Duration
	logger  *zap.Logger
}

func regionSelector(id string) string {
	return fmt.Sprintf(`[data-region=%q]`, id)
}

// Text returns the visible text of the first element matching selector.
func (pg *Page) Text(selector string) (string, error) {
	el, err := pg.page.Timeout(pg.timeout).Element(selector)
	if err != nil {
		return "", fmt.Errorf("find %s: %w", selector, err)
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

// RegionText returns the text of the region with id.
func (pg *Page) RegionText(id string) (string, error) {
	return pg.Text(regionSelector(id))
}

// Click clicks the first element matching selector. Clicks on submit buttons post the form and
// load the next page.
func (pg *Page) Click(selector string) error {
	el, err := pg.page.Timeout(pg.timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if !isSubmit(el) {
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("click %s: %w", selector, err)
		}
		return nil
	}
	wait := pg.page.Timeout(pg.timeout).WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	wait()
	return nil
}

// Fill replaces the value of the input matching selector.
func (pg *Page) Fill(selector, value string) error {
	el, err := pg.page.Timeout(pg.timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select %s: %w", selector, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("input %s: %w", selector, err)
	}
	return nil
}

// WaitRegion polls until the region's text contains want. Regions change without navigation
// when a tool call lands, so polling is the only way to observe them.
func (pg *Page) WaitRegion(ctx context.Context, id, want string) (string, error) {
	deadline := time.Now().Add(pg.timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var last string
	for {
		text, err := pg.RegionText(id)
		if err == nil {
			last = text
			if strings.Contains(text, want) {
				return text, nil
			}
		}
		if time.Now().After(deadline) {
			return last, fmt.Errorf("region %s: want %q, have %q", id, want, last)
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close closes the page.
func (pg *Page) Close() error {
	return pg.page.Close()
}

func isSubmit(el *rod.Element) bool {
	tag, err := el.Eval(`() => this.tagName + ":" + (this.type || "")`)
	if err != nil {
		return false
	}
	switch strings.ToLower(tag.Value.Str()) {
	case "button:submit", "input:submit":
		return true
	}
	return false
}
