// Package web serves the demo pages over HTTP: rendered regions, UI action posts, a live
// region feed, one MCP SSE endpoint per app and the metrics endpoint.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/apps/catalog"
	"webmcp-bridge/internal/bridge"
	"webmcp-bridge/internal/correlation"
	"webmcp-bridge/internal/metrics"
)

// Options configure the HTTP surface.
type Options struct {
	// BaseURL is the externally visible origin, used in the SSE endpoint event.
	BaseURL string
	Logger  *zap.Logger
	// Metrics, when set, is served on /metrics.
	Metrics *metrics.Metrics
}

// Server routes requests to the app runtimes.
type Server struct {
	router   chi.Router
	runtimes map[string]*catalog.Runtime
	order    []string
	sse      map[string]*mcpserver.SSEServer
	hubs     map[string]*hub
	logger   *zap.Logger
}

// New builds the router for runtimes.
func New(runtimes []*catalog.Runtime, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		runtimes: make(map[string]*catalog.Runtime, len(runtimes)),
		sse:      make(map[string]*mcpserver.SSEServer, len(runtimes)),
		hubs:     make(map[string]*hub, len(runtimes)),
		logger:   opts.Logger,
	}

	for _, rt := range runtimes {
		name := rt.Name()
		s.runtimes[name] = rt
		s.order = append(s.order, name)

		h := newHub(rt.App.Regions)
		s.hubs[name] = h
		rt.App.OnRender(func(regions bridge.Regions) { h.publish(regionsMessage(regions)) })
		rt.App.Notifier().AddSink(func(n bridge.Notification) {
			h.publish(liveMessage{Type: "notification", Notification: &n})
		})

		sseOpts := []mcpserver.SSEOption{mcpserver.WithStaticBasePath("/apps/" + name)}
		if opts.BaseURL != "" {
			sseOpts = append(sseOpts, mcpserver.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")))
		}
		s.sse[name] = mcpserver.NewSSEServer(rt.Dispatcher, sseOpts...)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "apps": s.order})
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	r.Route("/apps/{app}", func(r chi.Router) {
		r.Get("/", s.handlePage)
		r.Get("/regions", s.handleRegions)
		r.Get("/notifications", s.handleNotifications)
		r.Get("/tools", s.handleTools)
		r.Get("/live", s.handleLive)
		r.Post("/actions/{action}", s.handleAction)
		r.Get("/sse", s.handleSSE)
		r.Post("/message", s.handleMessage)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Shutdown closes the MCP SSE sessions so long-lived streams do not hold up the HTTP
// server's own shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	for name, sse := range s.sse {
		if err := sse.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s sse: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ListenAndServe runs srv on addr until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, srv *Server, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		srv.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		sseErr := srv.Shutdown(shutdownCtx)
		return errors.Join(sseErr, httpServer.Shutdown(shutdownCtx))
	case err := <-errCh:
		return err
	}
}

func (s *Server) runtime(w http.ResponseWriter, r *http.Request) (*catalog.Runtime, bool) {
	rt, ok := s.runtimes[chi.URLParam(r, "app")]
	if !ok {
		http.NotFound(w, r)
	}
	return rt, ok
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	view := indexView{}
	for _, name := range s.order {
		app := s.runtimes[name].App
		view.Apps = append(view.Apps, indexEntry{Name: name, Title: app.Title(), Tools: len(app.Host().Tools())})
	}
	s.renderHTML(w, "index", view)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.runtime(w, r)
	if !ok {
		return
	}
	// controls post to relative action URLs
	if !strings.HasSuffix(r.URL.Path, "/") {
		http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
		return
	}
	rt.App.Visit()
	s.renderHTML(w, "page", newPageView(rt.App))
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.runtime(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, regionsMessage(rt.App.Regions()).Regions)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.runtime(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rt.App.Notifier().Active())
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.runtime(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rt.App.Host().Tools())
}

// handleAction runs a UI action. Browsers are redirected back to the page; clients asking
// for JSON get the re-rendered regions.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.runtime(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	params := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		params[key] = r.PostForm.Get(key)
	}

	err := rt.Act(r.Context(), chi.URLParam(r, "action"), params)
	if errors.Is(err, apps.ErrUnknownAction) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if wantsJSON(r) {
		status := http.StatusOK
		body := map[string]interface{}{"regions": regionsMessage(rt.App.Regions()).Regions}
		if err != nil {
			status = http.StatusUnprocessableEntity
			body["error"] = err.Error()
		}
		writeJSON(w, status, body)
		return
	}
	http.Redirect(w, r, "/apps/"+rt.Name()+"/", http.StatusSeeOther)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.runtime(w, r)
	if !ok {
		return
	}
	s.sse[rt.Name()].SSEHandler().ServeHTTP(w, r)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.runtime(w, r)
	if !ok {
		return
	}
	s.sse[rt.Name()].MessageHandler().ServeHTTP(w, r)
}

func (s *Server) renderHTML(w http.ResponseWriter, name string, data interface{}) {
	var b strings.Builder
	if err := pages.ExecuteTemplate(&b, name, data); err != nil {
		s.logger.Error("render page", zap.String("template", name), zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}
		s.logger.Debug("http request", append(fields, correlation.Fields(correlation.FromRequest(r.Header))...)...)
	})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
