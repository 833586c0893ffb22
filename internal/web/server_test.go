package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"webmcp-bridge/internal/apps/catalog"
	"webmcp-bridge/internal/metrics"
)

func newTestServer(t *testing.T, names ...string) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	runtimes, err := catalog.StartAll(context.Background(), names, catalog.Options{Metrics: m})
	require.NoError(t, err)

	srv := New(runtimes, Options{Metrics: m})
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
		for _, rt := range runtimes {
			rt.Close()
		}
	})
	return ts, m
}

func getDoc(t *testing.T, rawURL string) *goquery.Document {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func TestIndexListsApps(t *testing.T) {
	ts, _ := newTestServer(t, "cart", "counter")

	doc := getDoc(t, ts.URL+"/")
	links := doc.Find("#apps a").Map(func(_ int, s *goquery.Selection) string {
		href, _ := s.Attr("href")
		return href
	})
	assert.Equal(t, []string{"/apps/cart/", "/apps/counter/"}, links)
}

func TestPageRendersRegionsAndControls(t *testing.T) {
	ts, _ := newTestServer(t, "todos")

	doc := getDoc(t, ts.URL+"/apps/todos")
	assert.Equal(t, "MCP-B Script Tag Demo", doc.Find("h1").First().Text())
	assert.Contains(t, doc.Find("#status").Text(), "MCP Ready")
	assert.Equal(t, 3, doc.Find("#todos .todo").Length())
	assert.Equal(t, 1, doc.Find("#controls #input").Length())
	assert.Equal(t, 4, doc.Find("footer .tools code").Length())
}

func TestUnknownAppAndAction(t *testing.T) {
	ts, _ := newTestServer(t, "counter")

	resp, err := http.Get(ts.URL + "/apps/chess/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.PostForm(ts.URL+"/apps/counter/actions/explode", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFormActionRedirectsToPage(t *testing.T) {
	ts, m := newTestServer(t, "todos")

	noFollow := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := noFollow.PostForm(ts.URL+"/apps/todos/actions/add", url.Values{"text": {"Test todo"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/apps/todos/", resp.Header.Get("Location"))

	doc := getDoc(t, ts.URL+"/apps/todos/")
	todos := doc.Find("#todos .todo")
	require.Equal(t, 4, todos.Length())
	assert.Contains(t, todos.Eq(3).Text(), "Test todo")
	assert.Contains(t, doc.Find("#notifications").Text(), "Added: Test todo")

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `webmcp_ui_actions_total{action="add",app="todos"} 1`)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UIActions.WithLabelValues("todos", "add")))
}

func TestJSONActionReturnsRegions(t *testing.T) {
	ts, _ := newTestServer(t, "counter")

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/apps/counter/actions/increment", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Regions map[string]string `json:"regions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Regions["counter"], "count is 1")
}

func TestNotificationsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, "login")

	resp, err := http.PostForm(ts.URL+"/apps/login/actions/logout", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/apps/login/notifications")
	require.NoError(t, err)
	defer resp.Body.Close()
	var active []struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&active))
	require.Len(t, active, 1)
	assert.Equal(t, "Not currently logged in!", active[0].Message)
	assert.Equal(t, "warning", active[0].Type)
}

func TestLiveFeedPushesRenders(t *testing.T) {
	ts, _ := newTestServer(t, "counter")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/apps/counter/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first liveMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "regions", first.Type)
	assert.Contains(t, first.Regions["counter"], "count is 0")

	resp, err := http.PostForm(ts.URL+"/apps/counter/actions/increment", nil)
	require.NoError(t, err)
	resp.Body.Close()

	var update liveMessage
	for update.Type != "regions" {
		require.NoError(t, conn.ReadJSON(&update))
	}
	assert.Contains(t, update.Regions["counter"], "count is 1")
}

func TestSSEEndpointServesMCP(t *testing.T) {
	ts, _ := newTestServer(t, "cart")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.NewSSEMCPClient(ts.URL + "/apps/cart/sse")
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "web-test", Version: "1.0.0"}
	_, err = c.Initialize(ctx, initReq)
	require.NoError(t, err)

	listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	assert.Len(t, listed.Tools, 5)

	call := mcp.CallToolRequest{}
	call.Params.Name = "add_to_cart"
	call.Params.Arguments = map[string]interface{}{"productId": "1", "name": "Apple", "price": 1.99, "quantity": 3}
	res, err := c.CallTool(ctx, call)
	require.NoError(t, err)
	assert.False(t, res.IsError)

	doc := getDoc(t, ts.URL+"/apps/cart/")
	assert.Equal(t, "5.97", strings.TrimSpace(doc.Find("#cart-total").Text()))
	assert.Equal(t, "3", strings.TrimSpace(doc.Find("#cart-count").Text()))
}

func TestRequestLogCarriesCallerTrace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	runtimes, err := catalog.StartAll(context.Background(), []string{"counter"}, catalog.Options{})
	require.NoError(t, err)
	defer runtimes[0].Close()
	ts := httptest.NewServer(New(runtimes, Options{Logger: zap.New(core)}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/healthz", fields["path"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["caller_trace_id"])
}
