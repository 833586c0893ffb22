package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webmcp-bridge/internal/browser"
	"webmcp-bridge/internal/config"
	"webmcp-bridge/internal/logging"
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Probe a running HTTP server: every app page renders its regions",
	Long: `smoke fetches the index of a running 'serve --sse-port' instance, then checks each
listed app: its regions endpoint answers, its page carries every region and its tool list is
readable. With --browser the per-app scenarios are also played in Chrome through rod.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		baseURL, _ := cmd.Flags().GetString("base-url")
		if baseURL == "" {
			baseURL = cfg.HTTP.BaseURL
		}
		if baseURL == "" {
			port := cfg.MCP.SSEPort
			if port == 0 {
				port = 8787
			}
			baseURL = fmt.Sprintf("http://localhost:%d", port)
		}
		useBrowser, _ := cmd.Flags().GetBool("browser")

		logger := logging.NewForMode(cfg.Server.LogLevel, "", cfg.Server.Development, false)
		defer func() { _ = logger.Sync() }()

		client := newSmokeClient(baseURL)
		results, err := smokeCheck(cmd.Context(), client)
		if err != nil {
			return err
		}
		if useBrowser {
			results = append(results, browserCheck(cmd.Context(), cfg.Browser, baseURL, appsOf(results), logger)...)
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, r := range results {
			status := "ok"
			if r.Err != nil {
				status = "FAIL: " + r.Err.Error()
				failed++
			}
			fmt.Fprintf(out, "%-10s %-22s %s\n", r.App, r.Check, status)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d smoke checks failed", failed, len(results))
		}
		fmt.Fprintf(out, "all %d smoke checks passed against %s\n", len(results), baseURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(smokeCmd)
	smokeCmd.Flags().String("base-url", "", "Server origin (defaults to http.base_url, then localhost:<sse_port>)")
	smokeCmd.Flags().Bool("browser", false, "Also play the per-app scenarios in Chrome")
}

type smokeResult struct {
	App   string
	Check string
	Err   error
}

func newSmokeClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("User-Agent", "webmcp-bridge-smoke/1.0")
}

// smokeCheck walks the index and checks every app it lists. Only a missing index is fatal;
// per-app failures are reported as results.
func smokeCheck(ctx context.Context, client *resty.Client) ([]smokeResult, error) {
	index, err := fetchDoc(ctx, client, "/")
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	var names []string
	index.Find("#apps a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		name := strings.Trim(strings.TrimPrefix(href, "/apps/"), "/")
		if name != "" {
			names = append(names, name)
		}
	})
	if len(names) == 0 {
		return nil, fmt.Errorf("index lists no apps")
	}

	var results []smokeResult
	for _, name := range names {
		results = append(results, checkApp(ctx, client, name)...)
	}
	return results, nil
}

func checkApp(ctx context.Context, client *resty.Client, name string) []smokeResult {
	prefix := "/apps/" + name + "/"

	var regions map[string]string
	resp, err := client.R().SetContext(ctx).SetResult(&regions).Get(prefix + "regions")
	regionsErr := statusErr(resp, err)
	if regionsErr == nil && len(regions) == 0 {
		regionsErr = fmt.Errorf("no regions")
	}
	results := []smokeResult{{App: name, Check: "regions endpoint", Err: regionsErr}}

	page, err := fetchDoc(ctx, client, prefix)
	pageErr := err
	if pageErr == nil {
		var missing []string
		for id := range regions {
			if page.Find(fmt.Sprintf(`[data-region=%q]`, id)).Length() == 0 {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			pageErr = fmt.Errorf("page lacks regions %v", missing)
		}
	}
	results = append(results, smokeResult{App: name, Check: "page regions", Err: pageErr})

	var tools []string
	resp, err = client.R().SetContext(ctx).SetResult(&tools).Get(prefix + "tools")
	results = append(results, smokeResult{App: name, Check: "tool list", Err: statusErr(resp, err)})
	return results
}

func fetchDoc(ctx context.Context, client *resty.Client, path string) (*goquery.Document, error) {
	resp, err := client.R().SetContext(ctx).Get(path)
	if err := statusErr(resp, err); err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
}

func statusErr(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%s %s: %s", resp.Request.Method, resp.Request.URL, resp.Status())
	}
	return nil
}

func appsOf(results []smokeResult) []string {
	var names []string
	seen := map[string]bool{}
	for _, r := range results {
		if !seen[r.App] {
			seen[r.App] = true
			names = append(names, r.App)
		}
	}
	return names
}

// browserCheck plays browser.Scenarios for the listed apps that have one.
func browserCheck(ctx context.Context, cfg config.BrowserConfig, baseURL string, names []string, logger *zap.Logger) []smokeResult {
	probe := browser.NewProbe(cfg, logger)
	if err := probe.Start(ctx); err != nil {
		return []smokeResult{{App: "-", Check: "browser start", Err: err}}
	}
	defer func() { _ = probe.Shutdown() }()

	var results []smokeResult
	for _, name := range names {
		steps, ok := browser.Scenarios[name]
		if !ok {
			continue
		}
		results = append(results, smokeResult{App: name, Check: "browser scenario", Err: playScenario(ctx, probe, baseURL, name, steps)})
	}
	return results
}

func playScenario(ctx context.Context, probe *browser.Probe, baseURL, name string, steps []browser.Step) error {
	page, err := probe.Open(ctx, strings.TrimRight(baseURL, "/")+"/apps/"+name+"/")
	if err != nil {
		return err
	}
	defer func() { _ = page.Close() }()
	return browser.Run(ctx, page, steps)
}
