package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// WorkspaceDirName is the directory name for project-level config.
	WorkspaceDirName = ".webmcp"
	// WorkspaceConfigFile is the config file name inside the workspace directory.
	WorkspaceConfigFile = "config.yaml"
	// MaxSearchDepth limits how many parent directories to walk when discovering a workspace.
	MaxSearchDepth = 10
	// EnvPrefix namespaces environment overrides (WEBMCP_SSE_PORT, ...).
	EnvPrefix = "webmcp"
)

// KnownApps lists the demo apps a server can host.
var KnownApps = []string{"cart", "counter", "personal", "login", "tasks", "todos"}

// WorkspaceOptions controls workspace discovery behavior.
type WorkspaceOptions struct {
	// Disable skips workspace discovery entirely (--no-workspace flag).
	Disable bool
	// ExplicitDir uses this directory as workspace root instead of walking up (--workspace-dir flag).
	ExplicitDir string
}

// Config captures all tunable settings for the webmcp demo server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	MCP      MCPConfig      `yaml:"mcp"`
	HTTP     HTTPConfig     `yaml:"http"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Apps     AppsConfig     `yaml:"apps"`
	Recorder RecorderConfig `yaml:"recorder"`
	Voice    VoiceConfig    `yaml:"voice"`
	Browser  BrowserConfig  `yaml:"browser"`
}

type ServerConfig struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
	// Development switches the logger to the console encoder.
	Development bool `yaml:"development"`
}

type MCPConfig struct {
	// When set, hosts every enabled app over HTTP (SSE transport + page views) instead of stdio.
	SSEPort int `yaml:"sse_port"`
	// StdioApp picks the single app exposed on stdin/stdout in stdio mode.
	StdioApp string `yaml:"stdio_app"`
}

// HTTPConfig tunes the page/UI surface served next to the SSE endpoints.
type HTTPConfig struct {
	// BaseURL is advertised to SSE clients; defaults to http://localhost:<sse_port>.
	BaseURL string `yaml:"base_url"`
	// ShutdownTimeout bounds graceful shutdown (e.g., "5s").
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	// EnableMetrics mounts the prometheus handler on /metrics.
	EnableMetrics bool `yaml:"enable_metrics"`
}

// BridgeConfig holds the timings shared by every state bridge.
type BridgeConfig struct {
	// ReadyTimeout bounds how long tool registration waits for the dispatcher (e.g., "2s").
	ReadyTimeout string `yaml:"ready_timeout"`
	// NotificationTTL is how long a notification stays visible (e.g., "3s").
	NotificationTTL string `yaml:"notification_ttl"`
}

// AppsConfig selects which demo apps are hosted.
type AppsConfig struct {
	Enabled []string `yaml:"enabled"`
}

type RecorderConfig struct {
	Enable bool   `yaml:"enable"`
	Dir    string `yaml:"dir"`
}

// VoiceConfig configures the live streaming agent.
type VoiceConfig struct {
	// Endpoint is the websocket URL of the live API; the API key is appended as ?key=.
	Endpoint string `yaml:"endpoint"`
	// APIKey is usually supplied through GEMINI_API_KEY rather than the file.
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
	// ResponseModality is one of text | audio | image.
	ResponseModality  string `yaml:"response_modality"`
	Voice             string `yaml:"voice"`
	SystemInstruction string `yaml:"system_instruction"`
	DialTimeout       string `yaml:"dial_timeout"`
}

// BrowserConfig configures the optional rod probe used by smoke checks.
type BrowserConfig struct {
	// Control endpoint for Rod (e.g., ws://localhost:9222). Empty means launch a local Chrome.
	DebuggerURL string `yaml:"debugger_url"`
	// Optional Chrome binary path for the launcher.
	Bin string `yaml:"bin"`
	// Headless controls whether Chrome runs in headless mode (default: true).
	Headless *bool `yaml:"headless"`
	// Default navigation timeout (e.g., "15s").
	DefaultNavigationTimeout string `yaml:"default_navigation_timeout"`
}

// envOverrides are read from the process environment after the YAML layers.
type envOverrides struct {
	SSEPort  int    `envconfig:"SSE_PORT"`
	LogLevel string `envconfig:"LOG_LEVEL"`
	LogFile  string `envconfig:"LOG_FILE"`
	APIKey   string `envconfig:"API_KEY"`
}

// DefaultConfig provides reasonable defaults for local development.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:     "webmcp-bridge",
			Version:  "0.3.0",
			LogFile:  "webmcp-bridge.log",
			LogLevel: "info",
		},
		MCP: MCPConfig{
			SSEPort:  0,
			StdioApp: "cart",
		},
		HTTP: HTTPConfig{
			ShutdownTimeout: "5s",
			EnableMetrics:   true,
		},
		Bridge: BridgeConfig{
			ReadyTimeout:    "2s",
			NotificationTTL: "3s",
		},
		Apps: AppsConfig{
			Enabled: append([]string(nil), KnownApps...),
		},
		Recorder: RecorderConfig{
			Enable: false,
			Dir:    "data/traces",
		},
		Voice: VoiceConfig{
			Endpoint:         "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1alpha.GenerativeService.BidiGenerateContent",
			Model:            "models/gemini-2.0-flash-exp",
			ResponseModality: "text",
			SystemInstruction: "You are a multi-tool assistant capable of multiple things. " +
				"Choose the appropriate tool based on the user's request. When you get the tool response, " +
				"return the response to the user. Don't remove information that would be valuable to the user.",
			DialTimeout: "10s",
		},
		Browser: BrowserConfig{
			DefaultNavigationTimeout: "15s",
		},
	}
}

// Load reads YAML config from disk and overlays defaults and environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// DiscoverWorkspace walks up from startDir looking for a .webmcp/config.yaml file.
// Returns the workspace root directory (parent of .webmcp/) or empty string if not found.
func DiscoverWorkspace(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving start directory: %w", err)
	}

	for i := 0; i < MaxSearchDepth; i++ {
		candidate := filepath.Join(dir, WorkspaceDirName, WorkspaceConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// LoadWithWorkspace implements multi-layer config merge:
//
//	DefaultConfig() <- .webmcp/config.yaml <- explicit --config <- environment <- CLI flags
//
// Returns the merged config and the workspace directory (empty if none found).
func LoadWithWorkspace(explicitConfig string, opts WorkspaceOptions) (Config, string, error) {
	cfg := DefaultConfig()
	wsDir := ""

	if !opts.Disable {
		var err error
		if opts.ExplicitDir != "" {
			candidate := filepath.Join(opts.ExplicitDir, WorkspaceDirName, WorkspaceConfigFile)
			if _, statErr := os.Stat(candidate); statErr == nil {
				wsDir = opts.ExplicitDir
			}
		} else {
			cwd, cwdErr := os.Getwd()
			if cwdErr != nil {
				return cfg, "", fmt.Errorf("getting working directory: %w", cwdErr)
			}
			wsDir, err = DiscoverWorkspace(cwd)
			if err != nil {
				return cfg, "", fmt.Errorf("discovering workspace: %w", err)
			}
		}

		if wsDir != "" {
			wsConfigPath := filepath.Join(wsDir, WorkspaceDirName, WorkspaceConfigFile)
			raw, err := os.ReadFile(wsConfigPath)
			if err != nil {
				return cfg, "", fmt.Errorf("reading workspace config %s: %w", wsConfigPath, err)
			}
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, "", fmt.Errorf("parsing workspace config %s: %w", wsConfigPath, err)
			}
			cfg = resolveWorkspacePaths(cfg, wsDir)
		}
	}

	if explicitConfig != "" {
		raw, err := os.ReadFile(explicitConfig)
		if err != nil {
			return cfg, wsDir, fmt.Errorf("reading explicit config %s: %w", explicitConfig, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, wsDir, fmt.Errorf("parsing explicit config %s: %w", explicitConfig, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, wsDir, err
	}

	return cfg, wsDir, cfg.Validate()
}

// InitWorkspace creates a .webmcp/ directory with a template config at root.
func InitWorkspace(root string) error {
	wsDir := filepath.Join(root, WorkspaceDirName)

	if _, err := os.Stat(wsDir); err == nil {
		return fmt.Errorf("workspace directory already exists: %s", wsDir)
	}

	for _, d := range []string{wsDir, filepath.Join(wsDir, "data")} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	templateConfig := `# webmcp-bridge project-level configuration
# Values here override defaults but are overridden by --config, WEBMCP_* env and CLI flags.

# mcp:
#   sse_port: 8787

# apps:
#   enabled: [cart, counter, tasks]

# bridge:
#   notification_ttl: "3s"
#   ready_timeout: "2s"

# recorder:
#   enable: true
#   dir: "data/traces"
`
	configPath := filepath.Join(wsDir, WorkspaceConfigFile)
	if err := os.WriteFile(configPath, []byte(templateConfig), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	gitignorePath := filepath.Join(wsDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("data/\n"), 0644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}

// applyEnv overlays WEBMCP_* variables and GEMINI_API_KEY onto cfg.
func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if env.SSEPort != 0 {
		cfg.MCP.SSEPort = env.SSEPort
	}
	if env.LogLevel != "" {
		cfg.Server.LogLevel = env.LogLevel
	}
	if env.LogFile != "" {
		cfg.Server.LogFile = env.LogFile
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Voice.APIKey = key
	} else if env.APIKey != "" {
		cfg.Voice.APIKey = env.APIKey
	}
	return nil
}

// resolveWorkspacePaths resolves relative paths in the config against the workspace directory.
func resolveWorkspacePaths(cfg Config, wsDir string) Config {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(wsDir, p)
	}

	cfg.Server.LogFile = resolve(cfg.Server.LogFile)
	cfg.Recorder.Dir = resolve(cfg.Recorder.Dir)
	return cfg
}

// Validate ensures required fields exist so the server can start deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	for _, name := range c.Apps.Enabled {
		if !IsKnownApp(name) {
			return fmt.Errorf("apps.enabled: unknown app %q", name)
		}
	}
	if c.MCP.SSEPort == 0 && c.MCP.StdioApp != "" && !IsKnownApp(c.MCP.StdioApp) {
		return fmt.Errorf("mcp.stdio_app: unknown app %q", c.MCP.StdioApp)
	}
	switch c.Voice.ResponseModality {
	case "", "text", "audio", "image":
	default:
		return fmt.Errorf("voice.response_modality must be text, audio or image, got %q", c.Voice.ResponseModality)
	}
	return nil
}

// IsKnownApp reports whether name is one of the hosted demo apps.
func IsKnownApp(name string) bool {
	for _, known := range KnownApps {
		if known == name {
			return true
		}
	}
	return false
}

// Ready returns the parsed readiness wait with a sane default.
func (b BridgeConfig) Ready() time.Duration {
	return parseDuration(b.ReadyTimeout, 2*time.Second)
}

// TTL returns the parsed notification lifetime with a sane default.
func (b BridgeConfig) TTL() time.Duration {
	return parseDuration(b.NotificationTTL, 3*time.Second)
}

// Shutdown returns the parsed graceful shutdown timeout with a sane default.
func (h HTTPConfig) Shutdown() time.Duration {
	return parseDuration(h.ShutdownTimeout, 5*time.Second)
}

// Dial returns the parsed websocket dial timeout with a sane default.
func (v VoiceConfig) Dial() time.Duration {
	return parseDuration(v.DialTimeout, 10*time.Second)
}

// NavigationTimeout returns the parsed navigation timeout with a sane default.
func (b BrowserConfig) NavigationTimeout() time.Duration {
	return parseDuration(b.DefaultNavigationTimeout, 15*time.Second)
}

// IsHeadless returns whether Chrome should run in headless mode (default: true).
func (b BrowserConfig) IsHeadless() bool {
	if b.Headless == nil {
		return true
	}
	return *b.Headless
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
