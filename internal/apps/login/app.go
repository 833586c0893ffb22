// Package login is the login-gated personal site: the profile tools exist only while a user is
// logged in, and logging out resets the profile.
package login

import (
	"context"
	"fmt"
	"html/template"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/apps/personal"
	"webmcp-bridge/internal/bridge"
)

const Name = "login"

// Auth is the authentication half of the state.
type Auth struct {
	LoggedIn        bool
	Username        string
	ToolsRegistered bool
}

// State is the login page's domain state.
type State struct {
	Auth    Auth
	Profile personal.Profile
}

func initialState() State {
	return State{Profile: personal.InitialProfile()}
}

var regions = template.Must(template.New("login").Parse(`
{{define "status-indicator"}}<span id="status-indicator" class="status-indicator {{if .}}status-online{{else}}status-offline{{end}}"></span>{{end}}
{{define "status-text"}}<span id="status-text">{{if .}}Online{{else}}Offline{{end}}</span>{{end}}
{{define "login-btn"}}<form method="post" action="actions/login"><input type="text" name="username" placeholder="username (optional)"><button type="submit" id="login-btn"{{if .}} disabled{{end}}>Login</button></form>{{end}}
{{define "logout-btn"}}<form method="post" action="actions/logout"><button type="submit" id="logout-btn"{{if not .}} disabled{{end}}>Logout</button></form>{{end}}
`))

func render(s State) bridge.Regions {
	online := s.Auth.LoggedIn
	status := personal.RenderStatus(nil)
	if online {
		profile := s.Profile
		status = personal.RenderStatus(&profile)
	}
	return bridge.Regions{
		{ID: "status-indicator", HTML: bridge.Execute(regions, "status-indicator", online)},
		{ID: "status-text", HTML: bridge.Execute(regions, "status-text", online)},
		{ID: "login-btn", HTML: bridge.Execute(regions, "login-btn", online)},
		{ID: "logout-btn", HTML: bridge.Execute(regions, "logout-btn", online)},
		status,
	}
}

// App is the login bridge.
type App struct {
	host     *bridge.Host
	notifier *bridge.Notifier
	logger   *zap.Logger
	state    *bridge.State[State]

	// session serialises Login and Logout, which span tool registration and a state update.
	session sync.Mutex
}

var (
	_ apps.App        = (*App)(nil)
	_ personal.Editor = (*App)(nil)
)

// New creates a logged-out page.
func New(deps apps.Deps) *App {
	deps = deps.Normalize()
	return &App{
		host:     deps.Host,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		state:    bridge.NewState(initialState, render),
	}
}

func (a *App) Name() string                     { return Name }
func (a *App) Title() string                    { return "My AI-Powered Website" }
func (a *App) Host() *bridge.Host               { return a.host }
func (a *App) Notifier() *bridge.Notifier       { return a.notifier }
func (a *App) Regions() bridge.Regions          { return a.state.Regions() }
func (a *App) OnRender(fn func(bridge.Regions)) { a.state.OnRender(fn) }
func (a *App) Snapshot() State                  { return a.state.Get() }
func (a *App) Visit()                           {}

// Install registers nothing: the tools appear on login.
func (a *App) Install(context.Context) error { return nil }

// Profile implements personal.Editor.
func (a *App) Profile() personal.Profile { return a.state.Get().Profile }

// UpdateProfile implements personal.Editor.
func (a *App) UpdateProfile(fn func(personal.Profile) personal.Profile) personal.Profile {
	next, _ := a.state.Update(func(s State) (State, error) {
		s.Profile = fn(s.Profile)
		return s, nil
	})
	return next.Profile
}

func (a *App) tools() []bridge.Tool {
	tools := personal.ProfileTools(a)
	// changeFavoriteColor sits before getMyStatus in the registry listing
	return append(tools[:len(tools)-1:len(tools)-1], personal.NewChangeFavoriteColorTool(a), tools[len(tools)-1])
}

// ToolNames lists the tools a login registers.
func (a *App) ToolNames() []string {
	tools := a.tools()
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name()
	}
	return names
}

// Login signs in username (a random user_N when empty) and registers the profile tools.
// A second login only warns.
func (a *App) Login(ctx context.Context, username string) (string, error) {
	a.session.Lock()
	defer a.session.Unlock()

	current := a.state.Get().Auth
	if current.LoggedIn {
		a.notifier.Notify("Already logged in!", bridge.LevelWarning)
		return current.Username, nil
	}

	user := apps.CleanText(username)
	if user == "" {
		user = fmt.Sprintf("user_%d", rand.IntN(1000))
	}

	if !current.ToolsRegistered {
		if err := a.host.RegisterAll(ctx, a.tools()...); err != nil {
			a.host.Unregister(a.ToolNames()...)
			a.notifier.Notify("Login failed: tools unavailable", bridge.LevelError)
			a.logger.Error("login tool registration failed", zap.Error(err))
			return "", fmt.Errorf("login %s: %w", user, err)
		}
	}

	_, _ = a.state.Update(func(s State) (State, error) {
		s.Auth = Auth{LoggedIn: true, Username: user, ToolsRegistered: true}
		return s, nil
	})
	a.notifier.Notify("Successfully logged in as "+user, bridge.LevelSuccess)
	a.logger.Info("login", zap.String("user", user))
	return user, nil
}

// Logout unregisters the profile tools and resets the whole state to its initial values.
func (a *App) Logout() {
	a.session.Lock()
	defer a.session.Unlock()

	current := a.state.Get().Auth
	if !current.LoggedIn {
		a.notifier.Notify("Not currently logged in!", bridge.LevelWarning)
		return
	}

	a.host.Unregister(a.ToolNames()...)
	a.state.Reset()
	a.notifier.Notify("Successfully logged out "+current.Username, bridge.LevelSuccess)
	a.logger.Info("logout", zap.String("user", current.Username))
}

// Actions exposes the login and logout buttons.
func (a *App) Actions() map[string]apps.Action {
	return map[string]apps.Action{
		"login": func(ctx context.Context, params map[string]string) error {
			_, err := a.Login(ctx, params["username"])
			return err
		},
		"logout": func(context.Context, map[string]string) error {
			a.Logout()
			return nil
		},
	}
}
