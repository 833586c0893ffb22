package login

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/apps/personal"
	"webmcp-bridge/internal/bridge"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	host := bridge.NewHost(Name)
	require.NoError(t, host.Bind(bridge.NewDispatcher("test", "0")))
	notifier := bridge.NewNotifier(bridge.DefaultNotificationTTL)
	t.Cleanup(notifier.Close)
	app := New(apps.Deps{Host: host, Notifier: notifier})
	require.NoError(t, app.Install(context.Background()))
	return app
}

func page(t *testing.T, app *App) *goquery.Document {
	t.Helper()
	var sb strings.Builder
	for _, region := range app.Regions() {
		sb.WriteString(string(region.HTML))
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sb.String()))
	require.NoError(t, err)
	return doc
}

func lastNotification(t *testing.T, app *App) bridge.Notification {
	t.Helper()
	active := app.Notifier().Active()
	require.NotEmpty(t, active)
	return active[len(active)-1]
}

func TestStartsOffline(t *testing.T) {
	app := newTestApp(t)
	doc := page(t, app)

	assert.Equal(t, "Offline", doc.Find("#status-text").Text())
	assert.True(t, doc.Find("#status-indicator").HasClass("status-offline"))
	_, loginDisabled := doc.Find("#login-btn").Attr("disabled")
	_, logoutDisabled := doc.Find("#logout-btn").Attr("disabled")
	assert.False(t, loginDisabled)
	assert.True(t, logoutDisabled)
	assert.Empty(t, strings.TrimSpace(doc.Find("#personal-status").Text()))
	assert.Empty(t, app.Host().Tools())
}

func TestLoginRegistersSevenTools(t *testing.T) {
	app := newTestApp(t)

	user, err := app.Login(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", user)

	assert.ElementsMatch(t, []string{
		"ping", "updateMood", "addTodo", "recordThought", "setCurrentProject", "changeFavoriteColor", "getMyStatus",
	}, app.Host().Tools())
	assert.Equal(t, app.ToolNames()[5], "changeFavoriteColor")

	doc := page(t, app)
	assert.Equal(t, "Online", doc.Find("#status-text").Text())
	_, loginDisabled := doc.Find("#login-btn").Attr("disabled")
	_, logoutDisabled := doc.Find("#logout-btn").Attr("disabled")
	assert.True(t, loginDisabled)
	assert.False(t, logoutDisabled)
	assert.Contains(t, doc.Find("#personal-status").Text(), "excited about MCP-B")

	assert.Equal(t, "Successfully logged in as ada", lastNotification(t, app).Message)
}

func TestLoginGeneratesUsername(t *testing.T) {
	app := newTestApp(t)
	user, err := app.Login(context.Background(), "")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^user_\d{1,3}$`), user)
}

func TestSecondLoginWarns(t *testing.T) {
	app := newTestApp(t)
	_, err := app.Login(context.Background(), "ada")
	require.NoError(t, err)

	user, err := app.Login(context.Background(), "grace")
	require.NoError(t, err)
	assert.Equal(t, "ada", user)
	assert.Equal(t, bridge.LevelWarning, lastNotification(t, app).Level)
	assert.Equal(t, "Already logged in!", lastNotification(t, app).Message)
	assert.Len(t, app.Host().Tools(), 7)
}

func TestLogoutResetsProfileExactly(t *testing.T) {
	app := newTestApp(t)
	_, err := app.Login(context.Background(), "ada")
	require.NoError(t, err)

	calls := map[string]map[string]interface{}{
		"updateMood":          {"mood": "tired"},
		"addTodo":             {"item": "sleep"},
		"recordThought":       {"thought": "enough"},
		"setCurrentProject":   {"project": "nap"},
		"changeFavoriteColor": {"color": "#ff5733"},
	}
	for tool, args := range calls {
		_, err := app.Host().ExecuteTool(tool, args)
		require.NoError(t, err, tool)
	}
	_, _ = app.state.Update(func(s State) (State, error) {
		s.Profile.Visits = 9
		return s, nil
	})
	require.NotEqual(t, personal.InitialProfile(), app.Profile())

	app.Logout()

	assert.Equal(t, personal.InitialProfile(), app.Profile())
	assert.Equal(t, Auth{}, app.Snapshot().Auth)
	assert.Empty(t, app.Host().Tools())
	assert.Equal(t, "Successfully logged out ada", lastNotification(t, app).Message)

	_, err = app.Host().ExecuteTool("ping", nil)
	assert.ErrorIs(t, err, bridge.ErrToolNotFound)

	doc := page(t, app)
	assert.Equal(t, "Offline", doc.Find("#status-text").Text())
	assert.Empty(t, strings.TrimSpace(doc.Find("#personal-status").Text()))
}

func TestLoginLogoutLogin(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	_, err := app.Login(ctx, "ada")
	require.NoError(t, err)
	app.Logout()
	_, err = app.Login(ctx, "grace")
	require.NoError(t, err)
	assert.Len(t, app.Host().Tools(), 7)
	assert.Equal(t, "grace", app.Snapshot().Auth.Username)
}

func TestLogoutWhileLoggedOutWarns(t *testing.T) {
	app := newTestApp(t)
	app.Logout()
	n := lastNotification(t, app)
	assert.Equal(t, bridge.LevelWarning, n.Level)
	assert.Equal(t, "Not currently logged in!", n.Message)
}

func TestChangeFavoriteColorValidatesHex(t *testing.T) {
	app := newTestApp(t)
	_, err := app.Login(context.Background(), "ada")
	require.NoError(t, err)

	_, err = app.Host().ExecuteTool("changeFavoriteColor", map[string]interface{}{"color": "red; background: url(x)"})
	assert.True(t, bridge.IsInputValidation(err))

	result, err := app.Host().ExecuteTool("changeFavoriteColor", map[string]interface{}{"color": "#0f0"})
	require.NoError(t, err)
	assert.Equal(t, "Favorite color changed to: #0f0", result.(bridge.Reply).Text)
	assert.Equal(t, "#0f0", app.Profile().Color)
}

func TestLoginFailsWithoutDispatcher(t *testing.T) {
	host := bridge.NewHost(Name, bridge.WithReadyTimeout(10*time.Millisecond))
	notifier := bridge.NewNotifier(time.Hour)
	defer notifier.Close()
	app := New(apps.Deps{Host: host, Notifier: notifier})

	_, err := app.Login(context.Background(), "ada")
	require.Error(t, err)
	assert.True(t, errors.Is(err, bridge.ErrBridgeUnavailable))
	assert.False(t, app.Snapshot().Auth.LoggedIn)
	assert.Equal(t, bridge.LevelError, lastNotification(t, app).Level)
}

func TestButtons(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, apps.Dispatch(ctx, app, "login", map[string]string{"username": "ada"}))
	assert.True(t, app.Snapshot().Auth.LoggedIn)
	require.NoError(t, apps.Dispatch(ctx, app, "logout", nil))
	assert.False(t, app.Snapshot().Auth.LoggedIn)
}
