// Package apps holds the contract shared by the demo apps. Each app lives in its own package
// and owns one bridge.State; catalog wires them to hosts and dispatchers.
package apps

import (
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"webmcp-bridge/internal/bridge"
)

// ErrUnknownAction is returned by UI dispatch for an action the app does not expose.
var ErrUnknownAction = errors.New("unknown action")

// Action is a UI event handler. Params carry the submitted form values.
type Action func(ctx context.Context, params map[string]string) error

// App is one demo page: a state bridge with tools, UI actions and rendered regions.
type App interface {
	Name() string
	Title() string
	// Install registers the app's initial tools with its host.
	Install(ctx context.Context) error
	// Visit is called on every page view.
	Visit()
	Regions() bridge.Regions
	// OnRender subscribes fn to every re-render of the app's regions.
	OnRender(fn func(bridge.Regions))
	Actions() map[string]Action
	Notifier() *bridge.Notifier
	Host() *bridge.Host
}

// Controller is implemented by apps whose page carries input forms besides the rendered regions.
type Controller interface {
	Controls() template.HTML
}

// Deps are the collaborators every app is constructed with.
type Deps struct {
	Host     *bridge.Host
	Notifier *bridge.Notifier
	Logger   *zap.Logger
}

// Normalize fills optional collaborators.
func (d Deps) Normalize() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = bridge.NewNotifier(bridge.DefaultNotificationTTL)
	}
	return d
}

// Dispatch runs a named UI action.
func Dispatch(ctx context.Context, app App, action string, params map[string]string) error {
	fn, ok := app.Actions()[action]
	if !ok {
		return fmt.Errorf("%s: %w %q", app.Name(), ErrUnknownAction, action)
	}
	return fn(ctx, params)
}

var textPolicy = bluemonday.StrictPolicy()

// CleanText strips markup from free text typed by users or agents. The result is plain text;
// templates escape it again on output.
func CleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
