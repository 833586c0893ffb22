// Package cart is the shopping cart demo: five tools over a list of cart lines.
package cart

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/bridge"
)

const Name = "cart"

// State is the cart's domain state.
type State struct {
	Items []Item
}

func initialState() State { return State{} }

// App is the cart bridge.
type App struct {
	host     *bridge.Host
	notifier *bridge.Notifier
	logger   *zap.Logger
	state    *bridge.State[State]
}

var _ apps.App = (*App)(nil)

// New creates an empty cart.
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
func (a *App) Title() string                    { return "Smart Shopping Cart" }
func (a *App) Host() *bridge.Host               { return a.host }
func (a *App) Notifier() *bridge.Notifier       { return a.notifier }
func (a *App) Regions() bridge.Regions          { return a.state.Regions() }
func (a *App) OnRender(fn func(bridge.Regions)) { a.state.OnRender(fn) }
func (a *App) State() *bridge.State[State]      { return a.state }
func (a *App) Visit()                           {}

// Install registers the cart tools.
func (a *App) Install(ctx context.Context) error {
	return a.host.RegisterAll(ctx,
		&AddToCartTool{app: a},
		&RemoveFromCartTool{app: a},
		&GetCartTool{app: a},
		&ClearCartTool{app: a},
		&GetCartTotalTool{app: a},
	)
}

// Items returns the current cart lines.
func (a *App) Items() []Item {
	return a.state.Get().Items
}

// Add puts quantity units of a product in the cart and returns the resulting line and the
// total unit count.
func (a *App) Add(item Item) (Item, int) {
	var existed bool
	next, _ := a.state.Update(func(s State) (State, error) {
		_, existed = Find(s.Items, item.ID)
		s.Items = AddItem(s.Items, item)
		return s, nil
	})

	line, _ := Find(next.Items, item.ID)
	if existed {
		a.notifier.Notify(fmt.Sprintf("Updated %s quantity to %d", item.Name, line.Quantity), bridge.LevelSuccess)
	} else {
		a.notifier.Notify(fmt.Sprintf("Added %s to cart", item.Name), bridge.LevelSuccess)
	}
	return line, Count(next.Items)
}

// Remove drops the line with productID. A miss leaves the cart untouched and raises an error
// notification.
func (a *App) Remove(productID string) (Item, bool) {
	var removed Item
	var found bool
	_, _ = a.state.Update(func(s State) (State, error) {
		s.Items, removed, found = RemoveItem(s.Items, productID)
		if !found {
			return s, bridge.ErrNoChange
		}
		return s, nil
	})

	if !found {
		a.notifier.Notify("Product not found in cart", bridge.LevelError)
		return Item{}, false
	}
	a.notifier.Notify(fmt.Sprintf("Removed %s from cart", removed.Name), bridge.LevelSuccess)
	return removed, true
}

// Clear empties the cart and returns how many lines it held.
func (a *App) Clear() int {
	var lines int
	_, _ = a.state.Update(func(s State) (State, error) {
		lines = len(s.Items)
		return State{Items: []Item{}}, nil
	})
	a.notifier.Notify("Cart cleared", bridge.LevelSuccess)
	return lines
}

// Actions exposes the cart page controls.
func (a *App) Actions() map[string]apps.Action {
	return map[string]apps.Action{
		"add": func(_ context.Context, params map[string]string) error {
			item, err := itemFromForm(params)
			if err != nil {
				a.notifier.Notify(err.Error(), bridge.LevelError)
				return err
			}
			a.Add(item)
			return nil
		},
		"remove": func(_ context.Context, params map[string]string) error {
			a.Remove(params["productId"])
			return nil
		},
		"clear": func(context.Context, map[string]string) error {
			a.Clear()
			return nil
		},
	}
}

func itemFromForm(params map[string]string) (Item, error) {
	item := Item{ID: params["productId"], Name: apps.CleanText(params["name"]), Quantity: 1}
	if item.ID == "" || item.Name == "" {
		return Item{}, fmt.Errorf("productId and name are required")
	}
	price, err := strconv.ParseFloat(params["price"], 64)
	if err != nil || price < 0 {
		return Item{}, fmt.Errorf("invalid price %q", params["price"])
	}
	item.Price = price
	if raw := params["quantity"]; raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q < 1 {
			return Item{}, fmt.Errorf("invalid quantity %q", raw)
		}
		item.Quantity = q
	}
	return item, nil
}
