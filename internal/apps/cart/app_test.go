package cart

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmcp-bridge/internal/apps"
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

func call(t *testing.T, app *App, tool string, args map[string]interface{}) bridge.Reply {
	t.Helper()
	result, err := app.Host().ExecuteTool(tool, args)
	require.NoError(t, err)
	return result.(bridge.Reply)
}

func regionText(t *testing.T, app *App, id string) string {
	t.Helper()
	region, ok := app.Regions().Get(id)
	require.True(t, ok, "region %s", id)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(region.HTML)))
	require.NoError(t, err)
	return strings.TrimSpace(doc.Find("#" + id).Text())
}

func TestInstallRegistersTools(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t,
		[]string{"add_to_cart", "clear_cart", "get_cart", "get_cart_total", "remove_from_cart"},
		app.Host().Tools())
}

func TestFreshCartTotalScenario(t *testing.T) {
	app := newTestApp(t)

	reply := call(t, app, "add_to_cart", map[string]interface{}{
		"productId": "1", "name": "Apple", "price": 1.99, "quantity": 3,
	})
	assert.Equal(t, "Successfully added 3x Apple ($1.99) to cart. Total items: 3", reply.Text)

	total := call(t, app, "get_cart_total", nil)
	assert.Contains(t, total.Text, "$5.97")
	assert.Contains(t, total.Text, "3 items")

	assert.Equal(t, "5.97", regionText(t, app, "cart-total"))
	assert.Equal(t, "3", regionText(t, app, "cart-count"))
	assert.Contains(t, regionText(t, app, "cart-list"), "Apple")
}

func TestAddToCartAccumulatesAndNotifies(t *testing.T) {
	app := newTestApp(t)

	call(t, app, "add_to_cart", map[string]interface{}{"productId": "1", "name": "Apple", "price": 1.99})
	call(t, app, "add_to_cart", map[string]interface{}{"productId": "1", "name": "Apple", "price": 1.99, "quantity": 2})

	items := app.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)

	active := app.Notifier().Active()
	require.Len(t, active, 2)
	assert.Equal(t, "Added Apple to cart", active[0].Message)
	assert.Equal(t, "Updated Apple quantity to 3", active[1].Message)
}

func TestAddToCartRejectsBadInput(t *testing.T) {
	app := newTestApp(t)

	for name, args := range map[string]map[string]interface{}{
		"missing price": {"productId": "1", "name": "Apple"},
		"zero quantity": {"productId": "1", "name": "Apple", "price": 1.0, "quantity": 0},
		"price string":  {"productId": "1", "name": "Apple", "price": "cheap"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := app.Host().ExecuteTool("add_to_cart", args)
			assert.True(t, bridge.IsInputValidation(err), "got %v", err)
		})
	}
	assert.Empty(t, app.Items())
	assert.Empty(t, app.Notifier().Active())
}

func TestRemoveFromCart(t *testing.T) {
	app := newTestApp(t)
	call(t, app, "add_to_cart", map[string]interface{}{"productId": "1", "name": "Apple", "price": 1.99})
	call(t, app, "add_to_cart", map[string]interface{}{"productId": "2", "name": "Pear", "price": 2.5})

	miss := call(t, app, "remove_from_cart", map[string]interface{}{"productId": "9"})
	assert.Equal(t, "Product 9 not found in cart", miss.Text)
	assert.False(t, miss.Succeeded())
	assert.Len(t, app.Items(), 2)
	active := app.Notifier().Active()
	assert.Equal(t, bridge.LevelError, active[len(active)-1].Level)

	hit := call(t, app, "remove_from_cart", map[string]interface{}{"productId": "1"})
	assert.Equal(t, "Removed Apple from cart", hit.Text)
	assert.True(t, hit.Succeeded())
	require.Len(t, app.Items(), 1)
	assert.Equal(t, "2", app.Items()[0].ID)
}

func TestClearAndGetCart(t *testing.T) {
	app := newTestApp(t)
	call(t, app, "add_to_cart", map[string]interface{}{"productId": "1", "name": "Apple", "price": 1.99, "quantity": 3})

	summary := call(t, app, "get_cart", nil)
	assert.Equal(t, "Shopping Cart:\n- Apple: $1.99 × 3 = $5.97\n\nTotal: $5.97", summary.Text)

	cleared := call(t, app, "clear_cart", nil)
	assert.Equal(t, "Cleared 1 items from cart", cleared.Text)
	assert.Equal(t, "Cart is empty", call(t, app, "get_cart", nil).Text)
	assert.Equal(t, "0.00", regionText(t, app, "cart-total"))
	assert.Equal(t, "Your cart is empty", regionText(t, app, "cart-list"))
}

func TestUIAndToolPathsAgree(t *testing.T) {
	viaTool := newTestApp(t)
	viaUI := newTestApp(t)

	call(t, viaTool, "add_to_cart", map[string]interface{}{"productId": "7", "name": "Kiwi", "price": 0.5, "quantity": 4})
	require.NoError(t, apps.Dispatch(context.Background(), viaUI, "add", map[string]string{
		"productId": "7", "name": "Kiwi", "price": "0.5", "quantity": "4",
	}))

	assert.Equal(t, viaTool.Items(), viaUI.Items())
	assert.Equal(t, viaTool.Regions(), viaUI.Regions())
}

func TestUIAddRejectsBadForm(t *testing.T) {
	app := newTestApp(t)
	err := apps.Dispatch(context.Background(), app, "add", map[string]string{"productId": "1", "name": "x", "price": "free"})
	assert.Error(t, err)
	assert.Empty(t, app.Items())

	err = apps.Dispatch(context.Background(), app, "teleport", nil)
	assert.ErrorIs(t, err, apps.ErrUnknownAction)
}

func TestNameIsSanitized(t *testing.T) {
	app := newTestApp(t)
	call(t, app, "add_to_cart", map[string]interface{}{"productId": "1", "name": "<b>Apple</b>", "price": 1.0})
	assert.Equal(t, "Apple", app.Items()[0].Name)
}
