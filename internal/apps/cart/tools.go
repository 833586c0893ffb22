package cart

import (
	"context"
	"fmt"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/bridge"
)

type AddToCartTool struct {
	app *App
}

func (t *AddToCartTool) Name() string { return "add_to_cart" }
func (t *AddToCartTool) Description() string {
	return "Add a product to the shopping cart. Adding a product that is already in the cart increases its quantity."
}
func (t *AddToCartTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"productId": map[string]interface{}{
				"type":        "string",
				"description": "Unique product ID",
				"minLength":   1,
			},
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Product name",
				"minLength":   1,
			},
			"price": map[string]interface{}{
				"type":        "number",
				"description": "Product price in USD",
				"minimum":     0,
			},
			"quantity": map[string]interface{}{
				"type":        "integer",
				"description": "Quantity to add (default: 1)",
				"minimum":     1,
				"maximum":     bridge.MaxIntArg,
				"default":     1,
			},
		},
		"required": []string{"productId", "name", "price"},
	}
}
func (t *AddToCartTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	price, _ := bridge.NumberArg(args, "price")
	quantity, _ := bridge.IntArg(args, "quantity")
	item := Item{
		ID:       bridge.StringArg(args, "productId"),
		Name:     apps.CleanText(bridge.StringArg(args, "name")),
		Price:    price,
		Quantity: quantity,
	}
	if item.Name == "" {
		return nil, fmt.Errorf("name is empty after sanitizing")
	}

	_, count := t.app.Add(item)
	return bridge.Ok(fmt.Sprintf("Successfully added %dx %s ($%.2f) to cart. Total items: %d",
		item.Quantity, item.Name, item.Price, count)), nil
}

type RemoveFromCartTool struct {
	app *App
}

func (t *RemoveFromCartTool) Name() string        { return "remove_from_cart" }
func (t *RemoveFromCartTool) Description() string { return "Remove a product from the shopping cart" }
func (t *RemoveFromCartTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"productId": map[string]interface{}{
				"type":        "string",
				"description": "Product ID to remove",
			},
		},
		"required": []string{"productId"},
	}
}
func (t *RemoveFromCartTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	productID := bridge.StringArg(args, "productId")
	removed, ok := t.app.Remove(productID)
	if !ok {
		return bridge.Failed(fmt.Sprintf("Product %s not found in cart", productID)), nil
	}
	return bridge.Ok(fmt.Sprintf("Removed %s from cart", removed.Name)), nil
}

type GetCartTool struct {
	app *App
}

func (t *GetCartTool) Name() string                        { return "get_cart" }
func (t *GetCartTool) Description() string                 { return "Get the current shopping cart contents" }
func (t *GetCartTool) InputSchema() map[string]interface{} { return bridge.NoArgs() }
func (t *GetCartTool) Execute(context.Context, map[string]interface{}) (interface{}, error) {
	items := t.app.Items()
	return bridge.Ok(Summary(items)).With("items", items), nil
}

type ClearCartTool struct {
	app *App
}

func (t *ClearCartTool) Name() string                        { return "clear_cart" }
func (t *ClearCartTool) Description() string                 { return "Remove all items from the shopping cart" }
func (t *ClearCartTool) InputSchema() map[string]interface{} { return bridge.NoArgs() }
func (t *ClearCartTool) Execute(context.Context, map[string]interface{}) (interface{}, error) {
	return bridge.Ok(fmt.Sprintf("Cleared %d items from cart", t.app.Clear())), nil
}

type GetCartTotalTool struct {
	app *App
}

func (t *GetCartTotalTool) Name() string { return "get_cart_total" }
func (t *GetCartTotalTool) Description() string {
	return "Get the total price of all items in the cart"
}
func (t *GetCartTotalTool) InputSchema() map[string]interface{} { return bridge.NoArgs() }
func (t *GetCartTotalTool) Execute(context.Context, map[string]interface{}) (interface{}, error) {
	items := t.app.Items()
	total, count := Total(items), Count(items)
	return bridge.Ok(fmt.Sprintf("Cart total: $%.2f (%d items)", total, count)).
		With("total", total).
		With("itemCount", count), nil
}
