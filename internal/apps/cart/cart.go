package cart

import (
	"fmt"
	"strings"
)

// Item is one cart line. IDs are unique within a cart and Quantity is at least 1.
type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// LineTotal is Price × Quantity.
func (i Item) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Total returns Σ price×quantity.
func Total(items []Item) float64 {
	var sum float64
	for _, item := range items {
		sum += item.LineTotal()
	}
	return sum
}

// Count returns the number of units in the cart.
func Count(items []Item) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// AddItem returns a new cart with item added. An existing id accumulates quantity instead of
// adding a second line; its name and price are kept.
func AddItem(items []Item, item Item) []Item {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	for i, existing := range items {
		if existing.ID == item.ID {
			updated := make([]Item, len(items))
			copy(updated, items)
			updated[i].Quantity = existing.Quantity + item.Quantity
			return updated
		}
	}
	updated := make([]Item, 0, len(items)+1)
	updated = append(updated, items...)
	return append(updated, item)
}

// RemoveItem returns the cart without productID and the removed item. When productID is absent
// the original slice is returned and ok is false.
func RemoveItem(items []Item, productID string) (updated []Item, removed Item, ok bool) {
	for i, existing := range items {
		if existing.ID != productID {
			continue
		}
		updated = make([]Item, 0, len(items)-1)
		updated = append(updated, items[:i]...)
		updated = append(updated, items[i+1:]...)
		return updated, existing, true
	}
	return items, Item{}, false
}

// Find returns the item with productID.
func Find(items []Item, productID string) (Item, bool) {
	for _, item := range items {
		if item.ID == productID {
			return item, true
		}
	}
	return Item{}, false
}

// Summary formats the cart for get_cart.
func Summary(items []Item) string {
	if len(items) == 0 {
		return "Cart is empty"
	}

	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("- %s: $%.2f × %d = $%.2f", item.Name, item.Price, item.Quantity, item.LineTotal())
	}
	return fmt.Sprintf("Shopping Cart:\n%s\n\nTotal: $%.2f", strings.Join(lines, "\n"), Total(items))
}
