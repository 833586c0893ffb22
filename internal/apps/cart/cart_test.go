package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItemAccumulatesSameID(t *testing.T) {
	var items []Item
	quantities := []int{3, 1, 4}
	for _, q := range quantities {
		items = AddItem(items, Item{ID: "1", Name: "Apple", Price: 1.99, Quantity: q})
	}
	require.Len(t, items, 1)
	assert.Equal(t, 8, items[0].Quantity)
}

func TestAddItemDoesNotEditInPlace(t *testing.T) {
	original := []Item{{ID: "1", Name: "Apple", Price: 1, Quantity: 1}}
	updated := AddItem(original, Item{ID: "1", Quantity: 2})

	assert.Equal(t, 1, original[0].Quantity)
	assert.Equal(t, 3, updated[0].Quantity)
	assert.Equal(t, "Apple", updated[0].Name, "existing name is kept")
}

func TestAddItemDefaultsQuantity(t *testing.T) {
	items := AddItem(nil, Item{ID: "2", Name: "Banana", Price: 0.99})
	assert.Equal(t, 1, items[0].Quantity)
}

func TestRemoveItem(t *testing.T) {
	items := []Item{
		{ID: "1", Name: "Apple", Price: 1.99, Quantity: 3},
		{ID: "2", Name: "Banana", Price: 0.99, Quantity: 5},
	}

	updated, removed, ok := RemoveItem(items, "1")
	require.True(t, ok)
	assert.Equal(t, "Apple", removed.Name)
	assert.Equal(t, []Item{{ID: "2", Name: "Banana", Price: 0.99, Quantity: 5}}, updated)
	assert.Len(t, items, 2)

	same, _, ok := RemoveItem(items, "404")
	assert.False(t, ok)
	assert.Equal(t, items, same)
}

func TestTotalsAndSummary(t *testing.T) {
	items := []Item{
		{ID: "1", Name: "Apple", Price: 1.99, Quantity: 3},
		{ID: "2", Name: "Banana", Price: 0.99, Quantity: 5},
	}
	assert.InDelta(t, 10.92, Total(items), 1e-9)
	assert.Equal(t, 8, Count(items))
	assert.Equal(t,
		"Shopping Cart:\n- Apple: $1.99 × 3 = $5.97\n- Banana: $0.99 × 5 = $4.95\n\nTotal: $10.92",
		Summary(items))
	assert.Equal(t, "Cart is empty", Summary(nil))
}
