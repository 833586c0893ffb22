package cart

import (
	"fmt"
	"html/template"

	"webmcp-bridge/internal/bridge"
)

var regions = template.Must(template.New("cart").Funcs(template.FuncMap{
	"money": formatMoney,
}).Parse(`
{{define "cart-count"}}<span class="badge" id="cart-count">{{.}}</span>{{end}}
{{define "cart-list"}}<div id="cart-list">
{{- if not . }}<p class="empty-cart">Your cart is empty</p>
{{- else}}{{range .}}
  <div class="cart-item" data-id="{{.ID}}">
    <div class="item-info"><strong>{{.Name}}</strong> <span class="item-price">${{money .Price}} × {{.Quantity}}</span></div>
    <div class="item-total">${{money .LineTotal}}</div>
    <form method="post" action="actions/remove"><input type="hidden" name="productId" value="{{.ID}}"><button type="submit">Remove</button></form>
  </div>{{end}}
{{end}}</div>{{end}}
{{define "cart-total"}}<span id="cart-total">{{money .}}</span>{{end}}
`))

func render(s State) bridge.Regions {
	return bridge.Regions{
		{ID: "cart-count", HTML: bridge.Execute(regions, "cart-count", Count(s.Items))},
		{ID: "cart-list", HTML: bridge.Execute(regions, "cart-list", s.Items)},
		{ID: "cart-total", HTML: bridge.Execute(regions, "cart-total", Total(s.Items))},
	}
}

func formatMoney(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// Controls renders the manual add-to-cart form.
func (a *App) Controls() template.HTML {
	return `<form class="add-item" method="post" action="actions/add">
<input type="text" name="productId" placeholder="Product ID" required>
<input type="text" name="name" placeholder="Name" required>
<input type="number" name="price" step="0.01" min="0" placeholder="Price" required>
<input type="number" name="quantity" min="1" value="1">
<button type="submit">Add to cart</button>
<button type="submit" formaction="actions/clear" formnovalidate>Clear cart</button>
</form>`
}
