package smtp

import (
	"html/template"

	"github.com/storefront-labs/storefront/internal/entity"
)

type orderEmailData struct {
	User           *entity.User
	Order          *entity.Order
	PreviousStatus entity.OrderStatus
}

var orderPlacedTemplate = template.Must(template.New("order_placed").Parse(`
<html>
<body>
	<p>Hi {{.User.Name}},</p>
	<p>Thanks for your order <strong>{{.Order.ID}}</strong>. Here is what you bought:</p>
	<table border="1" cellpadding="6" cellspacing="0">
		<tr><th>Product</th><th>Qty</th><th>Unit price</th><th>Subtotal</th></tr>
		{{range .Order.Lines}}
		<tr>
			<td>{{.Snapshot.Name}}</td>
			<td>{{.Quantity}}</td>
			<td>{{.Price}}</td>
			<td>{{.Subtotal}}</td>
		</tr>
		{{end}}
	</table>
	<p><strong>Total: {{.Order.TotalAmount}}</strong></p>
	<p>Shipping to: {{.Order.ShippingAddress.Street}}, {{.Order.ShippingAddress.City}},
	{{.Order.ShippingAddress.State}} {{.Order.ShippingAddress.Zip}}, {{.Order.ShippingAddress.Country}}</p>
</body>
</html>`))

var statusChangedTemplate = template.Must(template.New("status_changed").Parse(`
<html>
<body>
	<p>Hi {{.User.Name}},</p>
	<p>Your order <strong>{{.Order.ID}}</strong> moved from
	<em>{{.PreviousStatus}}</em> to <em>{{.Order.Status}}</em>.</p>
	{{if .Order.TrackingNumber}}
	<p>Tracking number: <strong>{{.Order.TrackingNumber}}</strong></p>
	{{end}}
</body>
</html>`))
