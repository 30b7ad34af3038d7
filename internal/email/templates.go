package email

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/example/mavi-boutique/internal/domain/order"
	"github.com/shopspring/decimal"
)

var funcs = template.FuncMap{
	"uzs":     FormatUZS,
	"line":    func(i order.CartItem) string { return FormatUZS(i.LineTotal()) },
	"clock":   func(t time.Time) string { return t.Format("02.01.2006 15:04") },
	"ordType": orderTypeLabel,
}

var newOrderTmpl = template.Must(template.New("new_order").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #1f4e8c; padding: 24px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 22px;">Yangi buyurtma</h1>
	</div>
	<div style="border: 1px solid #eee; border-top: none; padding: 24px; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0; font-family: monospace;">{{.ID}}</p>
		<p><strong>{{.UserName}}</strong> ({{.UserTelegram}})<br>{{.Phone}}<br>{{.Location}}</p>
		<p>{{ordType .OrderType}}{{if not .CreatedAt.IsZero}} &middot; {{clock .CreatedAt}}{{end}}</p>
		<table style="width: 100%; border-collapse: collapse;">
			{{range .Items}}<tr>
				<td style="padding: 8px; border-bottom: 1px solid #eee;">{{.Name}} <span style="color: #999;">({{.ID}}, {{.Size}})</span></td>
				<td style="padding: 8px; border-bottom: 1px solid #eee; text-align: center;">{{.OrderQuantity}}</td>
				<td style="padding: 8px; border-bottom: 1px solid #eee; text-align: right;">{{line .}}</td>
			</tr>{{end}}
		</table>
		{{if .PromoCode}}<p>Promokod: {{.PromoCode}}</p>{{end}}
		<p style="font-size: 18px; font-weight: bold; text-align: right;">Jami: {{uzs .TotalPrice}}</p>
	</div>
</body>
</html>`))

var confirmedTmpl = template.Must(template.New("order_confirmed").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 22px; color: #2e7d32;">Buyurtma tasdiqlandi</h1>
	<p style="font-family: monospace;">{{.OrderID}}</p>
	<p><strong>{{.UserName}}</strong> ({{.UserTelegram}}) &middot; {{uzs .TotalPrice}}</p>
	{{if .Stock}}<table style="border-collapse: collapse;">
		{{range .Stock}}<tr>
			<td style="padding: 4px 12px 4px 0;">{{.ProductID}}</td>
			<td style="padding: 4px 0;">{{.Before}} &rarr; {{.After}}</td>
		</tr>{{end}}
	</table>{{end}}
	<p style="color: #999;">{{clock .ConfirmedAt}}</p>
</body>
</html>`))

// BuildNewOrderBody renders the owner's "new order" mail.
func BuildNewOrderBody(o order.Order) (string, error) {
	var buf bytes.Buffer
	if err := newOrderTmpl.Execute(&buf, o); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildOrderConfirmedBody renders the "order confirmed" mail with the stock
// each product was left with.
func BuildOrderConfirmedBody(e order.OrderConfirmed) (string, error) {
	var buf bytes.Buffer
	if err := confirmedTmpl.Execute(&buf, e); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatUZS renders an amount the way the storefront shows prices:
// thousands separated by spaces, tiyin only when present.
func FormatUZS(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	s := d.StringFixed(2)
	if d.IsInteger() {
		s = d.StringFixed(0)
	}

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString("." + frac)
	}
	return sign + b.String() + " so'm"
}

func orderTypeLabel(t order.Type) string {
	switch t {
	case order.TypeReservation:
		return "Band qilish"
	default:
		return "Yetkazib berish"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
