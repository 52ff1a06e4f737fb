package receipt

import (
	"fmt"
	"strings"

	"github.com/adcondev/ticket-bridge/internal/layout"
)

const defaultSaleFooter = "Thank you for your order!"

// GenerateSaleReceipt renders a POS/kitchen receipt for order.
func GenerateSaleReceipt(order Order, cfg Config) []byte {
	d := newDocument(cfg, order.Currency)

	d.begin()
	d.storeHeader()
	d.separator()

	d.bold("Order: #" + order.Reference)
	if !order.CreatedAt.IsZero() {
		d.pair("Time:", order.CreatedAt.Format(dateLayout))
	}
	d.pair("Type:", order.OrderType)
	d.pair("Channel:", order.Channel)
	d.pair("Table:", order.Table)
	if d.store.ShowCustomer && order.Customer != nil {
		d.pair("Guest:", order.Customer.Name)
		d.pair("Phone:", order.Customer.Phone)
	}
	if d.store.ShowServer {
		d.pair("Server:", order.ServerName)
	}
	d.separator()

	saleAlerts(d, order)
	saleItems(d, order.Items)
	d.separator()
	saleTotals(d, order)
	d.separator()

	if d.store.ShowNotes && strings.TrimSpace(order.Notes) != "" {
		d.bold("Notes:")
		d.wrapped(order.Notes)
		d.separator()
	}

	footer := firstNonEmpty(d.printer.FooterText, d.store.FooterMessage, defaultSaleFooter)
	d.centered(footer)
	if d.store.Disclaimer != "" {
		d.centered(d.store.Disclaimer)
	}
	d.finish(order.Reference)
	return d.bytes()
}

func saleAlerts(d *document, order Order) {
	if order.ScheduledAt != nil && !order.ScheduledAt.IsZero() {
		d.bold(layout.Center("*** SCHEDULED DELIVERY ***", d.printer))
		d.line(layout.Center(order.ScheduledAt.Format(dateLayout), d.printer))
		d.separator()
	}
	if order.Gift != nil {
		d.bold(layout.Center("*** GIFT ORDER ***", d.printer))
		d.pair("To:", order.Gift.Recipient)
		if order.Gift.Message != "" {
			d.wrapped(order.Gift.Message)
		}
		d.separator()
	}
}

func saleItems(d *document, items []LineItem) {
	for i, item := range items {
		if i > 0 {
			d.blank()
		}
		d.wrapped(fmt.Sprintf("%dx %s - %s", item.Quantity, item.Name, d.money(item.Price)))
		saleModifiers(d, item.Modifiers, 1)
		if item.Note != "" {
			d.wrapped(modifierIndent + "Note: " + item.Note)
		}
	}
}

func saleModifiers(d *document, mods []Modifier, depth int) {
	indent := strings.Repeat(modifierIndent, depth)
	for _, m := range mods {
		qty := m.Quantity
		if qty <= 0 {
			qty = 1
		}
		d.line(fmt.Sprintf("%s+ %dx %s (%s)", indent, qty, m.Name, d.money(m.Price)))
		saleModifiers(d, m.Modifiers, depth+1)
	}
}

func saleTotals(d *document, order Order) {
	d.pair("Subtotal:", d.money(order.SubTotal))
	if d.store.ShowTax {
		d.amount("Tax:", order.Tax)
	}
	d.deduction("Discount:", order.Discount)
	d.amount("Shipping:", order.ShippingFee)
	d.amount("Service fee:", order.ServiceFee)
	d.boldPair("TOTAL:", d.money(order.Total))
	d.pair("Payment:", order.Payment)
	d.pair("Status:", order.PaymentStatus)

	if d.store.ShowCommission && order.Commission != nil {
		c := order.Commission
		d.separator()
		d.deduction(fmt.Sprintf("Commission (%s%%):", c.Rate.String()), c.Amount)
		d.pair("Net revenue:", d.money(c.NetRevenue))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
