// Package receipt renders sale and reservation receipts into ESC/POS byte streams.
package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/adcondev/ticket-bridge/internal/profile"
)

// Order category and payment status values that gate auto-printing.
const (
	CategoryComplete   = "Complete"
	CategoryProcessing = "Processing"
	PaymentPaid        = "Paid"
)

// Customer is the guest attached to an order.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// Modifier is an add-on to a line item. Modifiers nest.
type Modifier struct {
	Name      string          `json:"name" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	Price     decimal.Decimal `json:"price"`
	Modifiers []Modifier      `json:"modifiers,omitempty" validate:"dive"`
}

// LineItem is one product line.
type LineItem struct {
	Name      string          `json:"name" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	Price     decimal.Decimal `json:"price"`
	Note      string          `json:"note,omitempty"`
	Modifiers []Modifier      `json:"modifiers,omitempty" validate:"dive"`
}

// Gift marks an order as a gift.
type Gift struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message,omitempty"`
}

// Commission is the platform fee split of an order.
type Commission struct {
	Rate       decimal.Decimal `json:"rate"` // percent
	Amount     decimal.Decimal `json:"amount"`
	NetRevenue decimal.Decimal `json:"netRevenue"`
}

// Order is an already-computed sale.
type Order struct {
	ID            string          `json:"id,omitempty"`
	Reference     string          `json:"reference" validate:"required"`
	CreatedAt     time.Time       `json:"createdAt"`
	OrderType     string          `json:"orderType,omitempty"`
	Channel       string          `json:"channel,omitempty"`
	Table         string          `json:"table,omitempty"`
	Category      string          `json:"category,omitempty"`
	Customer      *Customer       `json:"customer,omitempty"`
	ServerName    string          `json:"serverName,omitempty"`
	Items         []LineItem      `json:"items" validate:"dive"`
	SubTotal      decimal.Decimal `json:"subTotal"`
	Tax           decimal.Decimal `json:"tax"`
	Discount      decimal.Decimal `json:"discount"`
	ShippingFee   decimal.Decimal `json:"shippingFee"`
	ServiceFee    decimal.Decimal `json:"serviceFee"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency,omitempty"`
	Payment       string          `json:"payment,omitempty"`
	PaymentStatus string          `json:"paymentStatus,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	ScheduledAt   *time.Time      `json:"scheduledAt,omitempty"`
	Gift          *Gift           `json:"gift,omitempty"`
	Commission    *Commission     `json:"commission,omitempty"`
}

// ReadyForAutoPrint reports whether a completed, paid order may print unattended.
func (o Order) ReadyForAutoPrint() bool {
	return o.Category == CategoryComplete && o.PaymentStatus == PaymentPaid
}

// Guest is the booking party of a reservation.
type Guest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Count int    `json:"count,omitempty"`
}

// Room is one booked room.
type Room struct {
	Name   string          `json:"name" validate:"required"`
	Type   string          `json:"type,omitempty"`
	Guests int             `json:"guests,omitempty"`
	Nights int             `json:"nights,omitempty"`
	Rate   decimal.Decimal `json:"rate"`
	Total  decimal.Decimal `json:"total"`
}

// ReservationPayment describes how a reservation was paid.
type ReservationPayment struct {
	Method    string `json:"method,omitempty"`
	Status    string `json:"status,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Reservation is an already-computed hotel booking.
type Reservation struct {
	Reference         string             `json:"reference" validate:"required"`
	Status            string             `json:"status,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	Guest             Guest              `json:"guest"`
	CheckIn           time.Time          `json:"checkIn"`
	CheckOut          time.Time          `json:"checkOut"`
	Rooms             []Room             `json:"rooms" validate:"dive"`
	SubTotal          decimal.Decimal    `json:"subTotal"`
	Taxes             decimal.Decimal    `json:"taxes"`
	Fees              decimal.Decimal    `json:"fees"`
	Discounts         decimal.Decimal    `json:"discounts"`
	EarlyBirdDiscount decimal.Decimal    `json:"earlyBirdDiscount"`
	Total             decimal.Decimal    `json:"total"`
	AmountPaid        decimal.Decimal    `json:"amountPaid"`
	Currency          string             `json:"currency,omitempty"`
	Payment           ReservationPayment `json:"payment"`
	SpecialRequests   string             `json:"specialRequests,omitempty"`
}

// Nights is the length of stay in whole days, or zero when dates are missing.
func (r Reservation) Nights() int {
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() || !r.CheckOut.After(r.CheckIn) {
		return 0
	}
	return int(r.CheckOut.Sub(r.CheckIn).Hours()+12) / 24
}

// Balance is what the guest still owes; negative when overpaid.
func (r Reservation) Balance() decimal.Decimal {
	return r.Total.Sub(r.AmountPaid)
}

// StoreSettings are the store-level receipt toggles.
type StoreSettings struct {
	Name             string `json:"name" mapstructure:"name"`
	Phone            string `json:"phone,omitempty" mapstructure:"phone"`
	Address          string `json:"address,omitempty" mapstructure:"address"`
	Email            string `json:"email,omitempty" mapstructure:"email"`
	Currency         string `json:"currency,omitempty" mapstructure:"currency"`
	ShowStoreHeader  bool   `json:"showStoreHeader" mapstructure:"show_store_header"`
	ShowCustomer     bool   `json:"showCustomer" mapstructure:"show_customer"`
	ShowServer       bool   `json:"showServer" mapstructure:"show_server"`
	ShowTax          bool   `json:"showTax" mapstructure:"show_tax"`
	ShowNotes        bool   `json:"showNotes" mapstructure:"show_notes"`
	ShowCommission   bool   `json:"showCommission" mapstructure:"show_commission"`
	FooterMessage    string `json:"footerMessage,omitempty" mapstructure:"footer_message"`
	Disclaimer       string `json:"disclaimer,omitempty" mapstructure:"disclaimer"`
	PrintAfterFinish *bool  `json:"printAfterFinish,omitempty" mapstructure:"print_after_finish"`
}

// AutoPrintEnabled reports the printAfterFinish flag, which defaults to true.
func (s StoreSettings) AutoPrintEnabled() bool {
	if s.PrintAfterFinish == nil {
		return true
	}
	return *s.PrintAfterFinish
}

// Config is everything a generator reads besides the document itself.
type Config struct {
	Printer profile.PrinterConfiguration
	Store   StoreSettings
}
