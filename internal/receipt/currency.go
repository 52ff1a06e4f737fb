package receipt

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultCurrency is used when an order carries no usable currency code.
const DefaultCurrency = "USD"

// FormatCurrency renders amount with the ISO code and the currency's standard
// number of decimals. Unknown codes fall back to DefaultCurrency.
func FormatCurrency(amount decimal.Decimal, code string) string {
	unit, ok := parseUnit(code)
	if !ok {
		unit = currency.MustParseISO(DefaultCurrency)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return unit.String() + " " + amount.StringFixed(int32(scale))
}

func parseUnit(code string) (currency.Unit, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return currency.Unit{}, false
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, false
	}
	return unit, true
}

// currencyFor picks the document currency, then the store's.
func currencyFor(doc, store string) string {
	if _, ok := parseUnit(doc); ok {
		return doc
	}
	return store
}
