package receipt

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/adcondev/ticket-bridge/internal/escpos"
	"github.com/adcondev/ticket-bridge/internal/layout"
	"github.com/adcondev/ticket-bridge/internal/profile"
)

const (
	dateLayout     = "2006-01-02 15:04"
	dayLayout      = "Mon 2006-01-02"
	modifierIndent = "   "
)

// document wraps a builder with the layout rules of one print call.
type document struct {
	b        *escpos.Builder
	printer  profile.PrinterConfiguration
	store    StoreSettings
	currency string
}

func newDocument(cfg Config, docCurrency string) *document {
	printer := cfg.Printer.Normalize()
	return &document{
		b:        escpos.NewBuilder(escpos.LookupCodePage(printer.CodePage)),
		printer:  printer,
		store:    cfg.Store,
		currency: currencyFor(docCurrency, cfg.Store.Currency),
	}
}

// begin writes INIT, the printer setup and the optional NV logo.
func (d *document) begin() {
	d.b.Cmd(escpos.Init).Cmd(escpos.Preamble(d.printer)...)
	if d.printer.IncludeLogo {
		d.b.Cmd(escpos.AlignCenter, escpos.LogoPrint, escpos.AlignLeft)
		d.b.Feed(1)
	}
}

// storeHeader prints the store block when enabled, then any configured header text.
func (d *document) storeHeader() {
	if d.store.ShowStoreHeader && d.store.Name != "" {
		d.b.Cmd(escpos.AlignCenter, escpos.BoldOn, escpos.TextDoubleSize)
		d.b.Line(d.store.Name)
		d.b.Cmd(escpos.FontSize(d.printer), escpos.BoldOff)
		for _, s := range []string{d.store.Address, d.store.Phone, d.store.Email} {
			if s != "" {
				d.b.Line(s)
			}
		}
		d.b.Cmd(escpos.AlignLeft)
	}
	if d.printer.HeaderText != "" {
		d.centered(d.printer.HeaderText)
	}
}

// finish writes the reference footer, feeds and the optional cut.
func (d *document) finish(reference string) {
	if reference != "" {
		d.line(layout.Center("Ref: "+reference, d.printer))
	}
	d.b.Feed(2)
	if d.printer.AutocutEnabled() {
		d.b.Cmd(escpos.CutPaper)
	}
}

func (d *document) line(s string) { d.b.Line(s) }

func (d *document) blank() { d.b.Feed(1) }

func (d *document) separator() { d.b.Line(layout.Dashes(d.printer)) }

func (d *document) bold(s string) {
	d.b.Cmd(escpos.BoldOn).Line(s).Cmd(escpos.BoldOff)
}

func (d *document) wrapped(s string) {
	for _, para := range strings.Split(s, "\n") {
		d.b.Lines(layout.Wrap(para, d.printer))
	}
}

func (d *document) centered(s string) {
	for _, para := range strings.Split(s, "\n") {
		for _, l := range layout.Wrap(para, d.printer) {
			d.line(layout.Center(l, d.printer))
		}
	}
}

func (d *document) pair(label, value string) {
	if value == "" {
		return
	}
	d.line(layout.Justify(label, value, d.printer))
}

func (d *document) boldPair(label, value string) {
	d.b.Cmd(escpos.BoldOn)
	d.pair(label, value)
	d.b.Cmd(escpos.BoldOff)
}

func (d *document) money(v decimal.Decimal) string {
	return FormatCurrency(v, d.currency)
}

// amount prints label/value only for strictly positive amounts.
func (d *document) amount(label string, v decimal.Decimal) {
	if v.IsPositive() {
		d.pair(label, d.money(v))
	}
}

// deduction prints a positive amount as a negative line.
func (d *document) deduction(label string, v decimal.Decimal) {
	if v.IsPositive() {
		d.pair(label, "-"+d.money(v))
	}
}

func (d *document) bytes() []byte { return d.b.Bytes() }
