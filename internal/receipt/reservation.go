package receipt

import (
	"fmt"
	"strconv"
)

var defaultReservationFooter = []string{
	"Thank you for choosing us!",
	"We look forward to your stay.",
}

// GenerateReservationReceipt renders a hotel reservation confirmation.
func GenerateReservationReceipt(res Reservation, cfg Config) []byte {
	d := newDocument(cfg, res.Currency)

	d.begin()
	d.storeHeader()
	d.separator()

	d.bold("Reservation: #" + res.Reference)
	if !res.CreatedAt.IsZero() {
		d.pair("Booked:", res.CreatedAt.Format(dateLayout))
	}
	d.pair("Status:", res.Status)
	d.separator()

	d.bold("GUEST")
	d.pair("Name:", res.Guest.Name)
	d.pair("Email:", res.Guest.Email)
	d.pair("Phone:", res.Guest.Phone)
	if res.Guest.Count > 0 {
		d.pair("Guests:", strconv.Itoa(res.Guest.Count))
	}
	d.separator()

	d.bold("STAY")
	if !res.CheckIn.IsZero() {
		d.pair("Check-in:", res.CheckIn.Format(dayLayout))
	}
	if !res.CheckOut.IsZero() {
		d.pair("Check-out:", res.CheckOut.Format(dayLayout))
	}
	if n := res.Nights(); n > 0 {
		d.pair("Nights:", strconv.Itoa(n))
	}
	d.separator()

	reservationRooms(d, res)
	d.separator()
	reservationPricing(d, res)
	d.separator()

	if p := res.Payment; p.Method != "" || p.Status != "" || p.Reference != "" {
		d.bold("PAYMENT")
		d.pair("Method:", p.Method)
		d.pair("Status:", p.Status)
		d.pair("Reference:", p.Reference)
		d.separator()
	}

	if res.SpecialRequests != "" {
		d.bold("SPECIAL REQUESTS")
		d.wrapped(res.SpecialRequests)
		d.separator()
	}

	if footer := firstNonEmpty(d.printer.FooterText, d.store.FooterMessage); footer != "" {
		d.centered(footer)
	} else {
		for _, l := range defaultReservationFooter {
			d.centered(l)
		}
	}
	d.finish(res.Reference)
	return d.bytes()
}

func reservationRooms(d *document, res Reservation) {
	d.bold("ROOMS")
	for i, room := range res.Rooms {
		if i > 0 {
			d.blank()
		}
		name := room.Name
		if room.Type != "" {
			name += " (" + room.Type + ")"
		}
		d.wrapped(name)

		nights := room.Nights
		if nights <= 0 {
			nights = res.Nights()
		}
		if nights > 0 && room.Rate.IsPositive() {
			d.pair(fmt.Sprintf("%s%d x %s", modifierIndent, nights, d.money(room.Rate)), d.money(room.Total))
		} else {
			d.pair(modifierIndent+"Total:", d.money(room.Total))
		}
		if room.Guests > 0 {
			d.pair(modifierIndent+"Guests:", strconv.Itoa(room.Guests))
		}
	}
}

func reservationPricing(d *document, res Reservation) {
	d.bold("PRICING SUMMARY")
	d.pair("Subtotal:", d.money(res.SubTotal))
	d.amount("Taxes:", res.Taxes)
	d.amount("Fees:", res.Fees)
	d.deduction("Discounts:", res.Discounts)
	d.deduction("Early bird:", res.EarlyBirdDiscount)
	d.boldPair("TOTAL:", d.money(res.Total))
	d.amount("Paid:", res.AmountPaid)

	balance := res.Balance()
	switch {
	case balance.IsPositive():
		d.boldPair("BALANCE DUE:", d.money(balance))
	case balance.IsNegative():
		d.boldPair("OVERPAID:", d.money(balance.Abs()))
	}
}
