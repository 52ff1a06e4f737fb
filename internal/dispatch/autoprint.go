package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/adcondev/ticket-bridge/internal/metrics"
	"github.com/adcondev/ticket-bridge/internal/push"
)

// Auto-print outcomes, also used as metric labels.
const (
	OutcomePrinted      = "printed"
	OutcomeNoOrder      = "no_order"
	OutcomeNotReady     = "not_ready"
	OutcomeDisabled     = "disabled"
	OutcomeNotConnected = "not_connected"
	OutcomeFailed       = "failed"
)

// Notifier receives job events worth showing to local clients.
type Notifier func(ev push.Event)

// AutoPrintOnEvent prints the order carried by a printJob:created event when
// it is complete and paid, auto-printing is enabled and a printer is linked.
// It never creates backend jobs: the event already is one. Failures are
// logged and swallowed. The outcome is returned for logging and tests.
func (d *Dispatcher) AutoPrintOnEvent(ctx context.Context, ev push.Event) string {
	outcome := d.autoPrint(ctx, ev)
	d.metrics.ObserveAutoPrint(outcome)
	return outcome
}

func (d *Dispatcher) autoPrint(ctx context.Context, ev push.Event) string {
	order := ev.Order
	if order == nil {
		d.log.Debug("auto-print skipped: event has no order", zap.String("job", ev.JobID))
		return OutcomeNoOrder
	}
	log := d.log.With(zap.String("job", ev.JobID), zap.String("order", order.Reference))

	if !order.ReadyForAutoPrint() {
		log.Debug("auto-print skipped: order not complete and paid",
			zap.String("category", order.Category), zap.String("payment_status", order.PaymentStatus))
		return OutcomeNotReady
	}
	if !d.config.ReceiptConfig().Store.AutoPrintEnabled() {
		log.Debug("auto-print skipped: printAfterFinish disabled")
		return OutcomeDisabled
	}
	if !d.printer.IsConnected() {
		log.Debug("auto-print skipped: printer not connected, job stays queued")
		return OutcomeNotConnected
	}

	if err := d.printOrder(ctx, order); err != nil {
		log.Warn("auto-print failed", zap.Error(err))
		d.metrics.ObserveFailure("autoprint")
		return OutcomeFailed
	}
	d.metrics.ObservePrint(metrics.PathAuto)
	return OutcomePrinted
}

// Subscribe wires the dispatcher to the push listener: printJob:created
// triggers auto-print, completed and failed are logged and forwarded to
// notify when set.
func (d *Dispatcher) Subscribe(l *push.Listener, notify Notifier) {
	l.On(push.JobCreated, func(ctx context.Context, ev push.Event) {
		outcome := d.AutoPrintOnEvent(ctx, ev)
		d.log.Debug("job created", zap.String("job", ev.JobID), zap.String("auto_print", outcome))
		if notify != nil {
			notify(ev)
		}
	})
	l.On(push.JobCompleted, func(_ context.Context, ev push.Event) {
		d.log.Info("job completed", zap.String("job", ev.JobID))
		if notify != nil {
			notify(ev)
		}
	})
	l.On(push.JobFailed, func(_ context.Context, ev push.Event) {
		d.log.Warn("job failed", zap.String("job", ev.JobID), zap.String("error", ev.Error))
		if notify != nil {
			notify(ev)
		}
	})
}
