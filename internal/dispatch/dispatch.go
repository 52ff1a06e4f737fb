// Package dispatch decides whether a receipt prints on the linked printer or
// becomes a backend print job, and reacts to push events by auto-printing.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/adcondev/ticket-bridge/internal/metrics"
	"github.com/adcondev/ticket-bridge/internal/printjobs"
	"github.com/adcondev/ticket-bridge/internal/receipt"
)

// Printer is the device side: the printer.Manager.
type Printer interface {
	IsConnected() bool
	Write(ctx context.Context, p []byte) error
}

// JobCreator is the backend side: the printjobs.Client.
type JobCreator interface {
	CreateForOrder(ctx context.Context, order *receipt.Order) ([]printjobs.Job, error)
}

// ConfigSource yields the receipt configuration current at call time.
type ConfigSource interface {
	ReceiptConfig() receipt.Config
}

// ConfigFunc adapts a function to ConfigSource.
type ConfigFunc func() receipt.Config

// ReceiptConfig implements ConfigSource.
func (f ConfigFunc) ReceiptConfig() receipt.Config { return f() }

// ErrNoBackend is wrapped by DispatchError when no job creator is configured.
var ErrNoBackend = errors.New("backend print queue not configured")

// DispatchError means the printer was not linked and creating backend jobs
// failed too. The caller should offer a retry.
type DispatchError struct {
	Order string
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch order %s: printer not connected and backend job creation failed: %v", e.Order, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Result of PrintReceipt.
type Result struct {
	PrintedDirectly bool            `json:"printedDirectly"`
	Jobs            []printjobs.Job `json:"jobs,omitempty"`
}

// Dispatcher routes receipts. One print runs at a time.
type Dispatcher struct {
	printer Printer
	jobs    JobCreator
	config  ConfigSource
	metrics *metrics.Collectors
	log     *zap.Logger

	printMu sync.Mutex
}

// New builds a dispatcher. jobs may be nil when no backend is configured.
func New(p Printer, jobs JobCreator, cfg ConfigSource, m *metrics.Collectors, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		printer: p,
		jobs:    jobs,
		config:  cfg,
		metrics: m,
		log:     log.Named("dispatch"),
	}
}

// PrintReceipt prints order directly when a printer is linked, otherwise
// asks the backend to create print jobs for it.
func (d *Dispatcher) PrintReceipt(ctx context.Context, order *receipt.Order) (Result, error) {
	if order == nil {
		return Result{}, errors.New("dispatch: nil order")
	}

	if d.printer.IsConnected() {
		if err := d.printOrder(ctx, order); err != nil {
			return Result{}, err
		}
		d.metrics.ObservePrint(metrics.PathDirect)
		return Result{PrintedDirectly: true}, nil
	}

	if d.jobs == nil {
		d.metrics.ObserveFailure("dispatch")
		return Result{}, &DispatchError{Order: order.Reference, Err: ErrNoBackend}
	}
	jobs, err := d.jobs.CreateForOrder(ctx, order)
	if err != nil {
		d.metrics.ObserveFailure("dispatch")
		d.log.Error("backend job creation failed", zap.String("order", order.Reference), zap.Error(err))
		return Result{}, &DispatchError{Order: order.Reference, Err: err}
	}
	d.metrics.ObservePrint(metrics.PathBackend)
	d.log.Info("printer not connected, queued on backend",
		zap.String("order", order.Reference), zap.Int("jobs", len(jobs)))
	return Result{Jobs: jobs}, nil
}

// PrintReservation prints a reservation receipt. There is no backend
// fallback for reservations.
func (d *Dispatcher) PrintReservation(ctx context.Context, res *receipt.Reservation) error {
	if res == nil {
		return errors.New("dispatch: nil reservation")
	}
	cfg := d.config.ReceiptConfig()

	d.printMu.Lock()
	defer d.printMu.Unlock()
	buf := receipt.GenerateReservationReceipt(*res, cfg)
	if err := d.printer.Write(ctx, buf); err != nil {
		return err
	}
	d.metrics.ObservePrint(metrics.PathDirect)
	d.log.Info("reservation printed", zap.String("reservation", res.Reference), zap.Int("bytes", len(buf)))
	return nil
}

// SendRaw writes prebuilt bytes, such as a logo upload, under the print lock.
func (d *Dispatcher) SendRaw(ctx context.Context, buf []byte) error {
	d.printMu.Lock()
	defer d.printMu.Unlock()
	return d.printer.Write(ctx, buf)
}

func (d *Dispatcher) printOrder(ctx context.Context, order *receipt.Order) error {
	cfg := d.config.ReceiptConfig()

	d.printMu.Lock()
	defer d.printMu.Unlock()
	buf := receipt.GenerateSaleReceipt(*order, cfg)
	if err := d.printer.Write(ctx, buf); err != nil {
		return err
	}
	d.log.Info("receipt printed", zap.String("order", order.Reference), zap.Int("bytes", len(buf)))
	return nil
}
