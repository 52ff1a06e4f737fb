package dispatch

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcondev/ticket-bridge/internal/escpos"
	"github.com/adcondev/ticket-bridge/internal/metrics"
	"github.com/adcondev/ticket-bridge/internal/printjobs"
	"github.com/adcondev/ticket-bridge/internal/profile"
	"github.com/adcondev/ticket-bridge/internal/push"
	"github.com/adcondev/ticket-bridge/internal/receipt"
)

type fakePrinter struct {
	mu        sync.Mutex
	connected bool
	writeErr  error
	writes    [][]byte
	inWrite   bool
	overlap   bool
}

func (p *fakePrinter) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *fakePrinter) Write(_ context.Context, b []byte) error {
	p.mu.Lock()
	if p.inWrite {
		p.overlap = true
	}
	p.inWrite = true
	err := p.writeErr
	p.mu.Unlock()

	time.Sleep(time.Millisecond)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inWrite = false
	if err != nil {
		return err
	}
	p.writes = append(p.writes, b)
	return nil
}

type fakeJobs struct {
	calls int
	err   error
}

func (j *fakeJobs) CreateForOrder(_ context.Context, o *receipt.Order) ([]printjobs.Job, error) {
	j.calls++
	if j.err != nil {
		return nil, j.err
	}
	return []printjobs.Job{{ID: "job-1", OrderID: o.ID, Status: printjobs.StatusPending}}, nil
}

func testConfig(store receipt.StoreSettings) ConfigSource {
	return ConfigFunc(func() receipt.Config {
		return receipt.Config{Printer: profile.Default(), Store: store}
	})
}

func completedOrder() *receipt.Order {
	return &receipt.Order{
		ID:            "o1",
		Reference:     "ORD-1",
		Category:      receipt.CategoryComplete,
		PaymentStatus: receipt.PaymentPaid,
		SubTotal:      decimal.NewFromInt(1000),
		Total:         decimal.NewFromInt(1000),
		Payment:       "Cash",
	}
}

func TestPrintReceipt_DirectWhenConnected(t *testing.T) {
	p := &fakePrinter{connected: true}
	jobs := &fakeJobs{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	d := New(p, jobs, testConfig(receipt.StoreSettings{}), m, nil)

	res, err := d.PrintReceipt(context.Background(), completedOrder())
	require.NoError(t, err)

	assert.True(t, res.PrintedDirectly)
	assert.Zero(t, jobs.calls)
	require.Len(t, p.writes, 1)
	assert.True(t, bytes.HasPrefix(p.writes[0], []byte(escpos.Init)))
	assert.Contains(t, string(p.writes[0]), "Order: #ORD-1")
	assert.InDelta(t, 1, testutil.ToFloat64(m.Prints.WithLabelValues(metrics.PathDirect)), 0)
}

func TestPrintReceipt_BackendWhenDisconnected(t *testing.T) {
	p := &fakePrinter{}
	jobs := &fakeJobs{}
	d := New(p, jobs, testConfig(receipt.StoreSettings{}), nil, nil)

	res, err := d.PrintReceipt(context.Background(), completedOrder())
	require.NoError(t, err)

	assert.False(t, res.PrintedDirectly)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, 1, jobs.calls)
	assert.Empty(t, p.writes)
}

func TestPrintReceipt_DispatchError(t *testing.T) {
	backendErr := errors.New("503 service unavailable")
	d := New(&fakePrinter{}, &fakeJobs{err: backendErr}, testConfig(receipt.StoreSettings{}), nil, nil)

	_, err := d.PrintReceipt(context.Background(), completedOrder())
	var derr *DispatchError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "ORD-1", derr.Order)
	assert.ErrorIs(t, err, backendErr)
}

func TestPrintReceipt_NoBackendConfigured(t *testing.T) {
	d := New(&fakePrinter{}, nil, testConfig(receipt.StoreSettings{}), nil, nil)

	_, err := d.PrintReceipt(context.Background(), completedOrder())
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestPrintReceipt_WriteErrorSurfaces(t *testing.T) {
	writeErr := errors.New("gatt write rejected")
	jobs := &fakeJobs{}
	d := New(&fakePrinter{connected: true, writeErr: writeErr}, jobs, testConfig(receipt.StoreSettings{}), nil, nil)

	_, err := d.PrintReceipt(context.Background(), completedOrder())
	assert.ErrorIs(t, err, writeErr)
	assert.Zero(t, jobs.calls, "a failed direct print is not silently re-queued")
}

func TestPrintReceipt_ConcurrentCallsAreSerialized(t *testing.T) {
	p := &fakePrinter{connected: true}
	d := New(p, &fakeJobs{}, testConfig(receipt.StoreSettings{}), nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.PrintReceipt(context.Background(), completedOrder())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, p.writes, 4)
	assert.False(t, p.overlap)
}

func TestPrintReservation(t *testing.T) {
	p := &fakePrinter{connected: true}
	d := New(p, nil, testConfig(receipt.StoreSettings{}), nil, nil)

	res := &receipt.Reservation{
		Reference: "RES-9",
		Guest:     receipt.Guest{Name: "Ana"},
		Total:     decimal.NewFromInt(300),
	}
	require.NoError(t, d.PrintReservation(context.Background(), res))
	require.Len(t, p.writes, 1)
	assert.Contains(t, string(p.writes[0]), "RES-9")

	assert.Error(t, d.PrintReservation(context.Background(), nil))
}

func TestAutoPrintOnEvent_GuardChain(t *testing.T) {
	off := false
	processing := completedOrder()
	processing.Category = receipt.CategoryProcessing
	unpaid := completedOrder()
	unpaid.PaymentStatus = "Pending"

	tests := []struct {
		name      string
		order     *receipt.Order
		store     receipt.StoreSettings
		connected bool
		want      string
	}{
		{"no order", nil, receipt.StoreSettings{}, true, OutcomeNoOrder},
		{"processing", processing, receipt.StoreSettings{}, true, OutcomeNotReady},
		{"unpaid", unpaid, receipt.StoreSettings{}, true, OutcomeNotReady},
		{"disabled", completedOrder(), receipt.StoreSettings{PrintAfterFinish: &off}, true, OutcomeDisabled},
		{"disconnected", completedOrder(), receipt.StoreSettings{}, false, OutcomeNotConnected},
		{"prints", completedOrder(), receipt.StoreSettings{}, true, OutcomePrinted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePrinter{connected: tt.connected}
			jobs := &fakeJobs{}
			d := New(p, jobs, testConfig(tt.store), nil, nil)

			got := d.AutoPrintOnEvent(context.Background(), push.Event{Type: push.JobCreated, JobID: "j1", Order: tt.order})
			assert.Equal(t, tt.want, got)
			assert.Zero(t, jobs.calls, "auto-print never creates backend jobs")
			if tt.want == OutcomePrinted {
				assert.Len(t, p.writes, 1)
			} else {
				assert.Empty(t, p.writes)
			}
		})
	}
}

func TestAutoPrintOnEvent_FailureIsSwallowed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := &fakePrinter{connected: true, writeErr: errors.New("link lost")}
	jobs := &fakeJobs{}
	d := New(p, jobs, testConfig(receipt.StoreSettings{}), m, nil)

	got := d.AutoPrintOnEvent(context.Background(), push.Event{Type: push.JobCreated, Order: completedOrder()})
	assert.Equal(t, OutcomeFailed, got)
	assert.Zero(t, jobs.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(m.AutoPrint.WithLabelValues(OutcomeFailed)), 0)
}

func TestSubscribe(t *testing.T) {
	p := &fakePrinter{connected: true}
	d := New(p, &fakeJobs{}, testConfig(receipt.StoreSettings{}), nil, nil)
	l := push.NewListener(push.Config{URL: "ws://unused"}, nil, nil)

	// events arriving before the dispatcher subscribes are not lost
	l.Deliver(context.Background(), push.Event{Type: push.JobCreated, JobID: "early", Order: completedOrder()})

	var notified []string
	d.Subscribe(l, func(ev push.Event) { notified = append(notified, ev.Type) })
	assert.Len(t, p.writes, 1)

	l.Deliver(context.Background(), push.Event{Type: push.JobFailed, JobID: "j2", Error: "jam"})
	l.Deliver(context.Background(), push.Event{Type: push.JobCompleted, JobID: "j3"})
	assert.Equal(t, []string{push.JobCreated, push.JobFailed, push.JobCompleted}, notified)
	assert.Len(t, p.writes, 1)
}
