package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcondev/ticket-bridge/internal/dispatch"
	"github.com/adcondev/ticket-bridge/internal/printer"
	"github.com/adcondev/ticket-bridge/internal/receipt"
	"github.com/adcondev/ticket-bridge/internal/server"
)

// mockSlowNotifier simulates a slow network connection
type mockSlowNotifier struct {
	delay time.Duration
}

func (m *mockSlowNotifier) NotifyClient(_ *websocket.Conn, _ server.Response) error {
	time.Sleep(m.delay)
	return nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	responses map[string]server.Response
}

func (r *recordingNotifier) NotifyClient(_ *websocket.Conn, resp server.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.responses == nil {
		r.responses = make(map[string]server.Response)
	}
	r.responses[resp.ID] = resp
	return nil
}

func (r *recordingNotifier) get(id string) (server.Response, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responses[id]
	return resp, ok
}

type fakeDispatcher struct {
	receiptErr error
	direct     bool
	resErr     error
	panicOn    string
}

func (f *fakeDispatcher) PrintReceipt(_ context.Context, order *receipt.Order) (dispatch.Result, error) {
	if order.Reference == f.panicOn {
		panic("generator exploded")
	}
	if f.receiptErr != nil {
		return dispatch.Result{}, f.receiptErr
	}
	return dispatch.Result{PrintedDirectly: f.direct}, nil
}

func (f *fakeDispatcher) PrintReservation(context.Context, *receipt.Reservation) error {
	return f.resErr
}

func waitFor(t *testing.T, w *Worker, n int64) Statistics {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		stats := w.Stats()
		if stats.JobsProcessed+stats.JobsQueued+stats.JobsFailed >= n {
			return stats
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for jobs to process. Stats: %+v", stats)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWorkerBlockingNotification(t *testing.T) {
	// Setup
	jobCount := 5
	notifier := &mockSlowNotifier{delay: 200 * time.Millisecond} // 200ms delay per notification

	// Create job queue
	jobQueue := make(chan *server.PrintJob, jobCount)

	w := NewWorker(jobQueue, &fakeDispatcher{direct: true}, notifier, Config{}, nil, nil)

	// Start worker
	w.Start()
	defer w.Stop()

	// Create dummy connection (we need a non-nil pointer)
	dummyConn := &websocket.Conn{}

	// Prepare jobs
	for j := 0; j < jobCount; j++ {
		jobQueue <- &server.PrintJob{
			ID:         "test-job",
			Kind:       server.KindReceipt,
			ClientConn: dummyConn,
			Order:      &receipt.Order{Reference: "A1"},
			ReceivedAt: time.Now(),
		}
	}

	start := time.Now()
	waitFor(t, w, int64(jobCount))
	duration := time.Since(start)

	// With blocking notification: 5 jobs * 200ms = 1000ms (1s)
	if duration > 500*time.Millisecond {
		t.Errorf("Expected duration < 500ms (async), got %v", duration)
	}
}

func TestWorkerOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		dispatcher *fakeDispatcher
		job        *server.PrintJob
		wantStatus string
		wantMsg    string
		want       Statistics
	}{
		{
			name:       "printed directly",
			dispatcher: &fakeDispatcher{direct: true},
			job:        &server.PrintJob{ID: "1", Order: &receipt.Order{Reference: "A1"}},
			wantStatus: "success",
			want:       Statistics{JobsProcessed: 1},
		},
		{
			name:       "queued on backend",
			dispatcher: &fakeDispatcher{},
			job:        &server.PrintJob{ID: "2", Order: &receipt.Order{Reference: "A1"}},
			wantStatus: "queued",
			want:       Statistics{JobsQueued: 1},
		},
		{
			name:       "dispatch failure",
			dispatcher: &fakeDispatcher{receiptErr: &dispatch.DispatchError{Order: "A1", Err: dispatch.ErrNoBackend}},
			job:        &server.PrintJob{ID: "3", Order: &receipt.Order{Reference: "A1"}},
			wantStatus: "error",
			wantMsg:    "QUEUE: Printer offline and no backend queue configured",
			want:       Statistics{JobsFailed: 1},
		},
		{
			name:       "reservation while offline",
			dispatcher: &fakeDispatcher{resErr: &printer.WriteError{Err: printer.ErrNotConnected}},
			job:        &server.PrintJob{ID: "4", Reservation: &receipt.Reservation{Reference: "R1"}},
			wantStatus: "error",
			wantMsg:    "PRINTER: Not connected - connect a printer and retry",
			want:       Statistics{JobsFailed: 1},
		},
		{
			name:       "reservation printed",
			dispatcher: &fakeDispatcher{},
			job:        &server.PrintJob{ID: "5", Reservation: &receipt.Reservation{Reference: "R1"}},
			wantStatus: "success",
			want:       Statistics{JobsProcessed: 1},
		},
		{
			name:       "panic is recovered",
			dispatcher: &fakeDispatcher{panicOn: "BOOM"},
			job:        &server.PrintJob{ID: "6", Order: &receipt.Order{Reference: "BOOM"}},
			wantStatus: "error",
			want:       Statistics{JobsFailed: 1},
		},
		{
			name:       "empty job",
			dispatcher: &fakeDispatcher{},
			job:        &server.PrintJob{ID: "7"},
			wantStatus: "error",
			wantMsg:    "VALIDATION: job carries no order or reservation",
			want:       Statistics{JobsFailed: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := make(chan *server.PrintJob, 1)
			notifier := &recordingNotifier{}
			w := NewWorker(queue, tt.dispatcher, notifier, Config{PrintTimeout: time.Second}, nil, nil)
			w.Start()
			defer w.Stop()

			tt.job.ClientConn = &websocket.Conn{}
			queue <- tt.job
			stats := waitFor(t, w, 1)

			assert.Equal(t, tt.want.JobsProcessed, stats.JobsProcessed)
			assert.Equal(t, tt.want.JobsQueued, stats.JobsQueued)
			assert.Equal(t, tt.want.JobsFailed, stats.JobsFailed)

			var resp server.Response
			require.Eventually(t, func() bool {
				var ok bool
				resp, ok = notifier.get(tt.job.ID)
				return ok
			}, time.Second, 5*time.Millisecond)
			assert.Equal(t, "result", resp.Tipo)
			assert.Equal(t, tt.wantStatus, resp.Status)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Mensaje)
			}
		})
	}
}

func TestWorkerStartStopIdempotent(t *testing.T) {
	w := NewWorker(make(chan *server.PrintJob), &fakeDispatcher{}, nil, Config{}, nil, nil)
	w.Start()
	w.Start()
	assert.True(t, w.Stats().IsRunning)
	w.Stop()
	w.Stop()
	assert.False(t, w.Stats().IsRunning)
}

func TestWorkerExitsOnClosedQueue(t *testing.T) {
	queue := make(chan *server.PrintJob)
	w := NewWorker(queue, &fakeDispatcher{}, nil, Config{}, nil, nil)
	w.Start()
	close(queue)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after queue closed")
	}
}
