// Package worker drains the local print queue through the dispatcher.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/adcondev/ticket-bridge/internal/dispatch"
	"github.com/adcondev/ticket-bridge/internal/metrics"
	"github.com/adcondev/ticket-bridge/internal/receipt"
	"github.com/adcondev/ticket-bridge/internal/server"
	workererrors "github.com/adcondev/ticket-bridge/internal/worker/errors"
)

// DefaultPrintTimeout bounds a single job, transmission included.
const DefaultPrintTimeout = 60 * time.Second

// Config holds worker configuration
type Config struct {
	PrintTimeout time.Duration
}

// Dispatcher prints or queues documents.
type Dispatcher interface {
	PrintReceipt(ctx context.Context, order *receipt.Order) (dispatch.Result, error)
	PrintReservation(ctx context.Context, res *receipt.Reservation) error
}

// ClientNotifier interface for sending results back to clients
type ClientNotifier interface {
	NotifyClient(conn *websocket.Conn, response server.Response) error
}

// Worker consumes print jobs from the queue and hands them to the dispatcher
type Worker struct {
	jobQueue      <-chan *server.PrintJob
	dispatcher    Dispatcher
	notifier      ClientNotifier
	config        Config
	metrics       *metrics.Collectors
	log           *zap.Logger
	stopChan      chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	isRunning     bool
	jobsProcessed int64
	jobsQueued    int64
	jobsFailed    int64
	lastJobTime   time.Time
}

// NewWorker creates a new print worker
func NewWorker(jobQueue <-chan *server.PrintJob, d Dispatcher, notifier ClientNotifier,
	config Config, m *metrics.Collectors, log *zap.Logger) *Worker {
	if config.PrintTimeout <= 0 {
		config.PrintTimeout = DefaultPrintTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		jobQueue:   jobQueue,
		dispatcher: d,
		notifier:   notifier,
		config:     config,
		metrics:    m,
		log:        log.Named("worker"),
		stopChan:   make(chan struct{}),
	}
}

// Start begins the worker goroutine
func (w *Worker) Start() {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run()

	w.log.Info("print worker started")
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	stats := w.Stats()
	w.log.Info("print worker stopped",
		zap.Int64("processed", stats.JobsProcessed),
		zap.Int64("queued", stats.JobsQueued),
		zap.Int64("failed", stats.JobsFailed))
}

// run is the main worker loop
func (w *Worker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return

		case job, ok := <-w.jobQueue:
			if !ok {
				w.log.Info("job channel closed, exiting")
				return
			}
			w.processJob(job)
		}
	}
}

// processJob handles a single print job
func (w *Worker) processJob(job *server.PrintJob) {
	startTime := time.Now()
	w.log.Debug("processing job", zap.String("job", job.ID), zap.String("kind", job.Kind))

	direct, err := w.executePrint(job)

	duration := time.Since(startTime)

	// Update statistics
	w.mu.Lock()
	w.lastJobTime = time.Now()
	switch {
	case err != nil:
		w.jobsFailed++
	case direct:
		w.jobsProcessed++
	default:
		w.jobsQueued++
	}
	w.mu.Unlock()

	// Prepare response
	var response server.Response
	switch {
	case err != nil:
		w.log.Error("job failed", zap.String("job", job.ID), zap.Duration("after", duration), zap.Error(err))
		w.metrics.ObserveLocalJob("failed")
		response = server.Response{
			Tipo:    "result",
			ID:      job.ID,
			Status:  "error",
			Mensaje: workererrors.ExtractUserFriendlyError(err),
		}
	case direct:
		w.log.Info("job printed", zap.String("job", job.ID), zap.Duration("took", duration))
		w.metrics.ObserveLocalJob("printed")
		response = server.Response{
			Tipo:    "result",
			ID:      job.ID,
			Status:  "success",
			Mensaje: fmt.Sprintf("Print completed in %v", duration.Round(time.Millisecond)),
		}
	default:
		w.log.Info("job handed to backend queue", zap.String("job", job.ID), zap.Duration("took", duration))
		w.metrics.ObserveLocalJob("backend")
		response = server.Response{
			Tipo:    "result",
			ID:      job.ID,
			Status:  "queued",
			Mensaje: "Printer offline, receipt queued on the backend",
		}
	}

	// Notify client (async to not block worker loop)
	if job.ClientConn != nil && w.notifier != nil {
		go func() {
			if err := w.notifier.NotifyClient(job.ClientConn, response); err != nil {
				w.log.Warn("failed to notify client", zap.String("job", job.ID), zap.Error(err))
			}
		}()
	}
}

// executePrint reports whether the document reached the printer directly.
func (w *Worker) executePrint(job *server.PrintJob) (direct bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic recovered in executePrint: %v", r)
			w.log.Error("panic in job", zap.String("job", job.ID), zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.config.PrintTimeout)
	defer cancel()

	switch {
	case job.Order != nil:
		res, err := w.dispatcher.PrintReceipt(ctx, job.Order)
		if err != nil {
			return false, err
		}
		return res.PrintedDirectly, nil
	case job.Reservation != nil:
		if err := w.dispatcher.PrintReservation(ctx, job.Reservation); err != nil {
			return false, fmt.Errorf("error imprimiendo recibo: %w", err)
		}
		return true, nil
	}
	return false, errors.New("documento inválido: job carries no order or reservation")
}

// Stats returns current worker statistics
func (w *Worker) Stats() Statistics {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Statistics{
		IsRunning:     w.isRunning,
		JobsProcessed: w.jobsProcessed,
		JobsQueued:    w.jobsQueued,
		JobsFailed:    w.jobsFailed,
		LastJobTime:   w.lastJobTime,
	}
}

// Statistics holds worker runtime statistics
type Statistics struct {
	IsRunning     bool      `json:"is_running"`
	JobsProcessed int64     `json:"jobs_processed"`
	JobsQueued    int64     `json:"jobs_queued"`
	JobsFailed    int64     `json:"jobs_failed"`
	LastJobTime   time.Time `json:"last_job_time,omitempty"`
}
