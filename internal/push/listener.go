package push

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/adcondev/ticket-bridge/internal/metrics"
)

// Reconnect defaults.
const (
	DefaultMinBackoff = time.Second
	DefaultMaxBackoff = time.Minute
	// DefaultMaxPending bounds events held while no handler is registered.
	DefaultMaxPending = 100
)

// Handler reacts to one event. Handlers run one at a time in arrival order,
// queued events first. A handler must not call On or Deliver.
type Handler func(ctx context.Context, ev Event)

// Config of a Listener.
type Config struct {
	URL        string
	APIKey     string
	MinBackoff time.Duration
	MaxBackoff time.Duration
	MaxPending int
}

// Listener keeps a WebSocket open to the backend push channel and fans
// events out to handlers. Events arriving before a handler for their type is
// registered are queued and delivered on registration.
type Listener struct {
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Collectors

	// deliverMu serializes handler calls across Deliver and the flush in On.
	deliverMu sync.Mutex

	mu       sync.Mutex
	handlers map[string][]Handler
	pending  []Event
	ctx      context.Context

	connected bool
}

// NewListener builds a listener. Run starts it.
func NewListener(cfg Config, log *zap.Logger, m *metrics.Collectors) *Listener {
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = DefaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultMaxPending
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Listener{
		cfg:      cfg,
		log:      log.Named("push"),
		metrics:  m,
		handlers: make(map[string][]Handler),
		ctx:      context.Background(),
	}
}

// On registers h for eventType and flushes queued events of that type to it.
func (l *Listener) On(eventType string, h Handler) {
	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()

	l.mu.Lock()
	l.handlers[eventType] = append(l.handlers[eventType], h)
	var flush []Event
	kept := l.pending[:0]
	for _, ev := range l.pending {
		if ev.Type == eventType {
			flush = append(flush, ev)
			continue
		}
		kept = append(kept, ev)
	}
	l.pending = kept
	ctx := l.ctx
	l.mu.Unlock()

	for _, ev := range flush {
		l.log.Debug("delivering queued event", zap.String("type", ev.Type), zap.String("job", ev.JobID))
		h(ctx, ev)
	}
}

// Pending reports how many events wait for a handler.
func (l *Listener) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Connected reports whether the push socket is currently open.
func (l *Listener) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// Deliver routes ev to its handlers, or queues it.
func (l *Listener) Deliver(ctx context.Context, ev Event) {
	l.metrics.ObservePushEvent(ev.Type)

	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()

	l.mu.Lock()
	hs := append([]Handler(nil), l.handlers[ev.Type]...)
	if len(hs) == 0 {
		if !queueable(ev.Type) {
			l.mu.Unlock()
			l.log.Debug("unhandled event ignored", zap.String("type", ev.Type))
			return
		}
		if len(l.pending) >= l.cfg.MaxPending {
			dropped := l.pending[0]
			l.pending = l.pending[1:]
			l.log.Warn("push queue full, dropping oldest event",
				zap.String("type", dropped.Type), zap.String("job", dropped.JobID))
		}
		l.pending = append(l.pending, ev)
		l.mu.Unlock()
		l.log.Debug("no handler yet, event queued", zap.String("type", ev.Type))
		return
	}
	l.mu.Unlock()

	for _, h := range hs {
		h(ctx, ev)
	}
}

// Run connects and reads events until ctx is done, reconnecting with
// exponential backoff.
func (l *Listener) Run(ctx context.Context) error {
	if l.cfg.URL == "" {
		return errors.New("push: URL not configured")
	}
	l.mu.Lock()
	l.ctx = ctx
	l.mu.Unlock()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.cfg.MinBackoff
	bo.MaxInterval = l.cfg.MaxBackoff
	bo.MaxElapsedTime = 0
	b := backoff.WithContext(bo, ctx)

	for {
		connectedOnce, err := l.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connectedOnce {
			b.Reset()
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return nil
		}
		l.log.Warn("push channel lost, reconnecting",
			zap.Error(err), zap.Duration("retry_in", wait))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// session runs one connection. It reports whether the dial succeeded.
func (l *Listener) session(ctx context.Context) (bool, error) {
	hdr := http.Header{}
	if l.cfg.APIKey != "" {
		hdr.Set("X-Api-Key", l.cfg.APIKey)
	}
	conn, _, err := websocket.Dial(ctx, l.cfg.URL, &websocket.DialOptions{HTTPHeader: hdr})
	if err != nil {
		return false, err
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	l.setConnected(true)
	defer l.setConnected(false)
	l.log.Info("push channel connected", zap.String("url", l.cfg.URL))

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return true, err
		}
		switch f.Type {
		case "ping":
			if err := wsjson.Write(ctx, conn, frame{Type: "pong"}); err != nil {
				return true, err
			}
			continue
		case "":
			l.log.Debug("frame without type ignored")
			continue
		}

		ev, err := decodeEvent(f)
		if err != nil {
			l.log.Warn("bad event payload", zap.String("type", f.Type), zap.Error(err))
			continue
		}
		l.Deliver(ctx, ev)
	}
}

func (l *Listener) setConnected(v bool) {
	l.mu.Lock()
	l.connected = v
	l.mu.Unlock()
}

func queueable(eventType string) bool {
	switch eventType {
	case JobCreated, JobCompleted, JobFailed:
		return true
	}
	return false
}
