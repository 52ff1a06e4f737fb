package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcondev/ticket-bridge/internal/metrics"
)

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent(frame{
		Type: JobCreated,
		Data: []byte(`{"id":"j1","order":{"reference":"ORD-1","category":"Complete"}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "j1", ev.JobID)
	require.NotNil(t, ev.Order)
	assert.Equal(t, "ORD-1", ev.Order.Reference)

	ev, err = decodeEvent(frame{Type: JobFailed, Data: []byte(`{"jobId":"j2","error":"paper out"}`)})
	require.NoError(t, err)
	assert.Equal(t, "j2", ev.JobID)
	assert.Equal(t, "paper out", ev.Error)
	assert.Nil(t, ev.Order)

	_, err = decodeEvent(frame{Type: JobFailed, Data: []byte(`[1,2]`)})
	assert.Error(t, err)
}

func TestListener_QueuesUntilHandlerRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	l := NewListener(Config{URL: "ws://unused"}, nil, m)
	ctx := context.Background()

	l.Deliver(ctx, Event{Type: JobCreated, JobID: "a"})
	l.Deliver(ctx, Event{Type: JobCompleted, JobID: "b"})
	l.Deliver(ctx, Event{Type: JobCreated, JobID: "c"})
	l.Deliver(ctx, Event{Type: "order:updated"})
	assert.Equal(t, 3, l.Pending())

	var got []string
	l.On(JobCreated, func(_ context.Context, ev Event) { got = append(got, ev.JobID) })
	assert.Equal(t, []string{"a", "c"}, got)
	assert.Equal(t, 1, l.Pending())

	l.Deliver(ctx, Event{Type: JobCreated, JobID: "d"})
	assert.Equal(t, []string{"a", "c", "d"}, got)
	assert.InDelta(t, 3, testutil.ToFloat64(m.PushEvents.WithLabelValues(JobCreated)), 0)
}

func TestListener_PendingIsBounded(t *testing.T) {
	l := NewListener(Config{URL: "ws://unused", MaxPending: 2}, nil, nil)
	for _, id := range []string{"1", "2", "3"} {
		l.Deliver(context.Background(), Event{Type: JobFailed, JobID: id})
	}
	var got []string
	l.On(JobFailed, func(_ context.Context, ev Event) { got = append(got, ev.JobID) })
	assert.Equal(t, []string{"2", "3"}, got)
}

func TestListener_FlushPrecedesNewerEvents(t *testing.T) {
	l := NewListener(Config{URL: "ws://unused"}, nil, nil)
	ctx := context.Background()
	l.Deliver(ctx, Event{Type: JobCreated, JobID: "old-1"})
	l.Deliver(ctx, Event{Type: JobCreated, JobID: "old-2"})

	var (
		mu  sync.Mutex
		got []string
	)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	handler := func(_ context.Context, ev Event) {
		once.Do(func() {
			close(entered)
			<-release
		})
		mu.Lock()
		got = append(got, ev.JobID)
		mu.Unlock()
	}

	registered := make(chan struct{})
	go func() {
		l.On(JobCreated, handler)
		close(registered)
	}()
	<-entered

	delivered := make(chan struct{})
	go func() {
		l.Deliver(ctx, Event{Type: JobCreated, JobID: "new"})
		close(delivered)
	}()

	select {
	case <-delivered:
		t.Fatal("newer event delivered while the queue was still flushing")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-registered
	<-delivered

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"old-1", "old-2", "new"}, got)
}

func TestListener_RunRequiresURL(t *testing.T) {
	err := NewListener(Config{}, nil, nil).Run(context.Background())
	assert.Error(t, err)
}

// pushServer sends frames to each connection, then closes it.
func pushServer(t *testing.T, frames []string, pong chan<- struct{}) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		conns.Add(1)
		ctx := r.Context()
		for _, f := range frames {
			if err := conn.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
				return
			}
		}
		if pong != nil {
			var f frame
			if err := wsjson.Read(ctx, conn, &f); err == nil && f.Type == "pong" {
				select {
				case pong <- struct{}{}:
				default:
				}
			}
		}
		_ = conn.Close(websocket.StatusNormalClosure, "done")
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func TestListener_RunDeliversAndReconnects(t *testing.T) {
	srv, conns := pushServer(t, []string{
		`{"type":"printJob:created","data":{"id":"j1","order":{"reference":"ORD-1"}}}`,
		`{"type":"printJob:failed","data":{"id":"j1","error":"jam"}}`,
		`not json at all`,
	}, nil)

	l := NewListener(Config{
		URL:        "ws" + strings.TrimPrefix(srv.URL, "http"),
		APIKey:     "key",
		MinBackoff: 5 * time.Millisecond,
		MaxBackoff: 10 * time.Millisecond,
	}, nil, nil)

	var (
		mu      sync.Mutex
		created []Event
		failed  []Event
	)
	l.On(JobCreated, func(_ context.Context, ev Event) {
		mu.Lock()
		defer mu.Unlock()
		created = append(created, ev)
	})
	l.On(JobFailed, func(_ context.Context, ev Event) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, ev)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return conns.Load() >= 2 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, created)
	assert.Equal(t, "j1", created[0].JobID)
	assert.Equal(t, "ORD-1", created[0].Order.Reference)
	require.NotEmpty(t, failed)
	assert.Equal(t, "jam", failed[0].Error)
}

func TestListener_AnswersPing(t *testing.T) {
	pong := make(chan struct{}, 1)
	srv, _ := pushServer(t, []string{`{"type":"ping"}`}, pong)

	l := NewListener(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), APIKey: "key"}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	select {
	case <-pong:
	case <-time.After(5 * time.Second):
		t.Fatal("no pong received")
	}
}
