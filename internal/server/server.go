// Package server maneja las conexiones WebSocket y el encolamiento de trabajos.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/adcondev/ticket-bridge/internal/dispatch"
	"github.com/adcondev/ticket-bridge/internal/metrics"
	"github.com/adcondev/ticket-bridge/internal/printer"
	"github.com/adcondev/ticket-bridge/internal/printjobs"
	"github.com/adcondev/ticket-bridge/internal/receipt"
)

// Job kinds.
const (
	KindReceipt     = "print"
	KindReservation = "print_reservation"
)

// PrinterControl is the link side of the API: the printer.Manager.
type PrinterControl interface {
	Scan(ctx context.Context, forceRefresh bool) ([]printer.Device, error)
	ConnectTo(ctx context.Context, target string) (*printer.PrinterLink, error)
	Disconnect() error
	Status() printer.Summary
}

// JobsAPI is the backend print queue: the printjobs.Client.
type JobsAPI interface {
	List(ctx context.Context, f printjobs.Filter) ([]printjobs.Job, error)
	Stats(ctx context.Context) (printjobs.Stats, error)
	Retry(ctx context.Context, id string) (printjobs.Job, error)
	Cancel(ctx context.Context, id string) (printjobs.Job, error)
}

// RawSender writes prebuilt ESC/POS bytes, used for logo uploads.
type RawSender interface {
	SendRaw(ctx context.Context, buf []byte) error
}

// Config holds server configuration
type Config struct {
	QueueSize      int
	AllowedOrigins []string
	JobsPerMinute  int
}

// Deps are the collaborators the handlers call. Jobs may be nil when no
// backend is configured.
type Deps struct {
	Printer PrinterControl
	Jobs    JobsAPI
	Raw     RawSender
	Config  dispatch.ConfigSource
	Metrics *metrics.Collectors
	Logger  *zap.Logger
}

// PrintJob represents a queued print request
type PrintJob struct {
	ID          string               `json:"id"`
	Kind        string               `json:"kind"`
	ClientConn  *websocket.Conn      `json:"-"`
	Order       *receipt.Order       `json:"order,omitempty"`
	Reservation *receipt.Reservation `json:"reservation,omitempty"`
	ReceivedAt  time.Time            `json:"received_at"`
}

// Message represents incoming WebSocket message
type Message struct {
	Tipo  string          `json:"tipo"`
	ID    string          `json:"id,omitempty"`
	Datos json.RawMessage `json:"datos,omitempty"`
}

// Response represents outgoing WebSocket message
type Response struct {
	Tipo     string `json:"tipo"`
	ID       string `json:"id,omitempty"`
	Status   string `json:"status,omitempty"`
	Mensaje  string `json:"mensaje,omitempty"`
	Current  int    `json:"current,omitempty"`
	Capacity int    `json:"capacity,omitempty"`
	Datos    any    `json:"datos,omitempty"`
}

// Server manages WebSocket connections and job queue
type Server struct {
	clients      *ClientRegistry
	jobQueue     chan *PrintJob
	queueSize    int
	shutdownOnce sync.Once
	shutdownChan chan struct{}

	allowedOrigins []string
	limiter        *JobRateLimiter
	validate       *validator.Validate
	deps           Deps
	log            *zap.Logger
}

// NewServer creates a new WebSocket server
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.JobsPerMinute <= 0 {
		cfg.JobsPerMinute = 60
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Server{
		clients:        NewClientRegistry(),
		jobQueue:       make(chan *PrintJob, cfg.QueueSize),
		queueSize:      cfg.QueueSize,
		shutdownChan:   make(chan struct{}),
		allowedOrigins: cfg.AllowedOrigins,
		limiter:        NewJobRateLimiter(cfg.JobsPerMinute),
		validate:       validator.New(),
		deps:           deps,
		log:            deps.Logger.Named("ws"),
	}
}

// QueueStatus returns current and max queue size
func (s *Server) QueueStatus() (current, capacity int) {
	return len(s.jobQueue), cap(s.jobQueue)
}

// JobQueue returns the job queue channel (for worker consumption)
func (s *Server) JobQueue() <-chan *PrintJob {
	return s.jobQueue
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	return s.clients.Count()
}

func (s *Server) acceptOptions() *websocket.AcceptOptions {
	for _, o := range s.allowedOrigins {
		if o == "*" {
			return &websocket.AcceptOptions{InsecureSkipVerify: true}
		}
	}
	// empty list: same-origin only
	return &websocket.AcceptOptions{OriginPatterns: s.allowedOrigins}
}

// HandleWebSocket handles WebSocket connections
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, s.acceptOptions())
	if err != nil {
		s.log.Warn("error accepting client", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	// Register client
	s.clients.Add(conn, r.RemoteAddr)
	s.log.Debug("client connected", zap.Int("total", s.clients.Count()), zap.String("remote", r.RemoteAddr))

	// Send welcome message
	ctx := r.Context()
	welcome := Response{
		Tipo:    "info",
		Status:  "connected",
		Mensaje: "Servidor respondiendo desde Ticket Bridge",
		Datos:   s.deps.Printer.Status(),
	}
	_ = wsjson.Write(ctx, conn, welcome)

	// Handle messages
	s.handleMessages(ctx, conn, clientKey(r.RemoteAddr))

	// Cleanup on disconnect
	s.clients.Remove(conn)
	_ = conn.Close(websocket.StatusNormalClosure, "disconnected")
	s.log.Debug("client disconnected", zap.Int("remaining", s.clients.Count()))
}

// handleMessages processes incoming messages from a client
func (s *Server) handleMessages(ctx context.Context, conn *websocket.Conn, client string) {
	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}

		var msg Message
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			// Normal closure or context cancelled
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway ||
				ctx.Err() != nil {
				return
			}
			s.log.Warn("error reading message", zap.Error(err))
			return
		}

		s.routeMessage(ctx, conn, client, &msg)
	}
}

// routeMessage routes message to appropriate handler
func (s *Server) routeMessage(ctx context.Context, conn *websocket.Conn, client string, msg *Message) {
	switch msg.Tipo {
	case KindReceipt, KindReservation:
		s.handlePrint(ctx, conn, client, msg)
	case "logo":
		s.handleLogo(ctx, conn, msg)
	case "connect":
		s.handleConnect(ctx, conn, msg)
	case "disconnect":
		s.handleDisconnect(ctx, conn, msg)
	case "scan":
		s.handleScan(ctx, conn, msg)
	case "printer_status":
		s.reply(ctx, conn, Response{Tipo: "printer_status", ID: msg.ID, Status: "ok", Datos: s.deps.Printer.Status()})
	case "jobs":
		s.handleJobs(ctx, conn, msg)
	case "job_stats":
		s.handleJobStats(ctx, conn, msg)
	case "job_retry", "job_cancel":
		s.handleJobAction(ctx, conn, msg)
	case "status":
		s.handleStatus(ctx, conn)
	case "ping":
		s.handlePing(ctx, conn, msg)
	default:
		s.log.Warn("unknown message type", zap.String("tipo", msg.Tipo))
		s.sendError(ctx, conn, msg.ID, "Unknown message type: "+msg.Tipo)
	}
}

// handleStatus sends queue status
func (s *Server) handleStatus(ctx context.Context, conn *websocket.Conn) {
	current, capacity := s.QueueStatus()

	response := Response{
		Tipo:     "status",
		Status:   "ok",
		Current:  current,
		Capacity: capacity,
		Mensaje:  formatStatus(current, capacity),
		Datos:    s.deps.Printer.Status(),
	}
	_ = wsjson.Write(ctx, conn, response)
}

// handlePing responds to ping
func (s *Server) handlePing(ctx context.Context, conn *websocket.Conn, msg *Message) {
	response := Response{
		Tipo:   "pong",
		ID:     msg.ID,
		Status: "ok",
	}
	_ = wsjson.Write(ctx, conn, response)
}

func (s *Server) reply(ctx context.Context, conn *websocket.Conn, response Response) {
	_ = wsjson.Write(ctx, conn, response)
}

// sendError sends error response to client
func (s *Server) sendError(ctx context.Context, conn *websocket.Conn, id, mensaje string) {
	response := Response{
		Tipo:    "error",
		ID:      id,
		Status:  "error",
		Mensaje: mensaje,
	}
	_ = wsjson.Write(ctx, conn, response)
}

// NotifyClient sends a result back to a specific client
func (s *Server) NotifyClient(conn *websocket.Conn, response Response) error {
	if conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return wsjson.Write(ctx, conn, response)
}

// Broadcast sends response to every connected client without blocking the caller.
func (s *Server) Broadcast(response Response) {
	s.clients.ForEach(func(conn *websocket.Conn) {
		go func() {
			if err := s.NotifyClient(conn, response); err != nil {
				s.log.Debug("broadcast failed", zap.String("tipo", response.Tipo), zap.Error(err))
			}
		}()
	})
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)

		s.log.Info("shutting down, disconnecting clients", zap.Int("clients", s.clients.Count()))

		// Notify all clients
		s.clients.ForEach(func(conn *websocket.Conn) {
			_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		})
	})
}

func formatStatus(current, capacity int) string {
	return "Queue: " + strconv.Itoa(current) + "/" + strconv.Itoa(capacity)
}

// clientKey strips the port so reconnects share a rate budget.
func clientKey(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
