package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adcondev/ticket-bridge/internal/dispatch"
	"github.com/adcondev/ticket-bridge/internal/escpos"
	"github.com/adcondev/ticket-bridge/internal/printer"
	"github.com/adcondev/ticket-bridge/internal/printjobs"
	"github.com/adcondev/ticket-bridge/internal/profile"
	"github.com/adcondev/ticket-bridge/internal/push"
	"github.com/adcondev/ticket-bridge/internal/receipt"
	workererrors "github.com/adcondev/ticket-bridge/internal/worker/errors"
)

// ErrNoBackend is reported for job requests when no backend is configured.
var ErrNoBackend = dispatch.ErrNoBackend

type connectRequest struct {
	Target string `json:"target"`
}

type scanRequest struct {
	Refresh bool `json:"refresh"`
}

type jobActionRequest struct {
	JobID string `json:"job_id" validate:"required"`
}

type logoRequest struct {
	Path string  `json:"path" validate:"required_without=Text"`
	Text string  `json:"text" validate:"required_without=Path,max=32"`
	Size float64 `json:"size" validate:"gte=0,lte=200"`
}

// handlePrint validates a receipt or reservation and queues it for the worker.
func (s *Server) handlePrint(ctx context.Context, conn *websocket.Conn, client string, msg *Message) {
	// Generate ID if not provided
	jobID := msg.ID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	if !s.limiter.Allow(client) {
		s.log.Warn("job rejected: rate limit", zap.String("job", jobID), zap.String("client", client))
		s.deps.Metrics.ObserveLocalJob("rate_limited")
		s.sendError(ctx, conn, jobID, "RATE: Too many print requests, slow down")
		return
	}

	// Validate document exists
	if len(msg.Datos) == 0 {
		s.log.Warn("job rejected: missing datos", zap.String("job", jobID))
		s.sendError(ctx, conn, jobID, fmt.Sprintf("Field 'datos' is required for type '%s'", msg.Tipo))
		return
	}

	job := &PrintJob{
		ID:         jobID,
		Kind:       msg.Tipo,
		ClientConn: conn,
		ReceivedAt: time.Now(),
	}
	var doc any
	if msg.Tipo == KindReservation {
		job.Reservation = &receipt.Reservation{}
		doc = job.Reservation
	} else {
		job.Order = &receipt.Order{}
		doc = job.Order
	}
	if err := json.Unmarshal(msg.Datos, doc); err != nil {
		s.sendError(ctx, conn, jobID, workererrors.ExtractUserFriendlyError(fmt.Errorf("error parseando documento: %w", err)))
		return
	}
	if err := s.validate.Struct(doc); err != nil {
		s.deps.Metrics.ObserveLocalJob("invalid")
		s.sendError(ctx, conn, jobID, workererrors.ExtractUserFriendlyError(err))
		return
	}

	// Try to enqueue (non-blocking)
	select {
	case s.jobQueue <- job:
		current, capacity := s.QueueStatus()
		s.log.Debug("job queued", zap.String("job", jobID), zap.String("kind", job.Kind),
			zap.Int("current", current), zap.Int("capacity", capacity))

		s.reply(ctx, conn, Response{
			Tipo:     "ack",
			ID:       jobID,
			Status:   "queued",
			Current:  current,
			Capacity: capacity,
			Mensaje:  "Job queued for printing",
		})

	default:
		// Queue full
		current, capacity := s.QueueStatus()
		s.log.Warn("queue full, rejecting job", zap.String("job", jobID),
			zap.Int("current", current), zap.Int("capacity", capacity))
		s.deps.Metrics.ObserveLocalJob("queue_full")
		s.sendError(ctx, conn, jobID, "QUEUE: Queue full, please retry in a few seconds")
	}
}

func (s *Server) handleConnect(ctx context.Context, conn *websocket.Conn, msg *Message) {
	var req connectRequest
	if !s.decode(ctx, conn, msg, &req) {
		return
	}
	link, err := s.deps.Printer.ConnectTo(ctx, strings.TrimSpace(req.Target))
	if err != nil {
		s.sendError(ctx, conn, msg.ID, workererrors.ExtractUserFriendlyError(err))
		return
	}
	s.reply(ctx, conn, Response{
		Tipo:    "connect",
		ID:      msg.ID,
		Status:  "ok",
		Mensaje: "Connected to " + link.Device.Label(),
		Datos:   s.deps.Printer.Status(),
	})
}

func (s *Server) handleDisconnect(ctx context.Context, conn *websocket.Conn, msg *Message) {
	if err := s.deps.Printer.Disconnect(); err != nil {
		s.log.Warn("disconnect reported an error", zap.Error(err))
	}
	s.reply(ctx, conn, Response{Tipo: "disconnect", ID: msg.ID, Status: "ok", Datos: s.deps.Printer.Status()})
}

// handleScan handles printer enumeration requests
func (s *Server) handleScan(ctx context.Context, conn *websocket.Conn, msg *Message) {
	var req scanRequest
	if !s.decode(ctx, conn, msg, &req) {
		return
	}
	devices, err := s.deps.Printer.Scan(ctx, req.Refresh)
	if err != nil && len(devices) == 0 {
		s.sendError(ctx, conn, msg.ID, "Failed to enumerate printers: "+err.Error())
		return
	}

	response := struct {
		Tipo     string              `json:"tipo"`
		ID       string              `json:"id,omitempty"`
		Status   string              `json:"status"`
		Printers []printer.DeviceDTO `json:"printers"`
		Summary  printer.Summary     `json:"summary"`
	}{
		Tipo:     "printers",
		ID:       msg.ID,
		Status:   "ok",
		Printers: printer.ToDTOs(devices),
		Summary:  s.deps.Printer.Status(),
	}
	if err != nil {
		response.Status = "stale"
	}
	_ = wsjson.Write(ctx, conn, response)
}

func (s *Server) handleJobs(ctx context.Context, conn *websocket.Conn, msg *Message) {
	if s.deps.Jobs == nil {
		s.sendError(ctx, conn, msg.ID, workererrors.ExtractUserFriendlyError(ErrNoBackend))
		return
	}
	var f printjobs.Filter
	if !s.decode(ctx, conn, msg, &f) {
		return
	}
	jobs, err := s.deps.Jobs.List(ctx, f)
	if err != nil {
		s.sendError(ctx, conn, msg.ID, workererrors.ExtractUserFriendlyError(err))
		return
	}
	s.reply(ctx, conn, Response{Tipo: "jobs", ID: msg.ID, Status: "ok", Datos: jobs})
}

func (s *Server) handleJobStats(ctx context.Context, conn *websocket.Conn, msg *Message) {
	if s.deps.Jobs == nil {
		s.sendError(ctx, conn, msg.ID, workererrors.ExtractUserFriendlyError(ErrNoBackend))
		return
	}
	stats, err := s.deps.Jobs.Stats(ctx)
	if err != nil {
		s.sendError(ctx, conn, msg.ID, workererrors.ExtractUserFriendlyError(err))
		return
	}
	s.reply(ctx, conn, Response{Tipo: "job_stats", ID: msg.ID, Status: "ok", Datos: stats})
}

func (s *Server) handleJobAction(ctx context.Context, conn *websocket.Conn, msg *Message) {
	if s.deps.Jobs == nil {
		s.sendError(ctx, conn, msg.ID, workererrors.ExtractUserFriendlyError(ErrNoBackend))
		return
	}
	var req jobActionRequest
	if !s.decode(ctx, conn, msg, &req) {
		return
	}

	var (
		job printjobs.Job
		err error
	)
	if msg.Tipo == "job_retry" {
		job, err = s.deps.Jobs.Retry(ctx, req.JobID)
	} else {
		job, err = s.deps.Jobs.Cancel(ctx, req.JobID)
	}
	if err != nil {
		s.sendError(ctx, conn, msg.ID, workererrors.ExtractUserFriendlyError(err))
		return
	}
	s.reply(ctx, conn, Response{Tipo: msg.Tipo, ID: msg.ID, Status: "ok", Datos: job})
}

// handleLogo stores a logo in the printer's NV memory from an image file or
// rendered text.
func (s *Server) handleLogo(ctx context.Context, conn *websocket.Conn, msg *Message) {
	var req logoRequest
	if !s.decode(ctx, conn, msg, &req) {
		return
	}
	paper := profile.For(s.deps.Config.ReceiptConfig().Printer)

	var (
		logo escpos.Logo
		err  error
	)
	if req.Path != "" {
		logo, err = escpos.LoadLogo(req.Path, paper)
	} else {
		img, rerr := escpos.RenderTextLogo(req.Text, paper, req.Size)
		if rerr != nil {
			err = rerr
		} else {
			logo, err = escpos.NewLogo(img, paper)
		}
	}
	if err != nil {
		s.sendError(ctx, conn, msg.ID, "IMAGE: "+err.Error())
		return
	}

	if err := s.deps.Raw.SendRaw(ctx, logo.StoreCommand()); err != nil {
		s.sendError(ctx, conn, msg.ID, workererrors.ExtractUserFriendlyError(err))
		return
	}
	s.reply(ctx, conn, Response{
		Tipo:    "logo",
		ID:      msg.ID,
		Status:  "ok",
		Mensaje: fmt.Sprintf("Logo stored (%dx%d dots)", logo.Width, logo.Height),
	})
}

// BroadcastJobEvent forwards a backend job event to local clients.
func (s *Server) BroadcastJobEvent(ev push.Event) {
	s.Broadcast(Response{
		Tipo:    "job_event",
		ID:      ev.JobID,
		Status:  ev.Type,
		Mensaje: ev.Error,
	})
}

// decode unmarshals optional datos into v and validates it. It replies with
// an error and returns false when the payload is unusable.
func (s *Server) decode(ctx context.Context, conn *websocket.Conn, msg *Message, v any) bool {
	if len(msg.Datos) > 0 {
		if err := json.Unmarshal(msg.Datos, v); err != nil {
			s.sendError(ctx, conn, msg.ID, "JSON: Invalid 'datos' for type '"+msg.Tipo+"'")
			return false
		}
	}
	if err := s.validate.Struct(v); err != nil {
		s.sendError(ctx, conn, msg.ID, workererrors.ExtractUserFriendlyError(err))
		return false
	}
	return true
}
