package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/judwhite/go-svc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/adcondev/ticket-bridge/internal/config"
	"github.com/adcondev/ticket-bridge/internal/dispatch"
	"github.com/adcondev/ticket-bridge/internal/metrics"
	"github.com/adcondev/ticket-bridge/internal/printer"
	"github.com/adcondev/ticket-bridge/internal/printjobs"
	"github.com/adcondev/ticket-bridge/internal/push"
	"github.com/adcondev/ticket-bridge/internal/receipt"
	"github.com/adcondev/ticket-bridge/internal/server"
	"github.com/adcondev/ticket-bridge/internal/worker"
)

// ConfigFileEnv names an explicit config file, overriding the search.
const ConfigFileEnv = "TB_CONFIG"

// GetEnvConfig returns the current environment configuration
func GetEnvConfig() config.Environment {
	return config.GetEnvironment(config.BuildEnvironment)
}

// Program implements svc.Service interface
type Program struct {
	wg     sync.WaitGroup
	quit   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	env config.Environment
	cfg *config.Config
	log *Logger

	registry   *prometheus.Registry
	metrics    *metrics.Collectors
	printer    *printer.Manager
	jobs       *printjobs.Client
	dispatcher *dispatch.Dispatcher
	listener   *push.Listener

	httpServer  *http.Server
	wsServer    *server.Server
	printWorker *worker.Worker
	startTime   time.Time
}

// Init loads configuration and logging
func (p *Program) Init(_ svc.Environment) error {
	p.env = GetEnvConfig()
	dataDir := programDataDir()

	cfg, err := config.Load(p.env, os.Getenv(ConfigFileEnv), filepath.Join(dataDir, p.env.ServiceName))
	if err != nil {
		return err
	}
	if cfg.Log.Output == "file" {
		cfg.Log.Output = p.env.LogPath(dataDir)
	}
	if cfg.Link.HintFile == "" {
		cfg.Link.HintFile = p.env.HintPath(dataDir)
	}
	p.cfg = cfg

	if p.log, err = NewLogger(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	p.log.Info("starting Ticket Bridge",
		zap.String("environment", p.env.Name),
		zap.String("build", config.BuildDate+" "+config.BuildTime),
		zap.String("config_file", cfg.File()),
		zap.String("transport", cfg.Link.Transport))
	return nil
}

// Start wires the components and starts serving
func (p *Program) Start() error {
	p.quit = make(chan struct{})
	p.startTime = time.Now()
	p.ctx, p.cancel = context.WithCancel(context.Background())

	if err := p.wire(newAdapter(p.cfg.Link, p.log.Logger)); err != nil {
		p.cancel()
		return err
	}
	p.printWorker.Start()

	p.httpServer = &http.Server{
		Addr:         p.cfg.Server.ListenAddr,
		Handler:      p.routes(),
		ReadTimeout:  p.cfg.Server.ReadTimeout,
		WriteTimeout: p.cfg.Server.WriteTimeout,
		IdleTimeout:  p.cfg.Server.IdleTimeout,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.log.Info("ticket bridge ready",
			zap.String("websocket", "ws://"+p.cfg.Server.ListenAddr+"/ws"),
			zap.String("health", "http://"+p.cfg.Server.ListenAddr+"/health"),
			zap.Bool("backend", p.jobs != nil),
			zap.Bool("push", p.listener != nil))

		if err := p.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	if p.listener != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := p.listener.Run(p.ctx); err != nil {
				p.log.Error("push listener stopped", zap.Error(err))
			}
		}()
	}

	if p.cfg.Link.ReconnectOnStart {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if ok, err := p.printer.ResumeFromHint(p.ctx); err != nil {
				p.log.Warn("could not restore previous printer link", zap.Error(err))
			} else if ok {
				p.log.Info("printer link restored", zap.String("device", p.printer.Status().DeviceName))
			}
		}()
	}

	p.cfg.Store.OnChange(func(rc receipt.Config) {
		p.log.Info("receipt settings reloaded",
			zap.String("paper", string(rc.Printer.PaperSize)),
			zap.Bool("auto_print", rc.Store.AutoPrintEnabled()))
	})
	if p.cfg.Store.Watch() {
		p.log.Debug("watching config file", zap.String("file", p.cfg.File()))
	}
	return nil
}

// wire builds every component on top of adapter.
func (p *Program) wire(adapter printer.Adapter) error {
	log := p.log.Logger
	cfg := p.cfg

	p.registry = prometheus.NewRegistry()
	p.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	p.metrics = metrics.New(p.registry)

	filter := printer.DefaultFilter()
	if len(cfg.Link.NamePrefixes) > 0 {
		filter.NamePrefixes = cfg.Link.NamePrefixes
	}
	p.printer = printer.NewManager(adapter, printer.Options{
		Filter:         filter,
		ConnectTimeout: cfg.Link.ConnectTimeout,
		ChunkSize:      cfg.Link.ChunkSize,
		ChunkDelay:     cfg.Link.ChunkDelay,
		WriteTimeout:   cfg.Link.WriteTimeout,
		DiscoveryTTL:   cfg.Link.DiscoveryTTL,
		ScanWindow:     cfg.Link.ScanWindow,
		Hints:          printer.NewHintStore(cfg.Link.HintFile),
		Metrics:        p.metrics,
		Logger:         log,
		Target:         cfg.Link.Target,
	})

	// Interfaces stay nil, not typed-nil, when the backend is off.
	var (
		creator dispatch.JobCreator
		jobsAPI server.JobsAPI
	)
	if cfg.Backend.BaseURL != "" {
		client, err := printjobs.New(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout,
			printjobs.WithLogger(log))
		if err != nil {
			return err
		}
		p.jobs = client
		creator, jobsAPI = client, client
	}

	p.dispatcher = dispatch.New(p.printer, creator, cfg.Store, p.metrics, log)

	p.wsServer = server.NewServer(server.Config{
		QueueSize:      cfg.Server.QueueCapacity,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		JobsPerMinute:  cfg.Server.JobsPerMinute,
	}, server.Deps{
		Printer: p.printer,
		Jobs:    jobsAPI,
		Raw:     p.dispatcher,
		Config:  cfg.Store,
		Metrics: p.metrics,
		Logger:  log,
	})

	p.printWorker = worker.NewWorker(p.wsServer.JobQueue(), p.dispatcher, p.wsServer,
		worker.Config{}, p.metrics, log)

	if cfg.Push.URL != "" {
		p.listener = push.NewListener(push.Config{
			URL:        cfg.Push.URL,
			APIKey:     cfg.Backend.APIKey,
			MinBackoff: cfg.Push.MinBackoff,
			MaxBackoff: cfg.Push.MaxBackoff,
		}, log, p.metrics)
		p.dispatcher.Subscribe(p.listener, p.wsServer.BroadcastJobEvent)
	}
	return nil
}

func (p *Program) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", p.wsServer.HandleWebSocket)
	mux.HandleFunc("/health", p.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	return mux
}

func (p *Program) handleHealth(w http.ResponseWriter, _ *http.Request) {
	current, capacity := p.wsServer.QueueStatus()
	stats := p.printWorker.Stats()

	var utilization float64
	if capacity > 0 {
		utilization = float64(current) / float64(capacity) * 100
	}

	response := HealthResponse{
		Status: "ok",
		Queue: QueueStatus{
			Current:     current,
			Capacity:    capacity,
			Utilization: utilization,
		},
		Worker: WorkerStatus{
			Running:       stats.IsRunning,
			JobsProcessed: stats.JobsProcessed,
			JobsQueued:    stats.JobsQueued,
			JobsFailed:    stats.JobsFailed,
		},
		Printer: p.printer.Status(),
		Backend: BackendStatus{Enabled: p.jobs != nil},
		Build: BuildInfo{
			Env:  config.BuildEnvironment,
			Date: config.BuildDate,
			Time: config.BuildTime,
		},
		Uptime: int(time.Since(p.startTime).Seconds()),
	}
	if p.listener != nil {
		response.Push = PushStatus{
			Enabled:   true,
			Connected: p.listener.Connected(),
			Pending:   p.listener.Pending(),
		}
	}

	// Nothing can print: no link and nowhere to queue.
	if response.Printer.Status != "ok" && !response.Backend.Enabled {
		response.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_ = json.NewEncoder(w).Encode(response)
}

// Stop stops the service gracefully
func (p *Program) Stop() error {
	p.log.Info("service shutting down")

	// 1. Cancel context (push listener, reconnect attempts)
	p.cancel()

	// 2. Stop print worker
	if p.printWorker != nil {
		p.printWorker.Stop()
	}

	// 3. Graceful HTTP shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if p.httpServer != nil {
		if err := p.httpServer.Shutdown(ctx); err != nil {
			p.log.Warn("HTTP shutdown error", zap.Error(err))
		}
	}

	// 4. Shutdown WebSocket server
	if p.wsServer != nil {
		p.wsServer.Shutdown()
	}

	// 5. Release the printer; the hint keeps the link for next start
	if p.printer != nil {
		if err := p.printer.Close(); err != nil {
			p.log.Debug("printer close on stop", zap.Error(err))
		}
	}

	close(p.quit)
	p.wg.Wait()

	p.log.Info("service stopped", zap.Duration("uptime", time.Since(p.startTime).Round(time.Second)))
	return p.log.Close()
}

// newAdapter picks the configured transport. BLE falls back to serial where
// the platform has no HCI stack.
func newAdapter(cfg config.LinkConfig, log *zap.Logger) printer.Adapter {
	if cfg.Transport == "ble" {
		a, err := printer.NewBLEAdapter(log)
		if err == nil {
			return a
		}
		log.Warn("BLE unavailable, using serial transport", zap.Error(err))
	}
	return printer.NewSerialAdapter(cfg.SerialPort, cfg.BaudRate, log)
}

// programDataDir is %PROGRAMDATA% on Windows and the user config dir elsewhere.
func programDataDir() string {
	if d := os.Getenv("PROGRAMDATA"); d != "" {
		return d
	}
	if d, err := os.UserConfigDir(); err == nil {
		return d
	}
	return os.TempDir()
}
