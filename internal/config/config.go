// Package config defines environment-specific settings for the Ticket Bridge.
package config

import (
	"log"
	"path/filepath"
	"strings"
	"time"
)

// Build variables, injected at compile time
var (
	BuildEnvironment = "local"
	BuildDate        = "unknown"
	BuildTime        = "unknown"
	// ServiceName is used for logging and as part of the log file path.
	ServiceName = "TicketBridge_Unknown"
	// ServerPort is the default port for the service, can be overridden by environment config.
	ServerPort = "8766"
	// AllowedOrigins is a comma-separated list of allowed origins injected via ldflags.
	// Example: "https://pos.example.com,http://localhost:*"
	AllowedOrigins = ""
)

// Environment holds environment-specific settings
type Environment struct {
	// Identificación
	Name        string
	ServiceName string

	// Red
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Cola
	QueueCapacity int
	JobsPerMinute int

	// Logging
	Verbose bool

	// Impresora: nombre o dirección preferida, vacío = primera compatible
	DefaultPrinter string
	// Transport is "ble" on Linux hosts and "serial" where only a paired
	// RFCOMM/COM port is available.
	Transport string

	// Security
	AllowedOrigins []string
}

// LogPath returns the full log file path for this environment.
// Uses the convention: <programData>/<ServiceName>/<ServiceName>.log
func (e Environment) LogPath(programData string) string {
	return filepath.Join(programData, e.ServiceName, e.ServiceName+".log")
}

// HintPath is where the last printer link is remembered.
func (e Environment) HintPath(programData string) string {
	return filepath.Join(programData, e.ServiceName, "printer-link.json")
}

// environments defines available deployment configurations
var environments = map[string]Environment{
	"remote": {
		Name:           "REMOTO",
		ServiceName:    ServiceName,
		ListenAddr:     "0.0.0.0:" + ServerPort,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		QueueCapacity:  50,
		JobsPerMinute:  30,
		Verbose:        false,
		DefaultPrinter: "",
		Transport:      "ble",
		// By default, restrict to localhost and file (Electron) for security
		AllowedOrigins: []string{"http://localhost:*", "https://localhost:*", "file://*"},
	},
	"local": {
		Name:           "LOCAL",
		ServiceName:    ServiceName,
		ListenAddr:     "localhost:" + ServerPort,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		QueueCapacity:  50,
		JobsPerMinute:  120,
		Verbose:        true,
		DefaultPrinter: "POS-58",
		Transport:      "ble",
		// Allow all in local dev mode for convenience, but can be overridden
		AllowedOrigins: []string{"*"},
	},
	"kiosk": {
		Name:           "KIOSCO",
		ServiceName:    ServiceName,
		ListenAddr:     "127.0.0.1:" + ServerPort,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		QueueCapacity:  20,
		JobsPerMinute:  60,
		Verbose:        false,
		DefaultPrinter: "",
		Transport:      "serial",
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*", "file://*"},
	},
}

// GetEnvironment returns config for the specified environment.
func GetEnvironment(env string) Environment {
	cfg, ok := environments[env]
	if !ok {
		log.Printf("[!] Unknown environment '%s', defaulting to 'local'", env)
		cfg = environments["local"]
	}

	// Override allowed origins from ldflags if provided
	if AllowedOrigins != "" {
		cfg.AllowedOrigins = strings.Split(AllowedOrigins, ",")
	}

	return cfg
}
