package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/adcondev/ticket-bridge/internal/printer"
	"github.com/adcondev/ticket-bridge/internal/printjobs"
	"github.com/adcondev/ticket-bridge/internal/profile"
	"github.com/adcondev/ticket-bridge/internal/push"
)

// EnvPrefix prefixes environment overrides, e.g. TB_BACKEND_API_KEY.
const EnvPrefix = "TB"

// FileName is the config file name searched without extension.
const FileName = "ticket-bridge"

// Config is the full runtime configuration.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Link    LinkConfig
	Backend BackendConfig
	Push    PushConfig

	// Store serves receipt settings that may change while running.
	Store *StoreProvider

	v *viper.Viper
}

// ServerConfig is the local WebSocket API.
type ServerConfig struct {
	ListenAddr     string        `validate:"required"`
	ReadTimeout    time.Duration `validate:"gt=0"`
	WriteTimeout   time.Duration `validate:"gt=0"`
	IdleTimeout    time.Duration `validate:"gt=0"`
	QueueCapacity  int           `validate:"gt=0"`
	JobsPerMinute  int           `validate:"gt=0"`
	AllowedOrigins []string
}

// LogConfig selects the logger.
type LogConfig struct {
	Level        string `validate:"oneof=debug info warn error"`
	Format       string `validate:"oneof=json console"`
	Output       string // stdout, stderr, or file path
	MaxSizeBytes int64  `validate:"gte=0"`
}

// LinkConfig tunes the printer link.
type LinkConfig struct {
	Transport        string `validate:"oneof=ble serial"`
	Target           string
	SerialPort       string
	BaudRate         int `validate:"gte=0"`
	NamePrefixes     []string
	ConnectTimeout   time.Duration `validate:"gt=0"`
	WriteTimeout     time.Duration `validate:"gt=0"`
	ChunkSize        int           `validate:"gt=0,lte=512"`
	ChunkDelay       time.Duration `validate:"gte=0"`
	DiscoveryTTL     time.Duration `validate:"gt=0"`
	ScanWindow       time.Duration `validate:"gt=0"`
	HintFile         string
	ReconnectOnStart bool
}

// BackendConfig locates the print-job REST API. An empty BaseURL disables
// the backend fallback.
type BackendConfig struct {
	BaseURL string `validate:"omitempty,url"`
	APIKey  string
	Timeout time.Duration `validate:"gt=0"`
}

// PushConfig locates the push channel. An empty URL disables auto-print.
type PushConfig struct {
	URL        string        `validate:"omitempty,url"`
	MinBackoff time.Duration `validate:"gt=0"`
	MaxBackoff time.Duration `validate:"gtefield=MinBackoff"`
}

// Load layers defaults from env, an optional config file and TB_ environment
// variables. configFile may be empty to search the working directory and
// searchDirs for ticket-bridge.{toml,yaml,json}.
func Load(env Environment, configFile string, searchDirs ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v, env)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		for _, d := range searchDirs {
			v.AddConfigPath(d)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			ListenAddr:     v.GetString("server.listen_addr"),
			ReadTimeout:    v.GetDuration("server.read_timeout"),
			WriteTimeout:   v.GetDuration("server.write_timeout"),
			IdleTimeout:    v.GetDuration("server.idle_timeout"),
			QueueCapacity:  v.GetInt("server.queue_capacity"),
			JobsPerMinute:  v.GetInt("server.jobs_per_minute"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},
		Log: LogConfig{
			Level:        strings.ToLower(v.GetString("log.level")),
			Format:       strings.ToLower(v.GetString("log.format")),
			Output:       v.GetString("log.output"),
			MaxSizeBytes: v.GetInt64("log.max_size_bytes"),
		},
		Link: LinkConfig{
			Transport:        strings.ToLower(v.GetString("link.transport")),
			Target:           v.GetString("link.target"),
			SerialPort:       v.GetString("link.serial_port"),
			BaudRate:         v.GetInt("link.baud_rate"),
			NamePrefixes:     v.GetStringSlice("link.name_prefixes"),
			ConnectTimeout:   v.GetDuration("link.connect_timeout"),
			WriteTimeout:     v.GetDuration("link.write_timeout"),
			ChunkSize:        v.GetInt("link.chunk_size"),
			ChunkDelay:       v.GetDuration("link.chunk_delay"),
			DiscoveryTTL:     v.GetDuration("link.discovery_ttl"),
			ScanWindow:       v.GetDuration("link.scan_window"),
			HintFile:         v.GetString("link.hint_file"),
			ReconnectOnStart: v.GetBool("link.reconnect_on_start"),
		},
		Backend: BackendConfig{
			BaseURL: v.GetString("backend.base_url"),
			APIKey:  v.GetString("backend.api_key"),
			Timeout: v.GetDuration("backend.timeout"),
		},
		Push: PushConfig{
			URL:        v.GetString("push.url"),
			MinBackoff: v.GetDuration("push.min_backoff"),
			MaxBackoff: v.GetDuration("push.max_backoff"),
		},
		v: v,
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	store, err := newStoreProvider(v)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Store = store
	return cfg, nil
}

// File is the config file in use, or empty.
func (c *Config) File() string {
	return c.v.ConfigFileUsed()
}

func setDefaults(v *viper.Viper, env Environment) {
	v.SetDefault("server.listen_addr", env.ListenAddr)
	v.SetDefault("server.read_timeout", env.ReadTimeout)
	v.SetDefault("server.write_timeout", env.WriteTimeout)
	v.SetDefault("server.idle_timeout", env.IdleTimeout)
	v.SetDefault("server.queue_capacity", env.QueueCapacity)
	v.SetDefault("server.jobs_per_minute", env.JobsPerMinute)
	v.SetDefault("server.allowed_origins", env.AllowedOrigins)

	level := "info"
	if env.Verbose {
		level = "debug"
	}
	v.SetDefault("log.level", level)
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size_bytes", 5*1024*1024)

	v.SetDefault("link.transport", env.Transport)
	v.SetDefault("link.target", env.DefaultPrinter)
	v.SetDefault("link.serial_port", "")
	v.SetDefault("link.baud_rate", printer.DefaultBaudRate)
	v.SetDefault("link.name_prefixes", printer.DefaultNamePrefixes)
	v.SetDefault("link.connect_timeout", printer.DefaultConnectTimeout)
	v.SetDefault("link.write_timeout", printer.DefaultWriteTimeout)
	v.SetDefault("link.chunk_size", printer.DefaultChunkSize)
	v.SetDefault("link.chunk_delay", printer.DefaultChunkDelay)
	v.SetDefault("link.discovery_ttl", printer.DefaultDiscoveryTTL)
	v.SetDefault("link.scan_window", printer.DefaultScanWindow)
	v.SetDefault("link.hint_file", "")
	v.SetDefault("link.reconnect_on_start", true)

	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.timeout", printjobs.DefaultTimeout)

	v.SetDefault("push.url", "")
	v.SetDefault("push.min_backoff", push.DefaultMinBackoff)
	v.SetDefault("push.max_backoff", push.DefaultMaxBackoff)

	v.SetDefault("printer.paper_size", string(profile.DefaultPaperSize))
	v.SetDefault("printer.print_quality", string(profile.DefaultQuality))
	v.SetDefault("printer.autocut", profile.DefaultAutocut)
	v.SetDefault("printer.header_text", "")
	v.SetDefault("printer.footer_text", "")
	v.SetDefault("printer.include_logo", false)
	v.SetDefault("printer.font_size", profile.DefaultFontSize)
	v.SetDefault("printer.line_spacing", profile.DefaultLineSpacing)
	v.SetDefault("printer.code_page", profile.DefaultCodePage)

	v.SetDefault("store.name", "")
	v.SetDefault("store.phone", "")
	v.SetDefault("store.address", "")
	v.SetDefault("store.email", "")
	v.SetDefault("store.currency", "")
	v.SetDefault("store.show_store_header", true)
	v.SetDefault("store.show_customer", true)
	v.SetDefault("store.show_server", true)
	v.SetDefault("store.show_tax", true)
	v.SetDefault("store.show_notes", true)
	v.SetDefault("store.show_commission", false)
	v.SetDefault("store.footer_message", "")
	v.SetDefault("store.disclaimer", "")
	v.SetDefault("store.print_after_finish", true)
}
