package config

import (
	"fmt"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/adcondev/ticket-bridge/internal/profile"
	"github.com/adcondev/ticket-bridge/internal/receipt"
)

// StoreProvider serves the printer configuration and store settings. Values
// are rebuilt whenever the watched config file changes; callers get a fresh
// copy per call and never mutate shared state.
type StoreProvider struct {
	v *viper.Viper

	mu       sync.RWMutex
	current  receipt.Config
	onChange []func(receipt.Config)
}

func newStoreProvider(v *viper.Viper) (*StoreProvider, error) {
	p := &StoreProvider{v: v}
	cfg, err := p.read()
	if err != nil {
		return nil, err
	}
	p.current = cfg
	return p, nil
}

// ReceiptConfig returns the configuration current at call time.
func (p *StoreProvider) ReceiptConfig() receipt.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// OnChange registers fn to run after every reload.
func (p *StoreProvider) OnChange(fn func(receipt.Config)) {
	p.mu.Lock()
	p.onChange = append(p.onChange, fn)
	p.mu.Unlock()
}

// Watch reloads on config file changes. It is a no-op without a file.
func (p *StoreProvider) Watch() bool {
	if p.v.ConfigFileUsed() == "" {
		return false
	}
	p.v.OnConfigChange(func(fsnotify.Event) { _ = p.Reload() })
	p.v.WatchConfig()
	return true
}

// Reload re-reads the values from viper. A file that no longer decodes
// leaves the previous values in place.
func (p *StoreProvider) Reload() error {
	cfg, err := p.read()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.current = cfg
	hooks := slices.Clone(p.onChange)
	p.mu.Unlock()
	for _, fn := range hooks {
		fn(cfg)
	}
	return nil
}

type receiptSection struct {
	Printer profile.PrinterConfiguration `mapstructure:"printer"`
	Store   receipt.StoreSettings        `mapstructure:"store"`
}

// read decodes the printer and store sections through their mapstructure
// tags. Unmarshal goes through AllSettings, so defaults and TB_ overrides
// apply per leaf key.
func (p *StoreProvider) read() (receipt.Config, error) {
	var sec receiptSection
	if err := p.v.Unmarshal(&sec); err != nil {
		return receipt.Config{}, fmt.Errorf("error decoding receipt settings: %w", err)
	}
	return receipt.Config{Printer: sec.Printer.Normalize(), Store: sec.Store}, nil
}
