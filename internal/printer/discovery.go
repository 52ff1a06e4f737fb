package printer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Discovery defaults.
const (
	DefaultDiscoveryTTL = 30 * time.Second
	DefaultScanWindow   = 5 * time.Second
)

// Discovery handles printer scanning with caching
type Discovery struct {
	adapter    Adapter
	filter     Filter
	scanWindow time.Duration
	log        *zap.Logger

	cache       []Device
	lastRefresh time.Time
	cacheTTL    time.Duration
	mu          sync.RWMutex
}

// NewDiscovery creates a new discovery service
func NewDiscovery(adapter Adapter, filter Filter, ttl, window time.Duration, log *zap.Logger) *Discovery {
	if ttl <= 0 {
		ttl = DefaultDiscoveryTTL
	}
	if window <= 0 {
		window = DefaultScanWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Discovery{
		adapter:    adapter,
		filter:     filter,
		scanWindow: window,
		cacheTTL:   ttl,
		log:        log,
	}
}

// Devices returns cached printers or rescans if stale
func (pd *Discovery) Devices(ctx context.Context, forceRefresh bool) ([]Device, error) {
	pd.mu.RLock()
	if pd.fresh(forceRefresh) {
		result := cloneDevices(pd.cache)
		pd.mu.RUnlock()
		return result, nil
	}
	pd.mu.RUnlock()

	pd.mu.Lock()
	defer pd.mu.Unlock()

	// another caller may have refreshed while we waited for the write lock
	if pd.fresh(forceRefresh) {
		return cloneDevices(pd.cache), nil
	}

	devices, err := pd.scan(ctx)
	if err != nil {
		if pd.cache != nil {
			return cloneDevices(pd.cache), err // stale copy on error
		}
		return nil, err
	}

	pd.cache = devices
	pd.lastRefresh = time.Now()
	pd.log.Debug("scan finished", zap.Int("devices", len(devices)))
	return cloneDevices(devices), nil
}

// CachedCount is the size of the last scan without triggering a new one.
func (pd *Discovery) CachedCount() int {
	pd.mu.RLock()
	defer pd.mu.RUnlock()
	return len(pd.cache)
}

func (pd *Discovery) fresh(force bool) bool {
	return !force && pd.cache != nil && time.Since(pd.lastRefresh) < pd.cacheTTL
}

func (pd *Discovery) scan(ctx context.Context) ([]Device, error) {
	ctx, cancel := context.WithTimeout(ctx, pd.scanWindow)
	defer cancel()

	seen := make(map[string]int)
	devices := []Device{}
	err := pd.adapter.Scan(ctx, func(d Device) bool {
		if !pd.filter.Match(d) {
			return true
		}
		key := d.Address
		if key == "" {
			key = d.Name
		}
		if i, ok := seen[key]; ok {
			devices[i] = d
			return true
		}
		seen[key] = len(devices)
		devices = append(devices, d)
		return true
	})
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func cloneDevices(in []Device) []Device {
	out := make([]Device, len(in))
	copy(out, in)
	return out
}
