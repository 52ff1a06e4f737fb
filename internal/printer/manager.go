package printer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/adcondev/ticket-bridge/internal/metrics"
)

// DefaultConnectTimeout bounds discovery plus the connection handshake.
const DefaultConnectTimeout = 15 * time.Second

// State of the printer link.
type State int

// Link states.
const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// PrinterLink is the one live connection to a printer.
type PrinterLink struct {
	Device      Device
	ServiceUUID string
	ConnectedAt time.Time

	session   Session
	char      Characteristic
	connected atomic.Bool
}

// Connected is false once the link was disconnected or invalidated.
func (l *PrinterLink) Connected() bool {
	return l.connected.Load()
}

// WriteChunk writes p to the resolved characteristic.
func (l *PrinterLink) WriteChunk(ctx context.Context, p []byte) error {
	return l.session.Write(ctx, l.char, p)
}

// CharacteristicUUID is the UUID writes go to.
func (l *PrinterLink) CharacteristicUUID() string {
	return NormalizeUUID(l.char.UUID)
}

// Options tune a Manager. Zero values take defaults.
type Options struct {
	Filter         Filter
	ConnectTimeout time.Duration
	ChunkSize      int
	ChunkDelay     time.Duration
	WriteTimeout   time.Duration
	DiscoveryTTL   time.Duration
	ScanWindow     time.Duration
	Hints          *HintStore
	Metrics        *metrics.Collectors
	Logger         *zap.Logger

	// Target is the printer linked on first start, before any hint exists.
	Target string
}

// Manager tracks the single printer link of the process.
//
// Connect while Connecting or Connected is rejected with ErrAlreadyConnected;
// callers disconnect first. A failed write invalidates the link.
type Manager struct {
	adapter   Adapter
	opts      Options
	log       *zap.Logger
	tx        *Transmitter
	discovery *Discovery

	mu            sync.Mutex
	state         State
	link          *PrinterLink
	cancelConnect context.CancelFunc
	aborted       bool

	// writeMu keeps chunk sequences from interleaving.
	writeMu sync.Mutex
}

// NewManager builds a manager over adapter.
func NewManager(adapter Adapter, opts Options) *Manager {
	if len(opts.Filter.NamePrefixes) == 0 && len(opts.Filter.ServiceUUIDs) == 0 {
		opts.Filter = DefaultFilter()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	tx := NewTransmitter()
	if opts.ChunkSize > 0 {
		tx.ChunkSize = opts.ChunkSize
	}
	if opts.ChunkDelay > 0 {
		tx.Delay = opts.ChunkDelay
	}
	if opts.WriteTimeout > 0 {
		tx.WriteTimeout = opts.WriteTimeout
	}
	tx.OnChunk = opts.Metrics.ObserveChunk

	log := opts.Logger.Named("printer")
	return &Manager{
		adapter:   adapter,
		opts:      opts,
		log:       log,
		tx:        tx,
		discovery: NewDiscovery(adapter, opts.Filter, opts.DiscoveryTTL, opts.ScanWindow, log),
	}
}

// Transport names the underlying adapter.
func (m *Manager) Transport() string {
	return m.adapter.Name()
}

// IsConnected reports whether a link is live.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Connected
}

// State returns the current link state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Link returns the live link, or nil.
func (m *Manager) Link() *PrinterLink {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Connected {
		return nil
	}
	return m.link
}

// Scan lists printers in range, cached for the discovery TTL.
func (m *Manager) Scan(ctx context.Context, forceRefresh bool) ([]Device, error) {
	return m.discovery.Devices(ctx, forceRefresh)
}

// Connect links to the first printer matching the filter.
func (m *Manager) Connect(ctx context.Context) (*PrinterLink, error) {
	return m.connect(ctx, "", m.opts.Filter.Match)
}

// ConnectTo links to the printer whose address or name equals target.
func (m *Manager) ConnectTo(ctx context.Context, target string) (*PrinterLink, error) {
	if target == "" {
		return m.Connect(ctx)
	}
	return m.connect(ctx, target, func(d Device) bool {
		return d.Address == target || d.Name == target
	})
}

func (m *Manager) connect(parent context.Context, target string, match func(Device) bool) (*PrinterLink, error) {
	m.mu.Lock()
	if m.state != Disconnected {
		state := m.state
		m.mu.Unlock()
		m.log.Warn("connect rejected", zap.Stringer("state", state))
		return nil, &ConnectionError{Device: target, Err: ErrAlreadyConnected}
	}
	ctx, cancel := context.WithTimeout(parent, m.opts.ConnectTimeout)
	m.state = Connecting
	m.cancelConnect = cancel
	m.aborted = false
	m.mu.Unlock()
	defer cancel()

	start := time.Now()
	link, err := m.establish(ctx, target, match)

	m.mu.Lock()
	m.cancelConnect = nil
	if err == nil && m.aborted {
		// Some transports finish the handshake without honoring ctx.
		if cerr := link.session.Close(); cerr != nil {
			m.log.Debug("close after aborted connect", zap.Error(cerr))
		}
		err = &ConnectionError{Device: target, Err: ErrConnectAborted}
	}
	if err != nil {
		m.state = Disconnected
		m.mu.Unlock()
		m.opts.Metrics.ObserveFailure("connect")
		m.log.Warn("connect failed", zap.String("target", target), zap.Error(err))
		return nil, err
	}
	link.connected.Store(true)
	m.link = link
	m.state = Connected
	m.mu.Unlock()

	m.opts.Metrics.SetLinkConnected(true)
	m.saveHint(link.Device, true)
	m.log.Info("printer connected",
		zap.String("device", link.Device.Label()),
		zap.String("address", link.Device.Address),
		zap.String("service", link.ServiceUUID),
		zap.String("characteristic", link.CharacteristicUUID()),
		zap.Duration("took", time.Since(start)))
	return link, nil
}

func (m *Manager) establish(ctx context.Context, target string, match func(Device) bool) (*PrinterLink, error) {
	dev, err := m.find(ctx, match)
	if err != nil {
		return nil, &ConnectionError{Device: target, Err: err}
	}

	sess, err := m.adapter.Dial(ctx, dev)
	if err != nil {
		return nil, &ConnectionError{Device: dev.Label(), Err: fmt.Errorf("dial: %w", err)}
	}

	link, err := m.resolve(ctx, dev, sess)
	if err != nil {
		if cerr := sess.Close(); cerr != nil {
			m.log.Debug("close after failed resolve", zap.Error(cerr))
		}
		return nil, &ConnectionError{Device: dev.Label(), Err: err}
	}
	return link, nil
}

func (m *Manager) find(ctx context.Context, match func(Device) bool) (Device, error) {
	var (
		found Device
		ok    bool
	)
	err := m.adapter.Scan(ctx, func(d Device) bool {
		if match(d) {
			found, ok = d, true
			return false
		}
		return true
	})
	if err != nil {
		return Device{}, fmt.Errorf("scan: %w", err)
	}
	if !ok {
		if ctx.Err() != nil {
			return Device{}, fmt.Errorf("%w: %v", ErrNoDevice, ctx.Err())
		}
		return Device{}, ErrNoDevice
	}
	return found, nil
}

func (m *Manager) resolve(ctx context.Context, dev Device, sess Session) (*PrinterLink, error) {
	services, err := sess.Services(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover services: %w", err)
	}
	svc, err := resolveService(services)
	if err != nil {
		return nil, err
	}
	char, err := resolveCharacteristic(svc)
	if err != nil {
		return nil, err
	}
	return &PrinterLink{
		Device:      dev,
		ServiceUUID: NormalizeUUID(svc.UUID),
		ConnectedAt: time.Now(),
		session:     sess,
		char:        char,
	}, nil
}

// Disconnect tears the link down and records that the printer was released,
// so the next start does not reconnect. It is a no-op when already
// disconnected and aborts an in-flight Connect.
func (m *Manager) Disconnect() error {
	return m.teardown(true)
}

// Close releases the link on shutdown. The stored hint is left as is so a
// link that was up reconnects on the next start.
func (m *Manager) Close() error {
	return m.teardown(false)
}

func (m *Manager) teardown(forget bool) error {
	m.mu.Lock()
	if m.state == Connecting && m.cancelConnect != nil {
		m.aborted = true
		m.cancelConnect()
		m.mu.Unlock()
		return nil
	}
	link := m.link
	m.link = nil
	m.state = Disconnected
	m.mu.Unlock()

	if link == nil {
		return nil
	}
	link.connected.Store(false)
	m.opts.Metrics.SetLinkConnected(false)
	if forget {
		m.saveHint(link.Device, false)
	}
	m.log.Info("printer disconnected", zap.String("device", link.Device.Label()), zap.Bool("forget", forget))

	if err := link.session.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// Write sends p through the chunked transmitter. It fails with WriteError
// when no link is connected, and a failed write invalidates the link.
func (m *Manager) Write(ctx context.Context, p []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	link := m.link
	connected := m.state == Connected && link != nil
	m.mu.Unlock()
	if !connected {
		return &WriteError{Err: ErrNotConnected}
	}

	if err := m.tx.Send(ctx, link, p); err != nil {
		m.opts.Metrics.ObserveFailure("write")
		m.log.Error("write failed, invalidating link",
			zap.String("device", link.Device.Label()), zap.Int("bytes", len(p)), zap.Error(err))
		m.invalidate(link)
		return err
	}
	m.log.Debug("buffer sent", zap.Int("bytes", len(p)))
	return nil
}

// invalidate drops link if it is still the current one.
func (m *Manager) invalidate(link *PrinterLink) {
	m.mu.Lock()
	if m.link != link {
		m.mu.Unlock()
		return
	}
	m.link = nil
	m.state = Disconnected
	m.mu.Unlock()

	link.connected.Store(false)
	m.opts.Metrics.SetLinkConnected(false)
	if err := link.session.Close(); err != nil {
		m.log.Debug("close stale session", zap.Error(err))
	}
}

// ResumeFromHint reconnects to the last printer if the stored hint says the
// link was up when the process stopped. Without any stored hint it links to
// the configured Target. It reports whether a link came up.
func (m *Manager) ResumeFromHint(ctx context.Context) (bool, error) {
	var hint PersistedConnectionHint
	if m.opts.Hints != nil {
		var err error
		if hint, err = m.opts.Hints.Load(); err != nil {
			return false, err
		}
	}

	var target string
	switch {
	case hint.WasConnected:
		target = hint.DeviceAddress
		if target == "" {
			target = hint.DeviceName
		}
		m.log.Info("reconnecting to last printer", zap.String("device", hint.DeviceName))
	case hint.DeviceName == "" && hint.DeviceAddress == "" && m.opts.Target != "":
		target = m.opts.Target
		m.log.Info("connecting to configured printer", zap.String("target", target))
	default:
		return false, nil
	}
	if _, err := m.ConnectTo(ctx, target); err != nil {
		return false, err
	}
	return true, nil
}

// Status summarizes the link for health checks.
func (m *Manager) Status() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{
		Transport:     m.adapter.Name(),
		State:         m.state.String(),
		DetectedCount: m.discovery.CachedCount(),
	}
	switch m.state {
	case Connected:
		s.Status = "ok"
		s.DeviceName = m.link.Device.Label()
		s.DeviceAddress = m.link.Device.Address
		s.ConnectedAt = m.link.ConnectedAt
	case Connecting:
		s.Status = "warning"
	default:
		s.Status = "disconnected"
	}
	return s
}

func (m *Manager) saveHint(d Device, connected bool) {
	if m.opts.Hints == nil {
		return
	}
	hint := PersistedConnectionHint{
		DeviceName:    d.Label(),
		DeviceAddress: d.Address,
		WasConnected:  connected,
	}
	if err := m.opts.Hints.Save(hint); err != nil {
		m.log.Warn("failed to save connection hint", zap.Error(err))
	}
}
