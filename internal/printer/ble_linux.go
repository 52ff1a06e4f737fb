//go:build linux

package printer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"go.uber.org/zap"
)

// requestedMTU is asked for after connecting; chunking stays at 20 bytes
// because not every printer honours the exchange.
const requestedMTU = 185

type bleAdapter struct {
	dev ble.Device
	log *zap.Logger
}

// NewBLEAdapter opens the default HCI controller.
func NewBLEAdapter(log *zap.Logger) (Adapter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dev, err := linux.NewDevice()
	if err != nil {
		return nil, &UnsupportedTransportError{Transport: "ble", Platform: "linux", Err: err}
	}
	return &bleAdapter{dev: dev, log: log.Named("ble")}, nil
}

func (a *bleAdapter) Name() string { return "ble" }

func (a *bleAdapter) Scan(ctx context.Context, found func(Device) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	stopped := false
	err := a.dev.Scan(ctx, false, func(adv ble.Advertisement) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		d := Device{
			Name:     adv.LocalName(),
			Address:  adv.Addr().String(),
			RSSI:     adv.RSSI(),
			Services: uuidStrings(adv.Services()),
			handle:   adv.Addr(),
		}
		if !found(d) {
			stopped = true
			cancel()
		}
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (a *bleAdapter) Dial(ctx context.Context, d Device) (Session, error) {
	addr, ok := d.handle.(ble.Addr)
	if !ok {
		addr = ble.NewAddr(d.Address)
	}
	client, err := a.dev.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	if mtu, err := client.ExchangeMTU(requestedMTU); err != nil {
		a.log.Debug("mtu exchange failed", zap.Error(err))
	} else {
		a.log.Debug("mtu negotiated", zap.Int("mtu", mtu))
	}
	return &bleSession{client: client}, nil
}

type bleSession struct {
	client ble.Client
}

func (s *bleSession) Services(_ context.Context) ([]Service, error) {
	p, err := s.client.DiscoverProfile(true)
	if err != nil {
		return nil, err
	}
	services := make([]Service, 0, len(p.Services))
	for _, bs := range p.Services {
		svc := Service{UUID: NormalizeUUID(bs.UUID.String())}
		for _, bc := range bs.Characteristics {
			svc.Characteristics = append(svc.Characteristics, Characteristic{
				UUID:            NormalizeUUID(bc.UUID.String()),
				Write:           bc.Property&ble.CharWrite != 0,
				WriteNoResponse: bc.Property&ble.CharWriteNR != 0,
				handle:          bc,
			})
		}
		services = append(services, svc)
	}
	return services, nil
}

func (s *bleSession) Write(ctx context.Context, c Characteristic, p []byte) error {
	bc, ok := c.handle.(*ble.Characteristic)
	if !ok {
		return fmt.Errorf("characteristic %s has no ble handle", c.UUID)
	}
	noRsp := !c.Write && c.WriteNoResponse

	done := make(chan error, 1)
	go func() { done <- s.client.WriteCharacteristic(bc, p, noRsp) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *bleSession) Close() error {
	err := s.client.CancelConnection()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func uuidStrings(uuids []ble.UUID) []string {
	out := make([]string, len(uuids))
	for i, u := range uuids {
		out[i] = NormalizeUUID(u.String())
	}
	return out
}
