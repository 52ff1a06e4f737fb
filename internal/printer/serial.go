package printer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// DefaultBaudRate suits RFCOMM/SPP printers.
const DefaultBaudRate = 9600

// SerialAdapter drives printers bound to a serial device such as /dev/rfcomm0.
// Serial ports carry no GATT profile, so each session exposes one synthetic
// printer service with a single writable characteristic.
type SerialAdapter struct {
	port     string
	baudRate int
	log      *zap.Logger

	listPorts func() ([]string, error)
	open      func(name string, mode *serial.Mode) (serial.Port, error)
}

// NewSerialAdapter uses port, or enumerates RFCOMM ports when port is empty.
func NewSerialAdapter(port string, baudRate int, log *zap.Logger) *SerialAdapter {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SerialAdapter{
		port:      port,
		baudRate:  baudRate,
		log:       log.Named("serial"),
		listPorts: serial.GetPortsList,
		open:      serial.Open,
	}
}

// Name implements Adapter.
func (a *SerialAdapter) Name() string { return "serial" }

// Scan reports the configured port, or every RFCOMM port found.
func (a *SerialAdapter) Scan(ctx context.Context, found func(Device) bool) error {
	ports := []string{a.port}
	if a.port == "" {
		all, err := a.listPorts()
		if err != nil {
			return fmt.Errorf("list serial ports: %w", err)
		}
		ports = ports[:0]
		for _, p := range all {
			if strings.Contains(strings.ToLower(p), "rfcomm") {
				ports = append(ports, p)
			}
		}
	}

	for _, p := range ports {
		if ctx.Err() != nil {
			return nil
		}
		d := Device{
			Name:     "Printer " + filepath.Base(p),
			Address:  p,
			Services: []string{PrinterServiceUUID},
		}
		if !found(d) {
			return nil
		}
	}
	return nil
}

// Dial opens the port.
func (a *SerialAdapter) Dial(_ context.Context, d Device) (Session, error) {
	port, err := a.open(d.Address, &serial.Mode{BaudRate: a.baudRate})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Address, err)
	}
	a.log.Debug("port opened", zap.String("port", d.Address), zap.Int("baud", a.baudRate))
	return &serialSession{port: port}, nil
}

type serialSession struct {
	port serial.Port
}

func (s *serialSession) Services(_ context.Context) ([]Service, error) {
	return []Service{{
		UUID: PrinterServiceUUID,
		Characteristics: []Characteristic{
			{UUID: WriteCharacteristicUUID, Write: true},
		},
	}}, nil
}

func (s *serialSession) Write(ctx context.Context, _ Characteristic, p []byte) error {
	done := make(chan error, 1)
	go func() {
		for len(p) > 0 {
			n, err := s.port.Write(p)
			if err != nil {
				done <- err
				return
			}
			if n == 0 {
				done <- io.ErrShortWrite
				return
			}
			p = p[n:]
		}
		done <- nil
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *serialSession) Close() error {
	return s.port.Close()
}
