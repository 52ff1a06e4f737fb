package printer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestSerialAdapter_ScanEnumeratesRFCOMM(t *testing.T) {
	a := NewSerialAdapter("", 0, nil)
	a.listPorts = func() ([]string, error) {
		return []string{"/dev/ttyS0", "/dev/rfcomm0", "/dev/rfcomm1"}, nil
	}

	var seen []Device
	require.NoError(t, a.Scan(context.Background(), func(d Device) bool {
		seen = append(seen, d)
		return true
	}))
	require.Len(t, seen, 2)
	assert.Equal(t, "/dev/rfcomm0", seen[0].Address)
	assert.True(t, DefaultFilter().Match(seen[0]))
	assert.Equal(t, DefaultBaudRate, a.baudRate)
}

func TestSerialAdapter_ConfiguredPort(t *testing.T) {
	a := NewSerialAdapter("/dev/ttyUSB0", 115200, nil)
	a.listPorts = func() ([]string, error) { return nil, errors.New("must not enumerate") }

	var seen []Device
	require.NoError(t, a.Scan(context.Background(), func(d Device) bool {
		seen = append(seen, d)
		return false
	}))
	require.Len(t, seen, 1)
	assert.Equal(t, "/dev/ttyUSB0", seen[0].Address)
}

func TestSerialAdapter_DialError(t *testing.T) {
	a := NewSerialAdapter("/dev/rfcomm9", 0, nil)
	a.open = func(string, *serial.Mode) (serial.Port, error) {
		return nil, errors.New("no such file")
	}

	_, err := a.Dial(context.Background(), Device{Address: "/dev/rfcomm9"})
	assert.ErrorContains(t, err, "/dev/rfcomm9")
}

func TestSerialSession_ExposesPrinterService(t *testing.T) {
	services, err := (&serialSession{}).Services(context.Background())
	require.NoError(t, err)

	svc, err := resolveService(services)
	require.NoError(t, err)
	c, err := resolveCharacteristic(svc)
	require.NoError(t, err)
	assert.Equal(t, WriteCharacteristicUUID, c.UUID)
}
