//go:build !linux

package printer

import (
	"runtime"

	"go.uber.org/zap"
)

// NewBLEAdapter reports that BLE needs the Linux HCI stack.
func NewBLEAdapter(_ *zap.Logger) (Adapter, error) {
	return nil, &UnsupportedTransportError{Transport: "ble", Platform: runtime.GOOS}
}
