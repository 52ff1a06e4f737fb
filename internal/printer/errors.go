// Package printer owns the single link to a receipt printer: discovery,
// connection lifecycle and paced transmission of ESC/POS bytes.
package printer

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped by ConnectionError and WriteError.
var (
	ErrNotConnected             = errors.New("printer not connected")
	ErrAlreadyConnected         = errors.New("printer already connected")
	ErrNoDevice                 = errors.New("no compatible printer found")
	ErrNoService                = errors.New("no compatible service")
	ErrNoWritableCharacteristic = errors.New("no writable characteristic")
	ErrConnectAborted           = errors.New("connect aborted by disconnect")
)

// UnsupportedTransportError means the platform has no usable transport.
type UnsupportedTransportError struct {
	Transport string
	Platform  string
	Err       error
}

func (e *UnsupportedTransportError) Error() string {
	msg := fmt.Sprintf("transport %q unsupported", e.Transport)
	if e.Platform != "" {
		msg += " on " + e.Platform
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnsupportedTransportError) Unwrap() error { return e.Err }

// ConnectionError covers device, service and characteristic resolution failures.
type ConnectionError struct {
	Device string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("error conectando a impresora %q: %v", e.Device, e.Err)
	}
	return fmt.Sprintf("error conectando a impresora: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// WriteError is a failed transmission. Remaining chunks were not sent.
type WriteError struct {
	chunk int
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("printer write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
