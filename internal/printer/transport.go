package printer

import "context"

// Adapter is a radio or port that can find and open printers.
type Adapter interface {
	// Name identifies the transport in logs and status ("ble", "serial").
	Name() string
	// Scan calls found for every device seen until found returns false or
	// ctx ends. Reaching the end of ctx is not an error.
	Scan(ctx context.Context, found func(Device) bool) error
	// Dial opens a session to d.
	Dial(ctx context.Context, d Device) (Session, error)
}

// Session is an open transport session to one device.
type Session interface {
	Services(ctx context.Context) ([]Service, error)
	Write(ctx context.Context, c Characteristic, p []byte) error
	Close() error
}
