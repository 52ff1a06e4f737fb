package printer

import (
	"context"
	"errors"
	"sync"
)

type fakeAdapter struct {
	devices  []Device
	services []Service
	dialErr  error
	scanErr  error

	mu       sync.Mutex
	sessions []*fakeSession
	failAt   int // 1-based write index that fails, 0 never

	// servicesGate, when set, holds Services until closed regardless of ctx.
	servicesGate    chan struct{}
	servicesEntered chan struct{}
}

func (a *fakeAdapter) Name() string { return "fake" }

func (a *fakeAdapter) Scan(ctx context.Context, found func(Device) bool) error {
	if a.scanErr != nil {
		return a.scanErr
	}
	for _, d := range a.devices {
		if ctx.Err() != nil {
			return nil
		}
		if !found(d) {
			return nil
		}
	}
	return nil
}

func (a *fakeAdapter) Dial(_ context.Context, _ Device) (Session, error) {
	if a.dialErr != nil {
		return nil, a.dialErr
	}
	s := &fakeSession{services: a.services, failAt: a.failAt, gate: a.servicesGate, entered: a.servicesEntered}
	a.mu.Lock()
	a.sessions = append(a.sessions, s)
	a.mu.Unlock()
	return s, nil
}

func (a *fakeAdapter) last() *fakeSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.sessions) == 0 {
		return nil
	}
	return a.sessions[len(a.sessions)-1]
}

type fakeSession struct {
	services []Service
	failAt   int
	gate     chan struct{}
	entered  chan struct{}

	mu     sync.Mutex
	writes [][]byte
	chars  []string
	closed bool
}

func (s *fakeSession) Services(context.Context) ([]Service, error) {
	if s.gate != nil {
		if s.entered != nil {
			s.entered <- struct{}{}
		}
		<-s.gate
	}
	return s.services, nil
}

func (s *fakeSession) Write(_ context.Context, c Characteristic, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.writes)+1 == s.failAt {
		return errors.New("gatt write rejected")
	}
	s.writes = append(s.writes, append([]byte(nil), p...))
	s.chars = append(s.chars, c.UUID)
	return nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) written() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.writes...)
}

func printerService() Service {
	return Service{
		UUID: "18f0",
		Characteristics: []Characteristic{
			{UUID: "2af0", Write: false},
			{UUID: "2af1", Write: true},
		},
	}
}
