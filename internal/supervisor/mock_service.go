// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// errSimulated is returned by a MockService while it has failures left.
var errSimulated = errors.New("simulated failure")

// MockService is a controllable suture.Service for tests that exercise
// restart and shutdown behavior without a real scheduler or listener.
type MockService struct {
	name   string
	starts atomic.Int32
	stops  atomic.Int32

	mu        sync.Mutex
	err       error
	failsLeft int
	drain     time.Duration
	drained   atomic.Bool
}

// NewMockService creates a mock that blocks until its context ends.
func NewMockService(name string) *MockService {
	return &MockService{name: name}
}

// Serve implements suture.Service.
func (m *MockService) Serve(ctx context.Context) error {
	m.starts.Add(1)
	defer m.stops.Add(1)

	m.mu.Lock()
	if m.failsLeft > 0 {
		m.failsLeft--
		m.mu.Unlock()
		return errSimulated
	}
	err, drain := m.err, m.drain
	m.mu.Unlock()

	if err != nil {
		return err
	}
	<-ctx.Done()
	if drain > 0 {
		time.Sleep(drain)
		m.drained.Store(true)
	}
	return ctx.Err()
}

// SetDrain makes Serve keep working for d after its context ends, like a
// scheduler finishing the artist in flight.
func (m *MockService) SetDrain(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drain = d
}

// Drained reports whether a drain period ran to completion.
func (m *MockService) Drained() bool {
	return m.drained.Load()
}

// SetError makes every following Serve call return err immediately.
func (m *MockService) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetFailCount makes the next n Serve calls fail.
func (m *MockService) SetFailCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failsLeft = n
}

// StartCount returns how many times Serve was called.
func (m *MockService) StartCount() int32 {
	return m.starts.Load()
}

// StopCount returns how many times Serve returned.
func (m *MockService) StopCount() int32 {
	return m.stops.Load()
}

func (m *MockService) String() string {
	return m.name
}
