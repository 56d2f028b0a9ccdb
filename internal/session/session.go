// File: internal/session/session.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Session: per-owner metadata container with cancellation.

package session

import (
	"sync"
	"time"

	"github.com/momentics/hioload-meta/metadata"
)

// Session abstracts per-owner state.
type Session interface {
	ID() string
	Metadata() *metadata.Map
	Cancel()
	Done() <-chan struct{}
	CreatedAt() time.Time
}

// sessionImpl holds the owner's metadata and cancellation signal.
type sessionImpl struct {
	id        string
	meta      *metadata.Map
	done      chan struct{}
	once      sync.Once
	createdAt time.Time
}

var _ Session = (*sessionImpl)(nil)

func newSession(id string, now time.Time) *sessionImpl {
	return &sessionImpl{
		id:        id,
		meta:      metadata.New(),
		done:      make(chan struct{}),
		createdAt: now,
	}
}

// ID returns the owner identifier.
func (s *sessionImpl) ID() string {
	return s.id
}

// Metadata returns the owner's metadata map.
func (s *sessionImpl) Metadata() *metadata.Map {
	return s.meta
}

// Cancel signals owner teardown; idempotent.
func (s *sessionImpl) Cancel() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Done returns a channel closed upon cancellation.
func (s *sessionImpl) Done() <-chan struct{} {
	return s.done
}

// CreatedAt returns the registration time.
func (s *sessionImpl) CreatedAt() time.Time {
	return s.createdAt
}
