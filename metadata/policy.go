// File: metadata/policy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package metadata

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-meta/clock"
)

// Policy decides whether a transient value is stale. Expired must be free of
// side effects and safe for concurrent use.
type Policy interface {
	Expired() bool
}

// accessRecorder is implemented by policies that slide on every read.
type accessRecorder interface {
	Touch()
}

// AfterWrite expires ttl after construction. A non-positive ttl is expired
// immediately.
func AfterWrite(ttl time.Duration, c clock.Clock) Policy {
	if c == nil {
		c = clock.Real()
	}
	return &deadlinePolicy{clock: c, deadline: c.Now().Add(ttl)}
}

// At expires once the clock reaches deadline.
func At(deadline time.Time, c clock.Clock) Policy {
	if c == nil {
		c = clock.Real()
	}
	return &deadlinePolicy{clock: c, deadline: deadline}
}

type deadlinePolicy struct {
	clock    clock.Clock
	deadline time.Time
}

func (p *deadlinePolicy) Expired() bool {
	return !p.clock.Now().Before(p.deadline)
}

func (p *deadlinePolicy) String() string {
	return fmt.Sprintf("until %s", p.deadline.Format(time.RFC3339Nano))
}

// AfterAccess expires once idle time has passed without a successful read.
func AfterAccess(idle time.Duration, c clock.Clock) Policy {
	if c == nil {
		c = clock.Real()
	}
	p := &idlePolicy{clock: c, idle: idle}
	p.Touch()
	return p
}

type idlePolicy struct {
	clock clock.Clock
	idle  time.Duration
	last  atomic.Int64 // unix nanos
}

func (p *idlePolicy) Expired() bool {
	last := time.Unix(0, p.last.Load())
	return p.clock.Now().Sub(last) >= p.idle
}

func (p *idlePolicy) Touch() {
	p.last.Store(p.clock.Now().UnixNano())
}

func (p *idlePolicy) String() string {
	return fmt.Sprintf("idle %s", p.idle)
}

// When expires as soon as cond returns true. A nil cond never expires.
func When(cond func() bool) Policy {
	if cond == nil {
		return Never()
	}
	return condPolicy(cond)
}

type condPolicy func() bool

func (p condPolicy) Expired() bool { return p() }

// Never is a policy that keeps the value forever.
func Never() Policy { return neverPolicy{} }

type neverPolicy struct{}

func (neverPolicy) Expired() bool { return false }

func (neverPolicy) String() string { return "never" }
