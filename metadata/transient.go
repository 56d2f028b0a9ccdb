// File: metadata/transient.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transient values: stored objects that carry their own expiry test.

package metadata

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-meta/clock"
)

// Transient wraps a value together with the Policy deciding when it expires.
// The policy is consulted on every read, never cached.
type Transient[T any] struct {
	value  T
	policy Policy
}

// expiring is the type-erased view a Map keeps of any Transient[T].
type expiring interface {
	shouldExpire() bool
	load() (any, bool)
}

var _ expiring = (*Transient[int])(nil)

// Wrap binds value to policy. A nil policy never expires.
func Wrap[T any](value T, policy Policy) *Transient[T] {
	if policy == nil {
		policy = Never()
	}
	return &Transient[T]{value: value, policy: policy}
}

// ExpireAfter wraps value with a time-to-live on the real clock.
func ExpireAfter[T any](value T, ttl time.Duration) *Transient[T] {
	return Wrap(value, AfterWrite(ttl, clock.Real()))
}

// Value returns the wrapped value unless the policy reports it expired.
// Successful reads refresh access-based policies.
func (t *Transient[T]) Value() (T, bool) {
	if t.policy.Expired() {
		var zero T
		return zero, false
	}
	if r, ok := t.policy.(accessRecorder); ok {
		r.Touch()
	}
	return t.value, true
}

// ShouldExpire tests the policy without side effects.
func (t *Transient[T]) ShouldExpire() bool {
	return t.policy.Expired()
}

// Policy returns the expiry policy guarding the value.
func (t *Transient[T]) Policy() Policy { return t.policy }

func (t *Transient[T]) String() string {
	return fmt.Sprintf("Transient(%v, %v)", t.value, t.policy)
}

func (t *Transient[T]) shouldExpire() bool { return t.ShouldExpire() }

func (t *Transient[T]) load() (any, bool) {
	v, ok := t.Value()
	if !ok {
		return nil, false
	}
	return v, true
}
