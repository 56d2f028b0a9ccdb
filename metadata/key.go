// File: metadata/key.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Key descriptors: immutable id + declared type for one metadata slot.

package metadata

import (
	"fmt"
	"reflect"

	"github.com/momentics/hioload-meta/api"
)

// Descriptor is the untyped view of a Key, used where the value type does
// not matter (Has, Remove, snapshots, teardown).
type Descriptor interface {
	// ID is the slot identity. At most one entry per id lives in a Map.
	ID() string
	// Type is the declared value type of the slot.
	Type() reflect.Type
	// RemoveOnNonExists hints owner teardown code to drop the entry when
	// the owner goes away. The Map itself never reads it.
	RemoveOnNonExists() bool
}

// Key names a metadata slot holding values of type T. Keys are created once
// per logical slot, typically as package-level variables, and never mutated.
type Key[T any] struct {
	id                string
	typ               reflect.Type
	removeOnNonExists bool
}

var _ Descriptor = (*Key[int])(nil)

// KeyOption customizes a Key at construction.
type KeyOption func(*keyOptions)

type keyOptions struct {
	removeOnNonExists bool
}

// WithRemoveOnNonExists marks the key for removal on owner teardown.
func WithRemoveOnNonExists() KeyOption {
	return func(o *keyOptions) { o.removeOnNonExists = true }
}

// NewKey creates the descriptor for slot id holding T. Panics on an empty
// id, since keys are declared at init time.
func NewKey[T any](id string, opts ...KeyOption) *Key[T] {
	if id == "" {
		panic("metadata: empty key id")
	}
	var o keyOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Key[T]{
		id:                id,
		typ:               reflect.TypeFor[T](),
		removeOnNonExists: o.removeOnNonExists,
	}
}

// ID returns the slot identity.
func (k *Key[T]) ID() string { return k.id }

// Type returns the declared type token of T.
func (k *Key[T]) Type() reflect.Type { return k.typ }

// RemoveOnNonExists reports the teardown hint.
func (k *Key[T]) RemoveOnNonExists() bool { return k.removeOnNonExists }

// Equal compares keys over (id, declared type).
func (k *Key[T]) Equal(other Descriptor) bool {
	if other == nil {
		return false
	}
	return k.id == other.ID() && k.typ == other.Type()
}

// Cast narrows a raw stored object to T, failing with a type mismatch
// when the dynamic type diverges.
func (k *Key[T]) Cast(v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, typeMismatch(k, reflect.TypeOf(v))
	}
	return t, nil
}

func (k *Key[T]) String() string {
	return fmt.Sprintf("%s(%s)", k.id, k.typ)
}

func typeMismatch(key Descriptor, stored reflect.Type) error {
	return api.Errorf(api.ErrCodeTypeMismatch,
		"metadata: key %q declares %v but stored type is %v", key.ID(), key.Type(), stored).
		WithContext("key", key.ID())
}

// isNil reports whether v is nil or a typed nil of a nillable kind.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map,
		reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
