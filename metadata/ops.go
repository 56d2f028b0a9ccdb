// File: metadata/ops.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Typed operations over a Map. Go methods cannot take type parameters, so
// every operation that needs T is a package function taking the Map first.

package metadata

import (
	"github.com/momentics/hioload-meta/api"
)

func nullArgument(name string) error {
	return api.Errorf(api.ErrCodeNullArgument, "metadata: nil %s", name).
		WithContext("argument", name)
}

func checkArgs[T any](m *Map, key *Key[T]) error {
	if m == nil {
		return nullArgument("map")
	}
	if key == nil {
		return nullArgument("key")
	}
	return nil
}

func plainSlot[T any](key *Key[T], value T) (*slot, error) {
	if isNil(value) {
		return nil, nullArgument("value")
	}
	return &slot{key: key, value: value}, nil
}

func transientSlot[T any](key *Key[T], value *Transient[T]) (*slot, error) {
	if value == nil || isNil(value.value) {
		return nil, nullArgument("value")
	}
	return &slot{key: key, transient: value}, nil
}

// Put stores value under key, overwriting a live entry of the same declared
// type. Fails with api.ErrTypeMismatch if the id holds another type.
func Put[T any](m *Map, key *Key[T], value T) error {
	if err := checkArgs(m, key); err != nil {
		return err
	}
	s, err := plainSlot(key, value)
	if err != nil {
		return err
	}
	return m.store(s, false)
}

// PutTransient is Put for an expiring value.
func PutTransient[T any](m *Map, key *Key[T], value *Transient[T]) error {
	if err := checkArgs(m, key); err != nil {
		return err
	}
	s, err := transientSlot(key, value)
	if err != nil {
		return err
	}
	return m.store(s, false)
}

// ForcePut stores value under key, replacing whatever the id holds without
// comparing declared types.
func ForcePut[T any](m *Map, key *Key[T], value T) error {
	if err := checkArgs(m, key); err != nil {
		return err
	}
	s, err := plainSlot(key, value)
	if err != nil {
		return err
	}
	return m.store(s, true)
}

// ForcePutTransient is ForcePut for an expiring value.
func ForcePutTransient[T any](m *Map, key *Key[T], value *Transient[T]) error {
	if err := checkArgs(m, key); err != nil {
		return err
	}
	s, err := transientSlot(key, value)
	if err != nil {
		return err
	}
	return m.store(s, true)
}

// PutIfAbsent sweeps expired entries, then stores value only if no live
// entry holds key's id. Reports whether it stored. A live entry under the
// same id blocks the store even when its declared type differs; that is
// reported as false, not as a type mismatch.
func PutIfAbsent[T any](m *Map, key *Key[T], value T) (bool, error) {
	if err := checkArgs(m, key); err != nil {
		return false, err
	}
	s, err := plainSlot(key, value)
	if err != nil {
		return false, err
	}
	return m.storeIfAbsent(s), nil
}

// PutIfAbsentTransient is PutIfAbsent for an expiring value.
func PutIfAbsentTransient[T any](m *Map, key *Key[T], value *Transient[T]) (bool, error) {
	if err := checkArgs(m, key); err != nil {
		return false, err
	}
	s, err := transientSlot(key, value)
	if err != nil {
		return false, err
	}
	return m.storeIfAbsent(s), nil
}

// Get returns the live value under key. Expired entries met while scanning
// are evicted. ok is false when nothing live is stored.
func Get[T any](m *Map, key *Key[T]) (value T, ok bool, err error) {
	if err = checkArgs(m, key); err != nil {
		return value, false, err
	}
	raw, ok, err := m.lookup(key)
	if err != nil || !ok {
		return value, false, err
	}
	value, err = key.Cast(raw)
	if err != nil {
		return value, false, err
	}
	return value, true, nil
}

// IfPresent calls action with the live value under key, if any, and reports
// whether it fired. The action runs without the map lock held.
func IfPresent[T any](m *Map, key *Key[T], action func(T)) (bool, error) {
	if action == nil {
		return false, nullArgument("action")
	}
	v, ok, err := Get(m, key)
	if err != nil || !ok {
		return false, err
	}
	action(v)
	return true, nil
}

// GetOrZero returns the live value under key or the zero value of T.
func GetOrZero[T any](m *Map, key *Key[T]) (T, error) {
	v, _, err := Get(m, key)
	return v, err
}

// GetOrDefault returns the live value under key or def.
func GetOrDefault[T any](m *Map, key *Key[T], def T) (T, error) {
	v, ok, err := Get(m, key)
	if err != nil {
		return v, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// GetOrError returns the live value under key or fails with
// api.ErrNotFound.
func GetOrError[T any](m *Map, key *Key[T]) (T, error) {
	v, ok, err := Get(m, key)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, api.Errorf(api.ErrCodeNotFound, "metadata: no value for %q", key.ID()).
			WithContext("key", key.ID())
	}
	return v, nil
}

// GetOrPut returns the live value under key, or stores and returns the
// result of supplier. The supplier runs at most once per call, only when no
// live entry exists, and without the lock. If another goroutine filled the
// slot meanwhile, its value wins and the supplied one is dropped. A nil
// supplier result fails with api.ErrInvalidSupplier.
func GetOrPut[T any](m *Map, key *Key[T], supplier func() T) (T, error) {
	var zero T
	if err := checkArgs(m, key); err != nil {
		return zero, err
	}
	if supplier == nil {
		return zero, nullArgument("supplier")
	}
	if v, ok, err := Get(m, key); err != nil || ok {
		return v, err
	}
	supplied := supplier()
	if isNil(supplied) {
		return zero, api.Errorf(api.ErrCodeInvalidSupplier,
			"metadata: supplier for %q returned nil", key.ID()).WithContext("key", key.ID())
	}
	raw, err := m.loadOrStore(&slot{key: key, value: supplied})
	if err != nil {
		return zero, err
	}
	return key.Cast(raw)
}

// GetOrPutExpiring is GetOrPut for a supplier yielding a Transient. A
// supplied value that is already expired at insertion fails with
// api.ErrInvalidSupplier and nothing is stored.
func GetOrPutExpiring[T any](m *Map, key *Key[T], supplier func() *Transient[T]) (T, error) {
	var zero T
	if err := checkArgs(m, key); err != nil {
		return zero, err
	}
	if supplier == nil {
		return zero, nullArgument("supplier")
	}
	if v, ok, err := Get(m, key); err != nil || ok {
		return v, err
	}
	supplied := supplier()
	if supplied == nil || isNil(supplied.value) {
		return zero, api.Errorf(api.ErrCodeInvalidSupplier,
			"metadata: supplier for %q returned nil", key.ID()).WithContext("key", key.ID())
	}
	raw, err := m.loadOrStore(&slot{key: key, transient: supplied})
	if err != nil {
		return zero, err
	}
	return key.Cast(raw)
}
