// Package metadata
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thread-safe, heterogeneous, per-owner attribute store with lazy expiry.
//
// Independent subsystems attach typed state to a long-lived owner (a
// connected session, for example) through a Map, without the owner's own
// type knowing about it. Each slot is named by a Key[T] that pairs a string
// id with the runtime type token of T; the type is checked on every access,
// so a slot can never be read back as a different type than it was written.
//
// Values may be plain or wrapped in a Transient whose Policy decides when it
// goes stale. There is no sweeper goroutine: expired entries are evicted by
// whichever operation walks past them next, or explicitly via Cleanup.
//
// Typical use:
//
//	var score = metadata.NewKey[int]("score")
//
//	m := metadata.New()
//	_ = metadata.Put(m, score, 10)
//	v, ok, err := metadata.Get(m, score)
//
// Suppliers and actions passed to GetOrPut, GetOrPutExpiring and IfPresent
// run outside the map lock. When two goroutines race to fill the same
// absent slot, the first insert wins and the loser's value is discarded.
package metadata
