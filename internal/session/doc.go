// Package session
// Author: momentics <momentics@gmail.com>
//
// Owner registry for hioload-meta. Each Session maps to one live owner (a
// connected client, a player, a transport connection) and carries exactly
// one metadata.Map for as long as the owner is registered.
//
// ForOwner creates on first access and is idempotent. Destroy cancels the
// session and tears down its metadata: keys flagged RemoveOnNonExists are
// dropped, or the whole map is cleared when configured. The registry never
// detects owner death by itself; callers invoke Destroy from their own
// disconnect path.
package session
