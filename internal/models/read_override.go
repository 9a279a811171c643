package models

import "time"

// ReadOverride is a local, non-authoritative record that an actor read a
// thread at a client-observed time. It exists to mask server read-flag
// writes that never land; it is never trusted on its own and is only
// honored while its timestamp is at least the thread's UpdatedAt.
// Overrides are never evicted; a later legitimate change bumps UpdatedAt
// past the override and it simply stops applying.
type ReadOverride struct {
	ThreadID uint      `msgpack:"thread_id"`
	ReadAt   time.Time `msgpack:"read_at"`
}

// OverrideSet is the per-(actor, role) override cache, keyed by thread.
type OverrideSet map[uint]time.Time

// EffectiveRead reconciles the authoritative server flag with the local
// override cache:
//
//	serverFlag OR (override exists AND override >= thread.UpdatedAt)
//
// The comparison against UpdatedAt, not cache eviction, is what retires
// stale overrides.
func EffectiveRead(t *Thread, role ActorRole, overrides OverrideSet) bool {
	if t.ServerReadFlag(role) {
		return true
	}
	readAt, ok := overrides[t.ID]
	return ok && !readAt.Before(t.UpdatedAt)
}
