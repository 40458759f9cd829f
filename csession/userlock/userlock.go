// Package userlock enforces spec.md §5's single-login rule: "Two clients
// MUST NOT authenticate to the same username simultaneously; the server
// enforces this with a per-username lock acquired at authentication and
// released at logout/disconnect."
//
// The registry is process-wide and shared by every session worker
// goroutine, so it needs a concurrent map rather than a mutex-guarded
// one: a lock-free hashmap.Map gives Acquire/Release the same O(1),
// wait-free-read character the teacher's usync.Map gives read-heavy
// config lookups, but with safe concurrent writers, which usync.Map
// does not support.
package userlock

import (
	"github.com/cornelk/hashmap"

	"github.com/tredeske/cloudbox/cerr"
)

// Registry tracks which usernames currently have an authenticated
// session in flight.
type Registry struct {
	inFlight *hashmap.Map[string, string]
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{inFlight: hashmap.New[string, string]()}
}

// Acquire claims username for sessionID. If username already has a
// session in flight, acquisition fails with cerr.ErrPolicy and
// authentication for the new session must be refused (spec.md §5:
// "Collisions fail authentication").
func (r *Registry) Acquire(username, sessionID string) error {
	actual, loaded := r.inFlight.GetOrInsert(username, sessionID)
	if loaded && actual != sessionID {
		return cerr.Wrap(cerr.ErrPolicy, nil,
			"user %q already has a session in flight", username)
	}
	return nil
}

// Release frees username, but only if it is still held by sessionID;
// this guards against a slow-to-release old session clobbering a
// newer one that raced past a stale Acquire failure.
func (r *Registry) Release(username, sessionID string) {
	if actual, ok := r.inFlight.Get(username); ok && actual == sessionID {
		r.inFlight.Del(username)
	}
}

// Held reports whether username currently has a session in flight, for
// diagnostics and tests.
func (r *Registry) Held(username string) bool {
	_, ok := r.inFlight.Get(username)
	return ok
}
