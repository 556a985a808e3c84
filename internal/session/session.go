// Package session manages agent conversation threads: named sessions that
// own an append-only log of turns (spec §3 Session entity). Grounded on the
// teacher's internal/session package, re-purposed from project-switching
// disk sessions to conversation-turn logs backed by internal/store's
// sessions/session_turns tables.
package session

import (
	"time"

	"github.com/codewell/codewell/internal/store"
)

// Turn is one entry in a session's append-only conversation log.
type Turn = store.Turn

// Session is a conversation thread's identity and bookkeeping metadata.
type Session struct {
	// ID is the user- or agent-provided session identifier.
	ID string

	// CreatedAt is when the session was first created.
	CreatedAt time.Time

	// LastUsed is when a turn was last appended.
	LastUsed time.Time
}

// IsStale returns true if the session hasn't been used within maxAge.
func (s *Session) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUsed) > maxAge
}
