package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		lastUsed time.Time
		maxAge   time.Duration
		want     bool
	}{
		{"recent session is not stale", time.Now().Add(-1 * time.Hour), 24 * time.Hour, false},
		{"old session is stale", time.Now().Add(-48 * time.Hour), 24 * time.Hour, true},
		{"session just past the boundary is stale", time.Now().Add(-25 * time.Hour), 24 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &Session{ID: "test", CreatedAt: tt.lastUsed, LastUsed: tt.lastUsed}
			assert.Equal(t, tt.want, sess.IsStale(tt.maxAge))
		})
	}
}
