package session

import (
	"fmt"
	"regexp"
)

// maxSessionIDLength is the maximum allowed session identifier length.
const maxSessionIDLength = 64

// validSessionIDPattern matches alphanumeric, hyphen, and underscore.
var validSessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateSessionID validates a session identifier. Valid IDs contain only
// letters, numbers, hyphens, and underscores.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if len(id) > maxSessionIDLength {
		return fmt.Errorf("session id too long (max %d chars)", maxSessionIDLength)
	}
	if !validSessionIDPattern.MatchString(id) {
		return fmt.Errorf("session id can only contain letters, numbers, hyphens, and underscores")
	}
	return nil
}

// validRoles are the turn roles a conversation log accepts.
var validRoles = map[string]bool{
	"user":      true,
	"assistant": true,
	"system":    true,
}

// ValidateRole validates a turn's role.
func ValidateRole(role string) error {
	if !validRoles[role] {
		return fmt.Errorf("invalid turn role %q: must be user, assistant, or system", role)
	}
	return nil
}
