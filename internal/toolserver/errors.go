package toolserver

import (
	"errors"
	"fmt"

	codewellerrors "github.com/codewell/codewell/internal/errors"
)

// JSON-RPC error codes (spec §4.J / §7): standard codes plus codewell's
// domain-specific ones, grounded on the teacher's internal/mcp/errors.go.
const (
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603

	ErrCodeNotFound = -32001
)

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ErrOutsideRoot is returned by ReadFile when path escapes the project root.
var ErrOutsideRoot = errors.New("path resolves outside the project root")

// mapError converts an internal error into a JSON-RPC error object.
func mapError(err error) *RPCError {
	if err == nil {
		return nil
	}

	var cwErr *codewellerrors.CodewellError
	if errors.As(err, &cwErr) {
		switch cwErr.Category {
		case codewellerrors.CategoryValidation:
			return &RPCError{Code: ErrCodeInvalidParams, Message: cwErr.Message}
		case codewellerrors.CategoryIO:
			return &RPCError{Code: ErrCodeNotFound, Message: cwErr.Message}
		default:
			return &RPCError{Code: ErrCodeInternalError, Message: cwErr.Message}
		}
	}

	switch {
	case errors.Is(err, ErrOutsideRoot):
		return &RPCError{Code: ErrCodeInvalidParams, Message: err.Error()}
	default:
		return &RPCError{Code: ErrCodeInternalError, Message: err.Error()}
	}
}
