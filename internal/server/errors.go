package server

import "errors"

// Failure taxonomy reported to callers. Terminal failures are never retried by
// the coordinator; transient persistence failures wrap the underlying cause.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadySubmitted = errors.New("already submitted")
	ErrLobbyFull        = errors.New("lobby full")
	ErrInvalid          = errors.New("invalid")
)

const (
	reasonNotFound         = "NotFound"
	reasonForbidden        = "Forbidden"
	reasonAlreadySubmitted = "AlreadySubmitted"
	reasonConflict         = "Conflict"
	reasonInvalid          = "Invalid"
	reasonTransient        = "Transient"
)

// failureReason maps an operation error to the wire reason string delivered
// to the calling connection only.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadySubmitted):
		return reasonAlreadySubmitted
	case errors.Is(err, ErrLobbyFull):
		return reasonConflict
	case errors.Is(err, ErrForbidden):
		return reasonForbidden
	case errors.Is(err, ErrNotFound):
		return reasonNotFound
	case errors.Is(err, ErrInvalid):
		return reasonInvalid
	default:
		return reasonTransient
	}
}
