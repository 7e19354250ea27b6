package relay

import (
	"errors"

	"github.com/romenn/site-worker/internal/submission"
)

var (
	ErrNotConfigured = errors.New("email service not configured")
	ErrDenied        = errors.New("submission rejected")

	// ErrInvalidEmail is returned for malformed addresses and for addresses
	// the verifier rejects.
	ErrInvalidEmail = submission.ErrInvalidEmail
)

// DeniedError carries the reason a relay policy gave for rejecting a
// submission. It matches ErrDenied.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	if e.Reason == "" {
		return ErrDenied.Error()
	}
	return ErrDenied.Error() + ": " + e.Reason
}

func (e *DeniedError) Unwrap() error {
	return ErrDenied
}

// Stage names the outbound email a SendError belongs to.
type Stage string

const (
	StageBusiness Stage = "business notification"
	StageClient   Stage = "client confirmation"
)

// SendError reports a failed outbound send. When the client confirmation
// fails, BusinessMessageID holds the id of the notification already sent.
type SendError struct {
	Stage             Stage
	BusinessMessageID string
	Err               error
}

func (e *SendError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *SendError) Unwrap() error {
	return e.Err
}
