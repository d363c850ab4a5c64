package publisher

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotReady means the gateway session did not become ready
	// within the caller's timeout. The caller may retry later.
	ErrSessionNotReady = errors.New("discord session is not ready")

	// ErrChannelUnavailable means the configured channel could not be
	// resolved. Requires an operator fix, not a retry.
	ErrChannelUnavailable = errors.New("target forum channel is unavailable")

	// ErrNotForumChannel means the configured channel exists but is not a
	// forum channel, so it cannot hold threads.
	ErrNotForumChannel = errors.New("target channel is not a forum channel")

	// ErrThreadNotFound is returned by Session.FetchThread when the remote
	// thread has been deleted.
	ErrThreadNotFound = errors.New("thread not found")
)

// AttachmentNotFoundError reports a request file path that does not exist.
type AttachmentNotFoundError struct {
	Path string
}

func (e *AttachmentNotFoundError) Error() string {
	return fmt.Sprintf("attachment file not found: %s", e.Path)
}

// PlatformError wraps an error returned by the Discord API for an operation
// that is terminal for the request.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("discord %s failed: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}
