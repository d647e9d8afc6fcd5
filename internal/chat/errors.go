package chat

import "errors"

// LoadFailedMessage is shown for every failed page load. The cause is logged,
// never displayed.
const LoadFailedMessage = "Something went wrong"

var (
	// ErrEmptyMessage is returned by SendMessage when the typing buffer is blank.
	ErrEmptyMessage = errors.New("chat: message text is empty")
	// ErrUnknownMessage is returned by Retry for an ID that is not displayed.
	ErrUnknownMessage = errors.New("chat: message not found")
	// ErrNotRetryable is returned by Retry for a message that did not fail.
	ErrNotRetryable = errors.New("chat: message is not in a retryable state")
)
