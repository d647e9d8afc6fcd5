package chat

import "context"

// Feed is the paginated message source and submission endpoint the model
// talks to. Implementations own timeouts; any error is treated as a
// retryable transport failure.
type Feed interface {
	// LoadMessages returns page pageNumber (1-based). Page 1 holds the newest
	// messages and every following page holds older history. Messages within
	// a page are oldest first.
	LoadMessages(ctx context.Context, pageNumber int) (*Page, error)
	// SendMessage submits text and returns the server-assigned message ID.
	SendMessage(ctx context.Context, text string) (string, error)
}

// Page is one response of Feed.LoadMessages.
type Page struct {
	MoreExists bool         `json:"moreExists"`
	Messages   []RawMessage `json:"messages"`
}

// RawMessage is a message as served by the feed.
type RawMessage struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	// DateTime is an RFC 3339 timestamp.
	DateTime string `json:"dateTime"`
	// Sender is nil for messages written by the session owner, otherwise the
	// other participant's display name.
	Sender *string `json:"sender"`
}
