package bus

import "time"

// Event kinds published by the chat core and the feed service. Subscribers
// filter on prefixes such as "chat." or "chat.send_".
const (
	KindPageLoaded    = "chat.page_loaded"
	KindPageFailed    = "chat.page_failed"
	KindSendAck       = "chat.send_ack"
	KindSendFailed    = "chat.send_failed"
	KindPageServed    = "feed.page_served"
	KindMessageStored = "feed.message_stored"
)

// Event is a side notification. The chat view state itself is observed
// through chat.Model.Subscribe; events only report outcomes.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// PageLoaded is the payload of KindPageLoaded and KindPageServed.
type PageLoaded struct {
	Page       int
	Messages   int
	MoreExists bool
}

// PageFailed is the payload of KindPageFailed.
type PageFailed struct {
	Page int
	Err  error
}

// SendAck is the payload of KindSendAck.
type SendAck struct {
	PendingID string
	ServerID  string
	Retry     bool
}

// SendFailed is the payload of KindSendFailed.
type SendFailed struct {
	PendingID string
	Err       error
	Retry     bool
}

// MessageStored is the payload of KindMessageStored. Imports report the
// batch size in Count and leave ID empty.
type MessageStored struct {
	ID     string
	Origin string
	Count  int
}
