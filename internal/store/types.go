package store

import "time"

// TimeLayout is the stored form of a message's date_time column.
const TimeLayout = time.RFC3339

// Message is one row of the feed. An empty Sender marks a message written by
// the session owner.
type Message struct {
	Seq      int64
	ID       string
	Text     string
	Sender   string
	DateTime string
	SentAt   int64
}

// FromSelf reports whether the session owner wrote m.
func (m Message) FromSelf() bool {
	return m.Sender == ""
}

// Time returns the message timestamp.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.SentAt).UTC()
}

func newMessage(id, sender, text string, at time.Time) Message {
	at = at.UTC()
	return Message{
		ID:       id,
		Text:     text,
		Sender:   sender,
		DateTime: at.Format(TimeLayout),
		SentAt:   at.UnixMilli(),
	}
}
