package chat

import "fmt"

// SenderKind distinguishes the session owner from other participants.
type SenderKind uint8

const (
	SenderSelf SenderKind = iota + 1
	SenderOther
)

// Sender identifies who wrote a message. Name is only set for SenderOther.
type Sender struct {
	Kind SenderKind
	Name string
}

// Self returns the sender for messages written by the session owner.
func Self() Sender { return Sender{Kind: SenderSelf} }

// Other returns the sender for a message written by someone else.
func Other(name string) Sender { return Sender{Kind: SenderOther, Name: name} }

func (s Sender) String() string {
	switch s.Kind {
	case SenderSelf:
		return "you"
	case SenderOther:
		return s.Name
	default:
		return "unknown"
	}
}

// DeliveryKind enumerates the delivery lifecycle of a message.
type DeliveryKind uint8

const (
	DeliverySending DeliveryKind = iota + 1
	DeliverySent
	DeliveryFailed
)

func (k DeliveryKind) String() string {
	switch k {
	case DeliverySending:
		return "sending"
	case DeliverySent:
		return "sent"
	case DeliveryFailed:
		return "failed_to_send"
	default:
		return fmt.Sprintf("delivery(%d)", uint8(k))
	}
}

// DeliveryState is the delivery status of a message. Time carries the
// time-of-day label and is only set for DeliverySent.
type DeliveryState struct {
	Kind DeliveryKind
	Time string
}

// Sending marks an optimistic message awaiting the feed.
func Sending() DeliveryState { return DeliveryState{Kind: DeliverySending} }

// Sent marks a delivered message shown at the given time of day.
func Sent(timeOfDay string) DeliveryState {
	return DeliveryState{Kind: DeliverySent, Time: timeOfDay}
}

// FailedToSend marks a message the feed rejected; it can be retried.
func FailedToSend() DeliveryState { return DeliveryState{Kind: DeliveryFailed} }

func (d DeliveryState) String() string {
	if d.Kind == DeliverySent {
		return "sent(" + d.Time + ")"
	}
	return d.Kind.String()
}

// Message is a single chat entry. Messages are values: a delivery change is
// represented by replacing the message, matched on ID.
type Message struct {
	ID       string
	Text     string
	Sender   Sender
	Delivery DeliveryState
}

func (m Message) String() string {
	return fmt.Sprintf("%s[%s %s]: %q", m.ID, m.Sender, m.Delivery, m.Text)
}

// MessageGroup is a run of messages sharing one day label, oldest first.
type MessageGroup struct {
	Header   string
	Messages []Message
}

// Equal reports whether two groups have the same header and messages.
func (g MessageGroup) Equal(o MessageGroup) bool {
	if g.Header != o.Header || len(g.Messages) != len(o.Messages) {
		return false
	}
	for i := range g.Messages {
		if g.Messages[i] != o.Messages[i] {
			return false
		}
	}
	return true
}
