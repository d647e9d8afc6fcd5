package chat

import (
	"fmt"

	"github.com/matheus3301/daychat/internal/dayfmt"
)

// Classifier produces day and time labels for feed timestamps.
// *dayfmt.Classifier is the production implementation.
type Classifier interface {
	Classify(ts string) (dayfmt.Labels, error)
	TimeOfDayNow() string
	Today() string
}

// MergePage folds a freshly loaded page into the groups already displayed.
//
// Pages load backward, so every message in raw is older than every message
// in existing. The page's newest same-day run continues existing[0] when the
// day labels match and is merged into it; the remaining messages form new
// groups placed before all existing ones. existing is not modified.
//
// A malformed timestamp panics: it is a feed defect, and skipping the message
// would silently corrupt the day buckets.
func MergePage(existing []MessageGroup, raw []RawMessage, clf Classifier) []MessageGroup {
	runs := partition(raw, clf)

	merged := make([]MessageGroup, 0, len(runs)+len(existing))
	tail := existing
	if len(runs) > 0 && len(existing) > 0 && runs[len(runs)-1].Header == existing[0].Header {
		last := runs[len(runs)-1]
		runs = runs[:len(runs)-1]

		msgs := make([]Message, 0, len(last.Messages)+len(existing[0].Messages))
		msgs = append(msgs, last.Messages...)
		msgs = append(msgs, existing[0].Messages...)

		merged = append(merged, runs...)
		merged = append(merged, MessageGroup{Header: existing[0].Header, Messages: msgs})
		tail = existing[1:]
	} else {
		merged = append(merged, runs...)
	}
	return append(merged, tail...)
}

// partition maps raw messages to display messages and splits them into
// maximal contiguous runs sharing a day label.
func partition(raw []RawMessage, clf Classifier) []MessageGroup {
	var runs []MessageGroup
	for _, r := range raw {
		labels, err := clf.Classify(r.DateTime)
		if err != nil {
			panic(fmt.Sprintf("chat: feed message %q: %v", r.ID, err))
		}
		msg := fromRaw(r, labels.Time)
		if n := len(runs); n > 0 && runs[n-1].Header == labels.Day {
			runs[n-1].Messages = append(runs[n-1].Messages, msg)
			continue
		}
		runs = append(runs, MessageGroup{Header: labels.Day, Messages: []Message{msg}})
	}
	return runs
}

func fromRaw(r RawMessage, timeOfDay string) Message {
	sender := Self()
	if r.Sender != nil {
		sender = Other(*r.Sender)
	}
	return Message{
		ID:       r.ID,
		Text:     r.Text,
		Sender:   sender,
		Delivery: Sent(timeOfDay),
	}
}
