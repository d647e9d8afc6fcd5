package chat

import (
	"fmt"
	"slices"
)

// validDeliveryTransitions defines how an outgoing message may move between
// delivery states. Sent is terminal.
var validDeliveryTransitions = map[DeliveryKind][]DeliveryKind{
	DeliverySending: {DeliverySent, DeliveryFailed},
	DeliveryFailed:  {DeliverySending},
	DeliverySent:    {},
}

// checkDeliveryTransition returns an error if a message may not move from one
// delivery state to another.
func checkDeliveryTransition(from, to DeliveryKind) error {
	if !slices.Contains(validDeliveryTransitions[from], to) {
		return fmt.Errorf("invalid delivery transition from %s to %s", from, to)
	}
	return nil
}
