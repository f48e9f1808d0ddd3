package service

import (
	"context"

	"campusnet/internal/notifications"
)

// ActivityNotifier delivers best-effort activity events to a user.
type ActivityNotifier interface {
	Notify(ctx context.Context, recipientID string, event notifications.Event)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, notifications.Event) {}

func orNoop(n ActivityNotifier) ActivityNotifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// notify delivers event unless the recipient is the actor.
func notify(ctx context.Context, n ActivityNotifier, recipientID string, event notifications.Event) {
	if recipientID == "" || recipientID == event.ActorID {
		return
	}
	n.Notify(ctx, recipientID, event)
}
