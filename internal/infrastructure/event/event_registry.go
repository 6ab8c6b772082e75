package event

import "github.com/itam/backend/internal/domain/transition"

// RegisterAllEvents registers every event type written to the outbox, so the
// processor can decode it again
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.Register(transition.EventTypeAssetsTransitioned, &transition.AssetsTransitionedEvent{})
}
