package bus

import "time"

// Event kinds published by the messaging layer. Subscribers filter by
// namespace prefix, e.g. "message." or "network.".
const (
	KindNetworkOnline  = "network.online"
	KindNetworkOffline = "network.offline"
	KindMessageQueued  = "message.queued"
	KindMessageSent    = "message.sent"
	KindMessageFailed  = "message.send_failed"
)

// Event is a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
