package core

import "pkt.systems/quicktext/schema"

// EventSink receives registry notifications.
type EventSink interface {
	OnTabEvent(event schema.TabEvent)
}
