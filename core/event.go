package core

import "github.com/google/uuid"

// IEvent is implemented by every typed notification exchanged between the
// controllers and the session. GetId returns a stable dotted identifier
// ("speech.final_transcript") used for logging and dispatch.
type IEvent interface {
	GetId() string
}

// EventPacket wraps an event with tracking metadata. Controllers publish
// packets on their output channel; the session's run loop is the single
// consumer, so handling one packet always runs to completion before the next.
type EventPacket struct {
	Event  IEvent
	Uid    string // unique identifier for tracing the packet
	Source string // identifier of the component that published the event
}

func NewEventPacket(event IEvent, source string) *EventPacket {
	return &EventPacket{
		Event:  event,
		Uid:    uuid.New().String(),
		Source: source,
	}
}
