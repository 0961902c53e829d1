package capture

// StartedEvent is published when a capture stream with audio is live.
type StartedEvent struct{}

func (e *StartedEvent) GetId() string {
	return "capture.started"
}

// StoppedEvent is published on any path out of the active state. Reason
// distinguishes an explicit stop from a platform "sharing stopped".
type StoppedEvent struct {
	Reason string
}

func (e *StoppedEvent) GetId() string {
	return "capture.stopped"
}

// ErrorEvent surfaces a capture failure (no audio shared, consent denied).
type ErrorEvent struct {
	Message string
}

func (e *ErrorEvent) GetId() string {
	return "capture.error"
}

// TranscriptEvent carries text transcribed from a captured audio segment.
// The session treats it like a finalized utterance.
type TranscriptEvent struct {
	Text string
}

func (e *TranscriptEvent) GetId() string {
	return "capture.transcript"
}
