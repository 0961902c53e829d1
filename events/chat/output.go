package chat

// TurnStartedEvent marks the start of a streaming turn. MessageID is the
// assistant placeholder the deltas will be applied to.
type TurnStartedEvent struct {
	MessageID int64
}

func (e *TurnStartedEvent) GetId() string {
	return "chat.turn_started"
}

// ResponseChunkEvent carries one streamed delta, in arrival order.
type ResponseChunkEvent struct {
	MessageID int64
	Chunk     string
}

func (e *ResponseChunkEvent) GetId() string {
	return "chat.response_chunk"
}

// ResponseCompletedEvent marks normal completion of a turn.
type ResponseCompletedEvent struct {
	MessageID int64
	FullText  string
}

func (e *ResponseCompletedEvent) GetId() string {
	return "chat.response_completed"
}

// TurnFailedEvent marks a transport failure mid-stream. The placeholder
// message has already been removed from the log when this is published.
type TurnFailedEvent struct {
	MessageID int64
	Error     string
}

func (e *TurnFailedEvent) GetId() string {
	return "chat.turn_failed"
}
