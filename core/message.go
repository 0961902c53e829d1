package core

// MessageRole identifies which side of the conversation produced a message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// MessageStatus tracks the lifecycle of a message in the log. Assistant
// messages are appended as pending, move to streaming while deltas arrive,
// and end complete or failed. A failed placeholder is removed wholesale
// rather than kept in the log.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusStreaming MessageStatus = "streaming"
	MessageStatusComplete  MessageStatus = "complete"
	MessageStatusFailed    MessageStatus = "failed"
)

// Message is one entry of the conversation log. IDs are assigned by the
// session from a monotonic counter and stay unique across session resets.
type Message struct {
	ID     int64
	Role   MessageRole
	Text   string // mutable while Status == streaming
	Status MessageStatus
}

// PrimingPart is one unit of priming context injected into a chat session
// before the first real turn. Exactly one of Text or Data is set; Data
// carries inline binary content with its declared media type.
type PrimingPart struct {
	Text     string
	Data     []byte
	MIMEType string
}

// TextPart builds a text-blob priming part.
func TextPart(text string) PrimingPart {
	return PrimingPart{Text: text}
}

// InlinePart builds an inline-binary priming part with its media type.
func InlinePart(data []byte, mimeType string) PrimingPart {
	return PrimingPart{Data: data, MIMEType: mimeType}
}

// IsText reports whether the part is a text blob.
func (p PrimingPart) IsText() bool {
	return len(p.Data) == 0
}

// SessionContext is everything a chat session is primed with. Built once per
// session initialization and treated as immutable until the next new-session,
// which re-derives it wholesale.
type SessionContext struct {
	SystemInstruction string
	PrimingParts      []PrimingPart
}
