package speech

// ListeningChangedEvent is published whenever the recognizer transitions
// between Idle and Listening, by any path (manual, error, auto-restart).
type ListeningChangedEvent struct {
	Listening bool
}

func (e *ListeningChangedEvent) GetId() string {
	return "speech.listening_changed"
}

// InterimTranscriptEvent republishes the full provisional transcript of the
// current utterance group on every recognizer result.
type InterimTranscriptEvent struct {
	Text string
}

func (e *InterimTranscriptEvent) GetId() string {
	return "speech.interim_transcript"
}

// FinalTranscriptEvent delivers a finalized utterance exactly once. Text is
// trimmed and never blank.
type FinalTranscriptEvent struct {
	Text string
}

func (e *FinalTranscriptEvent) GetId() string {
	return "speech.final_transcript"
}

// RecognitionErrorEvent surfaces a platform recognizer failure. Listening has
// already been terminated and auto-restart suppressed when this is published.
type RecognitionErrorEvent struct {
	Code    string
	Message string
}

func (e *RecognitionErrorEvent) GetId() string {
	return "speech.recognition_error"
}
