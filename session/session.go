// Package session holds the conversation orchestrator: one goroutine-safe
// object owning the message log, the chat-session handle, and the references
// to the speech and capture controllers whose transcripts become turns.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"voxkit/capture"
	"voxkit/chat"
	"voxkit/core"
	captureevents "voxkit/events/capture"
	chatevents "voxkit/events/chat"
	speechevents "voxkit/events/speech"
	"voxkit/metrics"
	"voxkit/speech"
)

// ErrTurnInFlight is returned when a turn is submitted while a previous
// turn's response is still streaming. Streamed turns have no cancellation
// primitive, so overlapping submissions are rejected rather than queued.
var ErrTurnInFlight = errors.New("session: a turn is already streaming")

// Config carries the initial session context. Both fields can be replaced
// later with SetContext; the change takes effect at the next initialization.
type Config struct {
	SystemInstruction string
	PrimingParts      []core.PrimingPart
}

// ConversationSession multiplexes typed turns, recognized speech, and
// captured-tab transcripts into one ordered conversation. All log mutations
// run under a single mutex, so each notification is applied to completion
// before the next is looked at.
type ConversationSession struct {
	gateway chat.Gateway
	speech  *speech.Controller  // optional
	capture *capture.Controller // optional
	rec     *metrics.Recorder
	logger  *core.Logger
	out     chan *core.EventPacket

	mu         sync.Mutex
	sessionCtx core.SessionContext
	handle     chat.Session
	messages   []core.Message
	nextID     int64
	turnActive bool
	currentErr error
}

// New assembles a conversation session. speechCtrl and captureCtrl may be
// nil when the host lacks the corresponding capability.
func New(gateway chat.Gateway, speechCtrl *speech.Controller, captureCtrl *capture.Controller, rec *metrics.Recorder, cfg Config, logger *core.Logger) *ConversationSession {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &ConversationSession{
		gateway: gateway,
		speech:  speechCtrl,
		capture: captureCtrl,
		rec:     rec,
		logger:  logger.With(map[string]any{"component": "session"}),
		out:     make(chan *core.EventPacket, 128),
		sessionCtx: core.SessionContext{
			SystemInstruction: cfg.SystemInstruction,
			PrimingParts:      cfg.PrimingParts,
		},
	}
}

// Events returns the merged notification stream: the session's own turn
// events plus everything relayed from the speech and capture controllers.
func (s *ConversationSession) Events() <-chan *core.EventPacket {
	return s.out
}

// SetContext replaces the session context used by the next Initialize or
// NewSession. The live chat session is not touched.
func (s *ConversationSession) SetContext(sc core.SessionContext) {
	s.mu.Lock()
	s.sessionCtx = sc
	s.mu.Unlock()
}

// Initialize opens the gateway session with the current context and resets
// the metrics baseline to the priming token estimate. A prior handle is
// closed first; a credential failure surfaces as a configuration error and
// is never retried here.
func (s *ConversationSession) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked(ctx)
}

func (s *ConversationSession) initializeLocked(ctx context.Context) error {
	if s.handle != nil {
		if err := s.handle.Close(); err != nil {
			s.logger.Warnf("closing previous chat session: %v", err)
		}
		s.handle = nil
	}
	handle, err := s.gateway.Open(ctx, s.sessionCtx)
	if err != nil {
		return err
	}
	s.handle = handle
	s.rec.ResetSession(primingTokens(s.sessionCtx))
	s.logger.Info("chat session initialized")
	return nil
}

// primingTokens estimates the token weight of the priming context: the
// system instruction and text parts by text length, inline binary parts by
// byte length.
func primingTokens(sc core.SessionContext) int {
	n := metrics.EstimateTokens(sc.SystemInstruction)
	for _, p := range sc.PrimingParts {
		if p.IsText() {
			n += metrics.EstimateTokens(p.Text)
		} else {
			n += metrics.EstimateBytes(len(p.Data))
		}
	}
	return n
}

// SendTurn submits one user turn. Blank text is a silent no-op; a turn
// submitted while another is streaming is rejected with ErrTurnInFlight.
// The chat session is opened lazily on the first turn.
func (s *ConversationSession) SendTurn(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.mu.Lock()
	if s.turnActive {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	if s.handle == nil {
		if err := s.initializeLocked(ctx); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.appendLocked(core.MessageRoleUser, text, core.MessageStatusComplete)
	placeholderID := s.appendLocked(core.MessageRoleAssistant, "", core.MessageStatusPending)
	s.turnActive = true
	s.currentErr = nil
	handle := s.handle
	s.mu.Unlock()

	s.rec.StartTurn(text)
	s.publish(&chatevents.TurnStartedEvent{MessageID: placeholderID})

	// Unbuffered delta channel: every delta is handed over before the
	// end/error signal can win a select, so completion is observed strictly
	// after the last delta.
	outChan := make(chan string)
	endChan := make(chan struct{}, 1)
	errChan := make(chan error, 1)
	start := time.Now()

	go handle.StreamTurn(ctx, text, outChan, endChan, errChan)
	go s.consumeTurn(placeholderID, start, outChan, endChan, errChan)
	return nil
}

func (s *ConversationSession) consumeTurn(id int64, start time.Time, outChan <-chan string, endChan <-chan struct{}, errChan <-chan error) {
	first := true
	for {
		select {
		case delta := <-outChan:
			if first {
				s.rec.FirstChunk(time.Since(start))
				first = false
			}
			s.applyDelta(id, delta)
			s.publish(&chatevents.ResponseChunkEvent{MessageID: id, Chunk: delta})
		case <-endChan:
			full := s.completeTurn(id, time.Since(start))
			s.publish(&chatevents.ResponseCompletedEvent{MessageID: id, FullText: full})
			return
		case err := <-errChan:
			s.failTurn(id, err)
			s.publish(&chatevents.TurnFailedEvent{MessageID: id, Error: err.Error()})
			return
		}
	}
}

func (s *ConversationSession) applyDelta(id int64, delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg := s.findLocked(id); msg != nil {
		msg.Text += delta
		msg.Status = core.MessageStatusStreaming
	}
}

func (s *ConversationSession) completeTurn(id int64, total time.Duration) string {
	s.mu.Lock()
	var full string
	if msg := s.findLocked(id); msg != nil {
		msg.Status = core.MessageStatusComplete
		full = msg.Text
	}
	s.turnActive = false
	s.mu.Unlock()

	s.rec.CompleteTurn(full, total)
	return full
}

// failTurn removes the placeholder wholesale: a partial response never stays
// in the log. The user message that prompted it is kept.
func (s *ConversationSession) failTurn(id int64, err error) {
	s.mu.Lock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	s.currentErr = err
	s.turnActive = false
	s.mu.Unlock()

	s.logger.Warnf("turn failed: %v", err)
}

// NewSession discards the conversation log and opens a fresh chat session
// with the current (possibly edited) context. Message IDs keep increasing
// across resets. A streaming turn blocks the reset.
func (s *ConversationSession) NewSession(ctx context.Context) error {
	if s.speech != nil && s.speech.State().Listening {
		s.speech.Stop()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turnActive {
		return ErrTurnInFlight
	}
	s.messages = nil
	s.currentErr = nil
	return s.initializeLocked(ctx)
}

// StartListening starts the speech recognizer. When a capture is active and
// the recognizer would read the default microphone, the request is rejected:
// the recognizer would transcribe the captured playback as user speech.
func (s *ConversationSession) StartListening() error {
	if s.speech == nil {
		return core.Errorf(core.ErrorKindValidation, "session.listen", "no speech recognizer configured")
	}
	if s.capture != nil && s.capture.Active() && s.speech.UsesDefaultDevice() {
		return core.Errorf(core.ErrorKindValidation, "session.listen",
			"tab capture is active and the recognizer reads the default microphone; configure a dedicated input device before listening")
	}
	return s.speech.Start()
}

// StopListening stops the recognizer if one is configured.
func (s *ConversationSession) StopListening() {
	if s.speech != nil {
		s.speech.Stop()
	}
}

// StartCapture requests a tab/display capture.
func (s *ConversationSession) StartCapture(ctx context.Context) error {
	if s.capture == nil {
		return core.Errorf(core.ErrorKindValidation, "session.capture", "no capture service configured")
	}
	return s.capture.Start(ctx)
}

// StopCapture releases the capture stream if one is open.
func (s *ConversationSession) StopCapture() {
	if s.capture != nil {
		s.capture.Stop()
	}
}

// Run is the session's event loop: it consumes the controllers' streams,
// feeds final transcripts into SendTurn, and relays every packet to
// Events(). Returns when ctx is done.
func (s *ConversationSession) Run(ctx context.Context) {
	var speechEvents, captureEvents <-chan *core.EventPacket
	if s.speech != nil {
		speechEvents = s.speech.Events()
	}
	if s.capture != nil {
		captureEvents = s.capture.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-speechEvents:
			if ev, ok := p.Event.(*speechevents.FinalTranscriptEvent); ok {
				if err := s.SendTurn(ctx, ev.Text); err != nil {
					s.logger.Warnf("dropping recognized turn: %v", err)
				}
			}
			s.relay(p)
		case p := <-captureEvents:
			if ev, ok := p.Event.(*captureevents.TranscriptEvent); ok {
				if err := s.SendTurn(ctx, ev.Text); err != nil {
					s.logger.Warnf("dropping captured turn: %v", err)
				}
			}
			s.relay(p)
		}
	}
}

// Messages returns a copy of the conversation log.
func (s *ConversationSession) Messages() []core.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Metrics returns the current metrics snapshot.
func (s *ConversationSession) Metrics() metrics.Snapshot {
	return s.rec.Snapshot()
}

// CurrentError returns the error of the most recent failed turn, cleared
// when a new turn is submitted.
func (s *ConversationSession) CurrentError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentErr
}

// TurnActive reports whether a response is currently streaming.
func (s *ConversationSession) TurnActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnActive
}

func (s *ConversationSession) appendLocked(role core.MessageRole, text string, status core.MessageStatus) int64 {
	s.nextID++
	s.messages = append(s.messages, core.Message{
		ID:     s.nextID,
		Role:   role,
		Text:   text,
		Status: status,
	})
	return s.nextID
}

func (s *ConversationSession) findLocked(id int64) *core.Message {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return &s.messages[i]
		}
	}
	return nil
}

func (s *ConversationSession) publish(ev core.IEvent) {
	s.out <- core.NewEventPacket(ev, "ConversationSession")
}

func (s *ConversationSession) relay(p *core.EventPacket) {
	s.out <- p
}
