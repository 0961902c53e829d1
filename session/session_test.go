package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxkit/capture"
	"voxkit/chat"
	"voxkit/core"
	chatevents "voxkit/events/chat"
	speechevents "voxkit/events/speech"
	"voxkit/metrics"
	"voxkit/speech"
)

var testPricing = metrics.Pricing{InputPerMillion: 0.1, OutputPerMillion: 0.4}

func newTestSession(fs *chat.FakeSession, cfg Config) (*ConversationSession, *chat.FakeGateway) {
	gw := &chat.FakeGateway{Session: fs}
	s := New(gw, nil, nil, metrics.NewRecorder(testPricing), cfg, core.NewNopLogger())
	return s, gw
}

// drainUntil reads session events until an event of the same type as want
// arrives, returning every event seen on the way.
func drainUntil(t *testing.T, s *ConversationSession, want core.IEvent) []core.IEvent {
	t.Helper()
	var seen []core.IEvent
	deadline := time.After(2 * time.Second)
	for {
		select {
		case p := <-s.Events():
			seen = append(seen, p.Event)
			if p.Event.GetId() == want.GetId() {
				return seen
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %T, saw %d events", want, len(seen))
			return nil
		}
	}
}

func TestSendTurnStreamsDeltasInOrder(t *testing.T) {
	fs := &chat.FakeSession{Deltas: []string{"Hi", " there!"}}
	s, gw := newTestSession(fs, Config{SystemInstruction: "Be brief."})

	require.NoError(t, s.SendTurn(context.Background(), "Hello"))
	seen := drainUntil(t, s, &chatevents.ResponseCompletedEvent{})

	// Turn started, one chunk per delta, then exactly one completion.
	require.Len(t, seen, 4)
	require.IsType(t, &chatevents.TurnStartedEvent{}, seen[0])
	assert.Equal(t, "Hi", seen[1].(*chatevents.ResponseChunkEvent).Chunk)
	assert.Equal(t, " there!", seen[2].(*chatevents.ResponseChunkEvent).Chunk)
	assert.Equal(t, "Hi there!", seen[3].(*chatevents.ResponseCompletedEvent).FullText)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, core.MessageRoleUser, msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Text)
	assert.Equal(t, core.MessageRoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hi there!", msgs[1].Text)
	assert.Equal(t, core.MessageStatusComplete, msgs[1].Status)

	snap := s.Metrics()
	assert.Positive(t, snap.TimeToFirstChunk)
	assert.Positive(t, snap.TotalResponseTime)
	assert.Equal(t, 2, snap.LastPromptTokens)   // "Hello"
	assert.Equal(t, 3, snap.LastResponseTokens) // "Hi there!"
	assert.Equal(t, 1, gw.Opens(), "lazy initialize opened exactly one session")
	assert.Equal(t, "Be brief.", gw.LastContext().SystemInstruction)
}

func TestSendTurnBlankIsNoOp(t *testing.T) {
	s, gw := newTestSession(&chat.FakeSession{}, Config{})

	require.NoError(t, s.SendTurn(context.Background(), "   \n\t"))
	assert.Empty(t, s.Messages())
	assert.Equal(t, 0, gw.Opens(), "blank turn must not touch the gateway")
}

func TestSendTurnRejectsWhileStreaming(t *testing.T) {
	fs := &chat.FakeSession{Deltas: []string{"slow"}, Release: make(chan struct{})}
	s, _ := newTestSession(fs, Config{})

	require.NoError(t, s.SendTurn(context.Background(), "first"))
	err := s.SendTurn(context.Background(), "second")
	assert.ErrorIs(t, err, ErrTurnInFlight)

	close(fs.Release)
	drainUntil(t, s, &chatevents.ResponseCompletedEvent{})
	assert.False(t, s.TurnActive())

	// The rejected turn left no trace in the log.
	assert.Equal(t, []string{"first"}, fs.Turns())
}

func TestTransportFailureRemovesPlaceholder(t *testing.T) {
	transportErr := core.Errorf(core.ErrorKindTransport, "chat.stream", "connection reset")
	fs := &chat.FakeSession{Err: transportErr}
	s, _ := newTestSession(fs, Config{})

	require.NoError(t, s.SendTurn(context.Background(), "Hello"))
	drainUntil(t, s, &chatevents.TurnFailedEvent{})

	msgs := s.Messages()
	require.Len(t, msgs, 1, "placeholder removed wholesale, user message kept")
	assert.Equal(t, core.MessageRoleUser, msgs[0].Role)
	assert.ErrorIs(t, s.CurrentError(), transportErr)

	// The session accepts the next turn; the failure did not wedge it.
	require.NoError(t, s.SendTurn(context.Background(), "again"))
	drainUntil(t, s, &chatevents.TurnFailedEvent{})
}

func TestInitializeConfigurationFailure(t *testing.T) {
	gw := &chat.FakeGateway{Err: core.Errorf(core.ErrorKindConfiguration, "chat.open", "invalid api key")}
	s := New(gw, nil, nil, metrics.NewRecorder(testPricing), Config{}, core.NewNopLogger())

	err := s.SendTurn(context.Background(), "Hello")
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindConfiguration, core.KindOf(err))
	assert.Empty(t, s.Messages(), "no messages are logged when the session cannot open")
}

func TestNewSessionResetsLogAndMetrics(t *testing.T) {
	fs := &chat.FakeSession{Deltas: []string{"answer"}}
	s, gw := newTestSession(fs, Config{
		SystemInstruction: "You are terse.", // 14 chars -> 4 tokens
		PrimingParts: []core.PrimingPart{
			core.TextPart("abcd"),                         // 1 token
			core.InlinePart(make([]byte, 8), "image/png"), // 2 tokens
		},
	})

	require.NoError(t, s.SendTurn(context.Background(), "Hello"))
	drainUntil(t, s, &chatevents.ResponseCompletedEvent{})
	require.Len(t, s.Messages(), 2)
	assert.Greater(t, s.Metrics().SessionPromptTokens, 7)

	require.NoError(t, s.NewSession(context.Background()))
	assert.Empty(t, s.Messages())
	assert.NoError(t, s.CurrentError())
	assert.True(t, fs.Closed(), "previous handle closed deterministically")
	assert.Equal(t, 2, gw.Opens())

	snap := s.Metrics()
	assert.Equal(t, 7, snap.SessionPromptTokens, "counters restart at the priming estimate")
	assert.Equal(t, 0, snap.SessionResponseTokens)
	assert.InDelta(t, 7.0/1e6*testPricing.InputPerMillion, snap.EstimatedCost, 1e-12)

	// IDs keep increasing across the reset.
	require.NoError(t, s.SendTurn(context.Background(), "Hi"))
	drainUntil(t, s, &chatevents.ResponseCompletedEvent{})
	assert.Greater(t, s.Messages()[0].ID, int64(2))
}

func TestNewSessionBlockedWhileStreaming(t *testing.T) {
	fs := &chat.FakeSession{Deltas: []string{"x"}, Release: make(chan struct{})}
	s, _ := newTestSession(fs, Config{})

	require.NoError(t, s.SendTurn(context.Background(), "Hello"))
	assert.ErrorIs(t, s.NewSession(context.Background()), ErrTurnInFlight)

	close(fs.Release)
	drainUntil(t, s, &chatevents.ResponseCompletedEvent{})
}

func TestStartListeningRejectedDuringDefaultMicCapture(t *testing.T) {
	speechSvc := speech.NewFakeService()
	speechSvc.AutoNotify = true
	defer speechSvc.Close()
	speechCtrl := speech.NewController(speechSvc, speech.Config{}, core.NewNopLogger())

	stream := capture.NewFakeStream(capture.TrackKindAudio)
	captureCtrl := capture.NewController(&capture.FakeService{Stream: stream}, nil, capture.Config{}, core.NewNopLogger())

	s := New(&chat.FakeGateway{Session: &chat.FakeSession{}}, speechCtrl, captureCtrl,
		metrics.NewRecorder(testPricing), Config{}, core.NewNopLogger())

	require.NoError(t, captureCtrl.Start(context.Background()))
	err := s.StartListening()
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))
	assert.Equal(t, 0, speechSvc.StartCalls())

	// With the capture released the same request goes through.
	captureCtrl.Stop()
	require.NoError(t, s.StartListening())
	s.StopListening()
}

func TestRunFeedsFinalTranscriptsIntoTurns(t *testing.T) {
	speechSvc := speech.NewFakeService()
	speechSvc.AutoNotify = true
	defer speechSvc.Close()
	speechCtrl := speech.NewController(speechSvc, speech.Config{InputDevice: "alsa:1"}, core.NewNopLogger())

	fs := &chat.FakeSession{Deltas: []string{"It is ", "noon."}}
	s := New(&chat.FakeGateway{Session: fs}, speechCtrl, nil,
		metrics.NewRecorder(testPricing), Config{}, core.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.NoError(t, s.StartListening())
	speechSvc.Push(speech.Notification{Kind: speech.NotificationResult, Entries: []speech.ResultEntry{
		{Text: "what time is it", Final: true},
	}})

	seen := drainUntil(t, s, &chatevents.ResponseCompletedEvent{})

	var sawFinal bool
	for _, ev := range seen {
		if f, ok := ev.(*speechevents.FinalTranscriptEvent); ok {
			sawFinal = true
			assert.Equal(t, "what time is it", f.Text)
		}
	}
	assert.True(t, sawFinal, "controller events are relayed to the caller")
	assert.Equal(t, []string{"what time is it"}, fs.Turns())

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "what time is it", msgs[0].Text)
	assert.Equal(t, "It is noon.", msgs[1].Text)
}
