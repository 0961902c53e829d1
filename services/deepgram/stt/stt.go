// Package stt implements the speech.Service contract on Deepgram's
// streaming recognition websocket. One connection per Start/Stop cycle;
// restart policy lives in the controller, not here, so a dropped connection
// surfaces as an Ended notification and nothing else.
package stt

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"voxkit/core"
	"voxkit/speech"
	"voxkit/utils/audio"
)

const keepAliveInterval = 10 * time.Second

// Config holds the recognizer options sent as /v1/listen query parameters.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Language       string
	InterimResults bool
	Punctuate      bool
	SmartFormat    bool
	EndpointingMs  int
	Keywords       []string
}

// DefaultConfig returns a config with sensible defaults; override only what
// you need.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "wss://api.deepgram.com",
		Model:          "nova-2",
		InterimResults: true,
		Punctuate:      true,
		SmartFormat:    true,
	}
}

// Service streams microphone audio to Deepgram and reshapes its Results
// messages into the append-only entry list the controller consumes.
type Service struct {
	cfg    Config
	logger *core.Logger
	notif  chan speech.Notification

	mu       sync.Mutex
	conn     *websocket.Conn
	entries  []speech.ResultEntry
	running  bool
	stopping bool
	done     chan struct{}
}

func NewService(cfg Config, logger *core.Logger) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, core.Errorf(core.ErrorKindConfiguration, "deepgram.stt", "Deepgram API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "wss://api.deepgram.com"
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Service{
		cfg:    cfg,
		logger: logger.With(map[string]any{"component": "deepgram.stt"}),
		notif:  make(chan speech.Notification, 16),
	}, nil
}

func (s *Service) Notifications() <-chan speech.Notification {
	return s.notif
}

// Start dials the websocket. The entry list is per connection: a new Start
// begins a new utterance history.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	wsURL, err := s.buildURL()
	if err != nil {
		s.mu.Unlock()
		return core.NewError(core.ErrorKindConfiguration, "deepgram.start", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{
		"Authorization": {"Token " + s.cfg.APIKey},
	})
	if err != nil {
		s.mu.Unlock()
		return core.NewError(core.ErrorKindRecognition, "deepgram.start", err)
	}
	s.conn = conn
	s.entries = nil
	s.running = true
	s.stopping = false
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.notif <- speech.Notification{Kind: speech.NotificationStarted}
	go s.readLoop(conn)
	go s.keepAlive(conn, done)
	return nil
}

// Stop requests a clean shutdown. The Ended notification arrives
// asynchronously when the read loop drains the close handshake.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.stopping = true
	if msg, err := sonic.Marshal(listenControl{Type: "CloseStream"}); err == nil {
		_ = s.conn.WriteMessage(websocket.TextMessage, msg)
	}
	_ = s.conn.Close()
	return nil
}

// SendAudio forwards one chunk to the live connection as 16-bit PCM.
func (s *Service) SendAudio(chunk core.AudioChunk) error {
	pcm, err := audio.DecodeToPCM(chunk)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.conn == nil {
		return core.Errorf(core.ErrorKindRecognition, "deepgram.send", "not connected")
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, pcm.Data); err != nil {
		return core.NewError(core.ErrorKindRecognition, "deepgram.send", err)
	}
	return nil
}

func (s *Service) readLoop(conn *websocket.Conn) {
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			s.teardown(err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := s.handleMessage(message); err != nil {
			s.logger.Debugf("dropping unparseable message: %v", err)
		}
	}
}

// teardown reports how the connection died. A requested stop or a normal
// server close is a plain Ended; anything else is an error followed by
// Ended, which the controller treats as non-retriable.
func (s *Service) teardown(readErr error) {
	s.mu.Lock()
	wasStopping := s.stopping
	s.running = false
	s.stopping = false
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	s.mu.Unlock()

	clean := wasStopping || websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway)
	if !clean {
		s.notif <- speech.Notification{
			Kind:    speech.NotificationError,
			Code:    "network",
			Message: readErr.Error(),
		}
	}
	s.notif <- speech.Notification{Kind: speech.NotificationEnded}
}

func (s *Service) handleMessage(message []byte) error {
	var base struct {
		Type string `json:"type"`
	}
	if err := sonic.Unmarshal(message, &base); err != nil {
		return fmt.Errorf("parse message type: %w", err)
	}

	switch base.Type {
	case "Results":
		var result listenResults
		if err := sonic.Unmarshal(message, &result); err != nil {
			return fmt.Errorf("parse results: %w", err)
		}
		s.processResults(result)
	case "Metadata", "UtteranceEnd", "SpeechStarted":
		// informational only
	default:
		return fmt.Errorf("unknown message type %q", base.Type)
	}
	return nil
}

// processResults folds one Results message into the entry list: interim
// transcripts replace the trailing interim entry, finals are appended and
// never rewritten. Every change ships the full list, matching the batched
// shape the controller's consumed cursor expects.
func (s *Service) processResults(result listenResults) {
	if len(result.Channel.Alternatives) == 0 {
		return
	}
	transcript := result.Channel.Alternatives[0].Transcript
	final := result.IsFinal || result.SpeechFinal || result.FromFinalize

	s.mu.Lock()
	if n := len(s.entries); n > 0 && !s.entries[n-1].Final {
		s.entries = s.entries[:n-1]
	}
	if transcript != "" {
		text := transcript
		if final {
			text += " "
		}
		s.entries = append(s.entries, speech.ResultEntry{Text: text, Final: final})
	}
	snapshot := make([]speech.ResultEntry, len(s.entries))
	copy(snapshot, s.entries)
	s.mu.Unlock()

	if len(snapshot) > 0 {
		s.notif <- speech.Notification{Kind: speech.NotificationResult, Entries: snapshot}
	}
}

func (s *Service) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			msg, err := sonic.Marshal(listenControl{Type: "KeepAlive"})
			if err != nil {
				continue
			}
			s.mu.Lock()
			if s.running && s.conn == conn {
				_ = conn.WriteMessage(websocket.TextMessage, msg)
			}
			s.mu.Unlock()
		}
	}
}

func (s *Service) buildURL() (string, error) {
	base, err := url.Parse(s.cfg.BaseURL + "/v1/listen")
	if err != nil {
		return "", err
	}

	q := base.Query()
	if s.cfg.Model != "" {
		q.Set("model", s.cfg.Model)
	}
	if s.cfg.Language != "" {
		q.Set("language", s.cfg.Language)
	}
	q.Set("interim_results", boolToString(s.cfg.InterimResults))
	q.Set("punctuate", boolToString(s.cfg.Punctuate))
	q.Set("smart_format", boolToString(s.cfg.SmartFormat))
	if s.cfg.EndpointingMs > 0 {
		q.Set("endpointing", fmt.Sprintf("%d", s.cfg.EndpointingMs))
	}
	for _, keyword := range s.cfg.Keywords {
		q.Add("keywords", keyword)
	}
	q.Set("encoding", "linear16")
	q.Set("sample_rate", "16000")
	q.Set("channels", "1")

	base.RawQuery = q.Encode()
	return base.String(), nil
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Message shapes from the /v1/listen AsyncAPI specification, reduced to the
// fields this service reads.

type listenResults struct {
	Type        string  `json:"type"`
	Duration    float64 `json:"duration"`
	Start       float64 `json:"start"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
	FromFinalize bool `json:"from_finalize,omitempty"`
}

type listenControl struct {
	Type string `json:"type"`
}
