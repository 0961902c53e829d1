package speech

import (
	"strings"
	"sync"

	"voxkit/core"
	events "voxkit/events/speech"
)

// State is a snapshot of the controller's externally visible state.
// ManualStop distinguishes a user-initiated stop from an unexpected
// termination and gates auto-restart.
type State struct {
	Listening   bool
	InterimText string
	ManualStop  bool
}

// Config holds controller options. InputDevice names the capture device the
// recognizer transcribes from; empty means the default physical microphone.
type Config struct {
	InputDevice string
}

// Controller drives one recognizer Service through the Idle/Listening state
// machine:
//
//	Idle      -> Listening  on successful Start
//	Listening -> Idle       on manual stop or on error
//	Listening -> Listening  on unsolicited Ended (auto-restart, one Start call)
//
// Any recognizer error forces ManualStop=true so a failing recognizer is
// never restarted in a loop.
type Controller struct {
	svc    Service
	cfg    Config
	logger *core.Logger
	out    chan *core.EventPacket

	mu         sync.Mutex
	listening  bool
	manualStop bool
	interim    string
	consumed   int // final entries of the current utterance group already emitted
}

// NewController wires a controller to svc and starts consuming its
// notifications. The pump exits when the service closes its channel.
func NewController(svc Service, cfg Config, logger *core.Logger) *Controller {
	if logger == nil {
		logger = core.GetLogger()
	}
	c := &Controller{
		svc:        svc,
		cfg:        cfg,
		logger:     logger.With(map[string]any{"component": "speech"}),
		out:        make(chan *core.EventPacket, 64),
		manualStop: true, // idle until the first Start
	}
	go c.pump()
	return c
}

// Events returns the controller's typed notification output.
func (c *Controller) Events() <-chan *core.EventPacket {
	return c.out
}

// InputDevice returns the configured recognizer input device; empty means the
// default physical microphone.
func (c *Controller) InputDevice() string {
	return c.cfg.InputDevice
}

// UsesDefaultDevice reports whether the recognizer reads the default mic.
func (c *Controller) UsesDefaultDevice() bool {
	return c.cfg.InputDevice == ""
}

// State returns a snapshot of the current listening state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Listening: c.listening, InterimText: c.interim, ManualStop: c.manualStop}
}

// Start begins continuous listening. No-op when already listening. A start
// failure surfaces as a recognition error and leaves the controller idle.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.listening {
		c.mu.Unlock()
		return nil
	}
	c.manualStop = false
	c.consumed = 0
	c.mu.Unlock()

	if err := c.svc.Start(); err != nil {
		c.mu.Lock()
		c.manualStop = true
		c.mu.Unlock()
		return core.NewError(core.ErrorKindRecognition, "speech.start", err)
	}
	return nil
}

// Stop requests a stop. Completion is signaled by the service's Ended
// notification, not by Stop returning.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.manualStop = true
	c.mu.Unlock()
	if err := c.svc.Stop(); err != nil {
		c.logger.Warnf("stop request failed: %v", err)
	}
}

func (c *Controller) pump() {
	for n := range c.svc.Notifications() {
		switch n.Kind {
		case NotificationStarted:
			c.handleStarted()
		case NotificationResult:
			c.handleResult(n.Entries)
		case NotificationError:
			c.handleError(n.Code, n.Message)
		case NotificationEnded:
			c.handleEnded()
		}
	}
}

func (c *Controller) handleStarted() {
	c.mu.Lock()
	wasListening := c.listening
	c.listening = true
	c.consumed = 0
	c.mu.Unlock()
	if !wasListening {
		c.publish(&events.ListeningChangedEvent{Listening: true})
	}
}

// handleResult accumulates only newly arrived entries: final entries before
// the consumed cursor were already emitted and must not be re-emitted.
// Non-final entries are concatenated into the interim transcript, which is
// republished on every batch.
func (c *Controller) handleResult(entries []ResultEntry) {
	c.mu.Lock()
	var finalText, interim string
	for i, e := range entries {
		if e.Final {
			if i >= c.consumed {
				finalText += e.Text
				c.consumed = i + 1
			}
		} else {
			interim += e.Text
		}
	}
	c.interim = interim
	c.mu.Unlock()

	c.publish(&events.InterimTranscriptEvent{Text: interim})
	if trimmed := strings.TrimSpace(finalText); trimmed != "" {
		c.publish(&events.FinalTranscriptEvent{Text: trimmed})
	}
}

// handleError terminates listening without retry. ManualStop is forced so the
// Ended notification that usually follows does not trigger a restart.
func (c *Controller) handleError(code, message string) {
	c.mu.Lock()
	c.manualStop = true
	wasListening := c.listening
	c.listening = false
	c.interim = ""
	c.consumed = 0
	c.mu.Unlock()

	c.logger.Warnf("recognition error: %s (%s)", message, code)
	c.publish(&events.RecognitionErrorEvent{Code: code, Message: message})
	if wasListening {
		c.publish(&events.ListeningChangedEvent{Listening: false})
	}
}

// handleEnded either finishes a manual stop or compensates for a recognizer
// that terminated on its own by issuing exactly one restart.
func (c *Controller) handleEnded() {
	c.mu.Lock()
	restart := c.listening && !c.manualStop
	if restart {
		// Listening -> Listening: the state machine never leaves Listening,
		// only the utterance group resets.
		c.interim = ""
		c.consumed = 0
		c.mu.Unlock()
		c.publish(&events.InterimTranscriptEvent{Text: ""})
		if err := c.svc.Start(); err != nil {
			c.handleError("restart-failed", err.Error())
		}
		return
	}

	wasListening := c.listening
	c.listening = false
	c.manualStop = true
	c.interim = ""
	c.consumed = 0
	c.mu.Unlock()
	if wasListening {
		c.publish(&events.ListeningChangedEvent{Listening: false})
	}
}

func (c *Controller) publish(ev core.IEvent) {
	c.out <- core.NewEventPacket(ev, "SpeechInputController")
}

