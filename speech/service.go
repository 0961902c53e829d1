// Package speech wraps a continuous dictation service behind a typed
// notification channel and owns the auto-restart policy for recognizers that
// silently time out when the user pauses.
package speech

import "errors"

// ErrUnsupported is returned by factories when the host has no speech
// recognition capability. Callers should degrade to typed input.
var ErrUnsupported = errors.New("speech: recognition not supported on this host")

// NotificationKind enumerates the recognizer's platform notifications.
type NotificationKind int

const (
	// NotificationStarted: the recognizer is live and listening.
	NotificationStarted NotificationKind = iota + 1
	// NotificationResult: a result batch for the current utterance group.
	NotificationResult
	// NotificationError: a platform-level failure. An Ended notification
	// usually follows.
	NotificationError
	// NotificationEnded: the recognition session terminated, solicited or not.
	NotificationEnded
)

// ResultEntry is one entry of an utterance group's result list. The list is
// append-only: entries may flip from interim to final in place, but already
// final entries never change.
type ResultEntry struct {
	Text  string
	Final bool
}

// Notification is one platform event. Entries carries the full current result
// list for NotificationResult; Code and Message are set for NotificationError.
type Notification struct {
	Kind    NotificationKind
	Entries []ResultEntry
	Code    string
	Message string
}

// Service is the platform recognizer contract. Start begins a continuous
// dictation session; Stop is a request only, actual cessation is signaled by
// a later NotificationEnded, never by Stop returning. The notification
// channel stays open across Start/Stop cycles so the controller can restart
// the service; it closes only when the service is discarded for good.
type Service interface {
	Start() error
	Stop() error
	Notifications() <-chan Notification
}
