package factories

import (
	"context"
	"errors"
	"mime"
	"os"
	"path/filepath"

	"voxkit/capture"
	"voxkit/chat"
	"voxkit/core"
	"voxkit/metrics"
	"voxkit/services/deepgram/stt"
	openaichat "voxkit/services/openai/chat"
	openaitranscribe "voxkit/services/openai/transcribe"
	"voxkit/services/pulse"
	"voxkit/session"
	"voxkit/speech"
	"voxkit/transcribe"
)

// BuildChatGateway builds the OpenAI completion gateway.
func BuildChatGateway(s Settings, logger *core.Logger) (chat.Gateway, error) {
	return openaichat.NewGateway(openaichat.Config{
		APIKey:      s.OpenAIAPIKey,
		Model:       s.ChatModel,
		MaxTokens:   s.ChatMaxTokens,
		Temperature: s.ChatTemperature,
	}, logger)
}

// BuildSpeechController builds the recognizer stack: the Deepgram dictation
// service, the microphone feed pumping into it, and the controller that owns
// the listening state machine. Returns speech.ErrUnsupported when the host
// has no recognizer credentials.
func BuildSpeechController(s Settings, logger *core.Logger) (*speech.Controller, error) {
	if s.DeepgramAPIKey == "" {
		return nil, speech.ErrUnsupported
	}

	cfg := stt.DefaultConfig()
	cfg.APIKey = s.DeepgramAPIKey
	cfg.Model = s.DeepgramModel
	cfg.Language = s.DeepgramLanguage
	svc, err := stt.NewService(cfg, logger)
	if err != nil {
		return nil, err
	}

	startMicFeed(svc, s, logger)
	return speech.NewController(svc, speech.Config{InputDevice: s.SpeechInputDevice}, logger), nil
}

// startMicFeed records the configured input source and forwards its chunks
// to the recognizer. Chunks sent while the recognizer is between connections
// are dropped; a host without a microphone just leaves the feed silent.
func startMicFeed(svc *stt.Service, s Settings, logger *core.Logger) {
	go func() {
		mic := pulse.NewService(pulse.Config{Source: s.SpeechInputDevice, Mic: true}, logger)
		stream, err := mic.RequestCapture(context.Background())
		if err != nil {
			logger.Warnf("microphone unavailable, recognizer will stay silent: %v", err)
			return
		}
		for chunk := range stream.Audio() {
			if err := svc.SendAudio(chunk); err != nil && !core.IsKind(err, core.ErrorKindRecognition) {
				logger.Warnf("dropping microphone chunk: %v", err)
			}
		}
	}()
}

// BuildCaptureController builds the tab-audio capture stack over a
// PulseAudio monitor source. With OpenAI credentials available, captured
// segments are also transcribed into the conversation.
func BuildCaptureController(s Settings, logger *core.Logger) (*capture.Controller, error) {
	svc := pulse.NewService(pulse.Config{Source: s.CaptureSource}, logger)

	var tr transcribe.Transcriber
	if s.OpenAIAPIKey != "" {
		whisper, err := openaitranscribe.NewTranscriber(openaitranscribe.Config{
			APIKey: s.OpenAIAPIKey,
			Model:  s.TranscribeModel,
		})
		if err != nil {
			return nil, err
		}
		tr = whisper
	}

	return capture.NewController(svc, tr, capture.Config{SegmentDuration: s.CaptureSegment}, logger), nil
}

// BuildConversationSession assembles the full pipeline. Hosts missing a
// capability get a session without that input path rather than an error.
func BuildConversationSession(s Settings, logger *core.Logger) (*session.ConversationSession, error) {
	gateway, err := BuildChatGateway(s, logger)
	if err != nil {
		return nil, err
	}

	speechCtrl, err := BuildSpeechController(s, logger)
	if err != nil {
		if !errors.Is(err, speech.ErrUnsupported) {
			return nil, err
		}
		logger.Warn("speech recognition disabled: no Deepgram credentials")
		speechCtrl = nil
	}

	captureCtrl, err := BuildCaptureController(s, logger)
	if err != nil {
		return nil, err
	}

	parts, err := loadPrimingParts(s)
	if err != nil {
		return nil, err
	}

	rec := metrics.NewRecorder(metrics.Pricing{
		InputPerMillion:  s.InputPricePerMillion,
		OutputPerMillion: s.OutputPricePerMillion,
	})
	return session.New(gateway, speechCtrl, captureCtrl, rec, session.Config{
		SystemInstruction: s.SystemInstruction,
		PrimingParts:      parts,
	}, logger), nil
}

// loadPrimingParts reads the configured priming files through the validating
// builder, inferring each media type from the file extension.
func loadPrimingParts(s Settings) ([]core.PrimingPart, error) {
	builder := session.NewPrimingBuilder(s.MaxAttachmentBytes)
	for _, path := range s.PrimingFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, core.NewError(core.ErrorKindConfiguration, "factories.priming", err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = "text/plain"
		}
		if err := builder.Add(data, mimeType); err != nil {
			return nil, err
		}
	}
	return builder.Parts(), nil
}
