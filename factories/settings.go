// Package factories assembles the conversation pipeline from environment
// settings: the chat gateway, the capability-aware speech and capture
// controllers, and the session that ties them together.
package factories

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings is the process configuration, read from the environment after
// godotenv has loaded the local .env file.
type Settings struct {
	OpenAIAPIKey    string
	ChatModel       string
	ChatMaxTokens   int
	ChatTemperature float32

	InputPricePerMillion  float64
	OutputPricePerMillion float64

	DeepgramAPIKey   string
	DeepgramModel    string
	DeepgramLanguage string

	SpeechInputDevice string

	CaptureSource   string
	CaptureSegment  time.Duration
	TranscribeModel string

	SystemInstruction  string
	PrimingFiles       []string
	MaxAttachmentBytes int

	LogLevel string
}

// LoadSettings reads every setting from the environment, applying defaults
// where a value is absent.
func LoadSettings() Settings {
	return Settings{
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		ChatModel:       envString("CHAT_MODEL", "gpt-4o-mini"),
		ChatMaxTokens:   envInt("CHAT_MAX_TOKENS", 0),
		ChatTemperature: float32(envFloat("CHAT_TEMPERATURE", 0)),

		InputPricePerMillion:  envFloat("PRICE_INPUT_PER_MILLION", 0.15),
		OutputPricePerMillion: envFloat("PRICE_OUTPUT_PER_MILLION", 0.60),

		DeepgramAPIKey:   os.Getenv("DEEPGRAM_API_KEY"),
		DeepgramModel:    envString("DEEPGRAM_MODEL", "nova-2"),
		DeepgramLanguage: os.Getenv("DEEPGRAM_LANGUAGE"),

		SpeechInputDevice: os.Getenv("SPEECH_INPUT_DEVICE"),

		CaptureSource:   os.Getenv("CAPTURE_SOURCE"),
		CaptureSegment:  time.Duration(envFloat("CAPTURE_SEGMENT_SECONDS", 5)) * time.Second,
		TranscribeModel: envString("TRANSCRIBE_MODEL", "whisper-1"),

		SystemInstruction:  envString("SYSTEM_INSTRUCTION", "You are a helpful voice assistant. Keep answers short."),
		PrimingFiles:       envList("PRIMING_FILES"),
		MaxAttachmentBytes: envInt("MAX_ATTACHMENT_BYTES", 0),

		LogLevel: envString("LOG_LEVEL", "info"),
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envList splits a comma-separated value, dropping empty elements.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
