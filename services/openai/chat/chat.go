// Package chat implements the chat.Gateway contract on the OpenAI
// chat-completion API. One Gateway is built per process; each Open verifies
// the credentials and returns a session carrying its own primed history.
package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"voxkit/chat"
	"voxkit/core"
)

// Config holds the configuration for the OpenAI gateway.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Gateway implements chat.Gateway using OpenAI.
type Gateway struct {
	client *openai.Client
	cfg    Config
	logger *core.Logger
}

// NewGateway validates the static configuration and builds the client. A
// missing API key is a configuration error before any network traffic.
func NewGateway(cfg Config, logger *core.Logger) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, core.Errorf(core.ErrorKindConfiguration, "openai.chat", "OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Gateway{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
		logger: logger.With(map[string]any{"component": "openai.chat"}),
	}, nil
}

// Open tests the connection and builds the priming exchange: the system
// instruction, a synthetic multi-content user message carrying the priming
// parts, and a fixed assistant acknowledgement. A rejected credential is a
// configuration error and must not be retried.
func (g *Gateway) Open(ctx context.Context, sc core.SessionContext) (chat.Session, error) {
	if _, err := g.client.ListModels(ctx); err != nil {
		return nil, core.NewError(core.ErrorKindConfiguration, "openai.chat.open", err)
	}
	g.logger.Info("chat session opened")
	return &session{gw: g, history: primingHistory(sc)}, nil
}

func primingHistory(sc core.SessionContext) []openai.ChatCompletionMessage {
	var history []openai.ChatCompletionMessage
	if sc.SystemInstruction != "" {
		history = append(history, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: sc.SystemInstruction,
		})
	}
	if len(sc.PrimingParts) == 0 {
		return history
	}

	parts := make([]openai.ChatMessagePart, 0, len(sc.PrimingParts)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: "Context for this conversation follows.",
	})
	for _, p := range sc.PrimingParts {
		if p.IsText() {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
			continue
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", p.MIMEType, base64.StdEncoding.EncodeToString(p.Data)),
			},
		})
	}
	history = append(history,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "Understood."},
	)
	return history
}

// session is one primed conversation. The exchange is committed to history
// only when the stream terminates normally, so a failed turn leaves the
// history exactly as it was.
type session struct {
	gw *Gateway

	mu      sync.Mutex
	history []openai.ChatCompletionMessage
}

func (s *session) StreamTurn(ctx context.Context, text string, outChan chan<- string, endChan chan<- struct{}, errChan chan<- error) {
	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}

	s.mu.Lock()
	messages := make([]openai.ChatCompletionMessage, len(s.history), len(s.history)+1)
	copy(messages, s.history)
	s.mu.Unlock()
	messages = append(messages, userMsg)

	stream, err := s.gw.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       s.gw.cfg.Model,
		Messages:    messages,
		MaxTokens:   s.gw.cfg.MaxTokens,
		Temperature: s.gw.cfg.Temperature,
		Stream:      true,
	})
	if err != nil {
		errChan <- core.NewError(core.ErrorKindTransport, "openai.chat.stream", err)
		return
	}
	defer stream.Close()

	var full strings.Builder
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			s.commit(userMsg, full.String())
			endChan <- struct{}{}
			return
		}
		if err != nil {
			errChan <- core.NewError(core.ErrorKindTransport, "openai.chat.stream", err)
			return
		}
		if len(response.Choices) == 0 {
			continue
		}
		if delta := response.Choices[0].Delta.Content; delta != "" {
			full.WriteString(delta)
			outChan <- delta
		}
	}
}

func (s *session) commit(userMsg openai.ChatCompletionMessage, assistantText string) {
	s.mu.Lock()
	s.history = append(s.history, userMsg, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: assistantText,
	})
	s.mu.Unlock()
}

// Close is a no-op: completion sessions hold no connection between turns.
func (s *session) Close() error {
	return nil
}
