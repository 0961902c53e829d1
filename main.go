package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"voxkit/core"
	captureevents "voxkit/events/capture"
	chatevents "voxkit/events/chat"
	speechevents "voxkit/events/speech"
	"voxkit/factories"
	"voxkit/session"
)

func main() {
	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	settings := factories.LoadSettings()
	core.SetLogger(core.NewDevelopmentLogger(core.ParseLogLevel(settings.LogLevel)))
	logger := core.GetLogger()

	sess, err := factories.BuildConversationSession(settings, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build conversation session")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sess.Run(ctx)
	go printEvents(ctx, sess)

	fmt.Println("voxkit — type a message, or /listen /stop /capture /release /new /metrics /quit")
	repl(ctx, cancel, sess)

	logger.Info("shutting down")
}

func repl(ctx context.Context, cancel context.CancelFunc, sess *session.ConversationSession) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			cancel()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit":
			cancel()
			return
		case "/listen":
			report(sess.StartListening())
		case "/stop":
			sess.StopListening()
		case "/capture":
			report(sess.StartCapture(ctx))
		case "/release":
			sess.StopCapture()
		case "/new":
			report(sess.NewSession(ctx))
		case "/metrics":
			printMetrics(sess)
		default:
			report(sess.SendTurn(ctx, line))
		}
	}
}

func report(err error) {
	if err != nil {
		fmt.Printf("! %v\n", err)
	}
}

func printMetrics(sess *session.ConversationSession) {
	m := sess.Metrics()
	fmt.Printf("first chunk: %v  total: %v\n", m.TimeToFirstChunk, m.TotalResponseTime)
	fmt.Printf("last turn: %d prompt / %d response tokens\n", m.LastPromptTokens, m.LastResponseTokens)
	fmt.Printf("session:   %d prompt / %d response tokens, est. $%.6f\n",
		m.SessionPromptTokens, m.SessionResponseTokens, m.EstimatedCost)
}

// printEvents renders the merged event stream. Response chunks print inline
// so streamed answers appear as they arrive.
func printEvents(ctx context.Context, sess *session.ConversationSession) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-sess.Events():
			switch ev := p.Event.(type) {
			case *chatevents.ResponseChunkEvent:
				fmt.Print(ev.Chunk)
			case *chatevents.ResponseCompletedEvent:
				fmt.Println()
			case *chatevents.TurnFailedEvent:
				fmt.Printf("! turn failed: %s\n", ev.Error)
			case *speechevents.ListeningChangedEvent:
				if ev.Listening {
					fmt.Println("[listening]")
				} else {
					fmt.Println("[idle]")
				}
			case *speechevents.InterimTranscriptEvent:
				if ev.Text != "" {
					fmt.Printf("\r… %s", ev.Text)
				}
			case *speechevents.FinalTranscriptEvent:
				fmt.Printf("\ryou said: %s\n", ev.Text)
			case *speechevents.RecognitionErrorEvent:
				fmt.Printf("! recognition error (%s): %s\n", ev.Code, ev.Message)
			case *captureevents.StartedEvent:
				fmt.Println("[capturing tab audio]")
			case *captureevents.StoppedEvent:
				fmt.Printf("[capture %s]\n", ev.Reason)
			case *captureevents.TranscriptEvent:
				fmt.Printf("\rtab audio: %s\n", ev.Text)
			case *captureevents.ErrorEvent:
				fmt.Printf("! capture error: %s\n", ev.Message)
			}
		}
	}
}
