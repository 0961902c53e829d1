//go:build !linux

package pulse

import (
	"context"

	"voxkit/capture"
	"voxkit/core"
)

// Config selects the recorded source; unused off Linux.
type Config struct {
	Source string
	Mic    bool
}

// Service reports capture.ErrUnsupported on hosts without PulseAudio.
type Service struct{}

func NewService(Config, *core.Logger) *Service {
	return &Service{}
}

func (*Service) RequestCapture(context.Context) (capture.Stream, error) {
	return nil, capture.ErrUnsupported
}
