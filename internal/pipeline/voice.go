// ABOUTME: Voice input capability consumed by the pipeline when an engine is present
// ABOUTME: Dictate transcribes one utterance and sends it like typed text

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/dheeraj009joshi/WeCare-sub002/internal/errors"
)

var ErrVoiceUnavailable = errors.New("voice input is not available")

// VoiceInput turns speech into text. Implementations own the audio device.
type VoiceInput interface {
	Transcribe(ctx context.Context) (string, error)
}

// VoiceAvailable reports whether a voice engine was configured.
func (p *Pipeline) VoiceAvailable() bool {
	return p.voice != nil
}

// Dictate records one utterance and sends the transcript in the active session.
func (p *Pipeline) Dictate(ctx context.Context) error {
	if p.voice == nil {
		return ErrVoiceUnavailable
	}

	transcript, err := p.voice.Transcribe(ctx)
	if err != nil {
		err = fmt.Errorf("transcribe: %w", err)
		p.reporter.Add(err, "voice")
		return err
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return apperrors.ErrEmptyMessage
	}
	return p.Send(ctx, transcript, "")
}
