// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/asterbyte/jarvis/pkg/provider/recognizer"
	"github.com/asterbyte/jarvis/pkg/types"
	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Compile-time assertion that NativeProvider satisfies recognizer.Provider.
var _ recognizer.Provider = (*NativeProvider)(nil)

// NativeProvider implements recognizer.Provider using whisper.cpp Go bindings
// (CGO), eliminating HTTP overhead entirely. The model is loaded once at
// startup and shared across all recognition calls; each call runs on its own
// whisper context, so concurrent recognitions do not interfere.
type NativeProvider struct {
	model        whisperlib.Model
	language     string
	rmsThreshold float64
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// WithNativeRMSThreshold overrides the silence pre-screen threshold. Set to 0
// to run inference on every segment regardless of energy.
func WithNativeRMSThreshold(threshold float64) NativeOption {
	return func(p *NativeProvider) { p.rmsThreshold = threshold }
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// the given file path. The caller must call Close when the provider is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &NativeProvider{
		model:        model,
		language:     defaultLanguage,
		rmsThreshold: defaultRMSThreshold,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *NativeProvider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Recognize converts the segment to float32 mono samples and runs whisper.cpp
// inference on a fresh context. Near-silent segments and empty transcriptions
// are reported as [recognizer.ErrNoSpeech].
func (p *NativeProvider) Recognize(ctx context.Context, seg types.AudioSegment) (types.Utterance, error) {
	if err := ctx.Err(); err != nil {
		return types.Utterance{}, fmt.Errorf("whisper: context already cancelled: %w", err)
	}
	if len(seg.PCM) == 0 {
		return types.Utterance{}, recognizer.ErrNoSpeech
	}
	if p.rmsThreshold > 0 && computeRMS(seg.PCM) < p.rmsThreshold {
		return types.Utterance{}, recognizer.ErrNoSpeech
	}

	ch := seg.Channels
	if ch <= 0 {
		ch = 1
	}
	samples := pcmToFloat32Mono(seg.PCM, ch)

	// Each context is NOT thread-safe, but the model can be shared across
	// goroutines, so a fresh context per call keeps concurrent use safe.
	wctx, err := p.model.NewContext()
	if err != nil {
		return types.Utterance{}, fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", p.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return types.Utterance{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return types.Utterance{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return types.Utterance{}, recognizer.ErrNoSpeech
	}

	return types.Utterance{
		Text:      text,
		Timestamp: seg.CapturedAt,
	}, nil
}

// HealthCheck reports whether the model is loaded.
func (p *NativeProvider) HealthCheck(_ context.Context) error {
	if p.model == nil {
		return errors.New("whisper: model not loaded")
	}
	return nil
}
