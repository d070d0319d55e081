// Package whisper provides whisper.cpp-backed speech recognizers.
//
// Two adapters are available: [Provider] talks to a running whisper-server
// binary (REST API at POST /inference), and [NativeProvider] links whisper.cpp
// directly via the CGO bindings. Both operate phrase-at-a-time: the pipeline
// hands over one complete captured segment and receives at most one utterance.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080", whisper.WithLanguage("en"))
//	utt, err := p.Recognize(ctx, segment)
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/asterbyte/jarvis/pkg/provider/recognizer"
	"github.com/asterbyte/jarvis/pkg/types"
)

const (
	// bitsPerSample is fixed at 16 for the 16-bit signed little-endian PCM
	// audio that whisper.cpp expects.
	bitsPerSample = 16

	// defaultRMSThreshold is the root-mean-square energy level (in 16-bit PCM
	// units) below which a whole segment is considered silent and skipped
	// without an inference round-trip. The maximum possible value for 16-bit
	// audio is 32 767; 300 corresponds to near-silence.
	defaultRMSThreshold = 300.0

	defaultLanguage = "en"
)

// Compile-time assertion that Provider implements recognizer.Provider.
var _ recognizer.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with — this is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code sent to the whisper.cpp server
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithRMSThreshold overrides the silence pre-screen threshold. Segments whose
// overall RMS energy falls below the threshold are rejected with
// [recognizer.ErrNoSpeech] without contacting the server. Set to 0 to disable
// the pre-screen.
func WithRMSThreshold(threshold float64) Option {
	return func(p *Provider) {
		p.rmsThreshold = threshold
	}
}

// WithHTTPClient overrides the HTTP client used for inference requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements recognizer.Provider backed by a local whisper.cpp HTTP
// server. It is stateless between calls and safe for concurrent use.
type Provider struct {
	serverURL    string
	model        string
	language     string
	rmsThreshold float64
	httpClient   *http.Client
}

// New creates a new Provider that connects to the whisper.cpp HTTP server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:    strings.TrimRight(serverURL, "/"),
		language:     defaultLanguage,
		rmsThreshold: defaultRMSThreshold,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Recognize encodes the segment as WAV and POSTs it to the whisper.cpp
// /inference endpoint. Near-silent segments and empty transcriptions are
// reported as [recognizer.ErrNoSpeech].
func (p *Provider) Recognize(ctx context.Context, seg types.AudioSegment) (types.Utterance, error) {
	if len(seg.PCM) == 0 {
		return types.Utterance{}, recognizer.ErrNoSpeech
	}
	if p.rmsThreshold > 0 && computeRMS(seg.PCM) < p.rmsThreshold {
		return types.Utterance{}, recognizer.ErrNoSpeech
	}

	text, err := p.infer(ctx, seg)
	if err != nil {
		return types.Utterance{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Utterance{}, recognizer.ErrNoSpeech
	}

	return types.Utterance{
		Text:      text,
		Timestamp: seg.CapturedAt,
	}, nil
}

// HealthCheck probes the whisper.cpp server. Any HTTP response counts as
// healthy; only transport-level failures are reported.
func (p *Provider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+"/", nil)
	if err != nil {
		return fmt.Errorf("whisper: create health request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whisper: server unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

// infer encodes pcm as a WAV file and POSTs it to the whisper.cpp /inference
// endpoint as multipart/form-data. It returns the transcribed text or an error.
func (p *Provider) infer(ctx context.Context, seg types.AudioSegment) (string, error) {
	sr := seg.SampleRate
	if sr <= 0 {
		sr = 16000
	}
	ch := seg.Channels
	if ch <= 0 {
		ch = 1
	}
	wav := encodeWAV(seg.PCM, sr, ch)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	// Primary audio field.
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}

	// Optional hint fields.
	if p.language != "" {
		if err := mw.WriteField("language", p.language); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if p.model != "" {
		if err := mw.WriteField("model", p.model); err != nil {
			return "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := p.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	return result.Text, nil
}
