// Package wake implements the wake-word detector that gates recognized
// utterances into the command queue.
//
// The detector is a two-state machine. In Idle it scans each utterance for a
// configured wake phrase anywhere on a word boundary; a hit with enough
// residual text after the phrase enqueues the residual immediately, a bare
// hit arms the detector. In
// Armed the next utterance is enqueued verbatim. Arming expires after a
// timeout, checked lazily on the next utterance and eagerly via [Detector.Expire].
package wake

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/asterbyte/jarvis/internal/bus"
	"github.com/asterbyte/jarvis/pkg/types"
)

// State is the detector state.
type State int

const (
	// StateIdle means the detector is waiting for a wake phrase.
	StateIdle State = iota

	// StateArmed means a wake phrase was heard and the next utterance is
	// treated as a command.
	StateArmed
)

const (
	defaultArmTimeout      = 8 * time.Second
	defaultMinCommandChars = 3
	defaultFuzzyThreshold  = 0.88
)

// DefaultPhrases are the wake phrases used when none are configured.
var DefaultPhrases = []string{"jarvis", "hey jarvis", "ok jarvis"}

// Enqueue hands an accepted command to the queue.
type Enqueue func(types.CommandMessage) error

// Detector gates utterances into the command queue. Safe for concurrent use;
// Process runs on the recognition path while Expire is driven by the monitor
// loop.
type Detector struct {
	mu      sync.Mutex
	state   State
	armedAt time.Time

	phrases        []string
	armTimeout     time.Duration
	minCommand     int
	fuzzy          bool
	fuzzyThreshold float64
	now            func() time.Time
	enqueue        Enqueue
	events         *bus.EventBus
}

// Option is a functional option for configuring a Detector.
type Option func(*Detector)

// WithPhrases sets the accepted wake phrases in priority order. The first
// phrase in list order wins when several match.
func WithPhrases(phrases []string) Option {
	return func(d *Detector) {
		if len(phrases) > 0 {
			d.phrases = phrases
		}
	}
}

// WithArmTimeout sets how long the detector stays armed. Defaults to 8s.
func WithArmTimeout(t time.Duration) Option {
	return func(d *Detector) {
		if t > 0 {
			d.armTimeout = t
		}
	}
}

// WithMinCommandChars sets the minimum residual length after the wake phrase
// for the remainder to count as an inline command. Defaults to 3.
func WithMinCommandChars(n int) Option {
	return func(d *Detector) { d.minCommand = n }
}

// WithFuzzy enables phonetic matching of the leading tokens so recognizer
// misspellings ("jervis") still trigger. threshold is the minimum
// Jaro-Winkler similarity; values outside (0, 1] fall back to 0.88.
func WithFuzzy(threshold float64) Option {
	return func(d *Detector) {
		d.fuzzy = true
		if threshold > 0 && threshold <= 1 {
			d.fuzzyThreshold = threshold
		}
	}
}

// WithEvents sets the event bus for wake notifications.
func WithEvents(b *bus.EventBus) Option {
	return func(d *Detector) { d.events = b }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// New returns an idle detector that hands accepted commands to enqueue.
func New(enqueue Enqueue, opts ...Option) *Detector {
	d := &Detector{
		phrases:        DefaultPhrases,
		armTimeout:     defaultArmTimeout,
		minCommand:     defaultMinCommandChars,
		fuzzyThreshold: defaultFuzzyThreshold,
		now:            time.Now,
		enqueue:        enqueue,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Retune replaces the detector tuning in place, preserving the current
// state. Fields not covered by an option revert to their defaults, so a
// full option set built from the new config behaves like New. Used for
// config hot reload.
func (d *Detector) Retune(opts ...Option) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.phrases = DefaultPhrases
	d.armTimeout = defaultArmTimeout
	d.minCommand = defaultMinCommandChars
	d.fuzzy = false
	d.fuzzyThreshold = defaultFuzzyThreshold
	for _, o := range opts {
		o(d)
	}
}

// State returns the current detector state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expireLocked(d.now())
	return d.state
}

// Expire reverts an armed detector to idle once the arm timeout has elapsed.
// Called periodically by the monitor loop.
func (d *Detector) Expire(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expireLocked(now)
}

func (d *Detector) expireLocked(now time.Time) {
	if d.state == StateArmed && now.Sub(d.armedAt) > d.armTimeout {
		d.state = StateIdle
		slog.Debug("wake arm timed out, reverting to idle")
	}
}

// Process feeds one recognized utterance through the state machine. Empty
// recognitions are dropped silently.
func (d *Detector) Process(u types.Utterance) {
	text := normalize(u.Text)
	if text == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expireLocked(now)

	if d.state == StateArmed {
		d.state = StateIdle
		d.submit(text, now)
		return
	}

	phrase, residual, ok := d.matchWake(text)
	if !ok {
		return
	}

	slog.Info("wake word detected", "phrase", phrase)
	if d.events != nil {
		d.events.Emit(bus.EventWakeWordDetected, phrase)
	}

	if len(residual) >= d.minCommand {
		// Single-shot wake: the command rode in on the same utterance.
		d.submit(residual, now)
		return
	}

	d.state = StateArmed
	d.armedAt = now
}

// submit enqueues text as a voice command. Caller must hold d.mu.
func (d *Detector) submit(text string, now time.Time) {
	msg := types.CommandMessage{Text: text, Source: types.SourceVoice, Timestamp: now}
	if err := d.enqueue(msg); err != nil {
		slog.Warn("wake: failed to enqueue command", "error", err)
	}
}

// matchWake returns the first configured phrase contained in text on word
// boundaries, along with the residual after it. The phrase may sit anywhere
// in the utterance ("excuse me jarvis what time is it"); phrase-list order
// breaks ties, not position in the text.
func (d *Detector) matchWake(text string) (phrase, residual string, ok bool) {
	for _, p := range d.phrases {
		if idx := indexPhrase(text, p); idx >= 0 {
			return p, strings.TrimSpace(text[idx+len(p):]), true
		}
	}
	if !d.fuzzy {
		return "", "", false
	}

	words := strings.Fields(text)
	for _, p := range d.phrases {
		pw := strings.Fields(p)
		if len(pw) == 0 || len(words) < len(pw) {
			continue
		}
		for i := 0; i+len(pw) <= len(words); i++ {
			if d.tokensMatch(words[i:i+len(pw)], pw) {
				return p, strings.Join(words[i+len(pw):], " "), true
			}
		}
	}
	return "", "", false
}

// indexPhrase returns the byte offset of the first whole-word occurrence of
// phrase in text, or -1. Word boundaries keep "jarvis" from matching inside
// "jarvises".
func indexPhrase(text, phrase string) int {
	for from := 0; ; {
		idx := strings.Index(text[from:], phrase)
		if idx < 0 {
			return -1
		}
		idx += from
		end := idx + len(phrase)
		startOK := idx == 0 || text[idx-1] == ' '
		endOK := end == len(text) || text[end] == ' '
		if startOK && endOK {
			return idx
		}
		from = idx + 1
	}
}

// tokensMatch reports whether each heard token phonetically matches the
// corresponding phrase token. Double Metaphone proposes the candidate,
// Jaro-Winkler confirms it.
func (d *Detector) tokensMatch(heard, want []string) bool {
	for i := range want {
		if heard[i] == want[i] {
			continue
		}
		h1, h2 := matchr.DoubleMetaphone(heard[i])
		w1, w2 := matchr.DoubleMetaphone(want[i])
		phonetic := h1 == w1 || h1 == w2 || h2 == w1 || (h2 != "" && h2 == w2)
		if !phonetic {
			return false
		}
		if matchr.JaroWinkler(heard[i], want[i], false) < d.fuzzyThreshold {
			return false
		}
	}
	return true
}

// normalize lower-cases, trims, and strips sentence punctuation so
// recognizer output like "Jarvis, what time is it?" matches cleanly.
func normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case '.', ',', '!', '?', ';', ':':
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
