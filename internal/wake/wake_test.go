package wake_test

import (
	"testing"
	"time"

	"github.com/asterbyte/jarvis/internal/bus"
	"github.com/asterbyte/jarvis/internal/wake"
	"github.com/asterbyte/jarvis/pkg/types"
)

type sink struct {
	msgs []types.CommandMessage
	err  error
}

func (s *sink) enqueue(m types.CommandMessage) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, m)
	return nil
}

func utter(text string) types.Utterance {
	return types.Utterance{Text: text, Confidence: 0.9, Timestamp: time.Now()}
}

func TestProcess_WakeWithInlineCommand(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue)

	d.Process(utter("jarvis turn on the lights"))

	if len(s.msgs) != 1 {
		t.Fatalf("enqueued %d commands; want 1", len(s.msgs))
	}
	if got := s.msgs[0].Text; got != "turn on the lights" {
		t.Errorf("command = %q; want %q", got, "turn on the lights")
	}
	if s.msgs[0].Source != types.SourceVoice {
		t.Errorf("source = %q; want voice", s.msgs[0].Source)
	}
	if d.State() != wake.StateIdle {
		t.Error("detector should return to idle after a single-shot command")
	}
}

func TestProcess_BareWakeArms(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue)

	d.Process(utter("jarvis"))

	if len(s.msgs) != 0 {
		t.Fatalf("enqueued %d commands; want 0", len(s.msgs))
	}
	if d.State() != wake.StateArmed {
		t.Error("detector should be armed after a bare wake phrase")
	}

	d.Process(utter("what time is it"))
	if len(s.msgs) != 1 || s.msgs[0].Text != "what time is it" {
		t.Fatalf("armed follow-up not enqueued: %v", s.msgs)
	}
	if d.State() != wake.StateIdle {
		t.Error("detector should disarm after consuming one utterance")
	}
}

func TestProcess_ShortResidualArmsInstead(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue)

	// Residual "hm" is below the three-character minimum.
	d.Process(utter("jarvis hm"))

	if len(s.msgs) != 0 {
		t.Fatalf("enqueued %d commands; want 0", len(s.msgs))
	}
	if d.State() != wake.StateArmed {
		t.Error("detector should arm when the residual is too short")
	}
}

func TestProcess_NoWakePhraseIsIgnored(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue)

	d.Process(utter("turn on the lights"))

	if len(s.msgs) != 0 {
		t.Errorf("enqueued %d commands without a wake phrase; want 0", len(s.msgs))
	}
	if d.State() != wake.StateIdle {
		t.Error("detector should stay idle without a wake phrase")
	}
}

func TestProcess_EmptyUtteranceDropped(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue)

	d.Process(utter("   "))
	d.Process(utter(""))

	if len(s.msgs) != 0 || d.State() != wake.StateIdle {
		t.Error("empty utterances must be dropped silently")
	}
}

func TestProcess_PhraseListOrderWins(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue, wake.WithPhrases([]string{"hey jarvis", "hey"}))

	d.Process(utter("hey jarvis open the door"))

	if len(s.msgs) != 1 {
		t.Fatalf("enqueued %d commands; want 1", len(s.msgs))
	}
	// "hey jarvis" is first in list order, so "jarvis" must not leak into
	// the command text.
	if got := s.msgs[0].Text; got != "open the door" {
		t.Errorf("command = %q; want %q", got, "open the door")
	}
}

func TestProcess_NormalizesCaseAndPunctuation(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue)

	d.Process(utter("Jarvis, what time is it?"))

	if len(s.msgs) != 1 {
		t.Fatalf("enqueued %d commands; want 1", len(s.msgs))
	}
	if got := s.msgs[0].Text; got != "what time is it" {
		t.Errorf("command = %q; want %q", got, "what time is it")
	}
}

func TestProcess_ArmTimeoutLazyCheck(t *testing.T) {
	t.Parallel()
	now := time.Now()
	s := &sink{}
	d := wake.New(s.enqueue,
		wake.WithArmTimeout(5*time.Second),
		wake.WithClock(func() time.Time { return now }),
	)

	d.Process(utter("jarvis"))
	if d.State() != wake.StateArmed {
		t.Fatal("detector should be armed")
	}

	// Advance past the timeout; the stale arm must not swallow this
	// unrelated utterance.
	now = now.Add(6 * time.Second)
	d.Process(utter("just talking to myself"))

	if len(s.msgs) != 0 {
		t.Errorf("enqueued %d commands after timeout; want 0", len(s.msgs))
	}
	if d.State() != wake.StateIdle {
		t.Error("detector should have reverted to idle")
	}
}

func TestExpire_RevertsArmedState(t *testing.T) {
	t.Parallel()
	now := time.Now()
	s := &sink{}
	d := wake.New(s.enqueue,
		wake.WithArmTimeout(5*time.Second),
		wake.WithClock(func() time.Time { return now }),
	)

	d.Process(utter("hey jarvis"))
	d.Expire(now.Add(4 * time.Second))
	if d.State() != wake.StateArmed {
		t.Error("Expire before the timeout must keep the detector armed")
	}

	d.Expire(now.Add(6 * time.Second))
	now = now.Add(6 * time.Second)
	if d.State() != wake.StateIdle {
		t.Error("Expire after the timeout must revert to idle")
	}
}

func TestProcess_FuzzyMatchesMisrecognizedPhrase(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue, wake.WithFuzzy(0.85))

	d.Process(utter("jarvus turn on the lights"))

	if len(s.msgs) != 1 {
		t.Fatalf("enqueued %d commands; want 1", len(s.msgs))
	}
	if got := s.msgs[0].Text; got != "turn on the lights" {
		t.Errorf("command = %q; want %q", got, "turn on the lights")
	}
}

func TestProcess_FuzzyRejectsUnrelatedWord(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue, wake.WithFuzzy(0.85))

	d.Process(utter("jackson turn on the lights"))

	if len(s.msgs) != 0 {
		t.Errorf("enqueued %d commands for unrelated word; want 0", len(s.msgs))
	}
}

func TestProcess_FuzzyDisabledRequiresExactPhrase(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue)

	d.Process(utter("jarvus turn on the lights"))

	if len(s.msgs) != 0 {
		t.Errorf("enqueued %d commands without fuzzy matching; want 0", len(s.msgs))
	}
}

func TestProcess_EmitsWakeEvent(t *testing.T) {
	t.Parallel()
	b := bus.New()
	var events []string
	b.Register(bus.EventWakeWordDetected, func(_ string, payload any) {
		events = append(events, payload.(string))
	})

	s := &sink{}
	d := wake.New(s.enqueue, wake.WithEvents(b))

	d.Process(utter("hey jarvis what is the weather"))

	// "jarvis" precedes "hey jarvis" in the default phrase list, so it is
	// the phrase reported.
	if len(events) != 1 || events[0] != "jarvis" {
		t.Errorf("wake events = %v; want [jarvis]", events)
	}
}

func TestProcess_WakePhraseMidUtterance(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue)

	d.Process(utter("excuse me jarvis what time is it"))

	if len(s.msgs) != 1 {
		t.Fatalf("enqueued %d commands; want 1", len(s.msgs))
	}
	if got := s.msgs[0].Text; got != "what time is it" {
		t.Errorf("command = %q; want %q", got, "what time is it")
	}
	if d.State() != wake.StateIdle {
		t.Error("detector should return to idle after a single-shot command")
	}
}

func TestProcess_WakePhraseInsideWordIgnored(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue)

	d.Process(utter("the jarvises gathered quietly"))

	if len(s.msgs) != 0 {
		t.Errorf("enqueued %d commands; want 0, the phrase must match whole words", len(s.msgs))
	}
	if d.State() != wake.StateIdle {
		t.Error("detector must stay idle without a whole-word phrase match")
	}
}

func TestProcess_FuzzyMatchesMidUtterance(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue, wake.WithFuzzy(0.85))

	d.Process(utter("um jervis turn on the lights"))

	if len(s.msgs) != 1 {
		t.Fatalf("enqueued %d commands; want 1", len(s.msgs))
	}
	if got := s.msgs[0].Text; got != "turn on the lights" {
		t.Errorf("command = %q; want %q", got, "turn on the lights")
	}
}

func TestRetune_ReplacesPhrases(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue, wake.WithPhrases([]string{"computer"}))

	d.Retune(wake.WithPhrases([]string{"friday"}))

	d.Process(utter("computer turn on the lights"))
	if len(s.msgs) != 0 {
		t.Fatalf("old phrase still enqueued %d commands; want 0", len(s.msgs))
	}
	d.Process(utter("friday turn on the lights"))
	if len(s.msgs) != 1 {
		t.Fatalf("new phrase enqueued %d commands; want 1", len(s.msgs))
	}
}

func TestRetune_RevertsUnsetFieldsToDefaults(t *testing.T) {
	t.Parallel()
	s := &sink{}
	d := wake.New(s.enqueue, wake.WithFuzzy(0.9))

	// No fuzzy option in the new tuning: fuzzy matching turns off.
	d.Retune(wake.WithPhrases([]string{"jarvis"}))

	d.Process(utter("jarvus turn on the lights"))
	if len(s.msgs) != 0 {
		t.Errorf("fuzzy match survived retune; enqueued %d commands", len(s.msgs))
	}
}
