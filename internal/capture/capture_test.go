package capture_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/asterbyte/jarvis/internal/bus"
	"github.com/asterbyte/jarvis/internal/capture"
	"github.com/asterbyte/jarvis/pkg/types"
)

// fakeMic replays a scripted sequence of results, then blocks until cancelled.
type fakeMic struct {
	mu      sync.Mutex
	results []fakeResult
	calls   int
}

type fakeResult struct {
	seg types.AudioSegment
	err error
}

func (m *fakeMic) Listen(ctx context.Context) (types.AudioSegment, error) {
	m.mu.Lock()
	if m.calls < len(m.results) {
		r := m.results[m.calls]
		m.calls++
		m.mu.Unlock()
		return r.seg, r.err
	}
	m.mu.Unlock()
	<-ctx.Done()
	return types.AudioSegment{}, ctx.Err()
}

func (m *fakeMic) Close() error { return nil }

func (m *fakeMic) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func pcm(n int) []byte { return make([]byte, n) }

func TestCapture_DeliversSegmentsWithMonotonicSeq(t *testing.T) {
	t.Parallel()
	mic := &fakeMic{results: []fakeResult{
		{seg: types.AudioSegment{PCM: pcm(320), SampleRate: 16000, Channels: 1}},
		{seg: types.AudioSegment{PCM: pcm(640), SampleRate: 16000, Channels: 1}},
	}}
	c := capture.New(mic)

	c.Start(context.Background())
	defer c.Stop()

	var got []types.AudioSegment
	for i := 0; i < 2; i++ {
		select {
		case seg := <-c.Segments():
			got = append(got, seg)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for segment")
		}
	}

	if got[0].Seq != 1 || got[1].Seq != 2 {
		t.Errorf("sequence numbers = %d, %d; want 1, 2", got[0].Seq, got[1].Seq)
	}
	if got[0].CapturedAt.IsZero() {
		t.Error("CapturedAt was not stamped")
	}
}

func TestCapture_IdleTimeoutIsNotAnError(t *testing.T) {
	t.Parallel()
	mic := &fakeMic{results: []fakeResult{
		{err: capture.ErrIdleTimeout},
		{seg: types.AudioSegment{PCM: pcm(320)}},
	}}
	c := capture.New(mic)

	c.Start(context.Background())
	defer c.Stop()

	select {
	case seg := <-c.Segments():
		if seg.Seq != 1 {
			t.Errorf("Seq = %d; want 1 (idle cycles must not consume sequence numbers)", seg.Seq)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("segment after idle timeout never arrived")
	}
}

func TestCapture_DeviceErrorRetriesWithBackoff(t *testing.T) {
	t.Parallel()
	mic := &fakeMic{results: []fakeResult{
		{err: errors.New("device busy")},
		{seg: types.AudioSegment{PCM: pcm(320)}},
	}}
	c := capture.New(mic)

	c.Start(context.Background())
	defer c.Stop()

	select {
	case <-c.Segments():
		// Recovered after the failure.
	case <-time.After(5 * time.Second):
		t.Fatal("capture did not recover from a device error")
	}
	if mic.callCount() < 2 {
		t.Errorf("Listen called %d times; want at least 2", mic.callCount())
	}
}

func TestCapture_DropOldestWhenBufferFull(t *testing.T) {
	t.Parallel()
	results := make([]fakeResult, 4)
	for i := range results {
		results[i] = fakeResult{seg: types.AudioSegment{PCM: pcm(320)}}
	}
	mic := &fakeMic{results: results}

	drops := 0
	c := capture.New(mic,
		capture.WithBufferSegments(2),
		capture.WithDropHook(func() { drops++ }),
	)

	c.Start(context.Background())

	// Let the producer outrun the (absent) consumer.
	deadline := time.After(5 * time.Second)
	for mic.callCount() < 4 {
		select {
		case <-deadline:
			t.Fatal("producer never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}
	c.Stop()

	if c.Dropped() != 2 {
		t.Errorf("Dropped = %d; want 2", c.Dropped())
	}
	if drops != 2 {
		t.Errorf("drop hook fired %d times; want 2", drops)
	}

	// The two newest segments must have survived.
	first := <-c.Segments()
	second := <-c.Segments()
	if first.Seq != 3 || second.Seq != 4 {
		t.Errorf("surviving seqs = %d, %d; want 3, 4", first.Seq, second.Seq)
	}
}

func TestCapture_StartStopIdempotentWithEvents(t *testing.T) {
	t.Parallel()
	b := bus.New()
	var mu sync.Mutex
	counts := map[string]int{}
	record := func(event string, _ any) {
		mu.Lock()
		counts[event]++
		mu.Unlock()
	}
	b.Register(bus.EventListeningStart, record)
	b.Register(bus.EventListeningStop, record)

	c := capture.New(&fakeMic{}, capture.WithEvents(b))

	c.Start(context.Background())
	c.Start(context.Background()) // no-op
	c.Stop()
	c.Stop() // no-op

	mu.Lock()
	defer mu.Unlock()
	if counts[bus.EventListeningStart] != 1 {
		t.Errorf("listening_start emitted %d times; want 1", counts[bus.EventListeningStart])
	}
	if counts[bus.EventListeningStop] != 1 {
		t.Errorf("listening_stop emitted %d times; want 1", counts[bus.EventListeningStop])
	}
}

func TestCapture_StopUnblocksListeningMic(t *testing.T) {
	t.Parallel()
	c := capture.New(&fakeMic{})

	c.Start(context.Background())

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not unblock a listening microphone")
	}
}

// wedgedMic never returns from Listen, even when ctx is cancelled.
type wedgedMic struct{ block chan struct{} }

func (m *wedgedMic) Listen(context.Context) (types.AudioSegment, error) {
	<-m.block
	return types.AudioSegment{}, errors.New("wedged")
}

func (m *wedgedMic) Close() error { return nil }

func TestCapture_StopAbandonsWedgedMicAfterGrace(t *testing.T) {
	t.Parallel()
	mic := &wedgedMic{block: make(chan struct{})}
	defer close(mic.block)
	c := capture.New(mic, capture.WithStopGrace(50*time.Millisecond))

	c.Start(context.Background())

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return; a microphone ignoring cancellation must not wedge shutdown")
	}
}
