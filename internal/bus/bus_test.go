package bus_test

import (
	"sync"
	"testing"

	"github.com/asterbyte/jarvis/internal/bus"
)

func TestEmit_DeliversToRegisteredHandlers(t *testing.T) {
	t.Parallel()
	b := bus.New()

	var got []string
	b.Register(bus.EventWakeWordDetected, func(event string, payload any) {
		got = append(got, payload.(string))
	})

	b.Emit(bus.EventWakeWordDetected, "jarvis")
	if len(got) != 1 || got[0] != "jarvis" {
		t.Errorf("handler received %v; want [jarvis]", got)
	}
}

func TestEmit_RegistrationOrder(t *testing.T) {
	t.Parallel()
	b := bus.New()

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		b.Register("evt", func(string, any) { order = append(order, i) })
	}

	b.Emit("evt", nil)
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("invocation order = %v; want [0 1 2]", order)
	}
}

func TestEmit_UnknownEventIsNoOp(t *testing.T) {
	t.Parallel()
	b := bus.New()
	// Must not panic or block.
	b.Emit("nobody_listens", nil)
}

func TestEmit_PanickingHandlerDoesNotStopSiblings(t *testing.T) {
	t.Parallel()
	b := bus.New()

	var reached bool
	b.Register("evt", func(string, any) { panic("boom") })
	b.Register("evt", func(string, any) { reached = true })

	b.Emit("evt", nil)
	if !reached {
		t.Error("handler after a panicking one was not invoked")
	}
}

func TestEmit_DuplicateRegistrationInvokedTwice(t *testing.T) {
	t.Parallel()
	b := bus.New()

	count := 0
	h := func(string, any) { count++ }
	b.Register("evt", h)
	b.Register("evt", h)

	b.Emit("evt", nil)
	if count != 2 {
		t.Errorf("handler invoked %d times; want 2", count)
	}
}

func TestEmit_ConcurrentEmitAndRegister(t *testing.T) {
	t.Parallel()
	b := bus.New()

	var mu sync.Mutex
	count := 0
	b.Register("evt", func(string, any) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Emit("evt", nil)
		}()
		go func() {
			defer wg.Done()
			b.Register("other", func(string, any) {})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != 8 {
		t.Errorf("handler invoked %d times; want 8", count)
	}
}
