// Package local provides an in-process automation backend. Automations and
// system commands resolve against registered handler functions; scheduled
// tasks run on fixed intervals driven by the monitor loop's calls to
// CheckScheduledTasks. It is the default backend for development and for
// deployments without a home-automation bridge.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/asterbyte/jarvis/pkg/provider/automation"
)

// Compile-time assertion that Engine satisfies automation.Provider.
var _ automation.Provider = (*Engine)(nil)

// HandlerFunc executes one automation. target is the device or object the
// user named; params carries contextual values from the dispatcher.
type HandlerFunc func(ctx context.Context, target string, params map[string]any) (automation.Result, error)

// task is a recurring background job.
type task struct {
	name     string
	interval time.Duration
	nextRun  time.Time
	run      func(ctx context.Context) error
}

// Engine implements automation.Provider with registered in-process handlers.
type Engine struct {
	mu       sync.Mutex
	handlers map[string]HandlerFunc // keyed by action
	system   map[string]HandlerFunc // keyed by action
	apps     []string
	tasks    []*task
	now      func() time.Time
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithActiveApps seeds the list returned by ActiveApps.
func WithActiveApps(apps ...string) Option {
	return func(e *Engine) { e.apps = apps }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an Engine with echo handlers for common actions. Callers
// register real handlers with RegisterAutomation and RegisterSystemCommand.
func New(opts ...Option) *Engine {
	e := &Engine{
		handlers: map[string]HandlerFunc{},
		system:   map[string]HandlerFunc{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}

	for _, action := range []string{"turn on", "turn off", "open", "close", "start", "stop", "launch", "run", "dim", "set"} {
		e.handlers[action] = echoHandler(action)
	}
	for _, action := range []string{"mute", "unmute", "restart", "reboot", "shutdown", "lock"} {
		e.system[action] = echoHandler(action)
	}
	return e
}

// echoHandler acknowledges an action without a physical backend.
func echoHandler(action string) HandlerFunc {
	return func(_ context.Context, target string, _ map[string]any) (automation.Result, error) {
		msg := fmt.Sprintf("Okay, %s", action)
		if target != "" {
			msg = fmt.Sprintf("Okay, %s %s", action, target)
		}
		return automation.Result{
			Message: msg,
			Data:    map[string]any{"action": action, "target": target, "simulated": true},
		}, nil
	}
}

// RegisterAutomation installs (or replaces) the handler for an action.
func (e *Engine) RegisterAutomation(action string, h HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[strings.ToLower(action)] = h
}

// RegisterSystemCommand installs (or replaces) the handler for a system action.
func (e *Engine) RegisterSystemCommand(action string, h HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.system[strings.ToLower(action)] = h
}

// ScheduleTask registers a recurring background job. The first run happens
// once interval has elapsed.
func (e *Engine) ScheduleTask(name string, interval time.Duration, run func(ctx context.Context) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, &task{
		name:     name,
		interval: interval,
		nextRun:  e.now().Add(interval),
		run:      run,
	})
}

// ExecuteAutomation implements automation.Provider.
func (e *Engine) ExecuteAutomation(ctx context.Context, action, target string, params map[string]any) (automation.Result, error) {
	h, err := e.lookup(e.handlers, action, "automation")
	if err != nil {
		return automation.Result{}, err
	}
	return h(ctx, target, params)
}

// ExecuteSystemCommand implements automation.Provider.
func (e *Engine) ExecuteSystemCommand(ctx context.Context, action, target string) (automation.Result, error) {
	h, err := e.lookup(e.system, action, "system command")
	if err != nil {
		return automation.Result{}, err
	}
	return h(ctx, target, nil)
}

func (e *Engine) lookup(table map[string]HandlerFunc, action, kind string) (HandlerFunc, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := table[strings.ToLower(strings.TrimSpace(action))]
	if !ok {
		return nil, fmt.Errorf("local: no %s handler for action %q", kind, action)
	}
	return h, nil
}

// ActiveApps implements automation.Provider. The list is a sorted copy.
func (e *Engine) ActiveApps(_ context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.apps))
	copy(out, e.apps)
	sort.Strings(out)
	return out, nil
}

// CheckScheduledTasks runs every due task once and reschedules it. A failing
// task is logged and does not block its siblings.
func (e *Engine) CheckScheduledTasks(ctx context.Context) error {
	e.mu.Lock()
	now := e.now()
	var due []*task
	for _, t := range e.tasks {
		if !now.Before(t.nextRun) {
			t.nextRun = now.Add(t.interval)
			due = append(due, t)
		}
	}
	e.mu.Unlock()

	for _, t := range due {
		if err := t.run(ctx); err != nil {
			slog.Error("scheduled task failed", "task", t.name, "error", err)
		}
	}
	return nil
}

// HealthCheck implements automation.Provider. The local engine is healthy as
// long as it exists.
func (e *Engine) HealthCheck(_ context.Context) error { return nil }
