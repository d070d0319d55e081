// Package automation defines the Provider interface for automation and
// system-control backends.
//
// An automation provider executes the side-effecting half of the assistant:
// device and workflow automations, system control actions, and scheduled
// background tasks. Handlers in the dispatch pipeline translate intents into
// calls on this interface and wrap the results into responses.
//
// Implementations must be safe for concurrent use.
package automation

import "context"

// Result is the outcome of one executed automation or system command.
type Result struct {
	// Message is a short user-facing summary of what happened.
	Message string

	// Data carries backend-specific details. May be nil.
	Data map[string]any
}

// Provider is the abstraction over any automation backend.
type Provider interface {
	// ExecuteAutomation performs a device or workflow automation, e.g.
	// action "turn on", target "kitchen lights". params carries contextual
	// values the backend may use (user preferences, active apps).
	ExecuteAutomation(ctx context.Context, action, target string, params map[string]any) (Result, error)

	// ExecuteSystemCommand performs a host-level control action, e.g.
	// action "mute", target "volume".
	ExecuteSystemCommand(ctx context.Context, action, target string) (Result, error)

	// ActiveApps lists the applications currently known to be running.
	// Used when building execution context.
	ActiveApps(ctx context.Context) ([]string, error)

	// CheckScheduledTasks runs any tasks whose schedule has come due. Called
	// periodically by the background monitor loop.
	CheckScheduledTasks(ctx context.Context) error

	// HealthCheck reports whether the backend is currently operational.
	HealthCheck(ctx context.Context) error
}
