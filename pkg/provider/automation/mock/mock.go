// Package mock provides a test double for the automation package interface.
package mock

import (
	"context"
	"sync"

	"github.com/asterbyte/jarvis/pkg/provider/automation"
)

// ExecuteCall records one ExecuteAutomation or ExecuteSystemCommand invocation.
type ExecuteCall struct {
	// Kind is "automation" or "system".
	Kind string
	// Action and Target are the arguments as passed.
	Action string
	Target string
	// Params are the contextual values (nil for system commands).
	Params map[string]any
}

// Provider is a mock implementation of automation.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned by Execute* calls unless an error is configured.
	Result automation.Result

	// ExecuteErr, if non-nil, is returned by every Execute* call.
	ExecuteErr error

	// Apps is returned by ActiveApps.
	Apps []string

	// ScheduledErr, if non-nil, is returned by CheckScheduledTasks.
	ScheduledErr error

	// HealthErr, if non-nil, is returned by HealthCheck.
	HealthErr error

	// ExecuteCalls records every Execute* call in order.
	ExecuteCalls []ExecuteCall

	// ScheduledCalls counts CheckScheduledTasks invocations.
	ScheduledCalls int
}

// ExecuteAutomation records the call and returns Result, ExecuteErr.
func (p *Provider) ExecuteAutomation(_ context.Context, action, target string, params map[string]any) (automation.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ExecuteCalls = append(p.ExecuteCalls, ExecuteCall{Kind: "automation", Action: action, Target: target, Params: params})
	if p.ExecuteErr != nil {
		return automation.Result{}, p.ExecuteErr
	}
	return p.Result, nil
}

// ExecuteSystemCommand records the call and returns Result, ExecuteErr.
func (p *Provider) ExecuteSystemCommand(_ context.Context, action, target string) (automation.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ExecuteCalls = append(p.ExecuteCalls, ExecuteCall{Kind: "system", Action: action, Target: target})
	if p.ExecuteErr != nil {
		return automation.Result{}, p.ExecuteErr
	}
	return p.Result, nil
}

// ActiveApps returns Apps.
func (p *Provider) ActiveApps(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Apps, nil
}

// CheckScheduledTasks counts the call and returns ScheduledErr.
func (p *Provider) CheckScheduledTasks(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ScheduledCalls++
	return p.ScheduledErr
}

// HealthCheck returns HealthErr.
func (p *Provider) HealthCheck(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HealthErr
}

// ScheduledCount returns the number of CheckScheduledTasks calls. Thread-safe.
func (p *Provider) ScheduledCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ScheduledCalls
}

// CallCount returns the number of Execute* calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ExecuteCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ExecuteCalls = nil
	p.ScheduledCalls = 0
}

// Ensure Provider implements automation.Provider at compile time.
var _ automation.Provider = (*Provider)(nil)
