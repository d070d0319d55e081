package plugin

import "context"

// Builtin adapts plain Go functions into the [Plugin] interface.
type Builtin struct {
	// PluginName identifies the plugin.
	PluginName string

	// Match reports whether the plugin claims the command.
	Match func(command string, entities map[string]string) bool

	// Run serves a claimed command.
	Run func(ctx context.Context, command string, entities map[string]string) (string, error)
}

// Compile-time interface assertion.
var _ Plugin = (*Builtin)(nil)

// Name implements [Plugin].
func (b *Builtin) Name() string { return b.PluginName }

// CanHandle implements [Plugin].
func (b *Builtin) CanHandle(command string, entities map[string]string) bool {
	if b.Match == nil {
		return false
	}
	return b.Match(command, entities)
}

// Handle implements [Plugin].
func (b *Builtin) Handle(ctx context.Context, command string, entities map[string]string) (string, error) {
	return b.Run(ctx, command, entities)
}
