package config

import "slices"

// ChangeSet describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; everything else
// requires a restart and is deliberately ignored here.
type ChangeSet struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// WakeChanged is true when any wake-detector tuning changed.
	WakeChanged bool
	NewWake     WakeConfig

	// MonitorChanged is true when a maintenance-loop interval changed.
	MonitorChanged bool
	NewMonitor     MonitorConfig
}

// Empty reports whether the change set contains no hot-reloadable changes.
func (c ChangeSet) Empty() bool {
	return !c.LogLevelChanged && !c.WakeChanged && !c.MonitorChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ChangeSet {
	var c ChangeSet

	if old.Server.LogLevel != new.Server.LogLevel {
		c.LogLevelChanged = true
		c.NewLogLevel = new.Server.LogLevel
	}

	if wakeChanged(old.Wake, new.Wake) {
		c.WakeChanged = true
		c.NewWake = new.Wake
	}

	if old.Monitor != new.Monitor {
		c.MonitorChanged = true
		c.NewMonitor = new.Monitor
	}

	return c
}

// wakeChanged compares wake configs field by field; the phrase slice keeps
// WakeConfig from being comparable directly.
func wakeChanged(old, new WakeConfig) bool {
	if !slices.Equal(old.Phrases, new.Phrases) {
		return true
	}
	return old.ArmTimeoutMS != new.ArmTimeoutMS ||
		old.MinCommandChars != new.MinCommandChars ||
		old.Fuzzy != new.Fuzzy ||
		old.FuzzyThreshold != new.FuzzyThreshold
}
