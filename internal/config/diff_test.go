package config_test

import (
	"testing"

	"github.com/asterbyte/jarvis/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{}
	new := &config.Config{}

	d := config.Diff(old, new)
	if !d.Empty() {
		t.Errorf("Diff of identical configs = %+v; want empty", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old := &config.Config{}
	old.Server.LogLevel = config.LogInfo
	new := &config.Config{}
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Fatal("LogLevelChanged = false; want true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q; want debug", d.NewLogLevel)
	}
}

func TestDiff_WakePhrases(t *testing.T) {
	t.Parallel()
	old := &config.Config{}
	old.Wake.Phrases = []string{"jarvis"}
	new := &config.Config{}
	new.Wake.Phrases = []string{"jarvis", "computer"}

	d := config.Diff(old, new)
	if !d.WakeChanged {
		t.Fatal("WakeChanged = false; want true")
	}
	if len(d.NewWake.Phrases) != 2 {
		t.Errorf("NewWake.Phrases = %v; want two phrases", d.NewWake.Phrases)
	}
}

func TestDiff_WakeTimeout(t *testing.T) {
	t.Parallel()
	old := &config.Config{}
	old.Wake.ArmTimeoutMS = 8000
	new := &config.Config{}
	new.Wake.ArmTimeoutMS = 5000

	if d := config.Diff(old, new); !d.WakeChanged {
		t.Error("WakeChanged = false; want true")
	}
}

func TestDiff_MonitorIntervals(t *testing.T) {
	t.Parallel()
	old := &config.Config{}
	old.Monitor.IntervalMS = 60000
	new := &config.Config{}
	new.Monitor.IntervalMS = 30000

	d := config.Diff(old, new)
	if !d.MonitorChanged {
		t.Fatal("MonitorChanged = false; want true")
	}
	if d.NewMonitor.IntervalMS != 30000 {
		t.Errorf("NewMonitor.IntervalMS = %d; want 30000", d.NewMonitor.IntervalMS)
	}
}

func TestDiff_IgnoresRestartOnlyFields(t *testing.T) {
	t.Parallel()
	old := &config.Config{}
	old.Memory.PostgresDSN = "postgres://a"
	new := &config.Config{}
	new.Memory.PostgresDSN = "postgres://b"

	if d := config.Diff(old, new); !d.Empty() {
		t.Errorf("Diff = %+v; memory changes must not be hot-reloadable", d)
	}
}
