// Command jarvisd is the main entry point for the Jarvis voice assistant daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/asterbyte/jarvis/internal/app"
	"github.com/asterbyte/jarvis/internal/config"
	"github.com/asterbyte/jarvis/internal/observe"
	"github.com/asterbyte/jarvis/internal/resilience"
	"github.com/asterbyte/jarvis/pkg/provider/automation/local"
	"github.com/asterbyte/jarvis/pkg/provider/embeddings"
	oaembed "github.com/asterbyte/jarvis/pkg/provider/embeddings/openai"
	"github.com/asterbyte/jarvis/pkg/provider/nlp"
	"github.com/asterbyte/jarvis/pkg/provider/nlp/keyword"
	nlpllm "github.com/asterbyte/jarvis/pkg/provider/nlp/llm"
	"github.com/asterbyte/jarvis/pkg/provider/recognizer"
	"github.com/asterbyte/jarvis/pkg/provider/recognizer/whisper"
	"github.com/asterbyte/jarvis/pkg/provider/tts"
	"github.com/asterbyte/jarvis/pkg/provider/tts/elevenlabs"
)

// logLevel backs the default handler so config hot reload can adjust
// verbosity without rebuilding the logger.
var logLevel slog.LevelVar

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	watch := flag.Bool("watch", true, "reload hot-applicable settings when the config file changes")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "jarvisd: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "jarvisd: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel})))

	slog.Info("jarvisd starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Observability ─────────────────────────────────────────────────────────
	shutdownObserve, err := observe.InitProvider(context.Background(), observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		octx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObserve(octx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	if *watch {
		watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
			change := config.Diff(old, new)
			if change.Empty() {
				slog.Info("config changed, but no hot-reloadable fields differ — restart to apply")
				return
			}
			if change.LogLevelChanged {
				logLevel.Set(slogLevel(change.NewLogLevel))
				slog.Info("log level changed", "level", change.NewLogLevel)
			}
			application.ApplyConfig(change)
		})
		if err != nil {
			slog.Warn("config watcher unavailable", "err", err)
		} else {
			defer watcher.Stop()
		}
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// llmBackends lists the any-llm-go backend names registered as NLP analyzers.
// Ollama is excluded: it is a local server configured by BaseURL, not APIKey.
var llmBackends = []string{
	"openai", "anthropic", "gemini",
	"deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Recognizer ────────────────────────────────────────────────────────────

	reg.RegisterRecognizer("whisper", func(entry config.ProviderEntry) (recognizer.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if threshold, ok := optFloat(entry.Options, "rms_threshold"); ok {
			opts = append(opts, whisper.WithRMSThreshold(threshold))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterRecognizer("whisper-native", func(entry config.ProviderEntry) (recognizer.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		if threshold, ok := optFloat(entry.Options, "rms_threshold"); ok {
			opts = append(opts, whisper.WithNativeRMSThreshold(threshold))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	// ── NLP ───────────────────────────────────────────────────────────────────

	reg.RegisterNLP("keyword", func(config.ProviderEntry) (nlp.Provider, error) {
		return keyword.New(), nil
	})

	// The LLM backends all share the same pattern: optional APIKey +
	// optional BaseURL.
	for _, providerName := range llmBackends {
		reg.RegisterNLP(providerName, func(entry config.ProviderEntry) (nlp.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return nlpllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterNLP("ollama", func(entry config.ProviderEntry) (nlp.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return nlpllm.New("ollama", entry.Model, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if outputFmt := optString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		return elevenlabs.New(entry.APIKey, optString(entry.Options, "voice_id"), opts...)
	})

	// ── Embeddings ────────────────────────────────────────────────────────────

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	// The host automation engine is always available; it needs no
	// configuration beyond the process it runs in.
	ps.Automation = local.New()

	if name := cfg.Providers.Recognizer.Name; name != "" {
		p, err := reg.CreateRecognizer(cfg.Providers.Recognizer)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "recognizer", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create recognizer provider %q: %w", name, err)
		} else {
			// A single-entry fallback group still carries a circuit breaker,
			// so a dead recognition backend is skipped instead of hammered.
			ps.Recognizer = resilience.NewRecognizerFallback(p, name, resilience.FallbackConfig{})
			slog.Info("provider created", "kind", "recognizer", "name", name)
		}
	}

	if name := cfg.Providers.NLP.Name; name != "" {
		p, err := reg.CreateNLP(cfg.Providers.NLP)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "nlp", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create nlp provider %q: %w", name, err)
		} else {
			ps.NLP = p
			slog.Info("provider created", "kind", "nlp", "name", name)
		}
	}

	// An options.fallback entry wraps the primary analyzer in a circuit-broken
	// fallback chain so a flaky LLM backend degrades to local analysis instead
	// of failing commands.
	if fbName := optString(cfg.Providers.NLP.Options, "fallback"); fbName != "" && ps.NLP != nil {
		fb, err := reg.CreateNLP(config.ProviderEntry{Name: fbName})
		if err != nil {
			return nil, fmt.Errorf("create nlp fallback %q: %w", fbName, err)
		}
		group := resilience.NewNLPFallback(ps.NLP, cfg.Providers.NLP.Name, resilience.FallbackConfig{})
		group.AddFallback(fbName, fb)
		ps.NLP = group
		slog.Info("nlp fallback chain assembled", "primary", cfg.Providers.NLP.Name, "fallback", fbName)
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "tts", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		} else {
			ps.TTS = p
			slog.Info("provider created", "kind", "tts", "name", name)
		}
	}

	if name := cfg.Providers.Embeddings.Name; name != "" {
		p, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "embeddings", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		} else {
			ps.Embeddings = p
			slog.Info("provider created", "kind", "embeddings", "name", name)
		}
	}

	// Microphone and Sink stay nil until a platform audio backend is wired
	// in; the assistant then serves the WebSocket surface only.
	if ps.Microphone == nil {
		slog.Info("no audio device backend in this build, running web-only")
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Jarvis — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Recognizer", cfg.Providers.Recognizer.Name, cfg.Providers.Recognizer.Model)
	printProvider("NLP", cfg.Providers.NLP.Name, cfg.Providers.NLP.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("Embeddings", cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model)
	if cfg.Memory.PostgresDSN != "" {
		fmt.Printf("║  Memory          : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  Memory          : %-19s ║\n", "in-memory")
	}
	fmt.Printf("║  Wake phrases    : %-19d ║\n", len(cfg.Wake.Phrases))
	fmt.Printf("║  Plugin servers  : %-19d ║\n", len(cfg.Plugins.Servers))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// optFloat extracts a numeric value from a provider Options map. YAML
// decodes numbers as int or float64 depending on the literal.
func optFloat(opts map[string]any, key string) (float64, bool) {
	if opts == nil {
		return 0, false
	}
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
