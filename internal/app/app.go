// Package app wires all assistant subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the pipeline loops until the context is
// cancelled, and Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithStore, WithMetrics). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/asterbyte/jarvis/internal/bus"
	"github.com/asterbyte/jarvis/internal/capture"
	"github.com/asterbyte/jarvis/internal/config"
	"github.com/asterbyte/jarvis/internal/dispatch"
	"github.com/asterbyte/jarvis/internal/health"
	"github.com/asterbyte/jarvis/internal/observe"
	"github.com/asterbyte/jarvis/internal/plugin"
	"github.com/asterbyte/jarvis/internal/queue"
	"github.com/asterbyte/jarvis/internal/voice"
	"github.com/asterbyte/jarvis/internal/wake"
	"github.com/asterbyte/jarvis/internal/web"
	"github.com/asterbyte/jarvis/pkg/memory"
	"github.com/asterbyte/jarvis/pkg/memory/memstore"
	"github.com/asterbyte/jarvis/pkg/memory/postgres"
	"github.com/asterbyte/jarvis/pkg/provider/automation"
	"github.com/asterbyte/jarvis/pkg/provider/embeddings"
	"github.com/asterbyte/jarvis/pkg/provider/nlp"
	"github.com/asterbyte/jarvis/pkg/provider/recognizer"
	"github.com/asterbyte/jarvis/pkg/provider/tts"
	"github.com/asterbyte/jarvis/pkg/types"
)

// restartDelay is the pause before a crashed pipeline loop is restarted.
const restartDelay = time.Second

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config
// registry.
type Providers struct {
	Recognizer recognizer.Provider
	NLP        nlp.Provider
	TTS        tts.Provider
	Embeddings embeddings.Provider
	Automation automation.Provider

	// Microphone is the audio input device for the acquisition pipeline.
	// Nil disables the voice intake (web-only deployments).
	Microphone capture.Microphone

	// Sink plays synthesized PCM. Nil disables spoken responses.
	Sink voice.Sink
}

// App owns all subsystem lifetimes and orchestrates the two pipelines:
// audio acquisition (microphone, recognition, wake detection) and
// command dispatch (queue, analysis, routing, delivery).
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	events     *bus.EventBus
	metrics    *observe.Metrics
	store      memory.Store
	queue      *queue.CommandQueue
	capture    *capture.Capture
	detector   *wake.Detector
	plugins    *plugin.Host
	speaker    *voice.Speaker
	dispatcher *dispatch.Dispatcher
	checks     *health.Handler
	webHandler http.Handler

	// Queue gauge deltas, synced by the monitor loop.
	lastQueueDepth   int64
	lastQueueDropped uint64

	// Monitor cadences in nanoseconds. Atomics so ApplyConfig can adjust
	// them while the monitor loop is running.
	taskIntervalNS   atomic.Int64
	healthIntervalNS atomic.Int64

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a memory store instead of connecting to PostgreSQL.
func WithStore(s memory.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects a metrics instance instead of the process default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers
// struct comes from main.go (populated via the config registry). Use
// Option functions to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers.NLP == nil {
		return nil, errors.New("app: an nlp provider is required")
	}
	if providers.Automation == nil {
		return nil, errors.New("app: an automation provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		events:    bus.New(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	a.taskIntervalNS.Store(int64(msOrDefault(cfg.Monitor.IntervalMS, 60_000)))
	a.healthIntervalNS.Store(int64(msOrDefault(cfg.Monitor.HealthIntervalMS, 30_000)))

	if err := a.initMemory(ctx); err != nil {
		return nil, fmt.Errorf("app: init memory: %w", err)
	}
	a.initQueueAndWake()
	a.initCapture()
	if err := a.initPlugins(ctx); err != nil {
		return nil, fmt.Errorf("app: init plugins: %w", err)
	}
	a.initDispatch()
	a.initHealth()
	a.initWeb()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initMemory connects the PostgreSQL interaction store, unless one was
// injected or no DSN is configured (the in-memory store then serves as
// the backend).
func (a *App) initMemory(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	dsn := a.cfg.Memory.PostgresDSN
	if dsn == "" {
		slog.Warn("no postgres_dsn configured, interactions will not survive a restart")
		var memOpts []memstore.Option
		if a.cfg.Memory.RetentionDays > 0 {
			memOpts = append(memOpts,
				memstore.WithRetention(time.Duration(a.cfg.Memory.RetentionDays)*24*time.Hour))
		}
		a.store = memstore.New(memOpts...)
		return nil
	}

	var storeOpts []postgres.Option
	if a.providers.Embeddings != nil && a.cfg.Memory.EmbeddingDimensions > 0 {
		storeOpts = append(storeOpts,
			postgres.WithEmbeddings(a.providers.Embeddings, a.cfg.Memory.EmbeddingDimensions))
	}
	if a.cfg.Memory.RetentionDays > 0 {
		storeOpts = append(storeOpts,
			postgres.WithRetention(time.Duration(a.cfg.Memory.RetentionDays)*24*time.Hour))
	}

	store, err := postgres.NewStore(ctx, dsn, storeOpts...)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// initQueueAndWake builds the command queue and the wake detector that
// feeds it.
func (a *App) initQueueAndWake() {
	var queueOpts []queue.Option
	if a.cfg.Queue.Capacity > 0 {
		queueOpts = append(queueOpts, queue.WithCapacity(a.cfg.Queue.Capacity))
	}
	if a.cfg.Queue.OverflowPolicy == config.OverflowDropOldest {
		queueOpts = append(queueOpts, queue.WithPolicy(queue.DropOldest))
	}
	a.queue = queue.New(queueOpts...)

	wakeOpts := append(wakeOptions(a.cfg.Wake), wake.WithEvents(a.events))
	a.detector = wake.New(a.queue.Enqueue, wakeOpts...)

	a.events.Register(bus.EventWakeWordDetected, func(_ string, payload any) {
		if phrase, ok := payload.(string); ok {
			a.metrics.RecordWakeDetection(context.Background(), phrase)
		}
	})
}

// wakeOptions translates a wake config block into detector options.
// Shared by the initial wiring and config hot reload.
func wakeOptions(cfg config.WakeConfig) []wake.Option {
	opts := []wake.Option{wake.WithPhrases(cfg.Phrases)}
	if cfg.ArmTimeoutMS > 0 {
		opts = append(opts, wake.WithArmTimeout(time.Duration(cfg.ArmTimeoutMS)*time.Millisecond))
	}
	if cfg.MinCommandChars > 0 {
		opts = append(opts, wake.WithMinCommandChars(cfg.MinCommandChars))
	}
	if cfg.Fuzzy {
		opts = append(opts, wake.WithFuzzy(cfg.FuzzyThreshold))
	}
	return opts
}

// initCapture builds the acquisition pipeline when a microphone is
// configured.
func (a *App) initCapture() {
	if a.providers.Microphone == nil {
		slog.Info("no microphone configured, voice intake disabled")
		return
	}
	captureOpts := []capture.Option{
		capture.WithEvents(a.events),
		capture.WithDropHook(func() {
			a.metrics.SegmentsDropped.Add(context.Background(), 1)
		}),
	}
	if a.cfg.Audio.BufferSegments > 0 {
		captureOpts = append(captureOpts, capture.WithBufferSegments(a.cfg.Audio.BufferSegments))
	}
	a.capture = capture.New(a.providers.Microphone, captureOpts...)
	a.closers = append(a.closers, a.providers.Microphone.Close)
}

// initPlugins connects the configured MCP servers into the plugin chain.
func (a *App) initPlugins(ctx context.Context) error {
	a.plugins = plugin.NewHost()
	a.closers = append(a.closers, a.plugins.Close)

	for _, srv := range a.cfg.Plugins.Servers {
		if err := a.plugins.RegisterServer(ctx, srv); err != nil {
			return fmt.Errorf("register plugin server %q: %w", srv.Name, err)
		}
		slog.Info("registered plugin server", "name", srv.Name)
	}
	return nil
}

// initDispatch assembles the command pipeline: context builder, voice
// delivery, and the dispatcher itself.
func (a *App) initDispatch() {
	builderOpts := []dispatch.BuilderOption{
		dispatch.WithSystemStatus(a.systemStatus),
	}
	if a.providers.Embeddings != nil {
		if recaller, ok := a.store.(memory.SemanticRecaller); ok {
			builderOpts = append(builderOpts,
				dispatch.WithSemanticRecall(a.providers.Embeddings, recaller))
		}
	}
	builder := dispatch.NewContextBuilder(a.store, a.providers.Automation, builderOpts...)

	dispatchOpts := []dispatch.Option{
		dispatch.WithPlugins(a.plugins),
		dispatch.WithEvents(a.events),
		dispatch.WithObserver(func(intent string, source types.Source, status string, elapsed time.Duration) {
			a.metrics.RecordCommand(context.Background(), intent, string(source), status, elapsed.Seconds())
		}),
	}
	if a.providers.TTS != nil && a.providers.Sink != nil {
		a.speaker = voice.NewSpeaker(a.providers.TTS, a.providers.Sink)
		dispatchOpts = append(dispatchOpts, dispatch.WithDeliverer(types.SourceVoice,
			meteredDeliverer{next: a.speaker, metrics: a.metrics}))
	}

	a.dispatcher = dispatch.New(a.providers.NLP, a.providers.Automation, a.store, builder, dispatchOpts...)
}

// meteredDeliverer times spoken deliveries and counts failures.
type meteredDeliverer struct {
	next    dispatch.Deliverer
	metrics *observe.Metrics
}

func (m meteredDeliverer) Deliver(ctx context.Context, resp types.Response, source types.Source) error {
	start := time.Now()
	err := m.next.Deliver(ctx, resp, source)
	m.metrics.SynthesisDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		m.metrics.RecordProviderError(ctx, "tts", "delivery")
	}
	return err
}

// initHealth registers one checker per wired component.
func (a *App) initHealth() {
	var checkers []health.Checker
	checkers = append(checkers, health.ForComponent("memory", a.store))
	checkers = append(checkers, health.ForComponent("nlp", a.providers.NLP))
	checkers = append(checkers, health.ForComponent("automation", a.providers.Automation))
	if a.providers.Recognizer != nil {
		checkers = append(checkers, health.ForComponent("speech", a.providers.Recognizer))
	}
	if a.providers.TTS != nil {
		checkers = append(checkers, health.ForComponent("tts", a.providers.TTS))
	}
	a.checks = health.New(checkers...)
}

// initWeb assembles the HTTP surface: WebSocket intake, health probes,
// and the Prometheus scrape endpoint, wrapped in the observability
// middleware.
func (a *App) initWeb() {
	probes := http.NewServeMux()
	a.checks.Register(probes)

	srv := web.New(a.dispatcher,
		web.WithHealth(probes),
		web.WithMetrics(promhttp.Handler()),
		web.WithClientCounter(func(delta int64) {
			a.metrics.ActiveWebClients.Add(context.Background(), delta)
		}),
	)
	a.webHandler = observe.Middleware(a.metrics)(srv.Handler())
}

// systemStatus reports live pipeline state for the execution context.
func (a *App) systemStatus() map[string]any {
	status := map[string]any{
		"queue_depth":      a.queue.Len(),
		"commands_dropped": a.queue.Dropped(),
	}
	if a.capture != nil {
		status["listening"] = true
		status["segments_dropped"] = a.capture.Dropped()
	} else {
		status["listening"] = false
	}
	return status
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the pipeline loops and blocks until ctx is cancelled or the
// web server fails. The recognition, dispatch, and monitor loops are
// supervised: a panic or error inside one is logged and the loop is
// restarted after a short delay.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.capture != nil {
		a.capture.Start(ctx)
		defer a.capture.Stop()
		g.Go(func() error { return a.supervise(ctx, "recognition", a.recognitionLoop) })
	}

	g.Go(func() error { return a.supervise(ctx, "dispatch", a.dispatchLoop) })
	g.Go(func() error { return a.supervise(ctx, "monitor", a.monitorLoop) })

	if a.cfg.Server.ListenAddr != "" {
		g.Go(func() error { return a.serveWeb(ctx) })
	}

	slog.Info("assistant running",
		"listen_addr", a.cfg.Server.ListenAddr,
		"voice", a.capture != nil,
		"plugins", len(a.plugins.Names()))

	return g.Wait()
}

// supervise runs fn until ctx is cancelled, restarting it after panics
// and unexpected returns. A wedged pipeline loop must never take the
// process down with it.
func (a *App) supervise(ctx context.Context, name string, fn func(context.Context) error) error {
	for {
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("pipeline loop panicked", "loop", name, "panic", r)
				}
			}()
			return fn(ctx)
		}()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			slog.Error("pipeline loop failed, restarting", "loop", name, "error", err)
		} else {
			slog.Warn("pipeline loop exited, restarting", "loop", name)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(restartDelay):
		}
	}
}

// recognitionLoop feeds captured segments through speech recognition and
// the wake detector.
func (a *App) recognitionLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case seg := <-a.capture.Segments():
			a.recognizeSegment(ctx, seg)
		}
	}
}

// recognizeSegment transcribes one segment. No-speech segments are a
// silent skip; backend failures are logged and the segment is discarded.
func (a *App) recognizeSegment(ctx context.Context, seg types.AudioSegment) {
	if a.providers.Recognizer == nil {
		return
	}

	start := time.Now()
	u, err := a.providers.Recognizer.Recognize(ctx, seg)
	a.metrics.RecognitionDuration.Record(ctx, time.Since(start).Seconds())

	switch {
	case errors.Is(err, recognizer.ErrNoSpeech):
		return
	case err != nil:
		slog.Warn("speech recognition failed", "seq", seg.Seq, "error", err)
		a.metrics.RecordProviderError(ctx, "recognizer", "speech")
		return
	}

	a.detector.Process(u)
}

// dispatchLoop drains the command queue through the dispatcher.
func (a *App) dispatchLoop(ctx context.Context) error {
	for {
		msg, ok := a.queue.Wait(ctx, time.Second)
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		a.dispatcher.Dispatch(ctx, msg)
	}
}

// monitorLoop runs the periodic background work: wake arm expiry,
// scheduled automation tasks, retention cleanup, component health
// sweeps, and queue gauge sync.
func (a *App) monitorLoop(ctx context.Context) error {
	taskInterval := time.Duration(a.taskIntervalNS.Load())
	healthInterval := time.Duration(a.healthIntervalNS.Load())

	tasks := time.NewTicker(taskInterval)
	defer tasks.Stop()
	healthT := time.NewTicker(healthInterval)
	defer healthT.Stop()
	expiry := time.NewTicker(time.Second)
	defer expiry.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case now := <-expiry.C:
			a.detector.Expire(now)

			// Interval changes from a config reload take effect here.
			if d := time.Duration(a.taskIntervalNS.Load()); d != taskInterval {
				taskInterval = d
				tasks.Reset(d)
			}
			if d := time.Duration(a.healthIntervalNS.Load()); d != healthInterval {
				healthInterval = d
				healthT.Reset(d)
			}

		case <-tasks.C:
			a.runScheduledTasks(ctx)

		case <-healthT.C:
			a.sweepHealth(ctx)
			a.syncQueueMetrics(ctx)
		}
	}
}

// runScheduledTasks fires due automations and prunes old interactions.
// Failures are logged; the monitor loop itself never fails.
func (a *App) runScheduledTasks(ctx context.Context) {
	if err := a.providers.Automation.CheckScheduledTasks(ctx); err != nil {
		slog.Warn("scheduled task check failed", "error", err)
	}
	if err := a.store.CleanupOldData(ctx); err != nil {
		slog.Warn("memory cleanup failed", "error", err)
	}
}

// sweepHealth logs every component currently failing its check.
func (a *App) sweepHealth(ctx context.Context) {
	for name, healthy := range a.checks.Snapshot(ctx) {
		if !healthy {
			slog.Warn("component unhealthy", "component", name)
		}
	}
}

// syncQueueMetrics reconciles the queue gauges against the live queue.
func (a *App) syncQueueMetrics(ctx context.Context) {
	depth := int64(a.queue.Len())
	a.metrics.QueueDepth.Add(ctx, depth-a.lastQueueDepth)
	a.lastQueueDepth = depth

	dropped := a.queue.Dropped()
	if delta := dropped - a.lastQueueDropped; delta > 0 {
		a.metrics.CommandsDropped.Add(ctx, int64(delta))
	}
	a.lastQueueDropped = dropped
}

// serveWeb runs the HTTP server until ctx is cancelled.
func (a *App) serveWeb(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.webHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if tls := a.cfg.Server.TLS; tls != nil {
			errCh <- srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			slog.Warn("web server shutdown error", "error", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: web server: %w", err)
	}
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Enqueue accepts an externally produced command into the dispatch queue.
func (a *App) Enqueue(msg types.CommandMessage) error {
	return a.queue.Enqueue(msg)
}

// Handler exposes the HTTP surface, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.webHandler
}

// Events exposes the lifecycle event bus.
func (a *App) Events() *bus.EventBus {
	return a.events
}

// ApplyConfig applies a hot-reloadable configuration change to the
// running application. Wake tuning takes effect immediately; monitor
// cadences are picked up by the monitor loop within a second. Log level
// is handled by the caller.
func (a *App) ApplyConfig(change config.ChangeSet) {
	if change.WakeChanged {
		a.detector.Retune(wakeOptions(change.NewWake)...)
		slog.Info("wake detector retuned", "phrases", change.NewWake.Phrases)
	}
	if change.MonitorChanged {
		a.taskIntervalNS.Store(int64(msOrDefault(change.NewMonitor.IntervalMS, 60_000)))
		a.healthIntervalNS.Store(int64(msOrDefault(change.NewMonitor.HealthIntervalMS, 30_000)))
		slog.Info("monitor cadences updated",
			"interval_ms", change.NewMonitor.IntervalMS,
			"health_interval_ms", change.NewMonitor.HealthIntervalMS)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse init order. It respects
// the context deadline: if ctx expires before all closers finish,
// remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.capture != nil {
			a.capture.Stop()
		}
		if a.speaker != nil {
			a.speaker.Interrupt()
		}

		if pending := a.queue.Drain(); len(pending) > 0 {
			slog.Warn("discarding queued commands on shutdown", "count", len(pending))
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "error", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// msOrDefault converts a millisecond config value to a duration,
// substituting def when the value is unset.
func msOrDefault(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}
