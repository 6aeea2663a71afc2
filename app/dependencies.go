package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/upb/math-agent/config"
	"github.com/upb/math-agent/internal/guardrail"
	"github.com/upb/math-agent/internal/observability"
	"github.com/upb/math-agent/internal/rag"
	"github.com/upb/math-agent/internal/websearch"
	"github.com/upb/math-agent/repositories"
	"github.com/upb/math-agent/repositories/memory"
	"github.com/upb/math-agent/repositories/postgres"
	"github.com/upb/math-agent/repositories/sqlite"
	"github.com/upb/math-agent/services/feedback"
	"github.com/upb/math-agent/services/providers"
	"github.com/upb/math-agent/services/providers/openai"
	"github.com/upb/math-agent/services/ratelimit"
	"github.com/upb/math-agent/services/routing"
	"github.com/upb/math-agent/services/synthesis"
)

const rateLimitSweepInterval = time.Minute

// HealthChecker probes a backing store.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds every process-scoped handle. NewDependencies opens them
// and Close releases them in reverse order.
type Dependencies struct {
	// Infrastructure
	Config          *config.Config
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	MetricsRegistry *prometheus.Registry

	// Knowledge base
	Retriever *rag.Retriever
	Watcher   *rag.DatasetWatcher

	// Web search
	SearchServer *websearch.Server
	WebSearch    *websearch.Adapter

	// Completion providers
	Providers *providers.Registry
	LLM       providers.Provider

	// Pipeline
	Synthesizer *synthesis.Service
	Router      *routing.Service

	// Feedback
	Repos       *repositories.Repositories
	StoreHealth HealthChecker
	Feedback    *feedback.Service

	RateLimiter *ratelimit.RateLimitService

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// NewDependencies creates and wires up all application dependencies.
// On failure every handle opened so far is closed before returning.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	bgCtx, cancel := context.WithCancel(context.Background())
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		bgCancel: cancel,
	}

	deps.initMetrics(cfg)

	steps := []struct {
		name string
		fn   func() error
	}{
		{"knowledge base", func() error { return deps.initKnowledge(ctx, bgCtx, cfg) }},
		{"web search", func() error { return deps.initWebSearch(cfg) }},
		{"providers", func() error { return deps.initProviders(cfg) }},
		{"feedback store", func() error { return deps.initFeedback(ctx, cfg) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			_ = deps.Close(ctx)
			return nil, fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
	}

	deps.initRouter(cfg)
	deps.initRateLimiter(bgCtx, cfg)

	logger.Info("all dependencies initialized successfully",
		zap.Int("knowledge_base_size", deps.Retriever.Size(ctx)),
		zap.Bool("llm_configured", cfg.LLM.APIKey != ""),
		zap.Bool("search_configured", deps.SearchConfigured()),
		zap.String("feedback_store", deps.Repos.Kind))
	return deps, nil
}

// SearchConfigured reports whether the web search tier can return results.
func (d *Dependencies) SearchConfigured() bool {
	if d.Config.WebSearch.MCPURL != "" {
		return true
	}
	return d.SearchServer != nil && d.SearchServer.Configured()
}

func (d *Dependencies) initMetrics(cfg *config.Config) {
	if !cfg.Observability.MetricsEnabled {
		return
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.MetricsRegistry = reg
	d.Metrics = observability.NewMetrics(reg)
}

// initKnowledge builds the embedder and index, loads the dataset and starts the watcher
func (d *Dependencies) initKnowledge(ctx, bgCtx context.Context, cfg *config.Config) error {
	kc := cfg.Knowledge

	var embedder rag.Embedder
	if kc.EmbeddingModel == "" {
		embedder = rag.NewHashingEmbedder(kc.EmbeddingDimensions)
	} else {
		embedder = rag.NewOpenAIEmbedder(kc.EmbeddingAPIKey, kc.EmbeddingBaseURL, kc.EmbeddingModel, kc.EmbeddingDimensions)
	}

	var index rag.VectorIndex
	switch kc.Index {
	case config.VectorIndexWeaviate:
		w, err := rag.NewWeaviateIndex(kc.WeaviateURL, kc.WeaviateClass, kc.IndexConcurrency, d.Logger)
		if err != nil {
			return err
		}
		index = w
	default:
		index = rag.NewMemoryIndex()
	}

	d.Retriever = rag.NewRetriever(embedder, index, rag.RetrieverConfig{
		Threshold:   kc.SimilarityThreshold,
		Concurrency: kc.IndexConcurrency,
	}, d.Logger, d.Metrics)

	if err := d.Retriever.Load(ctx, kc.DatasetPath); err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	if kc.Watch && kc.DatasetPath != "" {
		watcher, err := rag.NewDatasetWatcher(kc.DatasetPath, d.Retriever, d.Logger)
		if err != nil {
			return err
		}
		d.Watcher = watcher
		d.bgWG.Add(1)
		go func() {
			defer d.bgWG.Done()
			watcher.Run(bgCtx)
		}()
		d.Logger.Info("watching knowledge base dataset", zap.String("path", kc.DatasetPath))
	}
	return nil
}

// initWebSearch builds the MCP search server and the adapter the router calls
func (d *Dependencies) initWebSearch(cfg *config.Config) error {
	wc := cfg.WebSearch
	tavily := websearch.NewTavilyClient(wc.TavilyAPIKey, wc.TavilyBaseURL, cfg.Routing.WebSearchTimeout)
	d.SearchServer = websearch.NewServer(tavily, d.Logger)

	switch {
	case wc.MCPURL != "":
		d.WebSearch = websearch.NewRemoteAdapter(wc.MCPURL, wc.MaxResults, d.Logger, d.Metrics)
		d.Logger.Info("using remote web search server", zap.String("endpoint", wc.MCPURL))
	case d.SearchServer.Configured():
		d.WebSearch = websearch.NewInProcessAdapter(d.SearchServer, wc.MaxResults, d.Logger, d.Metrics)
	default:
		d.Logger.Warn("web search not configured, the web tier will always miss")
	}
	return nil
}

// initProviders registers the completion provider and resolves the one synthesis uses
func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry := providers.NewRegistry()

	providerCfg := providers.DefaultProviderConfig()
	providerCfg.APIKey = cfg.LLM.APIKey
	providerCfg.BaseURL = cfg.LLM.BaseURL
	providerCfg.Timeout = cfg.Routing.SynthesisTimeout

	if err := registry.RegisterProvider(openai.NewAdapter(cfg.LLM.Provider, providerCfg)); err != nil {
		return err
	}

	llm, err := registry.GetProvider(cfg.LLM.Provider)
	if err != nil {
		return err
	}

	if cfg.LLM.APIKey == "" {
		d.Logger.Warn("no LLM API key configured, synthesis will fail",
			zap.String("provider", cfg.LLM.Provider))
	}

	d.Providers = registry
	d.LLM = llm
	return nil
}

// initFeedback opens the configured store and starts the single-writer feedback service
func (d *Dependencies) initFeedback(ctx context.Context, cfg *config.Config) error {
	switch cfg.Feedback.Store {
	case config.FeedbackStorePostgres:
		repos, db, err := postgres.Open(ctx, cfg.Database, d.Logger)
		if err != nil {
			return err
		}
		d.Repos = repos
		d.StoreHealth = db
	case config.FeedbackStoreSQLite:
		repos, err := sqlite.Open(ctx, cfg.Feedback.SQLitePath, d.Logger)
		if err != nil {
			return err
		}
		d.Repos = repos
	default:
		d.Repos = repositories.NewRepositories(config.FeedbackStoreMemory, memory.NewFeedbackRepository())
	}

	d.Feedback = feedback.NewService(d.Repos.Feedback, feedback.Config{
		BufferSize:  cfg.Feedback.WriteBuffer,
		RecentLimit: cfg.Feedback.RecentLimit,
	}, d.Logger, d.Metrics)
	return d.Feedback.Start()
}

func (d *Dependencies) initRouter(cfg *config.Config) {
	gc := cfg.Guardrails

	d.Synthesizer = synthesis.NewService(d.LLM, synthesis.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		KBVerbatim:  cfg.LLM.KBVerbatim,
	}, d.Logger)

	input := guardrail.NewInputGuard(guardrail.InputConfig{
		MinLength:          gc.MinQueryLength,
		MaxLength:          gc.MaxQueryLength,
		TopicThreshold:     gc.TopicThreshold,
		InjectionThreshold: gc.InjectionThreshold,
	})
	output := guardrail.NewOutputGuard(guardrail.OutputConfig{
		MinLength:      gc.OutputMinLength,
		MinStepMarkers: gc.OutputMinSteps,
		TopicThreshold: gc.TopicThreshold,
	})

	// A nil *Adapter must not reach the router as a non-nil interface.
	var web routing.WebSearcher
	if d.WebSearch != nil {
		web = d.WebSearch
	}

	d.Router = routing.NewService(input, d.Retriever, web, d.Synthesizer, output, routing.Timeouts{
		KnowledgeBase: cfg.Routing.KBTimeout,
		WebSearch:     cfg.Routing.WebSearchTimeout,
		Synthesis:     cfg.Routing.SynthesisTimeout,
	}, d.Metrics, d.Logger)
}

func (d *Dependencies) initRateLimiter(bgCtx context.Context, cfg *config.Config) {
	if !cfg.RateLimit.Enabled {
		return
	}
	d.RateLimiter = ratelimit.NewRateLimitService(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, d.Logger)

	d.bgWG.Add(1)
	go func() {
		defer d.bgWG.Done()
		ticker := time.NewTicker(rateLimitSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-bgCtx.Done():
				return
			case <-ticker.C:
				if n := d.RateLimiter.Sweep(); n > 0 {
					d.Logger.Debug("dropped idle rate limit buckets", zap.Int("count", n))
				}
			}
		}
	}()
}

// Close gracefully shuts down all dependencies. It is safe on partially built values.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Feedback != nil {
		timeout := d.Config.Feedback.StopTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = min(timeout, time.Until(deadline))
		}
		if err := d.Feedback.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop feedback service: %w", err))
		}
	}

	if d.Repos != nil {
		if err := d.Repos.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close feedback store: %w", err))
		} else {
			d.Logger.Info("feedback store closed")
		}
	}

	if d.bgCancel != nil {
		d.bgCancel()
	}
	if d.Watcher != nil {
		if err := d.Watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop dataset watcher: %w", err))
		}
	}
	d.bgWG.Wait()

	if d.WebSearch != nil {
		if err := d.WebSearch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close web search session: %w", err))
		}
	}

	// Sync logger
	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
