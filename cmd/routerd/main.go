// Command routerd runs the agent task-routing service: the suggestion
// engine, the task API and the WebSocket event stream.
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

	"github.com/zaebee/agents-list-sub002/internal/adapter/embedding"
	"github.com/zaebee/agents-list-sub002/internal/adapter/gateway"
	"github.com/zaebee/agents-list-sub002/internal/adapter/history"
	"github.com/zaebee/agents-list-sub002/internal/adapter/taskstore"
	"github.com/zaebee/agents-list-sub002/internal/domain"
	"github.com/zaebee/agents-list-sub002/internal/infra/config"
	"github.com/zaebee/agents-list-sub002/internal/infra/logger"
	"github.com/zaebee/agents-list-sub002/internal/infra/tracer"
	"github.com/zaebee/agents-list-sub002/internal/usecase/analysis"
	"github.com/zaebee/agents-list-sub002/internal/usecase/eventbus"
	"github.com/zaebee/agents-list-sub002/internal/usecase/routing"
	"github.com/zaebee/agents-list-sub002/internal/usecase/scheduling"
	"github.com/zaebee/agents-list-sub002/internal/usecase/tasks"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	taskStore, err := taskstore.New(cfg.Storage.TasksPath, log)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer taskStore.Close()

	historyStore, err := history.New(cfg.Storage.HistoryPath, log)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer historyStore.Close()

	embedder := buildEmbedder(cfg, log)

	profiles, err := routing.LoadCatalogFile(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	catalog, err := routing.NewCatalog(profiles, log)
	if err != nil {
		return err
	}
	if embedder != nil {
		if err := catalog.ComputeEmbeddings(ctx, embedder); err != nil {
			log.Warn("profile embeddings unavailable, routing starts keyword-only", "error", err)
		}
	}

	var semantic *routing.SemanticScorer
	if embedder != nil {
		semantic = routing.NewSemanticScorer(embedder, cfg.Router.EmbedTimeout, log)
	}
	var learning *routing.LearningAdjuster
	if cfg.Router.Learning.Enabled {
		learning = routing.NewLearningAdjuster(historyStore,
			cfg.Router.Learning.FloorWeight, cfg.Router.Learning.CeilWeight,
			cfg.Router.Learning.MinSamples, log)
	}
	balancer := routing.NewWorkloadBalancer(taskStore,
		routing.BalancePolicy(cfg.Router.WorkloadPolicy), log)

	engine := routing.NewEngine(catalog, semantic, learning, balancer, routing.Options{
		Weights: routing.Weights{
			Keyword:  cfg.Router.KeywordWeight,
			Semantic: cfg.Router.SemanticWeight,
		},
		MaxResults:    cfg.Router.MaxResults,
		MinConfidence: cfg.Router.MinConfidence,
		GeneralistID:  cfg.Router.GeneralistID,
	}, log)

	bus := eventbus.New(log)
	defer bus.Close()

	taskSvc := tasks.NewService(taskStore, historyStore, engine, analysis.NewGateway(), bus, log)

	scheduler := buildScheduler(cfg, catalog, historyStore, embedder, log)
	if scheduler != nil {
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	if !cfg.Gateway.Enabled {
		log.Info("gateway disabled, running headless")
		<-ctx.Done()
		return nil
	}

	srv := gateway.NewServer(bus, buildAuth(cfg), gateway.Options{
		Addr:           cfg.Gateway.Addr,
		RequestsPerMin: cfg.Gateway.RateLimit.RequestsPerMin,
		Burst:          cfg.Gateway.RateLimit.Burst,
	}, log)

	embedderName := ""
	if embedder != nil {
		embedderName = embedder.Name()
	}
	gateway.RegisterRoutes(srv, gateway.HandlerDeps{
		Tasks:    taskSvc,
		Router:   engine,
		Analyzer: analysis.NewGateway(),
		Catalog:  catalog,
		Embedder: embedderName,
		Logger:   log,
	}, gateway.NewMetrics())

	return srv.Start(ctx)
}

// loadConfig reads the config file, falling back to defaults when the file
// does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := config.Default()
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Load(path)
}

// buildEmbedder assembles the embedding provider chain: provider, LRU cache,
// circuit breaker. Returns nil when semantic scoring is disabled.
func buildEmbedder(cfg *config.Config, log *slog.Logger) domain.EmbeddingProvider {
	var provider domain.EmbeddingProvider
	switch cfg.Embedding.Provider {
	case "ollama":
		var opts []embedding.OllamaOption
		if cfg.Embedding.Model != "" {
			opts = append(opts, embedding.WithOllamaModel(cfg.Embedding.Model))
		}
		if cfg.Embedding.BaseURL != "" {
			opts = append(opts, embedding.WithOllamaBaseURL(cfg.Embedding.BaseURL))
		}
		provider = embedding.NewOllamaProvider(opts...)
	case "openai":
		var opts []embedding.OpenAIOption
		if cfg.Embedding.Model != "" {
			opts = append(opts, embedding.WithOpenAIModel(cfg.Embedding.Model))
		}
		if cfg.Embedding.BaseURL != "" {
			opts = append(opts, embedding.WithOpenAIBaseURL(cfg.Embedding.BaseURL))
		}
		provider = embedding.NewOpenAIProvider(cfg.Embedding.APIKey, opts...)
	default:
		return nil
	}

	provider = embedding.NewCachedEmbedder(provider, cfg.Embedding.CacheSize)
	return embedding.NewBreakerEmbedder(provider, embedding.BreakerConfig{
		MaxFailures: cfg.Embedding.Breaker.MaxFailures,
		Timeout:     cfg.Embedding.Breaker.Timeout,
		Interval:    cfg.Embedding.Breaker.Interval,
	}, log)
}

// buildScheduler wires the recurring maintenance tasks. Returns nil when the
// scheduler is disabled or no task has a schedule.
func buildScheduler(cfg *config.Config, catalog *routing.Catalog, historyStore *history.Store, embedder domain.EmbeddingProvider, log *slog.Logger) *scheduling.Scheduler {
	if !cfg.Scheduler.Enabled {
		return nil
	}

	s := scheduling.New(log)

	s.RegisterAction(scheduling.ActionCatalogReload, func(ctx context.Context) error {
		profiles, err := routing.LoadCatalogFile(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		if err := catalog.Replace(profiles); err != nil {
			return err
		}
		if embedder != nil {
			return catalog.ComputeEmbeddings(ctx, embedder)
		}
		return nil
	})
	s.RegisterAction(scheduling.ActionEmbeddingRefresh, func(ctx context.Context) error {
		if embedder == nil {
			return nil
		}
		return catalog.ComputeEmbeddings(ctx, embedder)
	})
	s.RegisterAction(scheduling.ActionHistoryCompact, func(ctx context.Context) error {
		deleted, err := historyStore.Compact(ctx, cfg.Scheduler.HistoryMaxAge)
		if err != nil {
			return err
		}
		if deleted > 0 {
			log.Info("outcome history compacted", "deleted", deleted)
		}
		return nil
	})

	added := 0
	for _, t := range []scheduling.Task{
		{Name: "catalog-reload", Schedule: cfg.Scheduler.CatalogReload, Action: scheduling.ActionCatalogReload},
		{Name: "embedding-refresh", Schedule: cfg.Scheduler.EmbeddingRefresh, Action: scheduling.ActionEmbeddingRefresh},
		{Name: "history-compact", Schedule: cfg.Scheduler.HistoryCompact, Action: scheduling.ActionHistoryCompact},
	} {
		if t.Schedule == "" {
			continue
		}
		if err := s.AddTask(t); err != nil {
			log.Warn("scheduled task skipped", "task", t.Name, "error", err)
			continue
		}
		added++
	}
	if added == 0 {
		return nil
	}
	return s
}

func buildAuth(cfg *config.Config) gateway.Authenticator {
	if cfg.Gateway.Auth.Type != "static" {
		return gateway.AllowAllAuth{}
	}
	entries := make([]gateway.TokenEntry, len(cfg.Gateway.Auth.Tokens))
	for i, t := range cfg.Gateway.Auth.Tokens {
		entries[i] = gateway.TokenEntry{Token: t.Token, Name: t.Name}
	}
	return gateway.NewStaticTokenAuth(entries)
}
