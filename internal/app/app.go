// Package app wires the application together: configuration in,
// a ready-to-serve orchestrator out. Setup builds every component in
// dependency order; Close releases them in reverse.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/qametric/qametric/internal/agent"
	"github.com/qametric/qametric/internal/cache"
	"github.com/qametric/qametric/internal/config"
	"github.com/qametric/qametric/internal/log"
	"github.com/qametric/qametric/internal/memory"
	"github.com/qametric/qametric/internal/observability"
	"github.com/qametric/qametric/internal/orchestrator"
	"github.com/qametric/qametric/internal/qase"
	"github.com/qametric/qametric/internal/tools"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit       *genkit.Genkit
	QA           *qase.Client
	Store        cache.Store
	Sessions     *memory.SessionStore
	Projects     *memory.ProjectStore
	Kit          *tools.Kit
	Agent        *agent.Agent
	Orchestrator *orchestrator.Orchestrator

	redis        *cache.Redis
	traceCleanup func()
}

// Setup builds the application from cfg. On failure everything already
// initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing first so Genkit's TracerProvider picks up the exporter.
	if cfg.Tracing.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: "qametric",
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.traceCleanup = func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("shutting down tracer provider", "error", err)
			}
		}
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	a.Genkit = g

	store, err := provideStore(ctx, a, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store

	a.QA = qase.New(cfg.QA.BaseURL, logger)
	a.Sessions = memory.NewSessionStore(cfg.MaxMessages)
	a.Projects = memory.NewProjectStore()

	kit, err := tools.NewKit(a.QA, store, tools.TTLs{
		Projects: time.Duration(cfg.Cache.ProjectsTTLSeconds) * time.Second,
		Cases:    time.Duration(cfg.Cache.CasesTTLSeconds) * time.Second,
		Runs:     time.Duration(cfg.Cache.RunsTTLSeconds) * time.Second,
		Results:  time.Duration(cfg.Cache.ResultsTTLSeconds) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating tool kit: %w", err)
	}
	a.Kit = kit

	ag, err := agent.New(agent.Config{
		Genkit:    g,
		Tools:     kit.Register(g),
		Sessions:  a.Sessions,
		Projects:  a.Projects,
		Logger:    logger,
		ModelName: cfg.ModelName,
		MaxTurns:  cfg.MaxTurns,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	a.Agent = ag

	orch, err := orchestrator.New(orchestrator.Config{
		Agent:     ag,
		Kit:       kit,
		Genkit:    g,
		Sessions:  a.Sessions,
		Projects:  a.Projects,
		Logger:    logger,
		ModelName: cfg.ModelName,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	a.Orchestrator = orch

	logger.Info("application ready",
		"model", cfg.ModelName,
		"cache_backend", cfg.Cache.Backend,
		"max_messages", cfg.MaxMessages)
	return a, nil
}

// provideStore selects the cache backend.
func provideStore(ctx context.Context, a *App, cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		r, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.redis = r
		return r, nil
	default:
		return cache.NewMemory(), nil
	}
}

// Close releases resources in reverse initialization order.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
		a.redis = nil
	}
	if a.traceCleanup != nil {
		a.traceCleanup()
		a.traceCleanup = nil
	}
	return errors.Join(errs...)
}
