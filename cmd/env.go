package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/propguard/propguard/internal/pipeline"
	"github.com/propguard/propguard/internal/store"
	"github.com/propguard/propguard/internal/trust"
	"github.com/propguard/propguard/internal/validator"
	"github.com/propguard/propguard/pkg/anthropic"
	"github.com/propguard/propguard/pkg/perplexity"
)

// env bundles the wired validators, engine, and store for a command.
type env struct {
	Pipeline  *pipeline.Pipeline
	Images    *validator.ImageValidator
	Agents    *validator.AgentValidator
	Platforms *validator.PlatformValidator
	Store     store.Store
}

// initEnv wires the full evaluation stack from configuration. withStore
// controls whether a persistence backend is opened and migrated.
func initEnv(ctx context.Context, withStore bool) (*env, error) {
	if err := trust.ValidateConfig(cfg.Scorer); err != nil {
		return nil, err
	}

	rps := cfg.Validate.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	limiter := rate.NewLimiter(rate.Limit(rps), 1)

	llm := anthropic.NewClient(cfg.Anthropic.Key)
	search := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
	)

	imageClient := &http.Client{
		Timeout: time.Duration(cfg.Validate.ImageTimeoutSecs) * time.Second,
	}

	e := &env{
		Images:    validator.NewImageValidator(imageClient, limiter, cfg.Validate.DuplicateDistance),
		Agents:    validator.NewAgentValidator(llm, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, limiter),
		Platforms: validator.NewPlatformValidator(search, limiter),
	}

	if withStore {
		st, err := openStore(ctx)
		if err != nil {
			return nil, err
		}
		e.Store = st
	}

	history := trust.NewHistory(cfg.Scorer.HistoryWindow)
	engine := trust.NewEngine(cfg.Scorer, history)
	e.Pipeline = pipeline.New(e.Images, e.Agents, e.Platforms, engine, e.Store)

	return e, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		st, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Close releases held resources.
func (e *env) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}
