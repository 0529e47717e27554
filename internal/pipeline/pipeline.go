// Package pipeline orchestrates one listing evaluation: it fans out to
// the signal validators, hands the bundle to the trust engine, and
// persists the outcome.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/propguard/propguard/internal/model"
	"github.com/propguard/propguard/internal/store"
	"github.com/propguard/propguard/internal/trust"
)

// ImageSource produces the image-authenticity signal.
type ImageSource interface {
	ValidateImages(ctx context.Context, urls []string) *model.Signal
}

// AgentSource produces the lister-verification signal.
type AgentSource interface {
	VerifyLister(ctx context.Context, listerName string) *model.Signal
}

// PlatformSource produces the cross-platform consistency signal.
type PlatformSource interface {
	ValidateListing(ctx context.Context, listing model.Listing) *model.Signal
}

// Pipeline runs validators and scoring for submitted listings.
type Pipeline struct {
	images    ImageSource
	agents    AgentSource
	platforms PlatformSource
	engine    trust.Evaluator
	store     store.Store
}

// New creates a Pipeline. st may be nil for offline scoring.
func New(images ImageSource, agents AgentSource, platforms PlatformSource, engine trust.Evaluator, st store.Store) *Pipeline {
	return &Pipeline{
		images:    images,
		agents:    agents,
		platforms: platforms,
		engine:    engine,
		store:     st,
	}
}

// Evaluate gathers all signals for the listing and scores them. The
// validators run concurrently; each degrades to a parseable error shape
// on failure, so Evaluate itself only fails on context cancellation.
func (p *Pipeline) Evaluate(ctx context.Context, listing model.Listing) (*model.EvaluationResult, error) {
	start := time.Now()
	bundle := &model.SignalBundle{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bundle.Image = p.images.ValidateImages(gctx, listing.ImageURLs)
		return nil
	})
	g.Go(func() error {
		bundle.Agent = p.agents.VerifyLister(gctx, listing.ListerName)
		return nil
	})
	g.Go(func() error {
		bundle.Platform = p.platforms.ValidateListing(gctx, listing)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := p.engine.Evaluate(ctx, bundle)

	zap.L().Info("pipeline: listing evaluated",
		zap.String("property", listing.PropertyName),
		zap.Float64("total_score", result.TotalScore),
		zap.String("status", string(result.Status)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

// Submit evaluates a listing and persists the record with its outcome.
func (p *Pipeline) Submit(ctx context.Context, listing model.Listing) (*model.ListingRecord, error) {
	result, err := p.Evaluate(ctx, listing)
	if err != nil {
		return nil, err
	}

	if p.store == nil {
		return &model.ListingRecord{Listing: listing, Evaluation: result, CreatedAt: time.Now().UTC()}, nil
	}
	return p.store.CreateListing(ctx, listing, result)
}
