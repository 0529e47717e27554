// Package store persists submitted listings and their evaluations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/propguard/propguard/internal/model"
)

// ErrNotFound is returned when a requested listing does not exist.
var ErrNotFound = eris.New("listing not found")

// ListingFilter specifies criteria for listing queries.
type ListingFilter struct {
	Status model.ListingStatus `json:"status,omitempty"`
	Lister string              `json:"lister,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// Store defines the persistence interface for the evaluation service.
type Store interface {
	CreateListing(ctx context.Context, listing model.Listing, eval *model.EvaluationResult) (*model.ListingRecord, error)
	GetListing(ctx context.Context, id string) (*model.ListingRecord, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]model.ListingRecord, error)
	UpdateEvaluation(ctx context.Context, id string, eval *model.EvaluationResult) error

	Migrate(ctx context.Context) error
	Close() error
}
