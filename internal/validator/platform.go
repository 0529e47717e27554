package validator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/propguard/propguard/internal/model"
	"github.com/propguard/propguard/pkg/perplexity"
)

// Platforms checked for cross-listing consistency.
var knownPlatforms = []string{
	"zillow", "trulia", "realtor.com", "redfin",
	"facebook marketplace", "lamudi", "property24",
}

// PlatformValidator searches for the listing across real-estate
// platforms and renders a consistency report the trust engine parses.
type PlatformValidator struct {
	search  perplexity.Client
	limiter *rate.Limiter
}

// NewPlatformValidator creates a PlatformValidator.
func NewPlatformValidator(search perplexity.Client, limiter *rate.Limiter) *PlatformValidator {
	return &PlatformValidator{search: search, limiter: limiter}
}

const platformSystemPrompt = "You are a real estate platform analyzer. " +
	"For each platform you are asked about, respond with one line in the form " +
	"\"<platform>: consistent\", \"<platform>: inconsistent\", or \"<platform>: not found\", " +
	"followed by a short summary of what you found."

// ValidateListing produces the cross-platform signal for a listing. A
// search failure yields an error report string the engine scores as
// "no cross-platform data", never an error.
func (v *PlatformValidator) ValidateListing(ctx context.Context, listing model.Listing) *model.Signal {
	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			return errorPlatformSignal(err)
		}
	}

	query := fmt.Sprintf(
		"Search for this property listing across these platforms: %s.\n"+
			"Property: %s (%s)\n"+
			"Location: %s\n"+
			"Price: %.2f\n"+
			"Bedrooms: %d, Bathrooms: %d, Floor area: %d sqm\n"+
			"Report whether the listed details are consistent on each platform.",
		strings.Join(knownPlatforms, ", "),
		listing.PropertyName, listing.PropertyType,
		listing.Location,
		listing.Price,
		listing.Bedrooms, listing.Bathrooms, listing.FloorArea,
	)

	searchResults, err := v.search.Search(ctx, platformSystemPrompt, query)
	if err != nil {
		zap.L().Warn("validator: cross-platform search failed",
			zap.String("property", listing.PropertyName),
			zap.Error(err),
		)
		return errorPlatformSignal(err)
	}

	consistent, inconsistent := tallyPlatforms(searchResults)

	report := fmt.Sprintf(
		"Cross-Platform Validation Results:\n"+
			"- Platforms checked: %d\n"+
			"- Consistent platforms: %d\n"+
			"- Inconsistent platforms: %d\n"+
			"- Processed at: %s\n\n"+
			"Search summary:\n%s",
		consistent+inconsistent, consistent, inconsistent,
		time.Now().UTC().Format(time.RFC3339),
		searchResults,
	)
	return model.TextSignal(report)
}

// tallyPlatforms counts per-platform verdict lines in the search
// results. Platforms reported "not found" or not mentioned contribute
// to neither count.
func tallyPlatforms(results string) (consistent, inconsistent int) {
	lower := strings.ToLower(results)
	for _, platform := range knownPlatforms {
		idx := strings.Index(lower, platform+":")
		if idx < 0 {
			continue
		}
		rest := lower[idx+len(platform)+1:]
		if end := strings.IndexByte(rest, '\n'); end >= 0 {
			rest = rest[:end]
		}
		switch {
		case strings.Contains(rest, "inconsistent"):
			inconsistent++
		case strings.Contains(rest, "consistent"):
			consistent++
		}
	}
	return consistent, inconsistent
}

// errorPlatformSignal renders the degraded report for a failed search;
// it parses to zero platforms and scores as missing cross-platform
// data.
func errorPlatformSignal(err error) *model.Signal {
	return model.TextSignal(fmt.Sprintf(
		"Cross-Platform Validation Results:\n"+
			"- Platforms checked: 0\n"+
			"- Consistent platforms: 0\n"+
			"- Inconsistent platforms: 0\n"+
			"- Error: %s",
		err.Error(),
	))
}
