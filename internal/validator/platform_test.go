package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propguard/propguard/internal/model"
	"github.com/propguard/propguard/internal/trust"
)

type fakeSearch struct {
	result string
	err    error
	system string
	query  string
}

func (f *fakeSearch) Search(_ context.Context, system, query string) (string, error) {
	f.system = system
	f.query = query
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

func sampleListing() model.Listing {
	return model.Listing{
		ListerName:   "Jane Realtor",
		PropertyName: "Sunset Villa",
		PropertyType: "House",
		Location:     "Quezon City",
		Price:        12500000,
		Bedrooms:     4,
		Bathrooms:    3,
		FloorArea:    220,
	}
}

func TestPlatformValidator_ValidateListing(t *testing.T) {
	search := &fakeSearch{
		result: "zillow: consistent, same price and details\n" +
			"trulia: inconsistent, price differs by 15%\n" +
			"redfin: not found\n" +
			"lamudi: consistent with the submitted listing\n",
	}

	v := NewPlatformValidator(search, nil)
	sig := v.ValidateListing(context.Background(), sampleListing())

	require.NotNil(t, sig)
	assert.Contains(t, search.query, "Sunset Villa")
	assert.Contains(t, search.query, "Quezon City")
	assert.NotEmpty(t, search.system)

	assert.Contains(t, sig.Text, "- Platforms checked: 3")
	assert.Contains(t, sig.Text, "- Consistent platforms: 2")
	assert.Contains(t, sig.Text, "- Inconsistent platforms: 1")
	assert.Contains(t, sig.Text, "Search summary:")

	m := trust.ExtractPlatformMetrics(sig)
	assert.Equal(t, trust.PlatformMetrics{
		ConsistentCount:   2,
		InconsistentCount: 1,
		TotalPlatforms:    3,
	}, m)
}

func TestPlatformValidator_SearchFailureDegrades(t *testing.T) {
	search := &fakeSearch{err: errors.New("upstream timeout")}

	v := NewPlatformValidator(search, nil)
	sig := v.ValidateListing(context.Background(), sampleListing())

	require.NotNil(t, sig)
	assert.Contains(t, sig.Text, "- Platforms checked: 0")
	assert.Contains(t, sig.Text, "- Error: upstream timeout")

	m := trust.ExtractPlatformMetrics(sig)
	assert.Zero(t, m.TotalPlatforms)
	cs := trust.ScorePlatform(m)
	assert.Equal(t, "No cross-platform data available", cs.Assessment)
}

func TestTallyPlatforms(t *testing.T) {
	tests := []struct {
		name         string
		results      string
		consistent   int
		inconsistent int
	}{
		{
			name:    "empty results",
			results: "",
		},
		{
			name:       "case-insensitive verdicts",
			results:    "Zillow: CONSISTENT\nRedfin: Consistent",
			consistent: 2,
		},
		{
			name:         "inconsistent takes precedence within a line",
			results:      "trulia: inconsistent (was listed as consistent before)",
			inconsistent: 1,
		},
		{
			name:    "not found counts as neither",
			results: "zillow: not found\nlamudi: not found",
		},
		{
			name:       "unknown platforms ignored",
			results:    "craigslist: consistent\nzillow: consistent",
			consistent: 1,
		},
		{
			name:       "verdict only read from the platform's own line",
			results:    "zillow: consistent\nsome chatter mentioning inconsistent data\nredfin: consistent",
			consistent: 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			consistent, inconsistent := tallyPlatforms(tc.results)
			assert.Equal(t, tc.consistent, consistent)
			assert.Equal(t, tc.inconsistent, inconsistent)
		})
	}
}
