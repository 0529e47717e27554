package trust

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/propguard/propguard/internal/model"
)

// ImageMetrics summarizes one image-validation report.
type ImageMetrics struct {
	ValidCount      int
	DuplicateCount  int
	SuspiciousCount int
	TotalCount      int
}

// AgentMetrics summarizes one agent-verification report.
type AgentMetrics struct {
	IsVerified        bool
	HasLicense        bool
	HasReviews        bool
	TotalChecksPassed int
}

// PlatformMetrics summarizes one cross-platform consistency report.
type PlatformMetrics struct {
	ConsistentCount   int
	InconsistentCount int
	TotalPlatforms    int
}

// Labels matched in line-labeled text reports. Matching is literal,
// case-sensitive substring; the first matching line per label wins.
const (
	labelValidImages      = "Valid images:"
	labelDuplicateImages  = "Duplicate images:"
	labelSuspiciousImages = "Suspicious images:"
	labelTotalImages      = "Total images processed:"

	labelConsistentPlatforms   = "Consistent platforms:"
	labelInconsistentPlatforms = "Inconsistent platforms:"
	labelPlatformsChecked      = "Platforms checked:"
)

// ExtractImageMetrics converts a raw image signal into ImageMetrics.
// Unknown or malformed fields default to zero; the all-zero record is
// returned for nil or unusable input. Never returns an error.
func ExtractImageMetrics(sig *model.Signal) ImageMetrics {
	var m ImageMetrics
	if sig == nil {
		return m
	}

	switch {
	case sig.Text != "":
		seen := map[string]bool{}
		for _, line := range strings.Split(sig.Text, "\n") {
			parseLabeledInt(line, labelValidImages, seen, &m.ValidCount)
			parseLabeledInt(line, labelDuplicateImages, seen, &m.DuplicateCount)
			parseLabeledInt(line, labelSuspiciousImages, seen, &m.SuspiciousCount)
			parseLabeledInt(line, labelTotalImages, seen, &m.TotalCount)
		}
	case sig.Data != nil:
		data := sig.Data
		if nested, ok := data["image_validation_data"].(map[string]any); ok {
			data = nested
		}
		m.ValidCount = asInt(data["valid_count"])
		m.DuplicateCount = asInt(data["duplicate_count"])
		m.SuspiciousCount = asInt(data["suspicious_count"])
		m.TotalCount = asInt(data["total_count"])
	}

	if m.TotalCount == 0 {
		m.TotalCount = m.ValidCount + m.DuplicateCount + m.SuspiciousCount
	}
	return m
}

// ExtractAgentMetrics converts a raw agent signal into AgentMetrics.
// Flags are derived by case-insensitive substring search over the
// verification narrative and the additional-checks payload.
func ExtractAgentMetrics(sig *model.Signal) AgentMetrics {
	var m AgentMetrics
	if sig == nil {
		return m
	}

	var narrative, checks string
	switch {
	case sig.Data != nil:
		section, ok := sig.Data["agent_verification"].(map[string]any)
		if !ok {
			return m
		}
		narrative = asString(section["lister_verification"])
		checks = asString(section["additional_checks"])
	case sig.Text != "":
		// Text reports carry narrative and checks in one block.
		narrative = sig.Text
		checks = sig.Text
	}

	lowerNarrative := strings.ToLower(narrative)
	lowerChecks := strings.ToLower(checks)

	m.IsVerified = strings.Contains(lowerNarrative, "verified") &&
		!strings.Contains(lowerNarrative, "unavailable")
	m.HasLicense = strings.Contains(lowerNarrative, "license") ||
		strings.Contains(lowerNarrative, "licensed")
	m.HasReviews = strings.Contains(lowerChecks, "review")

	for _, passed := range []bool{
		m.IsVerified,
		m.HasLicense,
		m.HasReviews,
		strings.Contains(lowerChecks, "experience"),
		strings.Contains(lowerChecks, "specialization"),
	} {
		if passed {
			m.TotalChecksPassed++
		}
	}
	return m
}

// ExtractPlatformMetrics converts a raw cross-platform signal into
// PlatformMetrics.
func ExtractPlatformMetrics(sig *model.Signal) PlatformMetrics {
	var m PlatformMetrics
	if sig == nil {
		return m
	}

	switch {
	case sig.Text != "":
		seen := map[string]bool{}
		for _, line := range strings.Split(sig.Text, "\n") {
			parseLabeledInt(line, labelConsistentPlatforms, seen, &m.ConsistentCount)
			parseLabeledInt(line, labelInconsistentPlatforms, seen, &m.InconsistentCount)
			parseLabeledInt(line, labelPlatformsChecked, seen, &m.TotalPlatforms)
		}
	case sig.Data != nil:
		data := sig.Data
		if nested, ok := data["cross_platform"].(map[string]any); ok {
			data = nested
		}
		m.ConsistentCount = asInt(data["consistent_count"])
		m.InconsistentCount = asInt(data["inconsistent_count"])
		m.TotalPlatforms = asInt(data["total_platforms"])
	}

	if m.TotalPlatforms == 0 {
		m.TotalPlatforms = m.ConsistentCount + m.InconsistentCount
	}
	return m
}

// parseLabeledInt assigns the integer following label in line to dst the
// first time the label is seen. Malformed values are ignored.
func parseLabeledInt(line, label string, seen map[string]bool, dst *int) {
	if seen[label] {
		return
	}
	idx := strings.Index(line, label)
	if idx < 0 {
		return
	}
	seen[label] = true
	raw := strings.TrimSpace(line[idx+len(label):])
	// Tolerate trailing commentary after the number.
	if sp := strings.IndexByte(raw, ' '); sp > 0 {
		raw = raw[:sp]
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return
	}
	*dst = n
}

// asInt coerces JSON-decoded numeric shapes to int, defaulting to 0.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0
		}
		return n
	case int64:
		if n < 0 {
			return 0
		}
		return int(n)
	case float64:
		if n < 0 {
			return 0
		}
		return int(n)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil || parsed < 0 {
			return 0
		}
		return parsed
	}
	return 0
}

// asString coerces a value to its string form; maps and slices are
// flattened so substring checks see their contents.
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
