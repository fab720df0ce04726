package model

import "strings"

// Provider identifies an LLM backend. Dispatch is by this enum, selected
// once at configuration time, never by matching model-name substrings.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// ParseProvider normalizes a configured provider name. "google" is accepted
// as an alias for gemini.
func ParseProvider(s string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai":
		return ProviderOpenAI, true
	case "anthropic":
		return ProviderAnthropic, true
	case "gemini", "google":
		return ProviderGemini, true
	}
	return "", false
}

// CostTier selects between a provider's standard and lower-cost model.
type CostTier string

const (
	TierStandard CostTier = "standard"
	TierCheap    CostTier = "cheap"
)

// ParseCostTier normalizes a configured cost tier.
func ParseCostTier(s string) (CostTier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return TierStandard, true
	case "cheap":
		return TierCheap, true
	}
	return "", false
}

// Term is a search-query string. It has no identity beyond its text.
type Term string

// ReportRow is one search-term record from the reporting source. Metric
// fields are raw; malformed values are coerced to 0 during mapping.
type ReportRow struct {
	Campaign        string
	AdGroup         string
	SearchTerm      string
	Impressions     int64
	Clicks          int64
	CostMicros      int64
	Conversions     float64
	ConversionValue float64
}

// DerivedMetrics holds the per-row ratios computed from a ReportRow.
// Every zero-denominator case yields 0, never NaN or Inf.
type DerivedMetrics struct {
	Cost     float64 // cost_micros / 1e6
	CPC      float64 // cost / clicks
	CTR      float64 // clicks / impressions
	ConvRate float64 // conversions / clicks
	CPA      float64 // cost / conversions
	ROAS     float64 // conversion value / cost
	AOV      float64 // conversion value / conversions
}

// Category is a search-intent label assigned by the classifier.
type Category string

// CategoryError marks a term whose classification exhausted all retries.
// It is never part of an active category set.
const CategoryError Category = "ERROR"

// DefaultCategories is the six-value intent set used unless overridden.
var DefaultCategories = []Category{
	"INFORMATIONAL",
	"COMMERCIAL",
	"LOCAL",
	"GEOGRAPHICAL",
	"QUESTION",
	"OTHER",
}

// CategorySet is the active classification enum for a run.
type CategorySet struct {
	categories []Category
	index      map[Category]struct{}
}

// NewCategorySet builds a set from an ordered category list. Empty input
// falls back to DefaultCategories.
func NewCategorySet(categories []Category) CategorySet {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	idx := make(map[Category]struct{}, len(categories))
	for _, c := range categories {
		idx[c] = struct{}{}
	}
	return CategorySet{categories: categories, index: idx}
}

// Contains reports whether c is a member of the active set.
func (s CategorySet) Contains(c Category) bool {
	_, ok := s.index[c]
	return ok
}

// List returns the categories in their declared order.
func (s CategorySet) List() []Category {
	return s.categories
}

// ClassificationResult is the per-term outcome written to the sink.
// A term that exhausted retries carries CategoryError, confidence 0 and a
// non-empty Err; a successful term has an empty Err even if earlier
// attempts failed.
type ClassificationResult struct {
	Term       Term
	Category   Category
	Confidence float64
	Duration   float64 // seconds, of the attempt that settled the result
	Err        string
	Usage      TokenUsage
}

// TokenUsage counts tokens consumed by provider calls.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// Add folds another usage into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}
