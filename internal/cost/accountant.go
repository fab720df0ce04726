package cost

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/searchwise/termlens/internal/model"
)

// TierRate holds token pricing for one (provider, tier) pair, in USD per
// million tokens.
type TierRate struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
	Model  string  `yaml:"model"`
}

// Rates is the full price table: provider → tier → rate. The table is
// data, not logic; overrides load from pricing.yaml.
type Rates map[model.Provider]map[model.CostTier]TierRate

// Accountant estimates run cost from accumulated token totals.
type Accountant struct {
	rates Rates
}

// NewAccountant creates an Accountant with the given price table.
func NewAccountant(rates Rates) *Accountant {
	return &Accountant{rates: rates}
}

// Estimate converts token totals into an estimated USD cost for the active
// (provider, tier). An unknown pair logs a warning and yields 0 rather
// than failing the run.
func (a *Accountant) Estimate(provider model.Provider, tier model.CostTier, totals model.TokenUsage) float64 {
	tiers, ok := a.rates[provider]
	if !ok {
		zap.L().Warn("no pricing for provider, cost estimate unavailable",
			zap.String("provider", string(provider)))
		return 0
	}
	rate, ok := tiers[tier]
	if !ok {
		zap.L().Warn("no pricing for cost tier, cost estimate unavailable",
			zap.String("provider", string(provider)),
			zap.String("tier", string(tier)))
		return 0
	}

	inCost := (float64(totals.InputTokens) / 1e6) * rate.Input
	outCost := (float64(totals.OutputTokens) / 1e6) * rate.Output
	return inCost + outCost
}

// ModelFor returns the model ID configured for a (provider, tier) pair, or
// "" when the pair is unknown.
func (a *Accountant) ModelFor(provider model.Provider, tier model.CostTier) string {
	if tiers, ok := a.rates[provider]; ok {
		return tiers[tier].Model
	}
	return ""
}

// DefaultRates returns the built-in price table.
func DefaultRates() Rates {
	return Rates{
		model.ProviderOpenAI: {
			model.TierStandard: {Model: "gpt-4o", Input: 2.50, Output: 10.00},
			model.TierCheap:    {Model: "gpt-4o-mini", Input: 0.15, Output: 0.60},
		},
		model.ProviderAnthropic: {
			model.TierStandard: {Model: "claude-sonnet-4-5-20250929", Input: 3.00, Output: 15.00},
			model.TierCheap:    {Model: "claude-haiku-4-5-20251001", Input: 0.80, Output: 4.00},
		},
		model.ProviderGemini: {
			model.TierStandard: {Model: "gemini-1.5-pro", Input: 1.25, Output: 5.00},
			model.TierCheap:    {Model: "gemini-1.5-flash", Input: 0.075, Output: 0.30},
		},
	}
}

// ratesFile mirrors the pricing.yaml layout.
type ratesFile struct {
	Pricing map[string]map[string]TierRate `yaml:"pricing"`
}

// LoadRates reads a pricing override file and merges it over the defaults.
// Entries present in the file replace the matching (provider, tier) entry;
// everything else keeps its default.
func LoadRates(path string) (Rates, error) {
	rates := DefaultRates()
	if path == "" {
		return rates, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "cost: read pricing file")
	}

	var f ratesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "cost: parse pricing file")
	}

	for providerName, tiers := range f.Pricing {
		provider, ok := model.ParseProvider(providerName)
		if !ok {
			zap.L().Warn("pricing file references unknown provider, skipping",
				zap.String("provider", providerName))
			continue
		}
		for tierName, rate := range tiers {
			tier, ok := model.ParseCostTier(tierName)
			if !ok {
				zap.L().Warn("pricing file references unknown tier, skipping",
					zap.String("provider", providerName),
					zap.String("tier", tierName))
				continue
			}
			if rates[provider] == nil {
				rates[provider] = make(map[model.CostTier]TierRate)
			}
			merged := rates[provider][tier]
			if rate.Model != "" {
				merged.Model = rate.Model
			}
			if rate.Input > 0 {
				merged.Input = rate.Input
			}
			if rate.Output > 0 {
				merged.Output = rate.Output
			}
			rates[provider][tier] = merged
		}
	}

	return rates, nil
}
