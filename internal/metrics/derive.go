package metrics

import "github.com/searchwise/termlens/internal/model"

// microsPerUnit converts micro-currency to whole currency units.
const microsPerUnit = 1e6

// Derive computes the per-row advertising ratios from raw report metrics.
// Pure function: no side effects, no error conditions. Every ratio whose
// denominator is zero comes back 0 rather than NaN or Inf.
func Derive(row model.ReportRow) model.DerivedMetrics {
	cost := float64(row.CostMicros) / microsPerUnit

	m := model.DerivedMetrics{Cost: cost}

	if row.Clicks > 0 {
		m.CPC = cost / float64(row.Clicks)
		m.ConvRate = row.Conversions / float64(row.Clicks)
	}
	if row.Impressions > 0 {
		m.CTR = float64(row.Clicks) / float64(row.Impressions)
	}
	if row.Conversions > 0 {
		m.CPA = cost / row.Conversions
		m.AOV = row.ConversionValue / row.Conversions
	}
	if cost > 0 {
		m.ROAS = row.ConversionValue / cost
	}

	return m
}
