package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/searchwise/termlens/internal/classify"
	"github.com/searchwise/termlens/internal/cost"
	"github.com/searchwise/termlens/internal/model"
	"github.com/searchwise/termlens/internal/resilience"
	"github.com/searchwise/termlens/internal/sink"
)

const (
	classificationsSheet = "Classifications"
	summarySheet         = "Summary"
)

var classificationColumns = []string{"Search Term", "Category", "Confidence", "Duration (s)", "Error"}

var classifyWorkbook string

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify workbook search terms by intent via the configured LLM provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if classifyWorkbook != "" {
			cfg.Workbook = classifyWorkbook
		}

		wb, err := sink.Open(cfg.Workbook)
		if err != nil {
			return eris.Wrap(err, "open workbook")
		}

		// The Settings sheet is the operator surface: it overrides file and
		// env configuration for this run.
		cfg.ApplyOverrides(wb.ReadSettings())

		if err := cfg.Validate(); err != nil {
			logFatal(wb, err.Error())
			return err
		}

		provider, _ := model.ParseProvider(cfg.Provider)
		tier, _ := model.ParseCostTier(cfg.CostTier)

		terms := wb.ReadTerms()
		if len(terms) == 0 {
			zap.L().Warn("no search terms found, exiting")
			logFatal(wb, "No search terms found")
			return nil
		}

		rates, err := cost.LoadRates(cfg.PricingFile)
		if err != nil {
			logFatal(wb, err.Error())
			return err
		}
		accountant := cost.NewAccountant(rates)

		modelID := cfg.ModelOverrideFor(provider)
		if modelID == "" {
			modelID = accountant.ModelFor(provider, tier)
		}

		completer := classify.NewCompleter(classify.CompleterConfig{
			Provider:  provider,
			APIKey:    cfg.KeyFor(provider),
			Model:     modelID,
			BaseURL:   baseURLFor(provider),
			MaxTokens: cfg.Classify.MaxTokens,
		})

		retryCfg := resilience.DefaultRetryConfig()
		if cfg.Classify.MaxAttempts > 0 {
			retryCfg.MaxAttempts = cfg.Classify.MaxAttempts
		}

		set := model.NewCategorySet(toCategories(cfg.Classify.Categories))
		driver := classify.NewDriver(completer, set,
			classify.WithRetryConfig(retryCfg),
			classify.WithQPS(cfg.Classify.QPS),
			classify.WithWorkers(cfg.Classify.Workers),
		)

		runID := uuid.NewString()
		zap.L().Info("classification run starting",
			zap.String("run_id", runID),
			zap.String("provider", string(provider)),
			zap.String("tier", string(tier)),
			zap.String("model", modelID),
			zap.Int("terms", len(terms)),
		)

		start := time.Now()
		results := driver.Run(ctx, terms)
		totals := classify.FoldUsage(results)
		estimated := accountant.Estimate(provider, tier, totals)

		writeClassifications(wb, results)
		writeSummary(wb, runID, provider, tier, modelID, results, totals, estimated, time.Since(start))

		if err := wb.Save(); err != nil {
			logFatal(wb, err.Error())
			return err
		}

		errored := countErrored(results)
		zap.L().Info("classification run complete",
			zap.String("run_id", runID),
			zap.Int("terms", len(terms)),
			zap.Int("errored", errored),
			zap.Int64("input_tokens", totals.InputTokens),
			zap.Int64("output_tokens", totals.OutputTokens),
			zap.Float64("estimated_cost_usd", estimated),
		)

		p := message.NewPrinter(language.English)
		p.Printf("Classified %d terms (%d errored) — %d input / %d output tokens, estimated cost $%.4f\n",
			len(terms), errored, totals.InputTokens, totals.OutputTokens, estimated)

		return nil
	},
}

// writeClassifications renders the per-term result rows. Sink failures are
// logged and the write is skipped; the run continues.
func writeClassifications(wb *sink.Workbook, results []model.ClassificationResult) {
	sheet, err := wb.EnsureSheet(classificationsSheet)
	if err != nil {
		zap.L().Error("skipping classifications write", zap.Error(err))
		return
	}

	rows := make([][]any, 0, len(results))
	for _, r := range results {
		rows = append(rows, []any{
			string(r.Term),
			string(r.Category),
			r.Confidence,
			r.Duration,
			r.Err,
		})
	}

	wb.WriteHeader(sheet, classificationColumns)
	wb.WriteRows(sheet, rows)
}

// writeSummary renders the run metadata and cost accounting tab.
func writeSummary(wb *sink.Workbook, runID string, provider model.Provider, tier model.CostTier, modelID string, results []model.ClassificationResult, totals model.TokenUsage, estimated float64, elapsed time.Duration) {
	sheet, err := wb.EnsureSheet(summarySheet)
	if err != nil {
		zap.L().Error("skipping summary write", zap.Error(err))
		return
	}

	wb.WriteHeader(sheet, []string{"Field", "Value"})
	wb.WriteRows(sheet, [][]any{
		{"Run ID", runID},
		{"Timestamp", time.Now().UTC().Format(time.RFC3339)},
		{"Provider", string(provider)},
		{"Cost Tier", string(tier)},
		{"Model", modelID},
		{"Terms", len(results)},
		{"Errored", countErrored(results)},
		{"Input Tokens", totals.InputTokens},
		{"Output Tokens", totals.OutputTokens},
		{"Estimated Cost (USD)", estimated},
		{"Elapsed (s)", elapsed.Seconds()},
	})
}

// logFatal writes a run-level failure to the Logs tab. This is the single
// outermost failure boundary: every fatal error leaves a visible record.
func logFatal(wb *sink.Workbook, msg string) {
	if err := wb.AppendLog(time.Now(), "ERROR", msg); err != nil {
		zap.L().Error("failed to append to logs tab", zap.Error(err))
		return
	}
	if err := wb.Save(); err != nil {
		zap.L().Error("failed to save workbook after logging", zap.Error(err))
	}
}

func baseURLFor(provider model.Provider) string {
	switch provider {
	case model.ProviderOpenAI:
		return cfg.OpenAI.BaseURL
	case model.ProviderAnthropic:
		return cfg.Anthropic.BaseURL
	case model.ProviderGemini:
		return cfg.Gemini.BaseURL
	}
	return ""
}

func toCategories(names []string) []model.Category {
	out := make([]model.Category, 0, len(names))
	for _, n := range names {
		out = append(out, model.Category(n))
	}
	return out
}

func countErrored(results []model.ClassificationResult) int {
	n := 0
	for _, r := range results {
		if r.Category == model.CategoryError {
			n++
		}
	}
	return n
}

func init() {
	classifyCmd.Flags().StringVar(&classifyWorkbook, "workbook", "", "path to the XLSX workbook (overrides config)")
	rootCmd.AddCommand(classifyCmd)
}
