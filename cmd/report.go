package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/searchwise/termlens/internal/ads"
	"github.com/searchwise/termlens/internal/metrics"
	"github.com/searchwise/termlens/internal/model"
	"github.com/searchwise/termlens/internal/sink"
)

const reportSheet = "Report"

var reportColumns = []string{
	"Campaign", "Ad Group", "Search Term",
	"Impressions", "Clicks", "Cost", "Conversions", "Conv. Value",
	"CPC", "CTR", "Conv. Rate", "CPA", "ROAS", "AOV",
}

var reportWorkbook string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Pull the search-term report and write derived metrics to the workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if reportWorkbook != "" {
			cfg.Workbook = reportWorkbook
		}

		wb, err := sink.Open(cfg.Workbook)
		if err != nil {
			return eris.Wrap(err, "open workbook")
		}

		cfg.ApplyOverrides(wb.ReadSettings())

		client := ads.NewClient(ads.Config{
			CustomerID:      cfg.Ads.CustomerID,
			DeveloperToken:  cfg.Ads.DeveloperToken,
			AccessToken:     cfg.Ads.AccessToken,
			LoginCustomerID: cfg.Ads.LoginCustomerID,
			BaseURL:         cfg.Ads.BaseURL,
		})

		query := ads.SearchTermQuery(cfg.Ads.LookbackDays)
		it := client.Search(ctx, query)

		// Report order is preserved row for row: the query's explicit sort
		// carries straight through to the sheet.
		var rows [][]any
		for it.Next() {
			row := it.Row()
			m := metrics.Derive(row)
			rows = append(rows, reportRow(row, m))
		}
		if err := it.Err(); err != nil {
			logFatal(wb, err.Error())
			return eris.Wrap(err, "fetch report")
		}

		sheet, err := wb.EnsureSheet(reportSheet)
		if err != nil {
			zap.L().Error("skipping report write", zap.Error(err))
			return nil
		}
		wb.WriteHeader(sheet, reportColumns)
		wb.WriteRows(sheet, rows)

		if err := wb.Save(); err != nil {
			logFatal(wb, err.Error())
			return err
		}

		zap.L().Info("report written",
			zap.Int("rows", len(rows)),
			zap.Int("lookback_days", cfg.Ads.LookbackDays),
		)
		return nil
	},
}

func reportRow(row model.ReportRow, m model.DerivedMetrics) []any {
	return []any{
		row.Campaign, row.AdGroup, row.SearchTerm,
		row.Impressions, row.Clicks, m.Cost, row.Conversions, row.ConversionValue,
		m.CPC, m.CTR, m.ConvRate, m.CPA, m.ROAS, m.AOV,
	}
}

func init() {
	reportCmd.Flags().StringVar(&reportWorkbook, "workbook", "", "path to the XLSX workbook (overrides config)")
	rootCmd.AddCommand(reportCmd)
}
