package cli

import (
	"context"

	"github.com/spf13/cobra"

	"keepa-tools/internal/app"
	"keepa-tools/internal/query"
	"keepa-tools/internal/service"
)

// Selection flags shared by the analysis commands.
var (
	selectionCategory int64
	selectionSample   int
)

func addSelectionFlags(cmd *cobra.Command) {
	addDomainFlag(cmd)
	cmd.Flags().Int64Var(&selectionCategory, "category", 0, "Sample the category's top sellers instead of listing ASINs")
	cmd.Flags().IntVar(&selectionSample, "sample", 0, "Sample size when sampling a category")
}

func selection(args []string) (query.Selection, error) {
	d, err := domain()
	if err != nil {
		return query.Selection{}, err
	}
	return query.Selection{
		Domain:     d,
		ASINs:      splitIDs(args),
		Category:   selectionCategory,
		SampleSize: selectionSample,
	}, nil
}

var categoryAnalysisTimeframe string

var categoryAnalysisCmd = &cobra.Command{
	Use:   "category-analysis [ASIN...]",
	Short: "Summarize pricing, ranks and competition in a category",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := selection(args)
		if err != nil {
			return err
		}
		req := query.CategoryAnalysisRequest{Selection: sel, Timeframe: query.Timeframe(categoryAnalysisTimeframe)}
		return invoke(cmd, "category_analysis", func(ctx context.Context, tools *service.Service) (any, error) {
			return tools.AnalyzeCategory(ctx, req)
		})
	},
}

var velocityTrendDays int

var velocityCmd = &cobra.Command{
	Use:   "velocity [ASIN...]",
	Short: "Estimate sales velocity from rank history",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := selection(args)
		if err != nil {
			return err
		}
		req := query.VelocityRequest{Selection: sel, TrendDays: velocityTrendDays}
		return invoke(cmd, "sales_velocity", func(ctx context.Context, tools *service.Service) (any, error) {
			return tools.SalesVelocity(ctx, req)
		})
	},
}

var inventoryRiskThreshold int

var inventoryCmd = &cobra.Command{
	Use:   "inventory [ASIN...]",
	Short: "Assess stock levels and stockout risk",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := selection(args)
		if err != nil {
			return err
		}
		req := query.InventoryRequest{Selection: sel, RiskThreshold: inventoryRiskThreshold}
		return invoke(cmd, "inventory_analysis", func(ctx context.Context, tools *service.Service) (any, error) {
			return tools.InventoryAnalysis(ctx, req)
		})
	},
}

var (
	historySeries string
	historyDays   int
	historyTable  bool
)

func addHistoryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&historySeries, "series", "amazon", "History series (amazon, new, used, sales_rank, rating, ...)")
	cmd.Flags().IntVar(&historyDays, "days", 0, "Only keep the last N days")
}

func historyRequest(asin string) (query.HistoryRequest, error) {
	d, err := domain()
	if err != nil {
		return query.HistoryRequest{}, err
	}
	series, err := seriesFlag(historySeries)
	if err != nil {
		return query.HistoryRequest{}, err
	}
	return query.HistoryRequest{Domain: d, ASIN: asin, Series: series, Days: historyDays}, nil
}

var historyCmd = &cobra.Command{
	Use:   "history ASIN",
	Short: "Decode one product history series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := historyRequest(args[0])
		if err != nil {
			return err
		}
		if historyTable {
			return getApp().Show(cmd.Context(), app.ShowOptions{Request: req})
		}
		return invoke(cmd, "price_history", func(ctx context.Context, tools *service.Service) (any, error) {
			return tools.PriceHistory(ctx, req)
		})
	},
}

func init() {
	addSelectionFlags(categoryAnalysisCmd)
	categoryAnalysisCmd.Flags().StringVar(&categoryAnalysisTimeframe, "timeframe", string(query.Timeframe30), "Statistics window")

	addSelectionFlags(velocityCmd)
	velocityCmd.Flags().IntVar(&velocityTrendDays, "trend-days", 30, "Days of rank history to compare")

	addSelectionFlags(inventoryCmd)
	inventoryCmd.Flags().IntVar(&inventoryRiskThreshold, "risk-threshold", 0, "90-day out-of-stock percent at which a product is high risk (0 uses the default)")

	addDomainFlag(historyCmd)
	addHistoryFlags(historyCmd)
	historyCmd.Flags().BoolVar(&historyTable, "table", false, "Print a monthly table instead of JSON")
}
