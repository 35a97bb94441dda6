package cli

import (
	"context"

	"github.com/spf13/cobra"

	"keepa-tools/internal/query"
	"keepa-tools/internal/service"
)

var (
	bestSellersCategory int64
	bestSellersRange    string
)

var bestSellersCmd = &cobra.Command{
	Use:   "bestsellers",
	Short: "List a category's best sellers",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := domain()
		if err != nil {
			return err
		}
		req := query.BestSellersRequest{Domain: d, Category: bestSellersCategory, Range: query.Timeframe(bestSellersRange)}
		return invoke(cmd, "best_sellers", func(ctx context.Context, tools *service.Service) (any, error) {
			return tools.BestSellers(ctx, req)
		})
	},
}

var (
	finderCategory        int64
	finderPriceSeries     string
	finderMinPrice        float64
	finderMaxPrice        float64
	finderPriceTimeframe  string
	finderMinRank         int
	finderMaxRank         int
	finderMinRating       float64
	finderMinReviews      int
	finderMinSellers      int
	finderMaxSellers      int
	finderSellerTimeframe string
	finderMinSold         int
	finderMaxSold         int
	finderBrands          []string
	finderSortBy          string
	finderSortDesc        bool
	finderPage            int
	finderPerPage         int
)

var finderCmd = &cobra.Command{
	Use:   "finder",
	Short: "Search the product database",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := domain()
		if err != nil {
			return err
		}
		priceSeries, err := seriesFlag(finderPriceSeries)
		if err != nil {
			return err
		}
		req := query.FinderRequest{
			Domain:       d,
			RootCategory: finderCategory,
			PriceSeries:  priceSeries,
			Price: query.PriceRange{
				Min: optionalMoney(cmd, "min-price", finderMinPrice),
				Max: optionalMoney(cmd, "max-price", finderMaxPrice),
			},
			PriceTimeframe: query.Timeframe(finderPriceTimeframe),
			SalesRank: query.IntRange{
				Min: optionalInt(cmd, "min-rank", finderMinRank),
				Max: optionalInt(cmd, "max-rank", finderMaxRank),
			},
			MinRating:  finderMinRating,
			MinReviews: optionalInt(cmd, "min-reviews", finderMinReviews),
			SellerCount: query.IntRange{
				Min: optionalInt(cmd, "min-sellers", finderMinSellers),
				Max: optionalInt(cmd, "max-sellers", finderMaxSellers),
			},
			SellerTimeframe: query.Timeframe(finderSellerTimeframe),
			MonthlySold: query.IntRange{
				Min: optionalInt(cmd, "min-monthly-sold", finderMinSold),
				Max: optionalInt(cmd, "max-monthly-sold", finderMaxSold),
			},
			Brands:   finderBrands,
			SortBy:   finderSortBy,
			SortDesc: finderSortDesc,
			Page:     finderPage,
			PerPage:  finderPerPage,
		}
		return invoke(cmd, "product_finder", func(ctx context.Context, tools *service.Service) (any, error) {
			return tools.ProductFinder(ctx, req)
		})
	},
}

var categoryParents bool

var categoryCmd = &cobra.Command{
	Use:   "category CATEGORY_ID...",
	Short: "Look up category metadata",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := domain()
		if err != nil {
			return err
		}
		ids, err := parseCategoryIDs(splitIDs(args))
		if err != nil {
			return err
		}
		req := query.CategoryRequest{Domain: d, Categories: ids, Parents: categoryParents}
		return invoke(cmd, "category_lookup", func(ctx context.Context, tools *service.Service) (any, error) {
			return tools.CategoryLookup(ctx, req)
		})
	},
}

func init() {
	addDomainFlag(bestSellersCmd)
	bestSellersCmd.Flags().Int64Var(&bestSellersCategory, "category", 0, "Category id")
	bestSellersCmd.Flags().StringVar(&bestSellersRange, "range", "", "Average ranks over 30day, 90day or 180day")
	_ = bestSellersCmd.MarkFlagRequired("category")

	addDomainFlag(finderCmd)
	f := finderCmd.Flags()
	f.Int64Var(&finderCategory, "category", 0, "Root category id")
	f.StringVar(&finderPriceSeries, "price-series", "amazon", "Series the price filter applies to")
	f.Float64Var(&finderMinPrice, "min-price", 0, "Minimum price (major units)")
	f.Float64Var(&finderMaxPrice, "max-price", 0, "Maximum price (major units)")
	f.StringVar(&finderPriceTimeframe, "price-timeframe", string(query.TimeframeCurrent), "Window the price filter applies to")
	f.IntVar(&finderMinRank, "min-rank", 0, "Best sales rank")
	f.IntVar(&finderMaxRank, "max-rank", 0, "Worst sales rank")
	f.Float64Var(&finderMinRating, "min-rating", 0, "Minimum rating in stars (1-5)")
	f.IntVar(&finderMinReviews, "min-reviews", 0, "Minimum review count")
	f.IntVar(&finderMinSellers, "min-sellers", 0, "Minimum new offer count")
	f.IntVar(&finderMaxSellers, "max-sellers", 0, "Maximum new offer count")
	f.StringVar(&finderSellerTimeframe, "seller-timeframe", string(query.TimeframeCurrent), "Window the seller filter applies to")
	f.IntVar(&finderMinSold, "min-monthly-sold", 0, "Minimum units sold last month")
	f.IntVar(&finderMaxSold, "max-monthly-sold", 0, "Maximum units sold last month")
	f.StringSliceVar(&finderBrands, "brand", nil, "Restrict to brands")
	f.StringVar(&finderSortBy, "sort", "", "Sort field, e.g. current_SALES")
	f.BoolVar(&finderSortDesc, "desc", false, "Sort descending")
	f.IntVar(&finderPage, "page", 0, "Result page")
	f.IntVar(&finderPerPage, "per-page", 50, "Results per page (50-10000)")

	addDomainFlag(categoryCmd)
	categoryCmd.Flags().BoolVar(&categoryParents, "parents", false, "Include the parent tree")
}
