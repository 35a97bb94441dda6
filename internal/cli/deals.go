package cli

import (
	"context"

	"github.com/spf13/cobra"

	"keepa-tools/internal/query"
	"keepa-tools/internal/service"
)

var (
	dealsPage           int
	dealsPriceType      string
	dealsMinPrice       float64
	dealsMaxPrice       float64
	dealsMinDiscount    int
	dealsMaxDiscount    int
	dealsMinRank        int
	dealsMaxRank        int
	dealsCategories     []int64
	dealsExclude        []int64
	dealsMinRating      float64
	dealsLightning      bool
	dealsPrimeExclusive bool
	dealsHasReviews     bool
	dealsWindow         string
	dealsSort           string
	dealsTitle          string
)

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "Search the deal feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := domain()
		if err != nil {
			return err
		}
		priceType, err := seriesFlag(dealsPriceType)
		if err != nil {
			return err
		}
		req := query.DealRequest{
			Domain:    d,
			Page:      dealsPage,
			PriceType: priceType,
			Price: query.PriceRange{
				Min: optionalMoney(cmd, "min-price", dealsMinPrice),
				Max: optionalMoney(cmd, "max-price", dealsMaxPrice),
			},
			DiscountPercent: query.IntRange{
				Min: optionalInt(cmd, "min-discount", dealsMinDiscount),
				Max: optionalInt(cmd, "max-discount", dealsMaxDiscount),
			},
			SalesRank: query.IntRange{
				Min: optionalInt(cmd, "min-rank", dealsMinRank),
				Max: optionalInt(cmd, "max-rank", dealsMaxRank),
			},
			Categories:        dealsCategories,
			ExcludeCategories: dealsExclude,
			MinRating:         dealsMinRating,
			Lightning:         dealsLightning,
			PrimeExclusive:    dealsPrimeExclusive,
			HasReviews:        dealsHasReviews,
			Window:            query.DealWindow(dealsWindow),
			Sort:              query.DealSort(dealsSort),
			Title:             dealsTitle,
		}
		return invoke(cmd, "search_deals", func(ctx context.Context, tools *service.Service) (any, error) {
			return tools.SearchDeals(ctx, req)
		})
	},
}

func init() {
	addDomainFlag(dealsCmd)
	f := dealsCmd.Flags()
	f.IntVar(&dealsPage, "page", 0, "Result page")
	f.StringVar(&dealsPriceType, "price-type", "amazon", "Price series the deal is measured on")
	f.Float64Var(&dealsMinPrice, "min-price", 0, "Minimum current price (major units)")
	f.Float64Var(&dealsMaxPrice, "max-price", 0, "Maximum current price (major units)")
	f.IntVar(&dealsMinDiscount, "min-discount", 0, "Minimum discount percent")
	f.IntVar(&dealsMaxDiscount, "max-discount", 0, "Maximum discount percent")
	f.IntVar(&dealsMinRank, "min-rank", 0, "Best sales rank")
	f.IntVar(&dealsMaxRank, "max-rank", 0, "Worst sales rank")
	f.Int64SliceVar(&dealsCategories, "category", nil, "Include only these root categories")
	f.Int64SliceVar(&dealsExclude, "exclude-category", nil, "Exclude these root categories")
	f.Float64Var(&dealsMinRating, "min-rating", 0, "Minimum rating in stars (1-5)")
	f.BoolVar(&dealsLightning, "lightning", false, "Only lightning deals")
	f.BoolVar(&dealsPrimeExclusive, "prime-exclusive", false, "Only Prime exclusive deals")
	f.BoolVar(&dealsHasReviews, "has-reviews", false, "Only products with reviews")
	f.StringVar(&dealsWindow, "window", string(query.DealsWeek), "Comparison window (day, week, month, 3months)")
	f.StringVar(&dealsSort, "sort", "", "Sort order")
	f.StringVar(&dealsTitle, "title", "", "Title search")
}
