package cli

import (
	"context"

	"github.com/spf13/cobra"

	"keepa-tools/internal/query"
	"keepa-tools/internal/service"
)

var (
	productHistory bool
	productStats   string
	productOffers  int
	productStock   bool
	productRating  bool
	productBuyBox  bool
	productDays    int
	productUpdate  int
)

var productCmd = &cobra.Command{
	Use:   "product ASIN[,ASIN...]",
	Short: "Look up one or more products",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := domain()
		if err != nil {
			return err
		}
		req := query.ProductRequest{
			Domain:  d,
			ASINs:   splitIDs(args),
			History: productHistory,
			Stats:   query.Timeframe(productStats),
			Offers:  productOffers,
			Stock:   productStock,
			Rating:  productRating,
			BuyBox:  productBuyBox,
			Days:    productDays,
			Update:  optionalInt(cmd, "update", productUpdate),
		}
		if len(req.ASINs) == 1 {
			return invoke(cmd, "product", func(ctx context.Context, tools *service.Service) (any, error) {
				return tools.ProductLookup(ctx, req)
			})
		}
		return invoke(cmd, "batch_product", func(ctx context.Context, tools *service.Service) (any, error) {
			return tools.BatchProductLookup(ctx, req)
		})
	},
}

var sellerStorefront bool

var sellerCmd = &cobra.Command{
	Use:   "seller SELLER_ID[,SELLER_ID...]",
	Short: "Look up seller profiles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := domain()
		if err != nil {
			return err
		}
		req := query.SellerRequest{Domain: d, SellerIDs: splitIDs(args), Storefront: sellerStorefront}
		return invoke(cmd, "seller", func(ctx context.Context, tools *service.Service) (any, error) {
			return tools.SellerLookup(ctx, req)
		})
	},
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Show the provider token budget",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd, "token_status", func(ctx context.Context, tools *service.Service) (any, error) {
			return tools.TokenStatus(ctx)
		})
	},
}

func init() {
	addDomainFlag(productCmd)
	productCmd.Flags().BoolVar(&productHistory, "history", false, "Include raw price and rank history")
	productCmd.Flags().StringVar(&productStats, "stats", "", "Statistics window (current, 30day, 90day, 180day, 365day)")
	productCmd.Flags().IntVar(&productOffers, "offers", 0, "Number of offers to fetch (20-100)")
	productCmd.Flags().BoolVar(&productStock, "stock", false, "Include offer stock (requires --offers)")
	productCmd.Flags().BoolVar(&productRating, "rating", false, "Include rating and review count history")
	productCmd.Flags().BoolVar(&productBuyBox, "buybox", false, "Include buy box data")
	productCmd.Flags().IntVar(&productDays, "days", 0, "Limit history to the last N days")
	productCmd.Flags().IntVar(&productUpdate, "update", 0, "Refresh data older than N hours (-1 never)")

	addDomainFlag(sellerCmd)
	sellerCmd.Flags().BoolVar(&sellerStorefront, "storefront", false, "Include the seller's storefront ASINs")
}
