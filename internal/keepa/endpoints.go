package keepa

import (
	"context"
	"net/url"
	"strings"

	"keepa-tools/internal/batch"
	"keepa-tools/internal/model"
	"keepa-tools/internal/query"
	"keepa-tools/internal/series"
)

// Documented token costs of the flat-rate endpoints.
const (
	costDeals       = 5
	costBestSellers = 50
	costFinder      = 10
	costCategory    = 1
	costToken       = 1
)

// Products fetches products in provider-sized chunks and returns them in
// request order. Unknown ASINs are listed in NotFound.
func (c *Client) Products(ctx context.Context, req query.ProductRequest) (batch.Result[model.Product], error) {
	q, err := query.NormalizeProduct(req)
	if err != nil {
		return batch.Result[model.Product]{}, err
	}
	key := func(p model.Product) string { return p.ASIN }
	return batch.Run(ctx, c.batcher, q.IDs, key, func(ctx context.Context, ids []string) ([]model.Product, error) {
		params := clone(q.Params)
		params.Set("asin", strings.Join(ids, ","))

		var resp productResponse
		if err := c.get(ctx, "/product", params, query.ProductCost(params, len(ids)), &resp); err != nil {
			return nil, err
		}
		out := make([]model.Product, 0, len(resp.Products))
		for _, w := range resp.Products {
			if w.Title == "" && w.LastUpdate == 0 {
				continue
			}
			p, err := decodeProduct(w)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	})
}

// Sellers fetches seller profiles in provider-sized chunks.
func (c *Client) Sellers(ctx context.Context, req query.SellerRequest) (batch.Result[model.Seller], error) {
	q, err := query.NormalizeSeller(req)
	if err != nil {
		return batch.Result[model.Seller]{}, err
	}
	key := func(s model.Seller) string { return s.ID }
	return batch.Run(ctx, c.batcher, q.IDs, key, func(ctx context.Context, ids []string) ([]model.Seller, error) {
		params := clone(q.Params)
		params.Set("seller", strings.Join(ids, ","))

		var resp sellerResponse
		if err := c.get(ctx, "/seller", params, query.SellerCost(params, len(ids)), &resp); err != nil {
			return nil, err
		}
		out := make([]model.Seller, 0, len(resp.Sellers))
		for id, w := range resp.Sellers {
			out = append(out, decodeSeller(id, w))
		}
		return out, nil
	})
}

// Deals queries the deal feed.
func (c *Client) Deals(ctx context.Context, req query.DealRequest) ([]model.Deal, error) {
	params, err := query.NormalizeDeals(req)
	if err != nil {
		return nil, err
	}
	var resp dealResponse
	if err := c.get(ctx, "/deal", params, costDeals, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Deal, 0, len(resp.Deals.DR))
	for _, w := range resp.Deals.DR {
		d, err := decodeDeal(w, req.PriceSeries(), req.WindowIndex())
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// BestSellers returns a category's best-seller ASINs.
func (c *Client) BestSellers(ctx context.Context, req query.BestSellersRequest) (model.BestSellers, error) {
	params, err := query.NormalizeBestSellers(req)
	if err != nil {
		return model.BestSellers{}, err
	}
	var resp bestSellersResponse
	if err := c.get(ctx, "/bestsellers", params, costBestSellers, &resp); err != nil {
		return model.BestSellers{}, err
	}
	out := model.BestSellers{CategoryID: req.Category, ASINs: []string{}}
	out.Domain, _ = req.Domain.Code()
	if l := resp.BestSellersList; l != nil {
		if l.DomainID != 0 {
			out.Domain = l.DomainID
		}
		if l.ASINList != nil {
			out.ASINs = l.ASINList
		}
		out.Updated = series.FromKeepaMinutesOpt(l.Timestamp)
	}
	return out, nil
}

// Finder runs a product finder query.
func (c *Client) Finder(ctx context.Context, req query.FinderRequest) (model.FinderResult, error) {
	params, err := query.NormalizeFinder(req)
	if err != nil {
		return model.FinderResult{}, err
	}
	var resp finderResponse
	if err := c.get(ctx, "/query", params, costFinder, &resp); err != nil {
		return model.FinderResult{}, err
	}
	out := model.FinderResult{ASINs: resp.ASINList, TotalResults: resp.TotalResults}
	if out.ASINs == nil {
		out.ASINs = []string{}
	}
	return out, nil
}

// Categories looks up category metadata, ordered by id. With Parents set the
// ancestors are included.
func (c *Client) Categories(ctx context.Context, req query.CategoryRequest) ([]model.Category, error) {
	params, err := query.NormalizeCategory(req)
	if err != nil {
		return nil, err
	}
	var resp categoryResponse
	if err := c.get(ctx, "/category", params, costCategory, &resp); err != nil {
		return nil, err
	}
	domain, _ := req.Domain.Code()
	all := resp.Categories
	if len(resp.CategoryParents) > 0 {
		all = make(map[string]wireCategory, len(resp.Categories)+len(resp.CategoryParents))
		for k, v := range resp.CategoryParents {
			all[k] = v
		}
		for k, v := range resp.Categories {
			all[k] = v
		}
	}
	return decodeCategories(domain, all), nil
}

// TokenStatus asks the provider for the current budget.
func (c *Client) TokenStatus(ctx context.Context) (model.TokenBudget, error) {
	if err := c.get(ctx, "/token", nil, costToken, nil); err != nil {
		return model.TokenBudget{}, err
	}
	b := c.gov.Budget()
	if !b.Known() {
		return model.TokenBudget{}, &model.DecodeError{Field: "/token", Reason: "reply carried no token budget"}
	}
	return b, nil
}

func clone(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
