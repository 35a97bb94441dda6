package model

import "time"

// Offer is a marketplace offer on a product. Prices are minor units.
type Offer struct {
	OfferID     int       `json:"offer_id"`
	SellerID    string    `json:"seller_id"`
	Condition   int       `json:"condition"`
	Price       int       `json:"price"`
	Shipping    int       `json:"shipping"`
	IsAmazon    bool      `json:"is_amazon"`
	IsFBA       bool      `json:"is_fba"`
	IsPrime     bool      `json:"is_prime"`
	IsShippable bool      `json:"is_shippable"`
	Stock       *int      `json:"stock,omitempty"`
	LastSeen    time.Time `json:"last_seen"`
}

// Seller is a marketplace merchant. Rating uses the provider's 0-50 scale.
type Seller struct {
	ID          string   `json:"id"`
	Domain      int      `json:"domain"`
	Name        string   `json:"name"`
	Rating      int      `json:"rating"`
	RatingCount int      `json:"rating_count"`
	IsScammer   bool     `json:"is_scammer"`
	HasFBA      bool     `json:"has_fba"`
	HasFBM      bool     `json:"has_fbm"`
	Storefront  []string `json:"storefront,omitempty"`
}

// Stars converts the internal rating to a 0-5 scale.
func (s Seller) Stars() float64 {
	return RatingFromWire(s.Rating)
}

// Deal is a price drop reported by the provider's deal feed.
type Deal struct {
	ASIN             string    `json:"asin"`
	Title            string    `json:"title"`
	Image            string    `json:"image,omitempty"`
	RootCategory     int64     `json:"root_category,omitempty"`
	Price            int       `json:"price"`
	DiscountPercent  int       `json:"discount_percent"`
	DiscountAmount   int       `json:"discount_amount"`
	Baseline         int       `json:"baseline"`
	IsLightning      bool      `json:"is_lightning"`
	IsPrimeExclusive bool      `json:"is_prime_exclusive"`
	CouponPercent    *int      `json:"coupon_percent,omitempty"`
	Created          time.Time `json:"created"`
	LightningEnd     time.Time `json:"lightning_end,omitempty"`
}

// TokenBudget is the provider's quota accounting as last reported.
// Only the rate governor updates it.
type TokenBudget struct {
	TokensLeft int           `json:"tokens_left"`
	RefillRate int           `json:"refill_rate"`
	RefillIn   time.Duration `json:"refill_in"`
	Consumed   int           `json:"consumed"`
	ObservedAt time.Time     `json:"observed_at"`
}

// Known reports whether the provider has reported a budget yet.
func (b TokenBudget) Known() bool {
	return !b.ObservedAt.IsZero()
}
