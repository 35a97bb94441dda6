package model

import "time"

// BestSellers is a category's best-seller list, best first.
type BestSellers struct {
	Domain     int       `json:"domain"`
	CategoryID int64     `json:"category_id"`
	ASINs      []string  `json:"asins"`
	Updated    time.Time `json:"updated"`
}

// FinderResult is one page of product finder matches.
type FinderResult struct {
	ASINs        []string `json:"asins"`
	TotalResults int      `json:"total_results"`
}

// Category is a marketplace browse node.
type Category struct {
	ID           int64   `json:"id"`
	Domain       int     `json:"domain"`
	Name         string  `json:"name"`
	Parent       int64   `json:"parent,omitempty"`
	Children     []int64 `json:"children,omitempty"`
	ProductCount int     `json:"product_count,omitempty"`
	HighestRank  int     `json:"highest_rank,omitempty"`
	LowestRank   int     `json:"lowest_rank,omitempty"`
	IsBrowseNode bool    `json:"is_browse_node"`
}

// IsRoot reports whether c has no parent.
func (c Category) IsRoot() bool {
	return c.Parent == 0
}
