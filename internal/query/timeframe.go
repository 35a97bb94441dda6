package query

import (
	"fmt"
	"strings"

	"keepa-tools/internal/model"
)

// Timeframe selects a statistics window.
type Timeframe string

const (
	TimeframeCurrent Timeframe = "current"
	Timeframe30      Timeframe = "30day"
	Timeframe90      Timeframe = "90day"
	Timeframe180     Timeframe = "180day"
	Timeframe365     Timeframe = "365day"
)

type timeframeInfo struct {
	days   int
	prefix string
}

var timeframes = map[Timeframe]timeframeInfo{
	TimeframeCurrent: {1, "current"},
	Timeframe30:      {30, "avg30"},
	Timeframe90:      {90, "avg90"},
	Timeframe180:     {180, "avg180"},
	Timeframe365:     {365, "avg365"},
}

func (t Timeframe) info() (timeframeInfo, error) {
	info, ok := timeframes[Timeframe(strings.ToLower(string(t)))]
	if !ok {
		return timeframeInfo{}, &model.ValidationError{Field: "timeframe", Reason: fmt.Sprintf("unknown timeframe %q", string(t))}
	}
	return info, nil
}

// Days returns the window length; current maps to one day.
func (t Timeframe) Days() (int, error) {
	info, err := t.info()
	return info.days, err
}

// StatsWindow returns the value of the provider's stats parameter.
func (t Timeframe) StatsWindow() (string, error) {
	info, err := t.info()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", info.days), nil
}

// FieldPrefix returns the product finder field prefix (current, avg30, ...).
func (t Timeframe) FieldPrefix() (string, error) {
	info, err := t.info()
	return info.prefix, err
}

// SellerCountField returns the product finder field for new-offer counts in this window.
func (t Timeframe) SellerCountField() (string, error) {
	return FinderField(t, model.SeriesCountNew)
}

// FinderField names a product finder filter such as avg90_NEW or current_SALES.
func FinderField(t Timeframe, s model.SeriesType) (string, error) {
	prefix, err := t.FieldPrefix()
	if err != nil {
		return "", err
	}
	if !s.Valid() {
		return "", &model.ValidationError{Field: "series", Reason: s.String()}
	}
	return prefix + "_" + finderSeriesName(s), nil
}

func finderSeriesName(s model.SeriesType) string {
	switch s {
	case model.SeriesSalesRank:
		return "SALES"
	case model.SeriesListPrice:
		return "LISTPRICE"
	default:
		return strings.ToUpper(s.String())
	}
}
