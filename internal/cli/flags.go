package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"keepa-tools/internal/model"
	"keepa-tools/internal/query"
	"keepa-tools/internal/service"
)

// domainFlag is shared by every provider command.
var domainFlag string

func addDomainFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&domainFlag, "domain", "us", "Marketplace (us, gb, de, fr, jp, ca, cn, it, es, in, mx or 1-11)")
}

func domain() (query.Domain, error) {
	return query.ParseDomain(domainFlag)
}

// splitIDs accepts identifiers as arguments and comma separated lists.
func splitIDs(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, id := range strings.Split(arg, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

func parseCategoryIDs(ids []string) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		v, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid category id %q", id)
		}
		out = append(out, v)
	}
	return out, nil
}

func seriesFlag(name string) (model.SeriesType, error) {
	return model.ParseSeriesType(name)
}

// optionalInt returns nil for the flag's unset sentinel.
func optionalInt(cmd *cobra.Command, name string, v int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

// optionalMoney returns nil unless the flag was set. Values are major units.
func optionalMoney(cmd *cobra.Command, name string, v float64) *query.Money {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return query.Major(decimal.NewFromFloat(v))
}

type toolFunc func(ctx context.Context, tools *service.Service) (any, error)

func invoke(cmd *cobra.Command, tool string, fn toolFunc) error {
	return getApp().Invoke(cmd.Context(), tool, fn)
}
