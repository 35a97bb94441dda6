package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints a product history as a monthly table.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	if err := a.Config.RequireAPIKey(); err != nil {
		return err
	}

	history, err := a.Tools.PriceHistory(ctx, opts.Request)
	if err != nil {
		return err
	}
	if len(history.Months) == 0 {
		fmt.Fprintln(a.Out, "no samples found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Month\t%s\tSamples\n", strings.ToUpper(history.Series.String()))

	for _, b := range history.Months {
		figure := formatValue(history.Series, b.Avg)
		if !b.Single() {
			figure = fmt.Sprintf("%s - %s (avg %s)",
				formatValue(history.Series, b.Min),
				formatValue(history.Series, b.Max),
				formatValue(history.Series, b.Avg))
		}
		fmt.Fprintf(writer, "%s\t%s\t%d\n", b.Month.Format("2006-01"), figure, b.Count)
	}

	if tr := history.Trend; tr != nil {
		fmt.Fprintf(writer, "Trend\t%s %.2f%%\t%s\n", tr.Direction, tr.ChangePercent, tr.From.Time.UTC().Format(time.DateOnly))
	}

	return writer.Flush()
}
