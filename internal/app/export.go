package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"keepa-tools/internal/model"
	"keepa-tools/internal/stats"
)

// Export renders a decoded product history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if err := a.Config.RequireAPIKey(); err != nil {
		return err
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	history, err := a.Tools.PriceHistory(ctx, opts.Request)
	if err != nil {
		return err
	}
	if len(history.Samples) == 0 {
		a.Logger.Info().Str("asin", history.ASIN).Msg("no samples found for export window")
		return nil
	}

	downsampled := downsampleSamples(history.Samples, opts.MaxPoints)
	a.Logger.Info().Int("total", len(history.Samples)).Int("exported", len(downsampled)).Msg("exporting samples")

	if opts.CSVPath != "" {
		if err := writeSamplesCSV(opts.CSVPath, history, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSamplesPNG(opts.PNGPath, history, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleSamples(samples []model.TimeSample, max int) []model.TimeSample {
	if max <= 0 || len(samples) <= max {
		return samples
	}
	if max == 1 {
		return samples[len(samples)-1:]
	}

	result := make([]model.TimeSample, 0, max)
	step := float64(len(samples)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(samples) {
			idx = len(samples) - 1
		}
		result = append(result, samples[idx])
	}
	return result
}

// formatValue renders prices in major units and everything else as is.
func formatValue(t model.SeriesType, v float64) string {
	if t.Kind() == model.KindPrice {
		return stats.Major(int(v)).StringFixed(2)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeSamplesCSV(path string, history model.PriceHistory, samples []model.TimeSample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"time", "asin", "series", "value"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, sample := range samples {
		record := []string{
			sample.Time.UTC().Format(time.RFC3339),
			history.ASIN,
			history.Series.String(),
			formatValue(history.Series, sample.Value),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeSamplesPNG(path string, history model.PriceHistory, samples []model.TimeSample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(samples))
	y := make([]float64, len(samples))
	price := history.Series.Kind() == model.KindPrice
	for i, sample := range samples {
		x[i] = sample.Time
		y[i] = sample.Value
		if price {
			y[i] = stats.Major(int(sample.Value)).InexactFloat64()
		}
	}
	// go-chart needs at least two points to draw a line.
	if len(x) == 1 {
		x = append(x, x[0].Add(time.Minute))
		y = append(y, y[0])
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  history.ASIN + " " + history.Series.String(),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           history.Series.String(),
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    history.Series.String(),
				XValues: x,
				YValues: y,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
