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

	"buyback-quotes/internal/storage"
)

// Export renders the lookup log as CSV rows and/or a PNG traffic chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)
	if opts.Interval <= 0 {
		opts.Interval = a.Config.Export.BucketInterval
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * opts.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	events, err := store.ListLookupsBetween(ctx, from, to, opts.MaxPoints)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		a.Logger.Info().Msg("no lookups found for export window")
		return nil
	}

	a.Logger.Info().Int("lookups", len(events)).Msg("exporting lookup log")

	if opts.CSVPath != "" {
		if err := writeLookupsCSV(opts.CSVPath, events); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		buckets := downsampleBuckets(storage.Aggregate(events, opts.Interval), opts.MaxPoints)
		if err := writeBucketsPNG(opts.PNGPath, buckets); err != nil {
			return err
		}
	}

	return nil
}

func downsampleBuckets(buckets []storage.LookupBucket, max int) []storage.LookupBucket {
	if max <= 1 || len(buckets) <= max {
		return buckets
	}

	result := make([]storage.LookupBucket, 0, max)
	step := float64(len(buckets)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(buckets) {
			idx = len(buckets) - 1
		}
		result = append(result, buckets[idx])
	}
	return result
}

func writeLookupsCSV(path string, events []storage.LookupEvent) error {
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

	header := []string{"created_at", "isbn", "client_key", "http_status", "status", "cache_hit", "recommendation", "aladin_buyable", "yes24_buyable", "duration_ms"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, ev := range events {
		record := []string{
			ev.CreatedAt.UTC().Format(time.RFC3339),
			ev.ISBN,
			ev.ClientKey,
			strconv.Itoa(ev.HTTPStatus),
			ev.Status,
			strconv.FormatBool(ev.CacheHit),
			ev.Recommendation,
			strconv.FormatBool(ev.AladinBuyable),
			strconv.FormatBool(ev.Yes24Buyable),
			strconv.FormatInt(ev.DurationMS, 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeBucketsPNG(path string, buckets []storage.LookupBucket) error {
	if len(buckets) < 2 {
		return errors.New("need at least two buckets to draw a chart; widen the window or shorten --interval")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(buckets))
	total := make([]float64, len(buckets))
	hits := make([]float64, len(buckets))
	limited := make([]float64, len(buckets))
	buyable := make([]float64, len(buckets))

	for i, b := range buckets {
		x[i] = b.Bucket
		total[i] = float64(b.Total)
		hits[i] = float64(b.CacheHits)
		limited[i] = float64(b.RateLimited)
		buyable[i] = float64(b.Buyable)
	}

	countFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Lookups",
			ValueFormatter: countFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{Name: "Total", XValues: x, YValues: total},
			chart.TimeSeries{Name: "Cache hits", XValues: x, YValues: hits},
			chart.TimeSeries{Name: "Rate limited", XValues: x, YValues: limited},
			chart.TimeSeries{Name: "Buyable", XValues: x, YValues: buyable},
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
