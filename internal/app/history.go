package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"buyback-quotes/internal/storage"
)

// History prints the most recent lookup log rows.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	events, err := store.ListRecentLookups(ctx, opts.Limit)
	if err != nil {
		return err
	}
	return printHistory(a.Out, events)
}

func printHistory(out io.Writer, events []storage.LookupEvent) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(out, "no lookups found")
		return err
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tISBN\tClient\tHTTP\tStatus\tCache\tRecommendation\tAladin\tYes24\tDuration")

	for _, ev := range events {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%dms\n",
			ev.CreatedAt.UTC().Format(time.RFC3339),
			sanitizeInline(ev.ISBN),
			ev.ClientKey,
			ev.HTTPStatus,
			ev.Status,
			yesNo(ev.CacheHit),
			dash(ev.Recommendation),
			yesNo(ev.AladinBuyable),
			yesNo(ev.Yes24Buyable),
			ev.DurationMS,
		)
	}

	return writer.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func dash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

// sanitizeInline keeps raw user input on one table row.
func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}
