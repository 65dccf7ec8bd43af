package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recent thumbnails.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show thumbnails")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListRecentThumbnails(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no thumbnails found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Created (UTC)\tID\tTitle\tFocus\tStatus\tPoints\tSeries\tLatest")

	for _, rec := range records {
		focus := ""
		if rec.FocusSeries != nil {
			focus = *rec.FocusSeries
		}
		latest := ""
		if rec.LatestValue != nil {
			latest = formatDecimal(*rec.LatestValue, 2)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			rec.CreatedAt.UTC().Format(time.RFC3339),
			shortID(rec.ID),
			sanitizeInline(rec.PlotTitle),
			sanitizeInline(focus),
			rec.Status,
			rec.PointCount,
			rec.SeriesCount,
			latest,
		)
	}

	writer.Flush()

	if total, err := store.CountThumbnails(ctx); err == nil {
		fmt.Fprintf(os.Stdout, "%d shown, %d stored\n", len(records), total)
	}
	return nil
}

// shortID keeps table columns narrow; the full id stays available via the API.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
