package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"lab-trend-thumbnails/internal/thumbnail"
)

// Export renders the focus series of a result set as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	source, err := a.newSource(opts.RowsPath, opts.URL)
	if err != nil {
		return err
	}
	payload, err := source.Fetch(ctx)
	if err != nil {
		return err
	}

	rows := thumbnail.SortRowsByTime(thumbnail.SanitizeRows(payload.Rows))

	focusName := opts.Focus
	if focusName == "" && payload.Hint != nil {
		if name, ok := payload.Hint.FocusSeriesName.AsText(); ok {
			focusName = name
		}
	}

	focus, series, ok := thumbnail.SelectFocus(rows, focusName)
	if !ok {
		a.Logger.Info().Str("plot_title", payload.PlotTitle).Msg("no usable rows to export")
		return nil
	}

	downsampled := downsampleRows(series, opts.MaxPoints)
	a.Logger.Info().Str("series", focus).Int("total", len(series)).Int("exported", len(downsampled)).Msg("exporting rows")

	if opts.CSVPath != "" {
		if err := writeRowsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		title := payload.PlotTitle
		if title == "" {
			title = focus
		}
		if err := writeRowsPNG(opts.PNGPath, title, focus, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleRows(rows []thumbnail.Row, max int) []thumbnail.Row {
	if max <= 0 || len(rows) <= max {
		return rows
	}

	result := make([]thumbnail.Row, 0, max)
	step := 0.0
	if max > 1 {
		step = float64(len(rows)-1) / float64(max-1)
	}
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(rows) {
			idx = len(rows) - 1
		}
		result = append(result, rows[idx])
	}
	return result
}

func writeRowsCSV(path string, rows []thumbnail.Row) error {
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

	header := []string{"t", "value", "unit", "series", "reference_lower", "reference_upper"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		lower := ""
		if row.ReferenceLower != nil {
			lower = strconv.FormatFloat(*row.ReferenceLower, 'f', -1, 64)
		}
		upper := ""
		if row.ReferenceUpper != nil {
			upper = strconv.FormatFloat(*row.ReferenceUpper, 'f', -1, 64)
		}
		record := []string{
			time.UnixMilli(row.TimeMs).UTC().Format(time.RFC3339),
			strconv.FormatFloat(row.Value, 'f', -1, 64),
			row.Unit,
			row.SeriesName,
			lower,
			upper,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeRowsPNG(path, title, focus string, rows []thumbnail.Row) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(rows))
	values := make([]float64, len(rows))
	for i, row := range rows {
		x[i] = time.UnixMilli(row.TimeMs).UTC()
		values[i] = row.Value
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  title,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           yAxisName(focus, rows),
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    focus,
				XValues: x,
				YValues: values,
			},
		},
	}

	if lower, upper, ok := boundSeries(rows); ok {
		dashed := chart.Style{StrokeDashArray: []float64{5.0, 5.0}}
		graph.Series = append(graph.Series,
			chart.TimeSeries{Name: "Lower bound", XValues: x, YValues: lower, Style: dashed},
			chart.TimeSeries{Name: "Upper bound", XValues: x, YValues: upper, Style: dashed},
		)
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

// boundSeries builds reference band series when every row carries both
// bounds; a partial band would plot misleading jumps.
func boundSeries(rows []thumbnail.Row) ([]float64, []float64, bool) {
	if len(rows) == 0 {
		return nil, nil, false
	}
	lower := make([]float64, len(rows))
	upper := make([]float64, len(rows))
	for i, row := range rows {
		if row.ReferenceLower == nil || row.ReferenceUpper == nil {
			return nil, nil, false
		}
		lower[i] = *row.ReferenceLower
		upper[i] = *row.ReferenceUpper
	}
	return lower, upper, true
}

func yAxisName(focus string, rows []thumbnail.Row) string {
	if len(rows) > 0 {
		if unit := strings.TrimSpace(rows[len(rows)-1].Unit); unit != "" {
			return unit
		}
	}
	return focus
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
