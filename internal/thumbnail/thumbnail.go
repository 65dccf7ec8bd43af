package thumbnail

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// HintConfig is the advisory input produced by the upstream reasoning
// step: a preliminary status call plus, optionally, which analyte to
// focus on. Neither field is trusted until vetted.
type HintConfig struct {
	Status          Scalar `json:"status"`
	FocusSeriesName Scalar `json:"focus_analyte_name"`
}

// effective resolves the hint to a usable status and focus name. A
// structurally invalid hint collapses to the default hint entirely:
// unknown status, no forced focus.
func (h HintConfig) effective() (Status, string) {
	status := StatusUnknown
	switch h.Status.Kind {
	case KindAbsent:
	case KindText:
		parsed, ok := ParseStatus(h.Status.Text)
		if !ok {
			return StatusUnknown, ""
		}
		status = parsed
	default:
		return StatusUnknown, ""
	}

	switch h.FocusSeriesName.Kind {
	case KindAbsent:
		return status, ""
	case KindText:
		return status, h.FocusSeriesName.Text
	default:
		return StatusUnknown, ""
	}
}

// Thumbnail is the self-contained summary handed to the chat renderer.
type Thumbnail struct {
	PlotTitle       string    `json:"plot_title"`
	FocusSeriesName string    `json:"focus_series_name,omitempty"`
	PointCount      int       `json:"point_count"`
	SeriesCount     int       `json:"series_count"`
	LatestValue     *float64  `json:"latest_value,omitempty"`
	UnitRaw         string    `json:"unit_raw,omitempty"`
	UnitDisplay     string    `json:"unit_display,omitempty"`
	Status          Status    `json:"status"`
	Trend           *Trend    `json:"trend,omitempty"`
	Sparkline       Sparkline `json:"sparkline"`
}

// Input bundles one derivation request.
type Input struct {
	PlotTitle string      `json:"plot_title"`
	Rows      []RawRow    `json:"rows"`
	Hint      *HintConfig `json:"hint,omitempty"`
}

// Result pairs a derived thumbnail with its correlation identifier. The
// identifier is random and carries no meaning of its own.
type Result struct {
	ID        string    `json:"id"`
	Thumbnail Thumbnail `json:"thumbnail"`
}

// ErrInvalidThumbnail reports that a derived thumbnail broke one of the
// output invariants. It signals a defect in a derivation stage, not bad
// caller input; callers log it and skip rendering.
var ErrInvalidThumbnail = errors.New("thumbnail: output validation failed")

// Derive runs the derivation pipeline over one result set.
//
// A nil hint means the upstream advisory step opted out: no thumbnail,
// no error. A nil result with a non-nil error means the output
// validator rejected the derived object. Derive performs no I/O and is
// safe to call from any number of goroutines.
func Derive(in Input) (*Result, error) {
	if in.Hint == nil {
		return nil, nil
	}

	hintStatus, hintFocus := in.Hint.effective()

	var thumb Thumbnail
	if len(in.Rows) == 0 {
		thumb = emptyThumbnail(in.PlotTitle)
	} else {
		thumb = deriveThumbnail(in.PlotTitle, in.Rows, hintStatus, hintFocus)
	}

	if err := thumb.validate(); err != nil {
		return nil, err
	}

	return &Result{ID: uuid.New().String(), Thumbnail: thumb}, nil
}

// emptyThumbnail is the defined output for a result set with no rows.
func emptyThumbnail(plotTitle string) Thumbnail {
	return Thumbnail{
		PlotTitle: plotTitle,
		Status:    StatusUnknown,
		Sparkline: Sparkline{Series: downsampleSeries(nil)},
	}
}

func deriveThumbnail(plotTitle string, raw []RawRow, hintStatus Status, hintFocus string) Thumbnail {
	rows := SortRowsByTime(SanitizeRows(raw))

	thumb := Thumbnail{
		PlotTitle:   plotTitle,
		SeriesCount: len(distinctSeriesNames(rows)),
	}

	focus, series, ok := SelectFocus(rows, hintFocus)
	if !ok {
		thumb.Status = classifyStatus(hintStatus, false, nil)
		thumb.Sparkline = Sparkline{Series: downsampleSeries(nil)}
		return thumb
	}

	unitRaw, mixed := unitSummary(series)
	latest := series[len(series)-1]

	thumb.FocusSeriesName = focus
	thumb.PointCount = len(series)
	thumb.LatestValue = &latest.Value
	thumb.UnitRaw = unitRaw
	thumb.UnitDisplay = strings.TrimSpace(unitRaw)
	thumb.Status = classifyStatus(hintStatus, mixed, &latest)
	thumb.Trend = summarizeTrend(series, mixed)
	thumb.Sparkline = Sparkline{Series: downsampleSeries(seriesValues(series))}
	return thumb
}

func seriesValues(rows []Row) []float64 {
	values := make([]float64, len(rows))
	for i, row := range rows {
		values[i] = row.Value
	}
	return values
}

// validate enforces the output contract before a thumbnail leaves the
// package. Every branch of Derive passes through here, including the
// empty and fallback paths.
func (t Thumbnail) validate() error {
	switch t.Status {
	case StatusNormal, StatusHigh, StatusLow, StatusUnknown:
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidThumbnail, t.Status)
	}

	if t.PointCount < 0 {
		return fmt.Errorf("%w: negative point count %d", ErrInvalidThumbnail, t.PointCount)
	}
	if t.SeriesCount < 0 {
		return fmt.Errorf("%w: negative series count %d", ErrInvalidThumbnail, t.SeriesCount)
	}
	if t.PointCount > 0 && t.FocusSeriesName == "" {
		return fmt.Errorf("%w: %d points without a focus series", ErrInvalidThumbnail, t.PointCount)
	}
	if t.LatestValue != nil && !isFinite(*t.LatestValue) {
		return fmt.Errorf("%w: latest value is not finite", ErrInvalidThumbnail)
	}

	length := len(t.Sparkline.Series)
	if length < 1 || length > sparklineMaxPoints {
		return fmt.Errorf("%w: sparkline length %d out of bounds", ErrInvalidThumbnail, length)
	}
	for _, v := range t.Sparkline.Series {
		if !isFinite(v) {
			return fmt.Errorf("%w: sparkline value is not finite", ErrInvalidThumbnail)
		}
	}

	if t.Trend != nil {
		switch t.Trend.Direction {
		case DirectionUp, DirectionDown, DirectionStable:
		default:
			return fmt.Errorf("%w: trend direction %q", ErrInvalidThumbnail, t.Trend.Direction)
		}
		if t.Trend.Period == "" {
			return fmt.Errorf("%w: trend period is empty", ErrInvalidThumbnail)
		}
	}

	return nil
}
