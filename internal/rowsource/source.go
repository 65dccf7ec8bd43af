package rowsource

import (
	"context"

	"lab-trend-thumbnails/internal/thumbnail"
)

// Payload is one result set in the wire shape produced by the query
// layer: a plot title, the raw rows, and the caller's optional hint.
type Payload struct {
	PlotTitle string                `json:"plot_title"`
	Rows      []thumbnail.RawRow    `json:"rows"`
	Hint      *thumbnail.HintConfig `json:"hint,omitempty"`
}

// Source retrieves result sets for derivation.
type Source interface {
	Fetch(ctx context.Context) (Payload, error)
}

// StaticSource serves a fixed payload. 测试与演练场景用。
type StaticSource struct {
	Payload Payload
}

func NewStaticSource(payload Payload) *StaticSource {
	return &StaticSource{Payload: payload}
}

func (s *StaticSource) Fetch(ctx context.Context) (Payload, error) {
	return s.Payload, nil
}

var _ Source = (*StaticSource)(nil)
