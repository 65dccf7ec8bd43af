package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ResultSetRecord is one captured inbound result set. Rows and hint are
// stored verbatim so thumbnails can be re-derived after pipeline changes.
type ResultSetRecord struct {
	ID        int64
	PlotTitle string
	Rows      json.RawMessage
	Hint      json.RawMessage
	CreatedAt time.Time
}

// ThumbnailRecord captures one derivation outcome for auditing and lookup.
type ThumbnailRecord struct {
	ID          string
	ResultSetID *int64
	PlotTitle   string
	FocusSeries *string
	Status      string
	PointCount  int
	SeriesCount int
	LatestValue *decimal.Decimal
	Payload     json.RawMessage
	CreatedAt   time.Time
}
