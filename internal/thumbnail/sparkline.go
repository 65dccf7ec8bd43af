package thumbnail

// sparklineMaxPoints bounds the series length handed to the renderer.
const sparklineMaxPoints = 30

// Sparkline holds the downsampled focus-series values.
type Sparkline struct {
	Series []float64 `json:"series"`
}

// downsampleSeries bounds values to sparklineMaxPoints entries. The
// first and last values always survive; interior slots stride evenly
// across the interior of the input. Empty input degenerates to a single
// zero so the series is never empty.
func downsampleSeries(values []float64) []float64 {
	if len(values) == 0 {
		return []float64{0}
	}
	if len(values) <= sparklineMaxPoints {
		return append([]float64(nil), values...)
	}

	interior := values[1 : len(values)-1]
	slots := sparklineMaxPoints - 2
	stride := float64(len(interior)) / float64(slots)

	series := make([]float64, 0, sparklineMaxPoints)
	series = append(series, values[0])
	for i := 0; i < slots; i++ {
		series = append(series, interior[int(float64(i)*stride)])
	}
	return append(series, values[len(values)-1])
}
