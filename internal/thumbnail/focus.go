package thumbnail

import (
	"sort"
	"strings"
)

// distinctSeriesNames returns the distinct series names in ascending
// lexicographic order.
func distinctSeriesNames(rows []Row) []string {
	seen := make(map[string]struct{}, len(rows))
	names := make([]string, 0, 4)
	for _, row := range rows {
		if _, ok := seen[row.SeriesName]; ok {
			continue
		}
		seen[row.SeriesName] = struct{}{}
		names = append(names, row.SeriesName)
	}
	sort.Strings(names)
	return names
}

// SelectFocus picks the series the thumbnail summarises: the hinted
// name when present in the data, otherwise the lexicographically first
// one. The boolean is false when there are no rows to choose from.
func SelectFocus(rows []Row, hinted string) (string, []Row, bool) {
	names := distinctSeriesNames(rows)
	if len(names) == 0 {
		return "", nil, false
	}

	focus := names[0]
	for _, name := range names {
		if hinted != "" && name == hinted {
			focus = name
			break
		}
	}

	series := make([]Row, 0, len(rows))
	for _, row := range rows {
		if row.SeriesName == focus {
			series = append(series, row)
		}
	}
	return focus, series, true
}

// unitSummary reports the raw unit of the chronologically last row and
// whether the series mixes units. Comparison ignores case and
// surrounding whitespace; absent and empty units collapse together.
func unitSummary(rows []Row) (string, bool) {
	if len(rows) == 0 {
		return "", false
	}
	distinct := make(map[string]struct{}, 2)
	for _, row := range rows {
		distinct[normalizeUnit(row.Unit)] = struct{}{}
	}
	return rows[len(rows)-1].Unit, len(distinct) > 1
}

func normalizeUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}
