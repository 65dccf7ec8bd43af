package thumbnail

// NormalizeRows prepares raw rows for direct consumption by the
// renderer: timestamps are rewritten to epoch milliseconds and both
// historical out-of-range flag names are populated whenever a flag was
// supplied under either name or can be computed from the reference
// bounds. Rows are copied, unknown fields pass through untouched, and
// an unparseable timestamp is left exactly as it arrived.
func NormalizeRows(rows []map[string]any) []map[string]any {
	normalized := make([]map[string]any, len(rows))
	for i, row := range rows {
		normalized[i] = normalizeRow(row)
	}
	return normalized
}

func normalizeRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row)+2)
	for key, value := range row {
		out[key] = value
	}

	if raw, ok := row["t"]; ok {
		if ms, parsed := epochMillis(scalarFromValue(raw)); parsed {
			out["t"] = ms
		}
	}

	flag, ok := suppliedFlag(row)
	if !ok {
		flag, ok = computedFlag(row)
	}
	if ok {
		out["is_out_of_range"] = flag
		out["is_value_out_of_range"] = flag
	}

	return out
}

func suppliedFlag(row map[string]any) (bool, bool) {
	for _, key := range []string{"is_out_of_range", "is_value_out_of_range"} {
		if raw, present := row[key]; present {
			if flag, isBool := raw.(bool); isBool {
				return flag, true
			}
		}
	}
	return false, false
}

func computedFlag(row map[string]any) (bool, bool) {
	value, ok := finiteValue(scalarFromValue(row["y"]))
	if !ok {
		return false, false
	}

	lower, hasLower := numericBound(scalarFromValue(row["reference_lower"]))
	upper, hasUpper := numericBound(scalarFromValue(row["reference_upper"]))
	if !hasLower && !hasUpper {
		return false, false
	}

	outOfRange := (hasUpper && value > upper) || (hasLower && value < lower)
	return outOfRange, true
}
