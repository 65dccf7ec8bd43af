package thumbnail

import "testing"

func boundedRow(value float64, lower, upper *float64) *Row {
	return &Row{TimeMs: 1, Value: value, SeriesName: "a", ReferenceLower: lower, ReferenceUpper: upper}
}

func ptr(v float64) *float64 { return &v }

func TestClassifyStatusTiers(t *testing.T) {
	cases := []struct {
		name   string
		hint   Status
		mixed  bool
		latest *Row
		want   Status
	}{
		{"mixed overrides hint", StatusHigh, true, boundedRow(1, ptr(0), ptr(2)), StatusUnknown},
		{"confident hint wins over bounds", StatusLow, false, boundedRow(500, ptr(0), ptr(100)), StatusLow},
		{"above upper", StatusUnknown, false, boundedRow(120, ptr(30), ptr(100)), StatusHigh},
		{"below lower", StatusUnknown, false, boundedRow(10, ptr(30), ptr(100)), StatusLow},
		{"within bounds", StatusUnknown, false, boundedRow(50, ptr(30), ptr(100)), StatusNormal},
		{"at upper bound", StatusUnknown, false, boundedRow(100, ptr(30), ptr(100)), StatusNormal},
		{"only upper, below it", StatusUnknown, false, boundedRow(50, nil, ptr(100)), StatusNormal},
		{"only lower, above it", StatusUnknown, false, boundedRow(50, ptr(30), nil), StatusNormal},
		{"no bounds", StatusUnknown, false, boundedRow(50, nil, nil), StatusUnknown},
		{"no latest row", StatusUnknown, false, nil, StatusUnknown},
	}

	for _, c := range cases {
		if got := classifyStatus(c.hint, c.mixed, c.latest); got != c.want {
			t.Fatalf("%s: 期望 %q, 实际 %q", c.name, c.want, got)
		}
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in    string
		want  Status
		valid bool
	}{
		{"normal", StatusNormal, true},
		{"HIGH", StatusHigh, true},
		{" low ", StatusLow, true},
		{"unknown", StatusUnknown, true},
		{"not-a-real-status", StatusUnknown, false},
		{"", StatusUnknown, false},
	}

	for _, c := range cases {
		got, ok := ParseStatus(c.in)
		if ok != c.valid || got != c.want {
			t.Fatalf("ParseStatus(%q) = %q,%v; 期望 %q,%v", c.in, got, ok, c.want, c.valid)
		}
	}
}
