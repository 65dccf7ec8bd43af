package app

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"lab-trend-thumbnails/internal/thumbnail"
)

func ptr(v float64) *float64 { return &v }

func makeRows(n int) []thumbnail.Row {
	rows := make([]thumbnail.Row, n)
	for i := range rows {
		rows[i] = thumbnail.Row{
			TimeMs:     1709640000000 + int64(i)*60000,
			Value:      float64(i),
			SeriesName: "Serum Potassium",
			Unit:       "mmol/L",
		}
	}
	return rows
}

func TestDownsampleRowsKeepsSmallInput(t *testing.T) {
	rows := makeRows(5)
	got := downsampleRows(rows, 10)
	if len(got) != 5 {
		t.Fatalf("不应降采样: got %d", len(got))
	}
	got = downsampleRows(rows, 0)
	if len(got) != 5 {
		t.Fatalf("max<=0 时应原样返回: got %d", len(got))
	}
}

func TestDownsampleRowsPreservesEndpoints(t *testing.T) {
	rows := makeRows(100)
	got := downsampleRows(rows, 10)
	if len(got) != 10 {
		t.Fatalf("期望 10 个点, got %d", len(got))
	}
	if got[0].Value != rows[0].Value {
		t.Fatalf("首点应保留: got %v", got[0].Value)
	}
	if got[len(got)-1].Value != rows[len(rows)-1].Value {
		t.Fatalf("末点应保留: got %v", got[len(got)-1].Value)
	}
	for i := 1; i < len(got); i++ {
		if got[i].TimeMs <= got[i-1].TimeMs {
			t.Fatalf("降采样后时间应递增: %d -> %d", got[i-1].TimeMs, got[i].TimeMs)
		}
	}
}

func TestDownsampleRowsSinglePoint(t *testing.T) {
	rows := makeRows(100)
	got := downsampleRows(rows, 1)
	if len(got) != 1 {
		t.Fatalf("期望 1 个点, got %d", len(got))
	}
	if got[0].Value != rows[0].Value {
		t.Fatalf("max=1 时应取首点: got %v", got[0].Value)
	}
}

func TestWriteRowsCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "rows.csv")

	rows := []thumbnail.Row{
		{TimeMs: 1709640000000, Value: 4.1, SeriesName: "Serum Potassium", Unit: "mmol/L", ReferenceLower: ptr(3.5), ReferenceUpper: ptr(5.1)},
		{TimeMs: 1709726400000, Value: 4.4, SeriesName: "Serum Potassium", Unit: "mmol/L"},
	}
	if err := writeRowsCSV(path, rows); err != nil {
		t.Fatalf("写入 CSV 失败: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("读取 CSV 失败: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("解析 CSV 失败: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("期望表头加两行, got %d", len(records))
	}
	if records[0][0] != "t" || records[0][4] != "reference_lower" {
		t.Fatalf("表头不符: %v", records[0])
	}
	if records[1][0] != "2024-03-05T12:00:00Z" {
		t.Fatalf("时间格式不符: %s", records[1][0])
	}
	if records[1][1] != "4.1" || records[1][4] != "3.5" || records[1][5] != "5.1" {
		t.Fatalf("数值列不符: %v", records[1])
	}
	if records[2][4] != "" || records[2][5] != "" {
		t.Fatalf("缺失参考区间应留空: %v", records[2])
	}
}

func TestBoundSeries(t *testing.T) {
	rows := []thumbnail.Row{
		{Value: 4.1, ReferenceLower: ptr(3.5), ReferenceUpper: ptr(5.1)},
		{Value: 4.4, ReferenceLower: ptr(3.5), ReferenceUpper: ptr(5.1)},
	}
	lower, upper, ok := boundSeries(rows)
	if !ok {
		t.Fatal("完整参考区间应返回 ok")
	}
	if len(lower) != 2 || len(upper) != 2 || lower[0] != 3.5 || upper[1] != 5.1 {
		t.Fatalf("区间序列不符: %v %v", lower, upper)
	}

	rows[1].ReferenceUpper = nil
	if _, _, ok := boundSeries(rows); ok {
		t.Fatal("部分缺失时不应返回区间")
	}

	if _, _, ok := boundSeries(nil); ok {
		t.Fatal("空输入不应返回区间")
	}
}
