package thumbnail

import (
	"testing"
	"time"
)

func TestNormalizeRowsTimestamps(t *testing.T) {
	want := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC).UnixMilli()

	rows := NormalizeRows([]map[string]any{
		{"t": "2024-03-05T12:00:00Z", "y": 1.0},
		{"t": float64(want) / 1000, "y": 2.0},
		{"t": "garbage", "y": 3.0},
	})

	if rows[0]["t"] != want {
		t.Fatalf("ISO 时间应转为毫秒: %v", rows[0]["t"])
	}
	if rows[1]["t"] != want {
		t.Fatalf("秒级时间应转为毫秒: %v", rows[1]["t"])
	}
	if rows[2]["t"] != "garbage" {
		t.Fatalf("无法解析的时间应原样保留: %v", rows[2]["t"])
	}
}

func TestNormalizeRowsFlagMirroring(t *testing.T) {
	rows := NormalizeRows([]map[string]any{
		{"y": 1.0, "is_out_of_range": true},
		{"y": 1.0, "is_value_out_of_range": false},
		{"y": 1.0, "is_out_of_range": true, "is_value_out_of_range": false},
	})

	for _, key := range []string{"is_out_of_range", "is_value_out_of_range"} {
		if rows[0][key] != true {
			t.Fatalf("第 1 行 %s 应为 true", key)
		}
		if rows[1][key] != false {
			t.Fatalf("第 2 行 %s 应为 false", key)
		}
		if rows[2][key] != true {
			t.Fatalf("is_out_of_range 应优先: %s=%v", key, rows[2][key])
		}
	}
}

func TestNormalizeRowsComputedFlag(t *testing.T) {
	rows := NormalizeRows([]map[string]any{
		{"y": 120.0, "reference_upper": 100.0},
		{"y": 50.0, "reference_lower": 30.0, "reference_upper": 100.0},
		{"y": 10.0, "reference_lower": 30.0},
		{"y": 10.0},
	})

	if rows[0]["is_out_of_range"] != true || rows[0]["is_value_out_of_range"] != true {
		t.Fatalf("超上限应置位: %v", rows[0])
	}
	if rows[1]["is_out_of_range"] != false {
		t.Fatalf("界内应为 false: %v", rows[1])
	}
	if rows[2]["is_out_of_range"] != true {
		t.Fatalf("低于下限应置位: %v", rows[2])
	}
	if _, ok := rows[3]["is_out_of_range"]; ok {
		t.Fatal("无边界且未提供标志时不应新增字段")
	}
}

func TestNormalizeRowsPassThrough(t *testing.T) {
	original := map[string]any{
		"t":            "2024-03-05T12:00:00Z",
		"y":            1.0,
		"custom_field": "kept",
	}

	rows := NormalizeRows([]map[string]any{original})

	if rows[0]["custom_field"] != "kept" {
		t.Fatal("未知字段应原样透传")
	}
	if original["t"] != "2024-03-05T12:00:00Z" {
		t.Fatal("原始 map 不应被修改")
	}
}
