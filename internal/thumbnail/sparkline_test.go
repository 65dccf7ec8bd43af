package thumbnail

import "testing"

func sequence(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	return values
}

func TestDownsampleEmpty(t *testing.T) {
	series := downsampleSeries(nil)
	if len(series) != 1 || series[0] != 0 {
		t.Fatalf("空输入应退化为 [0], 实际 %v", series)
	}
}

func TestDownsampleShortInputUnchanged(t *testing.T) {
	for _, n := range []int{1, 2, 15, 30} {
		in := sequence(n)
		out := downsampleSeries(in)
		if len(out) != n {
			t.Fatalf("长度 %d 不应被缩减, 实际 %d", n, len(out))
		}
		for i := range in {
			if out[i] != in[i] {
				t.Fatalf("长度 %d 位置 %d 值被改动", n, i)
			}
		}
	}
}

func TestDownsampleReturnsCopy(t *testing.T) {
	in := sequence(5)
	out := downsampleSeries(in)
	out[0] = 99
	if in[0] == 99 {
		t.Fatal("返回值应是新切片")
	}
}

func TestDownsampleStride(t *testing.T) {
	// 100 个值时 interior 长 98, stride 3.5: 槽位 i 取 interior[floor(3.5*i)]。
	out := downsampleSeries(sequence(100))
	if len(out) != 30 {
		t.Fatalf("期望 30 个点, 实际 %d", len(out))
	}
	if out[0] != 0 || out[29] != 99 {
		t.Fatalf("端点应保留: %v ... %v", out[0], out[29])
	}
	if out[1] != 1 || out[2] != 4 || out[3] != 8 {
		t.Fatalf("内部槽位取值不正确: %v", out[:4])
	}
}

func TestDownsampleEndpointPreservation(t *testing.T) {
	for n := 31; n <= 200; n++ {
		in := sequence(n)
		out := downsampleSeries(in)
		if len(out) != 30 {
			t.Fatalf("长度 %d: 期望 30 个点, 实际 %d", n, len(out))
		}
		if out[0] != in[0] || out[29] != in[n-1] {
			t.Fatalf("长度 %d: 端点未保留", n)
		}
		for i := 1; i < len(out); i++ {
			if out[i] < out[i-1] {
				t.Fatalf("长度 %d: 单调输入的降采样应保持单调", n)
			}
		}
	}
}
