package humanfmt

import (
	"testing"
	"time"
)

func TestBytes(t *testing.T) {
	for in, want := range map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1536:            "1.50 KiB",
		512 * MiB:       "512.00 MiB",
		1 << 30:         "1.00 GiB",
		3 * TiB / 2:     "1.50 TiB",
		-100:            "-100 B",
		16 * 32768:      "512.00 KiB",
		100*MiB + 1<<19: "100.50 MiB",
	} {
		if got := Bytes(in); got != want {
			t.Errorf("Bytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"nanos", 500 * time.Nanosecond, "500ns"},
		{"micros", 250 * time.Microsecond, "250.0µs"},
		{"millis", 45600 * time.Microsecond, "45.6ms"},
		{"seconds", 1230 * time.Millisecond, "1.23s"},
		{"whole minute", time.Minute, "1m"},
		{"minutes", 90 * time.Second, "1m30s"},
		{"whole hour", 2 * time.Hour, "2h"},
		{"hours", 135 * time.Minute, "2h15m"},
		{"negative", -time.Second, "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Duration(tt.in); got != tt.want {
				t.Errorf("Duration(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestThroughput(t *testing.T) {
	tests := []struct {
		bytes int64
		d     time.Duration
		want  string
	}{
		{0, time.Second, "0 B/s"},
		{1000, time.Second, "1000 B/s"},
		{100 * MiB, time.Second, "100.00 MiB/s"},
		{MiB, 2 * time.Second, "512.00 KiB/s"},
		{GiB, 0, "∞"},
	}
	for _, tt := range tests {
		if got := Throughput(tt.bytes, tt.d); got != tt.want {
			t.Errorf("Throughput(%d, %v) = %q, want %q", tt.bytes, tt.d, got, tt.want)
		}
	}
}

func TestCountAndRatio(t *testing.T) {
	if got := Count(14344391); got != "14,344,391" {
		t.Errorf("Count(14344391) = %q", got)
	}
	if got := Count(-1500); got != "-1,500" {
		t.Errorf("Count(-1500) = %q", got)
	}
	if got := Count(999); got != "999" {
		t.Errorf("Count(999) = %q", got)
	}

	for _, tt := range []struct {
		part, whole int64
		want        string
	}{
		{0, 0, "0.0%"},
		{1, 3, "33.3%"},
		{5, 5, "100.0%"},
	} {
		if got := Ratio(tt.part, tt.whole); got != tt.want {
			t.Errorf("Ratio(%d, %d) = %q, want %q", tt.part, tt.whole, got, tt.want)
		}
	}
}
