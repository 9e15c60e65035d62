//go:build linux

package sysmem

import "testing"

func TestParseCgroupLimit(t *testing.T) {
	tests := []struct {
		input  string
		want   uint64
		wantOK bool
	}{
		{"max\n", 0, false},
		{"", 0, false},
		{"0", 0, false},
		{"garbage", 0, false},
		{"536870912\n", 536870912, true},
	}
	for _, tt := range tests {
		got, ok := parseCgroupLimit(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseCgroupLimit(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}
