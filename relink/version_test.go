package relink

import "testing"

func TestResolveVersion(t *testing.T) {
	tests := []struct {
		release string
		want    int
	}{
		{"18.2", 18},
		{"18.2.1", 18},
		{"20", 20},
		{"7beta", 7},
		{"0.9", 0},
		{"R16B03", SentinelVersion},
		{"", SentinelVersion},
		{"dev", SentinelVersion},
		{"99999999999999999999.1", SentinelVersion},
	}
	for _, tt := range tests {
		if got := ResolveVersion(tt.release); got != tt.want {
			t.Errorf("ResolveVersion(%q) = %d, want %d", tt.release, got, tt.want)
		}
	}
}
