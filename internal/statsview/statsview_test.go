package statsview

import "testing"

func TestURL(t *testing.T) {
	tests := []struct {
		addr     string
		expected string
	}{
		{"", "http://localhost:12600/debug/statsview"},
		{"127.0.0.1:9000", "http://127.0.0.1:9000/debug/statsview"},
	}
	for _, tt := range tests {
		if got := URL(tt.addr); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}
