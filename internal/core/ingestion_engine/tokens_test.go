package ingestion_engine

import "testing"

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"short words favour word count", "a b c", 4},
		{"one long word favours chars", "abcdefghijklmnop", 4},
		{"ten words", "a a a a a a a a a a", 13},
		{"polish letters count as one char", "ąąąąąąąą", 2},
		{"sentence", "Sąd orzeka.", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.in); got != tt.want {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
