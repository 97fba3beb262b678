package progress

import "testing"

func TestRate(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		published int
		want      float64
	}{
		{"none done", 0, 3, 0},
		{"all done", 3, 3, 100},
		{"half done", 1, 2, 50},
		{"rounded down", 1, 3, 33.3},
		{"rounded up", 2, 3, 66.7},
		{"one of seven", 1, 7, 14.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rate(tt.completed, tt.published); got != tt.want {
				t.Fatalf("Rate(%d, %d) = %v, want %v", tt.completed, tt.published, got, tt.want)
			}
		})
	}
}
