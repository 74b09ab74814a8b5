package event

import "testing"

func TestSplitAmount(t *testing.T) {
	tests := []struct {
		name         string
		total        int64
		participants int
		want         int64
	}{
		{
			name:         "even split",
			total:        9000,
			participants: 3,
			want:         3000,
		},
		{
			name:         "remainder is dropped",
			total:        10000,
			participants: 3,
			want:         3333,
		},
		{
			name:         "single participant pays everything",
			total:        5000,
			participants: 1,
			want:         5000,
		},
		{
			name:         "total smaller than participant count",
			total:        2,
			participants: 3,
			want:         0,
		},
		{
			name:         "large amount",
			total:        1234567,
			participants: 4,
			want:         308641,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitAmount(tt.total, tt.participants)
			if got != tt.want {
				t.Errorf("SplitAmount(%d, %d) = %d, want %d", tt.total, tt.participants, got, tt.want)
			}

			// Floor property: shares never sum past the total, and the
			// shortfall stays below one unit per participant.
			n := int64(tt.participants)
			if got*n > tt.total {
				t.Errorf("shares exceed total: %d * %d > %d", got, n, tt.total)
			}
			if tt.total-got*n >= n {
				t.Errorf("remainder %d is at least one unit per participant", tt.total-got*n)
			}
		})
	}
}
