package engine

import "testing"

func TestMaxPrice_Bands(t *testing.T) {
	tests := []struct {
		name        string
		q1Total     int
		q1Known     bool
		wantCeiling int
		wantRegime  string
	}{
		{"unknown total", 0, false, 68, "Pregame"},
		{"very low", 38, true, 78, "Q1 < 48"},
		{"band edge 47", 47, true, 78, "Q1 < 48"},
		{"band edge 48", 48, true, 75, "Q1 48-49"},
		{"band edge 49", 49, true, 75, "Q1 48-49"},
		{"band edge 50", 50, true, 70, "Q1 50-54"},
		{"band edge 54", 54, true, 70, "Q1 50-54"},
		{"veto edge 55", 55, true, 0, "Q1 >= 55"},
		{"high total", 80, true, 0, "Q1 >= 55"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ceiling, regime := MaxPrice(tt.q1Total, tt.q1Known)
			if ceiling != tt.wantCeiling {
				t.Errorf("ceiling = %d, want %d", ceiling, tt.wantCeiling)
			}
			if regime != tt.wantRegime {
				t.Errorf("regime = %q, want %q", regime, tt.wantRegime)
			}
		})
	}
}

// Every non-negative total falls in exactly one band and the ceiling
// never rises as the total grows.
func TestMaxPrice_PartitionAndMonotonic(t *testing.T) {
	prev := 0
	for q := 0; q <= 200; q++ {
		ceiling, regime := MaxPrice(q, true)
		if regime == "" {
			t.Fatalf("q1Total=%d produced no regime", q)
		}
		if q > 0 && ceiling > prev {
			t.Fatalf("ceiling rose from %d to %d at q1Total=%d", prev, ceiling, q)
		}
		prev = ceiling
	}
}
