package metrics

import "testing"

func TestNormalizeWarning(t *testing.T) {
	tests := []struct {
		warning string
		want    string
	}{
		{"Claimed sentiment without news data", WarningSentiment},
		{"Claimed bearish sentiment contradicts positive news", WarningSentiment},
		{"Claimed price increase but actual change is -5.2%", WarningPrice},
		{"Analysis doesn't mention ticker BTC", WarningTicker},
		{"High confidence claim without supporting data", WarningUnsupported},
		{"Prediction made with limited data", WarningUnsupported},
		{"something entirely new", WarningOther},
	}

	for _, tt := range tests {
		t.Run(tt.warning, func(t *testing.T) {
			if got := NormalizeWarning(tt.warning); got != tt.want {
				t.Errorf("NormalizeWarning(%q) = %q, want %q", tt.warning, got, tt.want)
			}
		})
	}
}
