package indicators

import (
	"context"
	"errors"
	"testing"

	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/ports"
)

func TestMACD_Calculate(t *testing.T) {
	cfg := MACDConfig{FastPeriod: 3, SlowPeriod: 6, SignalPeriod: 3}

	flat := func(n int, level float64) []float64 {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = level
		}
		return closes
	}

	tests := []struct {
		name           string
		closes         []float64
		expectedSignal float64
		expectError    bool
	}{
		{
			name: "jump out of a flat range is a strong buy crossover",
			// histogram is exactly zero on flat data; the jump flips it
			// positive with growing magnitude
			closes:         append(flat(12, 100), 110),
			expectedSignal: domain.SignalStrongBuy,
		},
		{
			name:           "drop out of a flat range is a strong sell crossover",
			closes:         append(flat(12, 100), 90),
			expectedSignal: domain.SignalStrongSell,
		},
		{
			name: "accelerating uptrend without a crossover is a weak buy",
			// gains grow each candle, so the fast EMA stays above the
			// slow EMA and the histogram has been positive for a while
			closes:         []float64{100, 100, 100, 100, 100, 100, 101, 103, 106, 110, 115, 121, 128, 136},
			expectedSignal: domain.SignalWeakBuy,
		},
		{
			name:           "accelerating downtrend without a crossover is a weak sell",
			closes:         []float64{100, 100, 100, 100, 100, 100, 99, 97, 94, 90, 85, 79, 72, 64},
			expectedSignal: domain.SignalWeakSell,
		},
		{
			name:        "insufficient data",
			closes:      flat(9, 100),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			macd := NewMACD(cfg)
			reading, err := macd.Calculate(context.Background(), seriesFromCloses(tt.closes))

			if tt.expectError {
				if !errors.Is(err, ports.ErrInsufficientData) {
					t.Fatalf("expected ErrInsufficientData, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if reading.Signal != tt.expectedSignal {
				t.Errorf("signal: expected %v, got %v (raw histogram %v)", tt.expectedSignal, reading.Signal, reading.Raw)
			}
		})
	}
}

func TestMACD_RequiredDataPoints(t *testing.T) {
	macd := NewMACD(MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9})
	if got := macd.RequiredDataPoints(); got != 36 {
		t.Errorf("expected 36 data points, got %d", got)
	}
}
