package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

func makeCandles(n int, start float64, step float64) []models.Candle {
	candles := make([]models.Candle, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := start
	for i := 0; i < n; i++ {
		day := base.AddDate(0, 0, i)
		candles[i] = models.Candle{
			Instrument: "TEST",
			Date:       day.Format("2006-01-02"),
			Open:       price,
			High:       price * 1.01,
			Low:        price * 0.99,
			Close:      price,
			Volume:     1_000_000,
			Time:       day,
		}
		price += step
	}
	return candles
}

func TestBuildInsufficientHistory(t *testing.T) {
	b := NewBuilder(30)
	_, err := b.Build("TEST", makeCandles(10, 100, 1))
	if !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestBuildFeatureSet(t *testing.T) {
	b := NewBuilder(30)
	fv, err := b.Build("TEST", makeCandles(60, 100, 0.5))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	wanted := []string{
		"return_1d", "return_5d", "return_20d",
		"rsi_14", "rsi_oversold", "rsi_overbought",
		"sma5_over_sma20", "price_over_sma20",
		"bb_percent", "bb_squeeze",
		"macd_hist",
		"volume_ratio", "volume_surge",
		"volatility_20", "vol_zscore",
	}
	for _, name := range wanted {
		if _, ok := fv.Get(name); !ok {
			t.Fatalf("missing feature %s", name)
		}
	}
	if fv.Len() != len(wanted) {
		t.Fatalf("expected %d features, got %d", len(wanted), fv.Len())
	}
}

func TestBuildUptrendSignals(t *testing.T) {
	b := NewBuilder(30)
	fv, err := b.Build("TEST", makeCandles(60, 100, 1))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	r1, _ := fv.Get("return_1d")
	if r1 <= 0 {
		t.Fatalf("rising series should have positive 1d return, got %f", r1)
	}
	rsi, _ := fv.Get("rsi_14")
	if rsi <= 50 {
		t.Fatalf("rising series should have rsi above 50, got %f", rsi)
	}
	cross, _ := fv.Get("sma5_over_sma20")
	if cross <= 0 {
		t.Fatalf("rising series should have sma5 above sma20, got %f", cross)
	}
	over, _ := fv.Get("rsi_overbought")
	if over != 1 {
		t.Fatalf("monotone rise should flag overbought")
	}
}

func TestBuildOrderStable(t *testing.T) {
	b := NewBuilder(30)
	candles := makeCandles(60, 100, 0.5)
	a, err := b.Build("A", candles)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	c, err := b.Build("B", candles)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	an, bn := a.Names(), c.Names()
	if len(an) != len(bn) {
		t.Fatalf("name count mismatch")
	}
	for i := range an {
		if an[i] != bn[i] {
			t.Fatalf("order mismatch at %d: %s vs %s", i, an[i], bn[i])
		}
	}
}

func TestValuesForProjection(t *testing.T) {
	fv := models.NewFeatureVector("TEST", "2024-01-01")
	fv.Set("a", 1)
	fv.Set("b", 2)

	got := fv.ValuesFor([]string{"b", "missing", "a"})
	want := []float64{2, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("projection mismatch at %d: got %f want %f", i, got[i], want[i])
		}
	}
}

func TestNaNClamped(t *testing.T) {
	fv := models.NewFeatureVector("TEST", "2024-01-01")
	fv.Set("bad", math.NaN())
	fv.Set("inf", math.Inf(1))
	if v, _ := fv.Get("bad"); v != 0 {
		t.Fatalf("NaN should clamp to 0, got %f", v)
	}
	if v, _ := fv.Get("inf"); v != 0 {
		t.Fatalf("Inf should clamp to 0, got %f", v)
	}
}
