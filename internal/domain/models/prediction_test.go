package models

import "testing"

func TestRecommendThresholds(t *testing.T) {
	cases := []struct {
		name     string
		ret      float64
		conf     float64
		highRisk bool
		want     Recommendation
	}{
		{"strong buy", 6, 0.85, false, RecommendStrongBuy},
		{"big move, tepid confidence", 6, 0.55, false, RecommendHold},
		{"buy", 3, 0.65, false, RecommendBuy},
		{"hold", 1, 0.90, false, RecommendHold},
		{"sell", -3, 0.50, false, RecommendSell},
		{"strong sell", -8, 0.50, false, RecommendStrongSell},
		{"risky tape caps weak buy", 2.5, 0.65, true, RecommendHold},
		{"risky tape keeps confident buy", 6, 0.85, true, RecommendBuy},
		{"risky tape softens strong sell", -8, 0.50, true, RecommendSell},
	}
	for _, tc := range cases {
		if got := Recommend(tc.ret, tc.conf, tc.highRisk); got != tc.want {
			t.Fatalf("%s: Recommend(%v, %v, %v) = %s, want %s",
				tc.name, tc.ret, tc.conf, tc.highRisk, got, tc.want)
		}
	}
}
