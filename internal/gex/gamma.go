package gex

import "math"

// Gamma returns the Black-Scholes gamma of a European option. Gamma is
// identical for calls and puts. Expired or unpriceable inputs return 0.
func Gamma(spot, strike, tYears, rate, sigma float64) float64 {
	if tYears <= 0 || sigma <= 0 || spot <= 0 || strike <= 0 {
		return 0
	}
	sqrtT := math.Sqrt(tYears)
	d1 := (math.Log(spot/strike) + (rate+0.5*sigma*sigma)*tYears) / (sigma * sqrtT)
	return normPDF(d1) / (spot * sigma * sqrtT)
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
