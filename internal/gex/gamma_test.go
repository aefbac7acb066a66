package gex

import (
	"math"
	"testing"
)

func TestGammaATM(t *testing.T) {
	// S=K=100, T=1y, sigma=0.2, r=0: d1=0.1, gamma = pdf(0.1)/(100*0.2)
	got := Gamma(100, 100, 1, 0, 0.2)
	want := 0.0198476274
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("gamma = %.10f, want %.10f", got, want)
	}
}

func TestGammaDegenerateInputs(t *testing.T) {
	cases := []struct {
		name                        string
		spot, strike, tYears, sigma float64
	}{
		{"expired", 100, 100, 0, 0.2},
		{"negative time", 100, 100, -1, 0.2},
		{"zero vol", 100, 100, 1, 0},
		{"negative vol", 100, 100, 1, -0.5},
		{"zero spot", 0, 100, 1, 0.2},
		{"zero strike", 100, 0, 1, 0.2},
	}
	for _, c := range cases {
		if got := Gamma(c.spot, c.strike, c.tYears, 0, c.sigma); got != 0 {
			t.Errorf("%s: gamma = %v, want 0", c.name, got)
		}
	}
}

func TestGammaAlwaysNonNegative(t *testing.T) {
	for _, strike := range []float64{50, 80, 100, 120, 200} {
		for _, sigma := range []float64{0.1, 0.5, 1.5} {
			if got := Gamma(100, strike, 0.25, 0, sigma); got < 0 {
				t.Errorf("gamma(K=%v, sigma=%v) = %v, want >= 0", strike, sigma, got)
			}
		}
	}
}

func TestGammaPeaksNearATM(t *testing.T) {
	atm := Gamma(100, 100, 0.1, 0, 0.3)
	if otm := Gamma(100, 150, 0.1, 0, 0.3); otm >= atm {
		t.Errorf("far OTM gamma %v should be below ATM gamma %v", otm, atm)
	}
	if itm := Gamma(100, 60, 0.1, 0, 0.3); itm >= atm {
		t.Errorf("deep ITM gamma %v should be below ATM gamma %v", itm, atm)
	}
}
