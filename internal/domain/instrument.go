package domain

import (
	"regexp"
	"strconv"
	"time"
)

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// Instrument is the static reference data for one listed option contract.
// Instruments are immutable once loaded; the catalog replaces them wholesale
// on refresh.
type Instrument struct {
	Name         string // venue identifier, e.g. "BTC-27DEC24-85000-P"
	Underlying   string
	Strike       float64
	Expiry       time.Time
	Type         OptionType
	Multiplier   float64
	MarkIV       float64 // decimal vol, e.g. 0.62; zero means unknown
	OpenInterest float64
}

// InstrumentKey is the subset of Instrument that can be recovered from the
// venue's instrument name alone.
type InstrumentKey struct {
	Underlying string
	Expiry     time.Time
	Strike     float64
	Type       OptionType
}

// Pattern: UNDERLYING-DDMMMYY-STRIKE-C/P, e.g. BTC-27DEC24-85000-P.
var instrumentNameRe = regexp.MustCompile(`^([A-Z]+)-(\d{1,2})([A-Z]{3})(\d{2})-(\d+)-([CP])$`)

var expiryMonths = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// ParseInstrumentName decodes a venue option instrument name into its
// components. Expiry is the venue's 08:00 UTC settlement time. It returns
// false for anything that is not a standard option name (futures, spreads,
// perpetuals), which callers should skip rather than treat as an error.
func ParseInstrumentName(name string) (InstrumentKey, bool) {
	m := instrumentNameRe.FindStringSubmatch(name)
	if m == nil {
		return InstrumentKey{}, false
	}

	day, err := strconv.Atoi(m[2])
	if err != nil || day < 1 || day > 31 {
		return InstrumentKey{}, false
	}
	month, ok := expiryMonths[m[3]]
	if !ok {
		return InstrumentKey{}, false
	}
	year, err := strconv.Atoi(m[4])
	if err != nil {
		return InstrumentKey{}, false
	}
	strike, err := strconv.ParseFloat(m[5], 64)
	if err != nil || strike <= 0 {
		return InstrumentKey{}, false
	}

	optType := Call
	if m[6] == "P" {
		optType = Put
	}

	return InstrumentKey{
		Underlying: m[1],
		Expiry:     time.Date(2000+year, month, day, 8, 0, 0, 0, time.UTC),
		Strike:     strike,
		Type:       optType,
	}, true
}
