package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DividendFrequency labels how often a symbol pays. The label is metadata for
// display and payment-interval purposes only; annualization always goes
// through the normalized monthly-per-share figure.
type DividendFrequency string

const (
	FrequencyMonthly    DividendFrequency = "monthly"
	FrequencyQuarterly  DividendFrequency = "quarterly"
	FrequencySemiAnnual DividendFrequency = "semi-annual"
	FrequencyAnnual     DividendFrequency = "annual"
	FrequencyUnknown    DividendFrequency = ""
)

// PaymentsPerYear returns the number of payments implied by the frequency label.
func (f DividendFrequency) PaymentsPerYear() int {
	switch f {
	case FrequencyMonthly:
		return 12
	case FrequencyQuarterly:
		return 4
	case FrequencySemiAnnual:
		return 2
	case FrequencyAnnual:
		return 1
	default:
		return 0
	}
}

// MonthsPerPayment returns the divisor that converts one payment's per-share
// amount into a monthly per-share amount (12 / payments-per-year).
func (f DividendFrequency) MonthsPerPayment() int {
	if n := f.PaymentsPerYear(); n > 0 {
		return 12 / n
	}
	return 0
}

// FrequencyFromMeanGap buckets the mean gap in days between consecutive
// dividend payments into a frequency label.
func FrequencyFromMeanGap(meanGapDays float64) DividendFrequency {
	switch {
	case meanGapDays <= 35:
		return FrequencyMonthly
	case meanGapDays <= 100:
		return FrequencyQuarterly
	case meanGapDays <= 200:
		return FrequencySemiAnnual
	default:
		return FrequencyAnnual
	}
}

// ValidFrequency reports whether s names a known payment frequency.
func ValidFrequency(s string) bool {
	switch DividendFrequency(s) {
	case FrequencyMonthly, FrequencyQuarterly, FrequencySemiAnnual, FrequencyAnnual:
		return true
	}
	return false
}

// PolicySource records where a dividend policy's values came from.
type PolicySource string

const (
	PolicySourceManual PolicySource = "manual"
	PolicySourceAuto   PolicySource = "auto"
	PolicySourceBroker PolicySource = "broker"
)

// DividendPolicy is the authoritative, symbol-scoped dividend record shared by
// every position quoting that symbol. Once IsManualOverride is set, automated
// writers must not change Frequency or the per-share amounts until a human
// clears the flag.
type DividendPolicy struct {
	Symbol           string            `json:"symbol"`
	Frequency        DividendFrequency `json:"frequency"`
	MonthlyPerShare  decimal.Decimal   `json:"monthly_per_share"`
	AnnualPerShare   decimal.Decimal   `json:"annual_per_share"`
	IsManualOverride bool              `json:"is_manual_override"`
	Source           PolicySource      `json:"source"`
	UpdatedAt        time.Time         `json:"updated_at"`
}
