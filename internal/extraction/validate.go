package extraction

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// bare fallback tokens for validation: 2-5 digits, optional fraction
var bareValidationPattern = regexp.MustCompile(`\b[0-9]{2,5}(?:\.[0-9]{1,2})?\b`)

var (
	exactTolerance = decimal.NewFromFloat(0.01)
	nearMatchRatio = decimal.NewFromFloat(0.05)
)

// Validator reconciles a generative amount against raw OCR text.
//
// The policy is ordered by evidence strength: exact agreement with a
// currency-marked OCR amount is strongest; near-agreement favors the OCR
// value because the model commonly misreads digits while OCR reads literal
// pixels; total disagreement surfaces as a low-confidence mismatch rather
// than silently trusting either source.
type Validator struct {
	cfg ScanConfig
}

// NewValidator creates a Validator sharing the scanner's bounds
func NewValidator(cfg ScanConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate evaluates the generative amount against the OCR text
func (v *Validator) Validate(generative decimal.Decimal, ocrText string) ValidationOutcome {
	if strings.TrimSpace(ocrText) == "" {
		// nothing to check against; trust the model at medium
		return ValidationOutcome{IsValid: true, Confidence: ConfidenceMedium, ResolvedAmount: generative}
	}

	if amounts := v.currencyAmounts(ocrText); len(amounts) > 0 {
		return v.validateAgainstCurrency(generative, amounts)
	}
	return v.validateAgainstBare(generative, ocrText)
}

// validateAgainstCurrency applies the exact / near / mismatch tiers over
// currency-marked OCR amounts
func (v *Validator) validateAgainstCurrency(generative decimal.Decimal, amounts []decimal.Decimal) ValidationOutcome {
	for _, a := range amounts {
		if a.Sub(generative).Abs().LessThanOrEqual(exactTolerance) {
			return ValidationOutcome{IsValid: true, Confidence: ConfidenceHigh, ResolvedAmount: generative}
		}
	}

	// near match: the OCR value replaces the generative guess
	if closest, ok := closestWithin(generative, amounts, nearMatchRatio); ok {
		return ValidationOutcome{IsValid: true, Confidence: ConfidenceMedium, ResolvedAmount: closest}
	}

	// mismatch: report the largest OCR amount and flag the discrepancy
	largest := amounts[0]
	for _, a := range amounts[1:] {
		if a.GreaterThan(largest) {
			largest = a
		}
	}
	return ValidationOutcome{IsValid: false, Confidence: ConfidenceLow, ResolvedAmount: largest}
}

// validateAgainstBare falls back to bare numeric tokens when no
// currency-marked amount exists in the text
func (v *Validator) validateAgainstBare(generative decimal.Decimal, ocrText string) ValidationOutcome {
	var numbers []decimal.Decimal
	for _, token := range bareValidationPattern.FindAllString(ocrText, -1) {
		n, err := decimal.NewFromString(token)
		if err != nil {
			continue
		}
		if n.LessThan(v.cfg.SymbolMin) || n.GreaterThan(v.cfg.SymbolMax) {
			continue
		}
		numbers = append(numbers, n)
	}

	if len(numbers) == 0 {
		// nothing at all in OCR; pass the generative amount through
		return ValidationOutcome{IsValid: true, Confidence: ConfidenceLow, ResolvedAmount: generative}
	}

	for _, n := range numbers {
		if n.Equal(generative) {
			return ValidationOutcome{IsValid: true, Confidence: ConfidenceHigh, ResolvedAmount: generative}
		}
	}
	for _, n := range numbers {
		if n.Sub(generative).Abs().LessThanOrEqual(exactTolerance) {
			return ValidationOutcome{IsValid: true, Confidence: ConfidenceMedium, ResolvedAmount: generative}
		}
	}

	closest := numbers[0]
	for _, n := range numbers[1:] {
		if n.Sub(generative).Abs().LessThan(closest.Sub(generative).Abs()) {
			closest = n
		}
	}
	return ValidationOutcome{IsValid: false, Confidence: ConfidenceLow, ResolvedAmount: closest}
}

// currencyAmounts extracts all in-range currency-marked amounts in the text
func (v *Validator) currencyAmounts(text string) []decimal.Decimal {
	var amounts []decimal.Decimal
	for _, m := range currencyAmountPattern.FindAllStringSubmatch(text, -1) {
		a, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		if a.LessThan(v.cfg.SymbolMin) || a.GreaterThan(v.cfg.SymbolMax) {
			continue
		}
		amounts = append(amounts, a)
	}
	return amounts
}

// closestWithin returns the amount closest to target among those whose
// relative distance from target is at most ratio
func closestWithin(target decimal.Decimal, amounts []decimal.Decimal, ratio decimal.Decimal) (decimal.Decimal, bool) {
	if !target.IsPositive() {
		return decimal.Decimal{}, false
	}
	var best decimal.Decimal
	found := false
	for _, a := range amounts {
		diff := a.Sub(target).Abs()
		if diff.Div(target).GreaterThan(ratio) {
			continue
		}
		if !found || diff.LessThan(best.Sub(target).Abs()) {
			best = a
			found = true
		}
	}
	return best, found
}
