package extraction

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// matches a currency-marked amount: ₹94, Rs. 1,250.50, INR 480
var currencyAmountPattern = regexp.MustCompile(`(?:₹|(?i:\brs\.?)|(?i:\binr\b))\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

// matches a bare numeric token: 1-5 digits with an optional 2-decimal fraction
var bareNumberPattern = regexp.MustCompile(`[0-9]{1,5}(?:\.[0-9]{2})?`)

// month-name tokens mark a line as a calendar date; numbers on it are distractors
var monthNamePattern = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept?|oct|nov|dec)\b`)

// ScanConfig holds the tunable data the candidate scanner works from. The
// keyword list and ranges are configuration, not control flow.
type ScanConfig struct {
	// ContextKeywords qualify a line (or its neighbors) as amount-bearing
	ContextKeywords []string

	// SymbolMin/SymbolMax bound currency-marked amounts
	SymbolMin decimal.Decimal
	SymbolMax decimal.Decimal

	// ContextMin/ContextMax bound bare-number candidates
	ContextMin decimal.Decimal
	ContextMax decimal.Decimal

	// HeadLines is how many leading lines are scanned unconditionally
	HeadLines int
}

// DefaultScanConfig returns the bounds and keyword set tuned for payment
// and order receipt screenshots
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		ContextKeywords: []string{
			"fare", "total", "paid", "amount", "charge",
			"cost", "booking", "ride", "auto", "one-way",
		},
		SymbolMin:  decimal.NewFromInt(10),
		SymbolMax:  decimal.NewFromInt(50000),
		ContextMin: decimal.NewFromInt(10),
		ContextMax: decimal.NewFromInt(10000),
		HeadLines:  10,
	}
}

// CandidateScanner extracts ranked amount candidates from raw OCR text
type CandidateScanner struct {
	cfg ScanConfig
}

// NewCandidateScanner creates a CandidateScanner with the given config
func NewCandidateScanner(cfg ScanConfig) *CandidateScanner {
	return &CandidateScanner{cfg: cfg}
}

// Scan produces amount candidates for the text. Currency-marked amounts take
// strict precedence: when any exist, only they are returned. Bare numbers are
// considered only as a fallback, filtered against clock-time, date, and
// distance distractors. Returns nil when nothing plausible is found.
func (s *CandidateScanner) Scan(text string) []AmountCandidate {
	lines := strings.Split(text, "\n")

	if candidates := s.currencyPass(lines); len(candidates) > 0 {
		return candidates
	}
	return s.contextPass(lines)
}

// currencyPass collects every currency-marked amount in range, ranked by
// value descending
func (s *CandidateScanner) currencyPass(lines []string) []AmountCandidate {
	var candidates []AmountCandidate
	for i, line := range lines {
		for _, match := range currencyAmountPattern.FindAllStringSubmatch(line, -1) {
			value, err := decimal.NewFromString(strings.ReplaceAll(match[1], ",", ""))
			if err != nil {
				continue
			}
			if value.LessThan(s.cfg.SymbolMin) || value.GreaterThan(s.cfg.SymbolMax) {
				continue
			}
			candidates = append(candidates, AmountCandidate{
				Value:             value,
				SourceLine:        line,
				LineIndex:         i,
				HasContextKeyword: true,
			})
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Value.GreaterThan(candidates[b].Value)
	})
	return candidates
}

// contextPass scans bare numeric tokens on keyword-qualified lines and
// within the leading lines of the document
func (s *CandidateScanner) contextPass(lines []string) []AmountCandidate {
	var candidates []AmountCandidate
	for i, line := range lines {
		keyword := s.lineHasKeyword(lines, i)
		if !keyword && i >= s.cfg.HeadLines {
			continue
		}
		candidates = append(candidates, s.scanBareTokens(line, i, keyword)...)
	}
	return candidates
}

// lineHasKeyword reports whether the line or either immediate neighbor
// contains a context keyword
func (s *CandidateScanner) lineHasKeyword(lines []string, i int) bool {
	for _, j := range []int{i - 1, i, i + 1} {
		if j < 0 || j >= len(lines) {
			continue
		}
		lower := strings.ToLower(lines[j])
		for _, kw := range s.cfg.ContextKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// scanBareTokens extracts in-range bare numbers from a line, rejecting
// tokens whose surroundings suggest a clock time, date, or distance
func (s *CandidateScanner) scanBareTokens(line string, index int, keyword bool) []AmountCandidate {
	if monthNamePattern.MatchString(line) {
		return nil
	}

	var candidates []AmountCandidate
	for _, loc := range bareNumberPattern.FindAllStringIndex(line, -1) {
		start, end := loc[0], loc[1]
		if start > 0 {
			prev := line[start-1]
			if isDigit(prev) || prev == '.' || prev == ':' || prev == ',' {
				continue
			}
		}
		if end < len(line) {
			next := line[end]
			if isDigit(next) || next == '.' || next == ':' || next == ',' {
				continue
			}
		}
		if looksLikeTimeOrDistance(line[end:]) {
			continue
		}

		value, err := decimal.NewFromString(line[start:end])
		if err != nil {
			continue
		}
		if value.LessThan(s.cfg.ContextMin) || value.GreaterThan(s.cfg.ContextMax) {
			continue
		}
		candidates = append(candidates, AmountCandidate{
			Value:             value,
			SourceLine:        line,
			LineIndex:         index,
			HasContextKeyword: keyword,
		})
	}
	return candidates
}

// looksLikeTimeOrDistance checks the text immediately after a numeric token
// for am/pm markers and distance units
func looksLikeTimeOrDistance(rest string) bool {
	trimmed := strings.ToLower(strings.TrimLeft(rest, " \t"))
	for _, unit := range []string{"am", "pm", "km", "meter"} {
		if strings.HasPrefix(trimmed, unit) && !followedByLetter(trimmed, len(unit)) {
			return true
		}
	}
	// a trailing bare "m" reads as meters
	if strings.HasPrefix(trimmed, "m") && !followedByLetter(trimmed, 1) {
		return true
	}
	return false
}

func followedByLetter(s string, n int) bool {
	if len(s) <= n {
		return false
	}
	c := s[n]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Best applies the selection order to a candidate set: keyword-backed
// candidates win (maximum value among them), then candidates from the
// leading lines, then whatever remains. Returns false when the set is empty.
func (s *CandidateScanner) Best(candidates []AmountCandidate) (AmountCandidate, bool) {
	if len(candidates) == 0 {
		return AmountCandidate{}, false
	}

	if best, ok := maxCandidate(candidates, func(c AmountCandidate) bool { return c.HasContextKeyword }); ok {
		return best, true
	}
	if best, ok := maxCandidate(candidates, func(c AmountCandidate) bool { return c.LineIndex < s.cfg.HeadLines }); ok {
		return best, true
	}
	best, _ := maxCandidate(candidates, func(AmountCandidate) bool { return true })
	return best, true
}

func maxCandidate(candidates []AmountCandidate, keep func(AmountCandidate) bool) (AmountCandidate, bool) {
	var best AmountCandidate
	found := false
	for _, c := range candidates {
		if !keep(c) {
			continue
		}
		if !found || c.Value.GreaterThan(best.Value) {
			best = c
			found = true
		}
	}
	return best, found
}
