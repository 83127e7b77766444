package extraction

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// single-line item form: <qty> x <name> <currency><price>
var singleLineItemPattern = regexp.MustCompile(`(?i)^\s*(\d+)\s*[x×]\s+(.+?)\s+(?:₹|rs\.?|inr)\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)\s*$`)

// quantity descriptor: "500 g x 8" or "8 x 500 g"
var quantityDescriptorPattern = regexp.MustCompile(`(?i)^\s*\d+(?:\.\d+)?\s*[a-z]{0,5}\.?\s*[x×]\s*\d+(?:\.\d+)?\s*[a-z]{0,5}\s*$`)

var letterPattern = regexp.MustCompile(`[a-zA-Z]`)

// DefaultItemStoplist lists structural/non-item keywords; lines containing
// any of them are skipped before pattern matching
func DefaultItemStoplist() []string {
	return []string{
		"order", "summary", "delivery", "total", "discount", "invoice",
		"rate this", "subtotal", "taxes", "gst", "savings", "handling",
		"tip", "donation", "payment", "bill",
	}
}

// ItemParser segments OCR text into purchased line items
type ItemParser struct {
	stoplist []string
}

// NewItemParser creates an ItemParser with the given stoplist
func NewItemParser(stoplist []string) *ItemParser {
	return &ItemParser{stoplist: stoplist}
}

// ParseItems extracts item records from the text. Two layouts are
// recognized: a single line carrying quantity, name and price, and a
// three-line block of name, quantity descriptor, and a price line whose last
// currency-marked figure is the final (post-discount) price. Unparseable
// input yields fewer items, never an error. Output is de-duplicated on
// (lowercased name, price) so repeated OCR noise cannot double-count.
func (p *ItemParser) ParseItems(text string) []ItemRecord {
	lines := strings.Split(text, "\n")

	var records []ItemRecord
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || p.stoplisted(line) {
			continue
		}

		if m := singleLineItemPattern.FindStringSubmatch(line); m != nil {
			price, err := decimal.NewFromString(strings.ReplaceAll(m[3], ",", ""))
			if err != nil {
				continue
			}
			records = append(records, ItemRecord{
				Name:     strings.TrimSpace(m[2]),
				Quantity: m[1],
				Price:    price,
			})
			continue
		}

		if i+2 < len(lines) && p.isNameLine(line) {
			quantity := strings.TrimSpace(lines[i+1])
			priceLine := lines[i+2]
			if quantityDescriptorPattern.MatchString(quantity) {
				if price, ok := lastCurrencyAmount(priceLine); ok {
					records = append(records, ItemRecord{
						Name:     line,
						Quantity: quantity,
						Price:    price,
					})
					i += 2
				}
			}
		}
	}
	return dedupeItems(records)
}

// stoplisted reports whether the line carries a structural keyword
func (p *ItemParser) stoplisted(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range p.stoplist {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isNameLine accepts lines that read as an item name: they carry letters but
// no price or quantity structure of their own
func (p *ItemParser) isNameLine(line string) bool {
	if !letterPattern.MatchString(line) {
		return false
	}
	if currencyAmountPattern.MatchString(line) {
		return false
	}
	return !quantityDescriptorPattern.MatchString(line)
}

// lastCurrencyAmount returns the last currency-marked figure on the line
func lastCurrencyAmount(line string) (decimal.Decimal, bool) {
	matches := currencyAmountPattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return decimal.Decimal{}, false
	}
	raw := strings.ReplaceAll(matches[len(matches)-1][1], ",", "")
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return price, true
}

// dedupeItems drops repeated (name, price) pairs, keeping first occurrence
func dedupeItems(records []ItemRecord) []ItemRecord {
	if len(records) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(records))
	out := make([]ItemRecord, 0, len(records))
	for _, r := range records {
		key := strings.ToLower(r.Name) + "|" + r.Price.StringFixed(2)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
