package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
)

// ModelClient is a vision-capable generative backend: it receives an
// instruction plus a PNG image and returns the raw response text
type ModelClient interface {
	Generate(ctx context.Context, instruction string, pngImage []byte) (string, error)
	Close() error
}

// itemizedInstruction asks for the paid total and the purchased items
const itemizedInstruction = `You are reading a photographed grocery order receipt. Extract the final amount actually paid and the purchased items.

Return ONLY valid JSON in this exact format:
{
  "total_amount": 0.00,
  "items": [
    {"name": "item name", "quantity": "quantity with units as printed", "price": 0.00}
  ]
}

Rules:
- Extract values exactly as shown on the receipt. Do not round or recompute.
- total_amount is the final paid total after discounts.
- Each item's price is its final (post-discount) price.
- Keep quantity text verbatim, including units (e.g. "500 g x 8").
- Skip delivery, handling, packaging and platform fees; they are not items.
- If the receipt is unreadable or the total is not visible, return
  {"error": "reason"} instead of guessing.
- Do not include any text before or after the JSON.
- Do not use markdown code blocks.`

// singleAmountInstruction asks only for the paid total
const singleAmountInstruction = `You are reading a photographed payment receipt for a single charge (for example a ride fare or booking).

Return ONLY valid JSON in this exact format:
{"total_amount": 0.00}

Rules:
- Extract the amount exactly as shown. Do not round.
- If the receipt is unreadable or no amount is visible, return
  {"error": "reason"} instead of guessing.
- Do not include any text before or after the JSON.
- Do not use markdown code blocks.`

// responseSchema is checked locally before the model's answer is trusted
var responseSchema = jsonschema.MustCompileString("generative_response.json", `{
	"type": "object",
	"properties": {
		"total_amount": {"type": "number"},
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"quantity": {"type": ["string", "number"]},
					"price": {"type": "number"}
				},
				"required": ["name", "price"]
			}
		}
	},
	"required": ["total_amount"]
}`)

// GenerativeExtractor drives one model call and turns the response into a
// schema-checked GenerativeExtraction. It performs no retries; retry policy
// belongs to the orchestrator.
type GenerativeExtractor struct {
	model ModelClient
}

// NewGenerativeExtractor creates a GenerativeExtractor over the given backend
func NewGenerativeExtractor(model ModelClient) *GenerativeExtractor {
	return &GenerativeExtractor{model: model}
}

// Extract sends the category-specific instruction with the image and parses
// the structured response. Parse and schema failures wrap
// ErrMalformedResponse; they are deterministic and must not be retried.
func (e *GenerativeExtractor) Extract(ctx context.Context, pngImage []byte, category Category) (*GenerativeExtraction, error) {
	instruction := singleAmountInstruction
	if category == CategoryItemized {
		instruction = itemizedInstruction
	}

	raw, err := e.model.Generate(ctx, instruction, pngImage)
	if err != nil {
		return nil, fmt.Errorf("generating extraction: %w", err)
	}
	return parseGenerativeJSON(raw)
}

// parseGenerativeJSON strips code-fence wrapping, isolates the JSON object,
// and schema-validates it
func parseGenerativeJSON(text string) (*GenerativeExtraction, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in response: %w", ErrMalformedResponse)
	}
	text = text[start : end+1]

	var generic any
	if err := json.Unmarshal([]byte(text), &generic); err != nil {
		return nil, fmt.Errorf("decoding response: %v: %w", err, ErrMalformedResponse)
	}

	// an explicit error field means the model declined rather than guessed
	if m, ok := generic.(map[string]any); ok {
		if msg, ok := m["error"].(string); ok && strings.TrimSpace(msg) != "" {
			return nil, fmt.Errorf("model reported %q: %w", msg, ErrMalformedResponse)
		}
	}

	if err := responseSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("response failed schema check: %v: %w", err, ErrMalformedResponse)
	}

	var resp struct {
		TotalAmount decimal.Decimal `json:"total_amount"`
		Items       []struct {
			Name     string          `json:"name"`
			Quantity any             `json:"quantity"`
			Price    decimal.Decimal `json:"price"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("decoding response fields: %v: %w", err, ErrMalformedResponse)
	}

	out := &GenerativeExtraction{TotalAmount: resp.TotalAmount}
	for _, it := range resp.Items {
		quantity := ""
		if it.Quantity != nil {
			quantity = strings.TrimSpace(fmt.Sprintf("%v", it.Quantity))
		}
		out.Items = append(out.Items, ItemRecord{
			Name:     strings.TrimSpace(it.Name),
			Quantity: quantity,
			Price:    it.Price,
		})
	}
	return out, nil
}
