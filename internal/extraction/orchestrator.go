package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/outletops/receipt-ledger/internal/ocr"
)

// Orchestrator sequences the pipeline for one receipt submission: image
// normalization, generative extraction with bounded retry, OCR capture,
// cross-validation, and heuristic fallback when the model fails.
type Orchestrator struct {
	extractor  *GenerativeExtractor
	recognizer ocr.Recognizer
	scanner    *CandidateScanner
	parser     *ItemParser
	validator  *Validator
	cfg        ScanConfig
	attempts   int
	backoff    time.Duration
}

// NewOrchestrator creates an Orchestrator with default retry policy
// (3 attempts, linear backoff)
func NewOrchestrator(model ModelClient, recognizer ocr.Recognizer, cfg ScanConfig) *Orchestrator {
	return NewOrchestratorWithRetry(model, recognizer, cfg, 3, 2*time.Second)
}

// NewOrchestratorWithRetry creates an Orchestrator with a custom retry
// policy for testing
func NewOrchestratorWithRetry(model ModelClient, recognizer ocr.Recognizer, cfg ScanConfig, attempts int, backoff time.Duration) *Orchestrator {
	return &Orchestrator{
		extractor:  NewGenerativeExtractor(model),
		recognizer: recognizer,
		scanner:    NewCandidateScanner(cfg),
		parser:     NewItemParser(DefaultItemStoplist()),
		validator:  NewValidator(cfg),
		cfg:        cfg,
		attempts:   attempts,
		backoff:    backoff,
	}
}

// Extract runs the pipeline for one image and assembles the final result.
// With skipValidation the generative result is trusted outright; otherwise
// it is reconciled against OCR text, and if the model fails entirely the
// OCR heuristics carry the extraction alone. ErrNoAmountDeterminable is
// returned when neither path produces a plausible amount.
func (o *Orchestrator) Extract(ctx context.Context, imageData []byte, contentType string, category Category, skipValidation bool) (*ExtractionResult, error) {
	pngImage, err := PrepareImage(imageData, contentType)
	if err != nil {
		return nil, fmt.Errorf("preparing image: %w", err)
	}

	if skipValidation {
		return o.extractTrusted(ctx, pngImage, category)
	}

	generative, genErr := o.generateWithRetry(ctx, pngImage, category)
	if genErr != nil {
		slog.Warn("Generative extraction failed, falling back to OCR heuristics", "category", category, "error", genErr)
		return o.extractHeuristic(ctx, pngImage, category)
	}

	// OCR trouble here degrades to an empty transcript; the validator
	// handles that as single-source trust
	ocrText, ocrErr := o.recognizeWithRetry(ctx, pngImage)
	if ocrErr != nil {
		slog.Warn("OCR unavailable for validation", "error", ocrErr)
		ocrText = ""
	}

	outcome := o.validator.Validate(generative.TotalAmount, ocrText)
	if !outcome.IsValid {
		slog.Warn("Model and OCR amounts disagree",
			"model_amount", generative.TotalAmount,
			"resolved_amount", outcome.ResolvedAmount,
		)
	}

	result := &ExtractionResult{
		TotalAmount: outcome.ResolvedAmount,
		Items:       generative.Items,
		Confidence:  outcome.Confidence,
		OCRText:     ocrText,
	}
	if outcome.ResolvedAmount.Sub(generative.TotalAmount).Abs().GreaterThan(exactTolerance) {
		original := generative.TotalAmount
		result.AmountCorrected = true
		result.OriginalAmount = &original
	}
	o.applyRangeSanity(result)
	return result, nil
}

// extractTrusted is the skip-validation path: the generative result is
// returned at high confidence, with an optional OCR capture kept only as an
// audit trail (its absence never fails the call)
func (o *Orchestrator) extractTrusted(ctx context.Context, pngImage []byte, category Category) (*ExtractionResult, error) {
	generative, err := o.generateWithRetry(ctx, pngImage, category)
	if err != nil {
		return nil, err
	}

	result := &ExtractionResult{
		TotalAmount: generative.TotalAmount,
		Items:       generative.Items,
		Confidence:  ConfidenceHigh,
	}
	if text, ocrErr := o.recognizer.RecognizeText(ctx, pngImage); ocrErr == nil {
		result.OCRText = text
	}
	o.applyRangeSanity(result)
	return result, nil
}

// extractHeuristic is the OCR-only fallback: scan candidates (and items for
// itemized orders) from the raw text; no cross-validation is possible
func (o *Orchestrator) extractHeuristic(ctx context.Context, pngImage []byte, category Category) (*ExtractionResult, error) {
	text, err := o.recognizeWithRetry(ctx, pngImage)
	if err != nil {
		return nil, fmt.Errorf("both extraction paths failed: %w", ErrNoAmountDeterminable)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("image has no readable text: %w", ErrNoAmountDeterminable)
	}

	best, ok := o.scanner.Best(o.scanner.Scan(text))
	if !ok {
		return nil, fmt.Errorf("no amount candidates in OCR text: %w", ErrNoAmountDeterminable)
	}

	confidence := ConfidenceLow
	if best.HasContextKeyword {
		confidence = ConfidenceMedium
	}

	var items []ItemRecord
	if category == CategoryItemized {
		items = o.parser.ParseItems(text)
	}

	result := &ExtractionResult{
		TotalAmount: best.Value,
		Items:       items,
		Confidence:  confidence,
		OCRText:     text,
	}
	o.applyRangeSanity(result)
	return result, nil
}

// generateWithRetry calls the generative extractor with bounded linear
// backoff. Parse and schema failures are deterministic and break out
// immediately; only transport-level errors are retried.
func (o *Orchestrator) generateWithRetry(ctx context.Context, pngImage []byte, category Category) (*GenerativeExtraction, error) {
	var lastErr error
	for attempt := 1; attempt <= o.attempts; attempt++ {
		generative, err := o.extractor.Extract(ctx, pngImage, category)
		if err == nil {
			return generative, nil
		}
		lastErr = err
		if errors.Is(err, ErrMalformedResponse) {
			break
		}
		if attempt < o.attempts {
			slog.Warn("Model call failed, retrying", "attempt", attempt, "error", err)
			if !o.wait(ctx, attempt) {
				break
			}
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrGenerativeExtractionFailed, lastErr)
}

// recognizeWithRetry calls the OCR service with bounded linear backoff
func (o *Orchestrator) recognizeWithRetry(ctx context.Context, pngImage []byte) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= o.attempts; attempt++ {
		text, err := o.recognizer.RecognizeText(ctx, pngImage)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if attempt < o.attempts {
			slog.Warn("OCR call failed, retrying", "attempt", attempt, "error", err)
			if !o.wait(ctx, attempt) {
				break
			}
		}
	}
	return "", fmt.Errorf("%w: %w", ErrNoTextFound, lastErr)
}

// wait sleeps for the linear backoff interval, honoring ctx cancellation
func (o *Orchestrator) wait(ctx context.Context, attempt int) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Duration(attempt) * o.backoff):
		return true
	}
}

// applyRangeSanity forces confidence down when the resolved amount falls
// outside the plausible monetary range. Legitimate large receipts occur, so
// the amount itself is kept.
func (o *Orchestrator) applyRangeSanity(result *ExtractionResult) {
	if result.TotalAmount.LessThan(o.cfg.SymbolMin) || result.TotalAmount.GreaterThan(o.cfg.SymbolMax) {
		result.Confidence = ConfidenceLow
	}
}
