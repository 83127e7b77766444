package extraction

import "github.com/shopspring/decimal"

// Category identifies the kind of order a receipt belongs to
type Category string

const (
	// CategoryItemized is for orders expected to carry line items (grocery-style)
	CategoryItemized Category = "itemized"
	// CategorySingleAmount is for lump-sum payments (travel fares, bookings)
	CategorySingleAmount Category = "single-amount"
)

// Confidence is the trust tier attached to an extracted amount
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// AmountCandidate is a numeric value found in OCR text that may be the
// receipt's true amount
type AmountCandidate struct {
	Value             decimal.Decimal `json:"value"`
	SourceLine        string          `json:"source_line"`
	LineIndex         int             `json:"line_index"`
	HasContextKeyword bool            `json:"has_context_keyword"`
}

// ItemRecord is a single purchased line item. Quantity keeps the unit text
// verbatim (e.g. "500 g x 8").
type ItemRecord struct {
	Name     string          `json:"name"`
	Quantity string          `json:"quantity,omitempty"`
	Price    decimal.Decimal `json:"price"`
}

// GenerativeExtraction is the schema-checked output of the vision model
type GenerativeExtraction struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []ItemRecord    `json:"items,omitempty"`
}

// ValidationOutcome is the cross-validator's verdict on a generative amount
type ValidationOutcome struct {
	IsValid        bool            `json:"is_valid"`
	Confidence     Confidence      `json:"confidence"`
	ResolvedAmount decimal.Decimal `json:"resolved_amount"`
}

// ExtractionResult is the pipeline's final output for one receipt submission
type ExtractionResult struct {
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	Items           []ItemRecord     `json:"items,omitempty"`
	Confidence      Confidence       `json:"confidence"`
	AmountCorrected bool             `json:"amount_corrected"`
	OriginalAmount  *decimal.Decimal `json:"original_amount,omitempty"`
	OCRText         string           `json:"ocr_text,omitempty"` // audit trail, may be empty
}
