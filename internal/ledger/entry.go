package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/outletops/receipt-ledger/internal/extraction"
)

// Entry is one persisted extraction with its submission metadata
type Entry struct {
	ID              string                  `json:"id"`
	Outlet          string                  `json:"outlet"`
	SubmittedBy     string                  `json:"submitted_by"`
	Category        extraction.Category     `json:"category"`
	TotalAmount     decimal.Decimal         `json:"total_amount"`
	Items           []extraction.ItemRecord `json:"items,omitempty"`
	Confidence      extraction.Confidence   `json:"confidence"`
	AmountCorrected bool                    `json:"amount_corrected"`
	OriginalAmount  *decimal.Decimal        `json:"original_amount,omitempty"`
	NeedsReview     bool                    `json:"needs_review"`
	OCRText         string                  `json:"ocr_text,omitempty"`
	Filename        string                  `json:"filename"`
	ContentType     string                  `json:"content_type"`
	CreatedAt       time.Time               `json:"created_at"`
}
