package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/outletops/receipt-ledger/internal/extraction"
)

// Pipeline runs the extraction for one submitted image
type Pipeline interface {
	Extract(ctx context.Context, imageData []byte, contentType string, category extraction.Category, skipValidation bool) (*extraction.ExtractionResult, error)
}

// IDGenerator generates unique IDs for ledger entries
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.New().String()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Submission is one receipt image handed to the ledger for extraction
type Submission struct {
	Filename    string
	ContentType string
	Data        []byte
	Category    extraction.Category
	Outlet      string
	SubmittedBy string
}

// Service runs submissions through the pipeline and records the results
type Service struct {
	db             DB
	storage        Storage
	pipeline       Pipeline
	skipValidation map[extraction.Category]bool
	idGenerator    IDGenerator
	timeSource     TimeSource
}

// NewService creates a Service with default ID generator and time source.
// skipValidation names the categories whose generative extraction is trusted
// without cross-checking; it is explicit configuration, never inferred from
// category names.
func NewService(db DB, storage Storage, pipeline Pipeline, skipValidation map[extraction.Category]bool) *Service {
	return NewServiceWithDeps(db, storage, pipeline, skipValidation, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, pipeline Pipeline, skipValidation map[extraction.Category]bool, idGen IDGenerator, timeSrc TimeSource) *Service {
	if skipValidation == nil {
		skipValidation = map[extraction.Category]bool{}
	}
	return &Service{
		db:             db,
		storage:        storage,
		pipeline:       pipeline,
		skipValidation: skipValidation,
		idGenerator:    idGen,
		timeSource:     timeSrc,
	}
}

var filenameJunkPattern = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
var filenameSpacePattern = regexp.MustCompile(`\s+`)

// sanitizeFilename cleans up phone-generated filenames and truncates length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = filenameJunkPattern.ReplaceAllString(base, "")
	base = strings.TrimSpace(filenameSpacePattern.ReplaceAllString(base, " "))

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// SubmitReceipt archives the image, runs the pipeline, and records the entry
func (s *Service) SubmitReceipt(ctx context.Context, sub Submission) (*Entry, error) {
	switch sub.Category {
	case extraction.CategoryItemized, extraction.CategorySingleAmount:
	default:
		return nil, fmt.Errorf("unknown category: %q", sub.Category)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(sub.Filename)), sub.Data)
	if err != nil {
		return nil, fmt.Errorf("archiving image: %w", err)
	}

	result, err := s.pipeline.Extract(ctx, sub.Data, sub.ContentType, sub.Category, s.skipValidation[sub.Category])
	if err != nil {
		slog.Error("Failed to extract receipt",
			"filename", sub.Filename,
			"category", sub.Category,
			"file_size", len(sub.Data),
			"error", err,
		)
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("extracting receipt: %w", err)
	}

	entry := &Entry{
		ID:              id,
		Outlet:          sub.Outlet,
		SubmittedBy:     sub.SubmittedBy,
		Category:        sub.Category,
		TotalAmount:     result.TotalAmount,
		Items:           result.Items,
		Confidence:      result.Confidence,
		AmountCorrected: result.AmountCorrected,
		OriginalAmount:  result.OriginalAmount,
		NeedsReview:     result.Confidence == extraction.ConfidenceLow || result.AmountCorrected,
		OCRText:         result.OCRText,
		Filename:        savedPath,
		ContentType:     sub.ContentType,
		CreatedAt:       now,
	}

	if err := s.db.SaveEntry(entry); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving entry: %w", err)
	}
	return entry, nil
}

// GetEntry retrieves an entry by ID
func (s *Service) GetEntry(id string) (*Entry, error) {
	entry, err := s.db.GetEntry(id)
	if err != nil {
		return nil, fmt.Errorf("getting entry: %w", err)
	}
	return entry, nil
}

// ListEntries returns all entries
func (s *Service) ListEntries() ([]*Entry, error) {
	entries, err := s.db.ListEntries()
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return entries, nil
}

// ListReviewQueue returns entries flagged for manual review
func (s *Service) ListReviewQueue() ([]*Entry, error) {
	entries, err := s.db.ListReviewEntries()
	if err != nil {
		return nil, fmt.Errorf("listing review entries: %w", err)
	}
	return entries, nil
}

// GetEntryImage retrieves the archived image for an entry
func (s *Service) GetEntryImage(id string) ([]byte, string, error) {
	entry, err := s.db.GetEntry(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting entry: %w", err)
	}
	data, err := s.storage.Get(entry.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("reading image: %w", err)
	}
	return data, entry.ContentType, nil
}

// DeleteEntry removes an entry and its archived image
func (s *Service) DeleteEntry(id string) error {
	entry, err := s.db.GetEntry(id)
	if err != nil {
		return fmt.Errorf("getting entry for deletion: %w", err)
	}

	if err := s.storage.Delete(entry.Filename); err != nil {
		// keep going; the database row is the record of truth
		slog.Warn("Failed to delete image", "filename", entry.Filename, "error", err)
	}

	if err := s.db.DeleteEntry(id); err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	return nil
}
