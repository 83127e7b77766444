package ledger

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/outletops/receipt-ledger/internal/extraction"
)

// maxImageBytes caps receipt uploads; callers should resize anything larger
const maxImageBytes = int64(10 << 20) // 10MB

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// handleSubmitReceipt accepts a multipart receipt upload and runs the
// extraction pipeline
func (s *Server) handleSubmitReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		msg := "Error parsing form"
		if strings.Contains(err.Error(), "request body too large") {
			msg = "File is too large. Maximum size is 10MB. Please compress or resize your image."
		}
		jsonError(w, msg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxImageBytes {
		jsonError(w, "File is too large. Maximum size is 10MB. Please compress or resize your image.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFromExt(header.Filename)
	}

	sub := Submission{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
		Category:    extraction.Category(r.FormValue("category")),
		Outlet:      r.FormValue("outlet"),
		SubmittedBy: r.FormValue("submitted_by"),
	}

	entry, err := s.service.SubmitReceipt(r.Context(), sub)
	if err != nil {
		if errors.Is(err, extraction.ErrNoAmountDeterminable) {
			jsonError(w, "Could not extract an amount from this receipt. Please retake the photo with better lighting and framing.", http.StatusUnprocessableEntity)
			return
		}
		if strings.Contains(err.Error(), "unknown category") {
			jsonError(w, "Unknown category. Use 'itemized' or 'single-amount'.", http.StatusBadRequest)
			return
		}
		slog.Error("Error processing receipt", "error", err, "filename", header.Filename)
		jsonError(w, "Error processing receipt", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(entry); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// contentTypeFromExt maps common receipt file extensions to MIME types
func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic", ".heif":
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}

// handleListEntries returns all ledger entries
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.ListEntries()
	if err != nil {
		slog.Error("Error listing entries", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleListReviewQueue returns entries flagged for manual review
func (s *Server) handleListReviewQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.ListReviewQueue()
	if err != nil {
		slog.Error("Error listing review queue", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetEntry returns one entry by ID
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.GetEntry(r.PathValue("id"))
	if err != nil {
		jsonError(w, "Entry not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entry); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetEntryImage serves the archived receipt image
func (s *Server) handleGetEntryImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetEntryImage(r.PathValue("id"))
	if err != nil {
		jsonError(w, "Image not found", http.StatusNotFound)
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteEntry removes an entry and its image
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteEntry(r.PathValue("id")); err != nil {
		jsonError(w, "Entry not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
