package ocr

import "context"

// Recognizer defines the interface for optical character recognition.
// Implementations must tolerate images with no recognizable text and return
// an empty string rather than an error.
type Recognizer interface {
	// RecognizeText returns a best-effort transcription of the image
	RecognizeText(ctx context.Context, image []byte) (string, error)

	// Close releases recognizer resources
	Close() error
}
