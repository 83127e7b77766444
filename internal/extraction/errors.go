package extraction

import "errors"

var (
	// ErrNoTextFound means OCR produced no usable text for the image
	ErrNoTextFound = errors.New("no text found in image")

	// ErrGenerativeExtractionFailed means the model returned an explicit
	// error, malformed JSON, or a response missing the required amount
	ErrGenerativeExtractionFailed = errors.New("generative extraction failed")

	// ErrMalformedResponse marks deterministic parse/schema failures that
	// must never be retried
	ErrMalformedResponse = errors.New("malformed generative response")

	// ErrNoAmountDeterminable means both the generative and heuristic paths
	// failed to produce any plausible amount
	ErrNoAmountDeterminable = errors.New("no amount could be determined")
)
