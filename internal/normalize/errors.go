package normalize

import (
	"errors"
	"fmt"
)

// ErrInvalidInputKind is matched (via errors.Is) by every error returned for
// a document that is valid JSON but not an object.
var ErrInvalidInputKind = errors.New("document is not a JSON object")

// ErrUnsupportedBatch is returned by SplitDocuments when the input is
// neither an object nor an array.
var ErrUnsupportedBatch = errors.New("input must be a JSON object or an array of objects")

// ErrorKind categorizes normalization failures.
type ErrorKind string

const (
	// KindInvalidInput means the document decoded to something other than an object.
	KindInvalidInput ErrorKind = "INVALID_INPUT_KIND"

	// KindMalformed means the document is not valid JSON.
	KindMalformed ErrorKind = "MALFORMED_JSON"
)

// Error describes why a document could not be normalized.
type Error struct {
	Kind ErrorKind

	// Got names the JSON kind that was found ("array", "string", ...).
	// Empty for malformed input.
	Got string

	// Err is the decoder error for malformed input.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == KindInvalidInput {
		return fmt.Sprintf("%s: expected object, got %s", e.Kind, e.Got)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes ErrInvalidInputKind or the decoder error.
func (e *Error) Unwrap() error {
	if e.Kind == KindInvalidInput {
		return ErrInvalidInputKind
	}
	return e.Err
}

// IsDocumentError reports whether err is a normalization failure of any kind,
// as opposed to a failure outside the document such as a store error.
func IsDocumentError(err error) bool {
	var ne *Error
	return errors.As(err, &ne)
}
