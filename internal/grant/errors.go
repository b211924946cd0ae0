package grant

import (
	"errors"
	"strings"
)

var (
	// ErrMissingAttribute matches any *MissingAttributeError.
	ErrMissingAttribute = errors.New("missing required attribute")

	// ErrSigning is returned when a request cannot be signed.
	ErrSigning = errors.New("cannot sign request")

	// ErrUnsupportedScheme is returned for token types no variant handles.
	ErrUnsupportedScheme = errors.New("unsupported token type")
)

// MissingAttributeError lists every required attribute absent at construction.
type MissingAttributeError struct {
	Attributes []string
}

func (e *MissingAttributeError) Error() string {
	return "missing required attributes: " + strings.Join(e.Attributes, ", ")
}

// Is makes errors.Is(err, ErrMissingAttribute) match.
func (e *MissingAttributeError) Is(target error) bool {
	return target == ErrMissingAttribute
}
