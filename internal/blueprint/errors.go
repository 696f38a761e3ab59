package blueprint

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no blueprint exists for a template id.
var ErrNotFound = errors.New("blueprint not found")

// LoadError indicates a blueprint resource could not be loaded or parsed.
type LoadError struct {
	TemplateID string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load blueprint %q: %v", e.TemplateID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ValidationError lists the structural or semantic problems of a document.
// Problems are reported in check order; the first entry is the first violation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "blueprint validation failed: " + e.Problems[0]
	}
	return fmt.Sprintf("blueprint validation failed:\n  %s", strings.Join(e.Problems, "\n  "))
}
