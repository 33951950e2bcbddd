package hexgrid

import "fmt"

// ValidationError reports a malformed or missing request field. It fails
// the affected request immediately; no retry.
type ValidationError struct {
	Field string
	Value interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %s: %v", e.Field, e.Value)
}

// DataProcessingError reports inconsistent or insufficient column/lattice
// data during classification. It aborts only the affected region/side pair.
type DataProcessingError struct {
	Op  string
	Err error
}

func (e *DataProcessingError) Error() string {
	return fmt.Sprintf("data processing failed in %s: %v", e.Op, e.Err)
}

func (e *DataProcessingError) Unwrap() error { return e.Err }

// RenderingError reports a template or raster failure. It aborts only the
// affected artifact.
type RenderingError struct {
	Op  string
	Err error
}

func (e *RenderingError) Error() string {
	return fmt.Sprintf("rendering failed in %s: %v", e.Op, e.Err)
}

func (e *RenderingError) Unwrap() error { return e.Err }

// PerformanceError reports a cache or instrumentation failure. It is always
// non-fatal: callers log it and proceed as if caching were disabled.
type PerformanceError struct {
	Op  string
	Err error
}

func (e *PerformanceError) Error() string {
	return fmt.Sprintf("performance layer failed in %s: %v", e.Op, e.Err)
}

func (e *PerformanceError) Unwrap() error { return e.Err }
