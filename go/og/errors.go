package og

import "fmt"

// LoadError is returned when the background template cannot be decoded.
type LoadError struct{ Err error }

// Error implements the error interface.
func (e *LoadError) Error() string { return fmt.Sprintf("loading background: %v", e.Err) }

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error { return e.Err }

// Is is used by errors.Is() to match any *LoadError.
func (e *LoadError) Is(err error) bool {
	_, ok := err.(*LoadError)
	return ok
}

// EncodeError is returned when the composited canvas cannot be serialized.
type EncodeError struct{ Err error }

// Error implements the error interface.
func (e *EncodeError) Error() string { return fmt.Sprintf("encoding image: %v", e.Err) }

// Unwrap returns the underlying error.
func (e *EncodeError) Unwrap() error { return e.Err }

// Is is used by errors.Is() to match any *EncodeError.
func (e *EncodeError) Is(err error) bool {
	_, ok := err.(*EncodeError)
	return ok
}

// CacheWriteError records a failed store write. It never fails a render.
type CacheWriteError struct {
	Key string
	Err error
}

// Error implements the error interface.
func (e *CacheWriteError) Error() string { return fmt.Sprintf("storing image: %v", e.Err) }

// Unwrap returns the underlying error.
func (e *CacheWriteError) Unwrap() error { return e.Err }

// Is is used by errors.Is() to match any *CacheWriteError.
func (e *CacheWriteError) Is(err error) bool {
	_, ok := err.(*CacheWriteError)
	return ok
}

// DrawError is returned when rasterizing text onto the canvas fails.
type DrawError struct {
	Text string
	Err  error
}

// Error implements the error interface.
func (e *DrawError) Error() string { return fmt.Sprintf("drawing %q: %v", e.Text, e.Err) }

// Unwrap returns the underlying error.
func (e *DrawError) Unwrap() error { return e.Err }

// Is is used by errors.Is() to match any *DrawError.
func (e *DrawError) Is(err error) bool {
	_, ok := err.(*DrawError)
	return ok
}
