package extract

// Result is the outcome of one facet extraction. A Result with a nil Err
// carries an extracted value; otherwise Value holds the facet's empty
// variant and Err records why extraction fell back to it.
type Result[T any] struct {
	Value T
	Err   error
}

// Found wraps a successfully extracted value.
func Found[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Empty wraps the empty variant of a facet together with its cause.
func Empty[T any](empty T, err error) Result[T] {
	return Result[T]{Value: empty, Err: err}
}

// OK reports whether the value was extracted.
func (r Result[T]) OK() bool {
	return r.Err == nil
}
