package engine

// releasedError signals a Generate attempt through an unloaded instance.
type releasedError struct{ id string }

func (e releasedError) Error() string { return "model instance released: " + e.id }

// ErrReleased constructs a releasedError for the given model.
func ErrReleased(id string) error { return releasedError{id: id} }

// IsReleased reports whether err indicates use of a released instance.
func IsReleased(err error) bool {
	_, ok := err.(releasedError)
	return ok
}

// dependencyUnavailableError signals a missing external dependency (e.g., llama.cpp)
// so callers can surface 503 Service Unavailable instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	_, ok := err.(dependencyUnavailableError)
	return ok
}
