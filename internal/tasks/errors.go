package tasks

// taskNotFoundError signals an unknown task or group name.
type taskNotFoundError struct{ name string }

func (e taskNotFoundError) Error() string { return "task not found: " + e.name }

// ErrTaskNotFound constructs a taskNotFoundError.
func ErrTaskNotFound(name string) error { return taskNotFoundError{name: name} }

// IsTaskNotFound reports whether the error indicates a missing task name.
func IsTaskNotFound(err error) bool {
	_, ok := err.(taskNotFoundError)
	return ok
}
