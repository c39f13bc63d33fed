package runner

// runBusyError signals that another run is active, for 409 mapping.
type runBusyError struct{}

func (runBusyError) Error() string { return "a run is already active" }

// ErrRunBusy constructs a runBusyError.
func ErrRunBusy() error { return runBusyError{} }

// IsRunBusy reports whether err indicates a concurrent-run rejection.
func IsRunBusy(err error) bool {
	_, ok := err.(runBusyError)
	return ok
}

// modelNotFoundError signals a model id absent from the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// judgeModelRequiredError signals judge-metric tasks without a judge model.
type judgeModelRequiredError struct{ task string }

func (e judgeModelRequiredError) Error() string {
	return "task " + e.task + " uses the judge metric but no judge model is configured"
}

// IsJudgeModelRequired reports whether err indicates a missing judge model.
func IsJudgeModelRequired(err error) bool {
	_, ok := err.(judgeModelRequiredError)
	return ok
}
