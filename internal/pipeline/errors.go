package pipeline

import (
	"errors"
	"fmt"
)

// ErrSealed is returned when a unit is attached to an instance whose
// materialization has finished.
var ErrSealed = errors.New("pipeline instance is sealed")

// UnresolvedStepReferenceError reports a reference to a step that is unknown
// or declared later than the step referencing it.
type UnresolvedStepReferenceError struct {
	Step      string
	Field     string
	Reference string
}

func (e *UnresolvedStepReferenceError) Error() string {
	return fmt.Sprintf("step %q: %s references step %q, which is not declared before it", e.Step, e.Field, e.Reference)
}

// UnknownStepTypeError reports a step whose type has no registered handler.
type UnknownStepTypeError struct {
	Step string
	Type string
}

func (e *UnknownStepTypeError) Error() string {
	return fmt.Sprintf("step %q: no handler registered for type %q", e.Step, e.Type)
}

// StepError wraps an execution failure of a single unit.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
