package model

import (
	"errors"
	"fmt"
)

// Model errors.
var (
	ErrPivotTableDegenerate = errors.New("pivot table has no entries")
	ErrParamIndexOutOfRange = errors.New("parameter index out of range")
	ErrUnexpectedRoot       = errors.New("model root is not a ModelImpl")
	ErrInvalidModel         = errors.New("invalid model data")
	ErrUnknownTarget        = errors.New("unknown deformer target")
	ErrTargetCycle          = errors.New("deformer targets form a cycle")
)

// ParamIndexError reports a reference to a parameter that is not
// registered. The Context panics with it: such a reference is a wiring bug
// in the caller, not a runtime condition.
type ParamIndexError struct {
	Index int
	ID    ParamID
	Len   int
}

func (e *ParamIndexError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: id %q is not registered", ErrParamIndexOutOfRange, e.ID)
	}
	return fmt.Sprintf("%s: index %d, %d parameters", ErrParamIndexOutOfRange, e.Index, e.Len)
}

func (e *ParamIndexError) Unwrap() error { return ErrParamIndexOutOfRange }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidModel, fmt.Sprintf(format, args...))
}
