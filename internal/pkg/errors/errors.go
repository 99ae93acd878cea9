package errors

import (
	"fmt"
)

const (
	CodeInsufficientExamples = "INSUFFICIENT_EXAMPLES"
	CodeInvalidConfig        = "INVALID_CONFIG"
	CodeMalformedInput       = "MALFORMED_INPUT"
	CodeInternalError        = "INTERNAL_ERROR"
)

const (
	ExitInternal     = 1
	ExitInvalidInput = 2
	ExitInsufficient = 3
)

var (
	// ErrInsufficientExamples is returned when a build produced fewer windows than a model can be trained on.
	ErrInsufficientExamples = New(ExitInsufficient, CodeInsufficientExamples, "insufficient examples to train")

	// ErrInvalidConfig is returned when build options are out of range.
	ErrInvalidConfig = New(ExitInvalidInput, CodeInvalidConfig, "invalid configuration: some or all build options are invalid")

	// ErrMalformedInput is returned when an input file cannot be turned into a tick table.
	ErrMalformedInput = New(ExitInvalidInput, CodeMalformedInput, "malformed input")
)

type Extras map[string]interface{}

type BuildError struct {
	ExitCode  int
	ErrorCode string
	Message   string
	Extras    *Extras
}

func New(exitCode int, errorCode string, message string) *BuildError {
	return &BuildError{
		ExitCode:  exitCode,
		ErrorCode: errorCode,
		Message:   message,
	}
}

func (e BuildError) WithMessage(format string, parts ...interface{}) *BuildError {
	e.Message = fmt.Sprintf(format, parts...)
	return &e
}

func (e BuildError) WithExtras(extras Extras) *BuildError {
	e.Extras = &extras
	return &e
}

func NewInvalidViolations(violations interface{}) *BuildError {
	return ErrInvalidConfig.WithExtras(Extras{
		"violations": violations,
	})
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

// Is matches any BuildError carrying the same error code, so that sentinel
// comparisons survive WithMessage and WithExtras copies.
func (e *BuildError) Is(target error) bool {
	t, ok := target.(*BuildError)
	if !ok {
		return false
	}
	return e.ErrorCode == t.ErrorCode
}
