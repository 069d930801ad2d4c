package errors

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound     = errors.New("file not found")
	ErrParse            = errors.New("parse error")
	ErrKeyNotFound      = errors.New("key not found")
	ErrRowCountMismatch = errors.New("row count mismatch")
	ErrInvalidInput     = errors.New("invalid input")
	ErrSink             = errors.New("result sink failed")
)

// Process exit codes, one per failure class so that wrapper scripts can tell
// a missing input from corrupt data.
const (
	ExitOK               = 0
	ExitInternal         = 1
	ExitInvalidInput     = 2
	ExitFileNotFound     = 3
	ExitParse            = 4
	ExitKeyNotFound      = 5
	ExitRowCountMismatch = 6
	ExitSink             = 7
)

// AppError attaches the failing stage and a diagnostic (file, line, key) to
// one of the sentinel errors above.
type AppError struct {
	Err     error
	Stage   string
	Message string
}

func (e *AppError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, stage string, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Stage:   stage,
		Message: message,
	}
}

func Newf(sentinel error, stage string, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithStage stamps stage onto err when it is an AppError without one. Other
// errors are wrapped so the stage still shows up in the diagnostic.
func WithStage(err error, stage string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Stage == "" {
			appErr.Stage = stage
		}
		return err
	}
	return fmt.Errorf("%s: %w", stage, err)
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch {
	case errors.Is(err, ErrFileNotFound):
		return ExitFileNotFound
	case errors.Is(err, ErrParse):
		return ExitParse
	case errors.Is(err, ErrKeyNotFound):
		return ExitKeyNotFound
	case errors.Is(err, ErrRowCountMismatch):
		return ExitRowCountMismatch
	case errors.Is(err, ErrInvalidInput):
		return ExitInvalidInput
	case errors.Is(err, ErrSink):
		return ExitSink
	default:
		return ExitInternal
	}
}
