package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrLogNotFound      = errors.New("workout log not found")
	ErrEntryNotFound    = errors.New("progress entry not found")
	ErrRecordNotFound   = errors.New("personal record not found")
	ErrRecordNotBetter  = errors.New("new record must be better than existing record")
	ErrRecordConflict   = errors.New("record replaced concurrently, retry the comparison")
	ErrNoStandards      = errors.New("no strength standards defined for exercise")
)

// ValidationError 数值超出允许范围，进入引擎前直接拒绝，不做静默截断
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
