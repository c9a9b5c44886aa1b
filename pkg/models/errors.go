package models

import "errors"

// Illegal-operation errors. Rule and budget violations are never errors; they
// come back as Violation data so a caller can show every issue at once.
var (
	ErrInvalidTransition = errors.New("transition not legal for current state")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrVersionConflict   = errors.New("version conflict")
	ErrConfirmRequired   = errors.New("destructive change requires confirmation")
)
