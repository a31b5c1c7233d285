package apperrors

import "errors"

// Validation failures. Rejected before any write; the caller can retry with
// corrected input.
var (
	ErrInvalidEnum     = errors.New("invalid enumeration value")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidGrade    = errors.New("grade must be between 1.0 and 7.0")
	ErrInvalidQuestion = errors.New("invalid question")
	ErrValidation      = errors.New("validation failed")
)

// Conflicts. Surfaced as-is, never retried automatically.
var (
	ErrDuplicateName       = errors.New("name already in use")
	ErrDuplicateSubmission = errors.New("submission already exists for this work and student")
	ErrConceptInUse        = errors.New("concept is referenced by resources or works")
	ErrResourceInUse       = errors.New("resource is referenced by recommendations")
)

var ErrNotFound = errors.New("not found")

// ErrDependencyFailure marks recommendation generation failing after a grade
// write that is kept. The failure is logged for reconciliation; the grade is
// never dropped.
var ErrDependencyFailure = errors.New("recommendation generation failed")

func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidEnum) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidGrade) ||
		errors.Is(err, ErrInvalidQuestion) ||
		errors.Is(err, ErrValidation)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrDuplicateSubmission) ||
		errors.Is(err, ErrConceptInUse) ||
		errors.Is(err, ErrResourceInUse)
}
