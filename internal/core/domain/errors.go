package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidState        = errors.New("invalid state")
	ErrBookUnavailable     = errors.New("book unavailable")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
)

// Not found errors, one per referenced entity
var (
	ErrAssetNotFound      = fmt.Errorf("asset: %w", ErrNotFound)
	ErrDepartmentNotFound = fmt.Errorf("department: %w", ErrNotFound)
	ErrRoomNotFound       = fmt.Errorf("room: %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user: %w", ErrNotFound)
	ErrCategoryNotFound   = fmt.Errorf("asset category: %w", ErrNotFound)
	ErrBookNotFound       = fmt.Errorf("book: %w", ErrNotFound)
	ErrLoanNotFound       = fmt.Errorf("book loan: %w", ErrNotFound)
)

// Conflict errors
var (
	ErrDuplicateAssetTag = fmt.Errorf("asset tag already exists: %w", ErrConstraintViolation)
	ErrLoanClosed        = fmt.Errorf("loan already closed: %w", ErrInvalidState)
	ErrBookOnLoan        = fmt.Errorf("book already on loan: %w", ErrBookUnavailable)
	ErrBookNotLoanable   = fmt.Errorf("ebooks are not loanable: %w", ErrBookUnavailable)
)

// TransitionError reports an asset operation attempted from a status that does not allow it.
type TransitionError struct {
	From AssetStatus
	Op   AssetTxType
}

func (e *TransitionError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("cannot apply %s: asset not received", e.Op)
	}
	return fmt.Sprintf("cannot apply %s to asset in status %s", e.Op, e.From)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
