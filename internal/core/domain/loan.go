package domain

import "fmt"

// BookType distinguishes shelf copies from digital titles.
type BookType string

const (
	BookPhysical BookType = "physical"
	BookEbook    BookType = "ebook"
)

// Valid reports whether t is a known book type.
func (t BookType) Valid() bool {
	return t == BookPhysical || t == BookEbook
}

// Loanable reports whether books of this type go through loan bookkeeping.
func (t BookType) Loanable() bool {
	return t == BookPhysical
}

// LoanStatus is the status of a book loan.
type LoanStatus string

const (
	LoanProcessing LoanStatus = "processing"
	LoanReturned   LoanStatus = "returned"
	LoanCanceled   LoanStatus = "canceled"
)

// Valid reports whether s is a known loan status.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanProcessing, LoanReturned, LoanCanceled:
		return true
	}
	return false
}

// IsOpen reports whether the loan still holds its book.
func (s LoanStatus) IsOpen() bool {
	return s == LoanProcessing
}

// Close validates moving a loan from s to the closing status to.
func (s LoanStatus) Close(to LoanStatus) error {
	if to != LoanReturned && to != LoanCanceled {
		return fmt.Errorf("%q is not a closing loan status: %w", to, ErrInvalidInput)
	}
	if !s.IsOpen() {
		return fmt.Errorf("loan is %s: %w", s, ErrLoanClosed)
	}
	return nil
}

// ParseLoanStatus converts a query value into a LoanStatus.
func ParseLoanStatus(v string) (LoanStatus, error) {
	s := LoanStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown loan status %q: %w", v, ErrInvalidInput)
	}
	return s, nil
}
