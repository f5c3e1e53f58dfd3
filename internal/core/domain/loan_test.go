package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoanStatus_Close(t *testing.T) {
	assert.NoError(t, LoanProcessing.Close(LoanReturned))
	assert.NoError(t, LoanProcessing.Close(LoanCanceled))

	err := LoanReturned.Close(LoanCanceled)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, err, ErrLoanClosed)

	assert.ErrorIs(t, LoanCanceled.Close(LoanReturned), ErrInvalidState)
	assert.ErrorIs(t, LoanProcessing.Close(LoanProcessing), ErrInvalidInput)
}

func TestBookType_Loanable(t *testing.T) {
	assert.True(t, BookPhysical.Loanable())
	assert.False(t, BookEbook.Loanable())
	assert.False(t, BookType("audio").Valid())
}

func TestParseLoanStatus(t *testing.T) {
	s, err := ParseLoanStatus("returned")
	assert.NoError(t, err)
	assert.Equal(t, LoanReturned, s)

	_, err = ParseLoanStatus("lost")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestErrorTaxonomy(t *testing.T) {
	assert.ErrorIs(t, ErrAssetNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrBookOnLoan, ErrBookUnavailable)
	assert.ErrorIs(t, ErrBookNotLoanable, ErrBookUnavailable)
	assert.ErrorIs(t, ErrDuplicateAssetTag, ErrConstraintViolation)
	assert.NotErrorIs(t, ErrLoanClosed, ErrBookUnavailable)
}
