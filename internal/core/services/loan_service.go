package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"schoolhub/internal/adapters/persistence/models"
	"schoolhub/internal/adapters/persistence/repositories"
	"schoolhub/internal/config"
	"schoolhub/internal/core/domain"
	"schoolhub/internal/pkg/metrics"

	"gorm.io/gorm"
)

// dateLayout is the wire format of loan return dates
const dateLayout = "2006-01-02"

// LoanService handles book loan bookkeeping. A physical book is unavailable exactly
// while it has a processing loan; both sides change in one transaction that holds the
// book row lock.
type LoanService struct {
	db       *gorm.DB
	bookRepo *repositories.BookRepository
	loanRepo *repositories.BookLoanRepository
	userRepo repositories.UserRepository
	library  config.LibraryConfig
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewLoanService creates a new loan service
func NewLoanService(
	db *gorm.DB,
	bookRepo *repositories.BookRepository,
	loanRepo *repositories.BookLoanRepository,
	userRepo repositories.UserRepository,
	library config.LibraryConfig,
	m *metrics.Metrics,
) *LoanService {
	return &LoanService{
		db:       db,
		bookRepo: bookRepo,
		loanRepo: loanRepo,
		userRepo: userRepo,
		library:  library,
		metrics:  m,
		now:      time.Now,
	}
}

// IssueLoanInput represents issue loan input. ReturnDate defaults to the configured loan period.
type IssueLoanInput struct {
	BookID     uint   `json:"book_id" validate:"required"`
	BorrowerID uint   `json:"borrower_id" validate:"required"`
	ReturnDate string `json:"return_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	CampusID   *uint  `json:"campus_id,omitempty"`
	Note       string `json:"note,omitempty"`
}

// CloseLoanInput carries an optional note for return and cancel
type CloseLoanInput struct {
	Note string `json:"note,omitempty"`
}

// Issue lends a physical book to a borrower
func (s *LoanService) Issue(ctx context.Context, input *IssueLoanInput, issuedBy uint) (*models.BookLoan, error) {
	loan, err := s.issue(ctx, input, issuedBy)
	s.metrics.LoanOperation("issue", outcome(err))
	if err != nil {
		return nil, err
	}

	log.Printf("📚 Loan %d issued: book %d to user %d until %s", loan.ID, loan.BookID, loan.BorrowerID, loan.ReturnDate.Format(dateLayout))
	return loan, nil
}

func (s *LoanService) issue(ctx context.Context, input *IssueLoanInput, issuedBy uint) (*models.BookLoan, error) {
	returnDate, err := s.returnDate(input.ReturnDate)
	if err != nil {
		return nil, err
	}

	var loan *models.BookLoan
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := s.bookRepo.WithTx(tx)
		loans := s.loanRepo.WithTx(tx)

		book, err := books.GetByIDForUpdate(ctx, input.BookID)
		if err != nil {
			return notFound(err, domain.ErrBookNotFound)
		}
		if !book.Loanable() {
			return domain.ErrBookNotLoanable
		}
		if !book.IsAvailable {
			return domain.ErrBookOnLoan
		}
		open, err := loans.CountOpenByBookID(ctx, book.ID)
		if err != nil {
			return err
		}
		if open > 0 {
			return domain.ErrBookOnLoan
		}

		users := s.userRepo.WithTx(tx)
		if _, err := users.GetByID(ctx, input.BorrowerID); err != nil {
			return notFound(err, domain.ErrUserNotFound)
		}
		if _, err := users.GetByID(ctx, issuedBy); err != nil {
			return notFound(err, domain.ErrUserNotFound)
		}

		campusID := input.CampusID
		if campusID == nil {
			campusID = book.CampusID
		}

		loan = &models.BookLoan{
			BookID:     book.ID,
			BorrowerID: input.BorrowerID,
			ReturnDate: returnDate,
			Status:     string(domain.LoanProcessing),
			CampusID:   campusID,
			IssuedBy:   issuedBy,
			Note:       input.Note,
		}
		if err := loans.Create(ctx, loan); err != nil {
			return constraint(err, domain.ErrConstraintViolation)
		}

		return books.SetAvailable(ctx, book.ID, false)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// returnDate parses the requested due date or falls back to the default loan period
func (s *LoanService) returnDate(v string) (time.Time, error) {
	today := s.today()
	if v == "" {
		return today.AddDate(0, 0, s.library.DefaultLoanDays), nil
	}

	due, err := time.ParseInLocation(dateLayout, v, today.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("return_date must be YYYY-MM-DD: %w", domain.ErrInvalidInput)
	}
	if due.Before(today) {
		return time.Time{}, fmt.Errorf("return_date %s is in the past: %w", v, domain.ErrInvalidInput)
	}
	if s.library.MaxLoanDays > 0 && due.After(today.AddDate(0, 0, s.library.MaxLoanDays)) {
		return time.Time{}, fmt.Errorf("return_date %s exceeds %d days: %w", v, s.library.MaxLoanDays, domain.ErrInvalidInput)
	}
	return due, nil
}

// today is the start of the current day
func (s *LoanService) today() time.Time {
	now := s.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// Return closes a loan because the book came back
func (s *LoanService) Return(ctx context.Context, loanID uint, input *CloseLoanInput, userID uint) (*models.BookLoan, error) {
	loan, err := s.close(ctx, loanID, domain.LoanReturned, input.Note, userID)
	s.metrics.LoanOperation("return", outcome(err))
	if err != nil {
		return nil, err
	}

	log.Printf("📚 Loan %d returned: book %d", loan.ID, loan.BookID)
	return loan, nil
}

// Cancel closes a loan that should not have been issued
func (s *LoanService) Cancel(ctx context.Context, loanID uint, input *CloseLoanInput, userID uint) (*models.BookLoan, error) {
	loan, err := s.close(ctx, loanID, domain.LoanCanceled, input.Note, userID)
	s.metrics.LoanOperation("cancel", outcome(err))
	if err != nil {
		return nil, err
	}

	log.Printf("📚 Loan %d canceled: book %d", loan.ID, loan.BookID)
	return loan, nil
}

// close locks the book, then the loan, closes the loan and frees the book
func (s *LoanService) close(ctx context.Context, loanID uint, to domain.LoanStatus, note string, userID uint) (*models.BookLoan, error) {
	var loan *models.BookLoan

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := s.bookRepo.WithTx(tx)
		loans := s.loanRepo.WithTx(tx)

		// book_id never changes, so an unlocked read is enough to find the book
		current, err := loans.GetByID(ctx, loanID)
		if err != nil {
			return notFound(err, domain.ErrLoanNotFound)
		}

		book, err := books.GetByIDForUpdate(ctx, current.BookID)
		if err != nil {
			return notFound(err, domain.ErrBookNotFound)
		}

		loan, err = loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return notFound(err, domain.ErrLoanNotFound)
		}

		if err := domain.LoanStatus(loan.Status).Close(to); err != nil {
			return err
		}
		if _, err := s.userRepo.WithTx(tx).GetByID(ctx, userID); err != nil {
			return notFound(err, domain.ErrUserNotFound)
		}

		now := s.now()
		loan.Status = string(to)
		loan.ClosedBy = &userID
		if to == domain.LoanReturned {
			loan.ReturnedAt = &now
		} else {
			loan.CanceledAt = &now
		}
		if note != "" {
			loan.Note = note
		}

		if err := loans.Update(ctx, loan); err != nil {
			return err
		}
		return books.SetAvailable(ctx, book.ID, true)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// GetByID gets a loan by ID
func (s *LoanService) GetByID(ctx context.Context, id uint) (*models.BookLoan, error) {
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrLoanNotFound)
	}
	return loan, nil
}

// ListLoansInput represents list loans input
type ListLoansInput struct {
	Status     string
	BorrowerID *uint
	BookID     *uint
	CampusID   *uint
	Offset     int
	Limit      int
	Order      string
}

// List lists loans, newest first unless Order is set
func (s *LoanService) List(ctx context.Context, input *ListLoansInput) ([]*models.BookLoan, int64, error) {
	filter := repositories.LoanFilter{
		BorrowerID: input.BorrowerID,
		BookID:     input.BookID,
		CampusID:   input.CampusID,
		Order:      input.Order,
	}
	if input.Status != "" {
		status, err := domain.ParseLoanStatus(input.Status)
		if err != nil {
			return nil, 0, err
		}
		v := string(status)
		filter.Status = &v
	}

	return s.loanRepo.List(ctx, filter, input.Offset, input.Limit)
}

// ListByBorrower lists the loans of one borrower
func (s *LoanService) ListByBorrower(ctx context.Context, borrowerID uint, offset, limit int) ([]*models.BookLoan, int64, error) {
	return s.List(ctx, &ListLoansInput{BorrowerID: &borrowerID, Offset: offset, Limit: limit})
}

// ListByBook lists the loan history of one book
func (s *LoanService) ListByBook(ctx context.Context, bookID uint, offset, limit int) ([]*models.BookLoan, int64, error) {
	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		return nil, 0, notFound(err, domain.ErrBookNotFound)
	}
	return s.List(ctx, &ListLoansInput{BookID: &bookID, Offset: offset, Limit: limit})
}

// ListOverdue lists processing loans whose return date has passed
func (s *LoanService) ListOverdue(ctx context.Context) ([]*models.BookLoan, error) {
	return s.loanRepo.ListOverdue(ctx, s.today())
}

// GetBook gets a book by ID
func (s *LoanService) GetBook(ctx context.Context, id uint) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrBookNotFound)
	}
	return book, nil
}

// ListBooksInput represents list books input
type ListBooksInput struct {
	Type        string
	IsAvailable *bool
	CampusID    *uint
	Search      string
	Offset      int
	Limit       int
	Order       string
}

// ListBooks lists the catalog
func (s *LoanService) ListBooks(ctx context.Context, input *ListBooksInput) ([]*models.Book, int64, error) {
	filter := repositories.BookFilter{
		IsAvailable: input.IsAvailable,
		CampusID:    input.CampusID,
		Search:      input.Search,
		Order:       input.Order,
	}
	if input.Type != "" {
		if !domain.BookType(input.Type).Valid() {
			return nil, 0, fmt.Errorf("unknown book type %q: %w", input.Type, domain.ErrInvalidInput)
		}
		filter.Type = &input.Type
	}

	return s.bookRepo.List(ctx, filter, input.Offset, input.Limit)
}

// AvailabilityMismatches returns the physical books whose availability flag disagrees
// with their open loans
func (s *LoanService) AvailabilityMismatches(ctx context.Context) ([]uint, error) {
	unavailable, err := s.bookRepo.PhysicalIDsByAvailability(ctx, false)
	if err != nil {
		return nil, err
	}
	onLoan, err := s.loanRepo.OpenLoanBookIDs(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]int, len(unavailable)+len(onLoan))
	for _, id := range unavailable {
		seen[id]++
	}
	for _, id := range onLoan {
		seen[id]++
	}

	mismatched := []uint{}
	for id, n := range seen {
		if n == 1 {
			mismatched = append(mismatched, id)
		}
	}
	sort.Slice(mismatched, func(i, j int) bool { return mismatched[i] < mismatched[j] })
	return mismatched, nil
}
