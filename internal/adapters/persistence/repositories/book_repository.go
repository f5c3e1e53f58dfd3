package repositories

import (
	"context"
	"time"

	"schoolhub/internal/adapters/persistence/models"
	"schoolhub/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookFilter narrows book listings
type BookFilter struct {
	Type        *string
	IsAvailable *bool
	CampusID    *uint
	Search      string
	Order       string
}

// BookRepository handles book data access
type BookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *BookRepository) WithTx(tx *gorm.DB) *BookRepository {
	return &BookRepository{db: tx}
}

// Create creates a new book
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(book).Error
}

// GetByID gets a book by ID with its location
func (r *BookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).
		Preload("Bookcase").
		Preload("Shelf").
		First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByIDForUpdate gets a book and locks its row until the surrounding transaction ends
func (r *BookRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// SetAvailable sets the availability flag of a book
func (r *BookRepository) SetAvailable(ctx context.Context, id uint, available bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", id).
		Update("is_available", available).Error
}

// PhysicalIDsByAvailability returns the IDs of physical books with the given availability flag
func (r *BookRepository) PhysicalIDsByAvailability(ctx context.Context, available bool) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("type = ? AND is_available = ?", string(domain.BookPhysical), available).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// List lists books with pagination
func (r *BookRepository) List(ctx context.Context, filter BookFilter, offset, limit int) ([]*models.Book, int64, error) {
	var books []*models.Book
	var total int64

	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.filtered(ctx, filter).
		Order(orderOr(filter.Order, "title")).
		Offset(offset).
		Limit(limit).
		Find(&books).Error

	return books, total, err
}

func (r *BookRepository) filtered(ctx context.Context, filter BookFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Book{})
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.IsAvailable != nil {
		query = query.Where("is_available = ?", *filter.IsAvailable)
	}
	if filter.CampusID != nil {
		query = query.Where("campus_id = ?", *filter.CampusID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR author LIKE ? OR isbn LIKE ?", like, like, like)
	}
	return query
}

// LoanFilter narrows loan listings
type LoanFilter struct {
	Status     *string
	BorrowerID *uint
	BookID     *uint
	CampusID   *uint
	Order      string
}

// BookLoanRepository handles book loan data access
type BookLoanRepository struct {
	db *gorm.DB
}

// NewBookLoanRepository creates a new book loan repository
func NewBookLoanRepository(db *gorm.DB) *BookLoanRepository {
	return &BookLoanRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *BookLoanRepository) WithTx(tx *gorm.DB) *BookLoanRepository {
	return &BookLoanRepository{db: tx}
}

// Create creates a new loan
func (r *BookLoanRepository) Create(ctx context.Context, loan *models.BookLoan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(loan).Error
}

// GetByID gets a loan by ID with book and borrower
func (r *BookLoanRepository) GetByID(ctx context.Context, id uint) (*models.BookLoan, error) {
	var loan models.BookLoan
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("Borrower").
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// GetByIDForUpdate gets a loan and locks its row until the surrounding transaction ends
func (r *BookLoanRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.BookLoan, error) {
	var loan models.BookLoan
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// Update saves every column of the loan without touching relations
func (r *BookLoanRepository) Update(ctx context.Context, loan *models.BookLoan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(loan).Error
}

// CountOpenByBookID counts processing loans of a book
func (r *BookLoanRepository) CountOpenByBookID(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BookLoan{}).
		Where("book_id = ? AND status = ?", bookID, string(domain.LoanProcessing)).
		Count(&count).Error
	return count, err
}

// List lists loans with pagination, newest first unless filter.Order is set
func (r *BookLoanRepository) List(ctx context.Context, filter LoanFilter, offset, limit int) ([]*models.BookLoan, int64, error) {
	var loans []*models.BookLoan
	var total int64

	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.filtered(ctx, filter).
		Preload("Book").
		Preload("Borrower").
		Order(orderOr(filter.Order, "id DESC")).
		Offset(offset).
		Limit(limit).
		Find(&loans).Error

	return loans, total, err
}

func (r *BookLoanRepository) filtered(ctx context.Context, filter LoanFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.BookLoan{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.BorrowerID != nil {
		query = query.Where("borrower_id = ?", *filter.BorrowerID)
	}
	if filter.BookID != nil {
		query = query.Where("book_id = ?", *filter.BookID)
	}
	if filter.CampusID != nil {
		query = query.Where("campus_id = ?", *filter.CampusID)
	}
	return query
}

// ListOverdue lists processing loans whose return date is before today
func (r *BookLoanRepository) ListOverdue(ctx context.Context, today time.Time) ([]*models.BookLoan, error) {
	var loans []*models.BookLoan
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("Borrower").
		Where("status = ? AND return_date < ?", string(domain.LoanProcessing), today).
		Order("return_date ASC").
		Find(&loans).Error
	return loans, err
}

// OpenLoanBookIDs returns the IDs of books that have a processing loan
func (r *BookLoanRepository) OpenLoanBookIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.BookLoan{}).
		Where("status = ?", string(domain.LoanProcessing)).
		Distinct().
		Pluck("book_id", &ids).Error
	return ids, err
}
