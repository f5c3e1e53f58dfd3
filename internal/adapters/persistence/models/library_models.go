package models

import (
	"time"

	"schoolhub/internal/core/domain"
)

// ============================================================
// Library
// ============================================================

// Bookcase ตู้หนังสือ
type Bookcase struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CampusID  *uint     `gorm:"index" json:"campus_id"`
	RoomID    *uint     `json:"room_id"`
	Code      string    `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Bookcase) TableName() string {
	return "bookcases"
}

// Shelf ชั้นวาง (belongs to a bookcase)
type Shelf struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BookcaseID uint      `gorm:"not null;index" json:"bookcase_id"`
	Code       string    `gorm:"size:20;not null" json:"code"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Shelf) TableName() string {
	return "shelves"
}

// Book catalog entry. IsAvailable is only meaningful for physical books.
type Book struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Author      string    `gorm:"size:150" json:"author"`
	ISBN        string    `gorm:"size:20;index" json:"isbn"`
	Publisher   string    `gorm:"size:150" json:"publisher"`
	Type        string    `gorm:"size:20;not null" json:"type"`
	IsAvailable bool      `gorm:"not null" json:"is_available"`
	CampusID    *uint     `gorm:"index" json:"campus_id"`
	BookcaseID  *uint     `json:"bookcase_id"`
	ShelfID     *uint     `json:"shelf_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Bookcase *Bookcase `gorm:"foreignKey:BookcaseID" json:"bookcase,omitempty"`
	Shelf    *Shelf    `gorm:"foreignKey:ShelfID" json:"shelf,omitempty"`
}

func (Book) TableName() string {
	return "books"
}

// Loanable reports whether the book goes through loan bookkeeping.
func (b *Book) Loanable() bool {
	return domain.BookType(b.Type).Loanable()
}

// BookLoan การยืมหนังสือ
type BookLoan struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	BookID     uint       `gorm:"not null;index" json:"book_id"`
	BorrowerID uint       `gorm:"not null;index" json:"borrower_id"`
	ReturnDate time.Time  `gorm:"type:date;not null" json:"return_date"`
	Status     string     `gorm:"size:20;not null;index" json:"status"`
	CampusID   *uint      `gorm:"index" json:"campus_id"`
	IssuedBy   uint       `gorm:"not null" json:"issued_by"`
	ClosedBy   *uint      `json:"closed_by"`
	ReturnedAt *time.Time `json:"returned_at"`
	CanceledAt *time.Time `json:"canceled_at"`
	Note       string     `gorm:"type:text" json:"note"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Book     *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Borrower *User `gorm:"foreignKey:BorrowerID" json:"borrower,omitempty"`
}

func (BookLoan) TableName() string {
	return "book_loans"
}

// IsOverdue reports whether an open loan is past its return date on day now.
func (l *BookLoan) IsOverdue(now time.Time) bool {
	if !domain.LoanStatus(l.Status).IsOpen() {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return l.ReturnDate.Before(today)
}

// BookLoanResponse DTO
type BookLoanResponse struct {
	ID           uint       `json:"id"`
	BookID       uint       `json:"book_id"`
	BookTitle    string     `json:"book_title,omitempty"`
	BorrowerID   uint       `json:"borrower_id"`
	BorrowerName string     `json:"borrower_name,omitempty"`
	ReturnDate   string     `json:"return_date"`
	Status       string     `json:"status"`
	Overdue      bool       `json:"overdue"`
	CampusID     *uint      `json:"campus_id"`
	IssuedBy     uint       `json:"issued_by"`
	ClosedBy     *uint      `json:"closed_by"`
	ReturnedAt   *time.Time `json:"returned_at"`
	CanceledAt   *time.Time `json:"canceled_at"`
	Note         string     `json:"note"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (l *BookLoan) ToResponse() *BookLoanResponse {
	resp := &BookLoanResponse{
		ID:         l.ID,
		BookID:     l.BookID,
		BorrowerID: l.BorrowerID,
		ReturnDate: l.ReturnDate.Format("2006-01-02"),
		Status:     l.Status,
		Overdue:    l.IsOverdue(time.Now()),
		CampusID:   l.CampusID,
		IssuedBy:   l.IssuedBy,
		ClosedBy:   l.ClosedBy,
		ReturnedAt: l.ReturnedAt,
		CanceledAt: l.CanceledAt,
		Note:       l.Note,
		CreatedAt:  l.CreatedAt,
	}

	if l.Book != nil {
		resp.BookTitle = l.Book.Title
	}
	if l.Borrower != nil {
		resp.BorrowerName = l.Borrower.FullName
	}

	return resp
}
