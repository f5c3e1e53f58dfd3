package services

import (
	"context"
	"time"

	"schoolhub/internal/adapters/persistence/models"
	"schoolhub/internal/core/domain"

	"gorm.io/gorm"
)

// DashboardService aggregates read-only summaries for the dashboards
type DashboardService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db, now: time.Now}
}

// ============================================================
// Admin Dashboard
// ============================================================

// AdminDashboardData represents admin dashboard data
type AdminDashboardData struct {
	// Users
	UsersByRole map[string]int64 `json:"users_by_role"`

	// Assets, keyed by status; "not_received" counts assets without history
	TotalAssets    int64            `json:"total_assets"`
	AssetsByStatus map[string]int64 `json:"assets_by_status"`

	// Library
	TotalBooks     int64 `json:"total_books"`
	AvailableBooks int64 `json:"available_books"`
	OpenLoans      int64 `json:"open_loans"`
	OverdueLoans   int64 `json:"overdue_loans"`
	LoansThisMonth int64 `json:"loans_this_month"`

	RecentTransactions []TransactionSummary `json:"recent_transactions"`
}

// TransactionSummary represents one asset history row
type TransactionSummary struct {
	ID         uint      `json:"id"`
	AssetID    uint      `json:"asset_id"`
	Type       string    `json:"type"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	CreatedAt  time.Time `json:"created_at"`
}

type groupCount struct {
	Label string
	Total int64
}

// countBy counts the rows of query grouped by column
func countBy(query *gorm.DB, column string) (map[string]int64, error) {
	var rows []groupCount
	err := query.Select(column + " AS label, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Label] = r.Total
	}
	return counts, nil
}

// GetAdminDashboard returns admin dashboard data
func (s *DashboardService) GetAdminDashboard(ctx context.Context) (*AdminDashboardData, error) {
	data := &AdminDashboardData{}
	db := s.db.WithContext(ctx)

	var err error
	data.UsersByRole, err = countBy(db.Model(&models.User{}), "role")
	if err != nil {
		return nil, err
	}

	data.AssetsByStatus, err = countBy(db.Model(&models.Asset{}), "status")
	if err != nil {
		return nil, err
	}
	if n, ok := data.AssetsByStatus[""]; ok {
		delete(data.AssetsByStatus, "")
		data.AssetsByStatus["not_received"] = n
	}
	for _, n := range data.AssetsByStatus {
		data.TotalAssets += n
	}

	today := startOfDay(s.now())
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&data.TotalBooks, db.Model(&models.Book{})},
		{&data.AvailableBooks, db.Model(&models.Book{}).Where("type = ? AND is_available = ?", domain.BookPhysical, true)},
		{&data.OpenLoans, db.Model(&models.BookLoan{}).Where("status = ?", domain.LoanProcessing)},
		{&data.OverdueLoans, db.Model(&models.BookLoan{}).Where("status = ? AND return_date < ?", domain.LoanProcessing, today)},
		{&data.LoansThisMonth, db.Model(&models.BookLoan{}).Where("created_at >= ?", monthStart)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	err = db.Model(&models.AssetTransaction{}).
		Select("id, asset_id, transaction_type AS type, from_status, to_status, created_at").
		Order("id DESC").
		Limit(10).
		Scan(&data.RecentTransactions).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

// ============================================================
// User Dashboard
// ============================================================

// UserDashboardData represents the current user's own summary
type UserDashboardData struct {
	CustodiedAssets []*models.AssetResponse    `json:"custodied_assets"`
	OpenLoans       []*models.BookLoanResponse `json:"open_loans"`
	OverdueLoans    int                        `json:"overdue_loans"`
}

// GetUserDashboard returns the assets a user holds and their open loans
func (s *DashboardService) GetUserDashboard(ctx context.Context, userID uint) (*UserDashboardData, error) {
	db := s.db.WithContext(ctx)

	var assets []*models.Asset
	err := db.Preload("Category").Preload("Department").Preload("Room").
		Where("custodian_id = ?", userID).
		Order("tag").
		Find(&assets).Error
	if err != nil {
		return nil, err
	}

	var loans []*models.BookLoan
	err = db.Preload("Book").
		Where("borrower_id = ? AND status = ?", userID, domain.LoanProcessing).
		Order("return_date").
		Find(&loans).Error
	if err != nil {
		return nil, err
	}

	data := &UserDashboardData{
		CustodiedAssets: make([]*models.AssetResponse, len(assets)),
		OpenLoans:       make([]*models.BookLoanResponse, len(loans)),
	}
	for i, a := range assets {
		data.CustodiedAssets[i] = a.ToResponse()
	}
	now := s.now()
	for i, l := range loans {
		data.OpenLoans[i] = l.ToResponse()
		if l.IsOverdue(now) {
			data.OverdueLoans++
		}
	}

	return data, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
