package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"schoolhub/internal/adapters/persistence/models"
	"schoolhub/internal/adapters/persistence/repositories"
	"schoolhub/internal/config"
	"schoolhub/internal/core/domain"
	"schoolhub/internal/pkg/metrics"

	"gorm.io/gorm"
)

// AssetService handles the asset lifecycle. Every state change runs in one database
// transaction that locks the asset row, writes a history row and updates the asset.
type AssetService struct {
	db         *gorm.DB
	assetRepo  *repositories.AssetRepository
	txRepo     *repositories.AssetTransactionRepository
	masterRepo *repositories.MasterRepository
	userRepo   repositories.UserRepository
	holding    config.AssetConfig
	metrics    *metrics.Metrics
}

// NewAssetService creates a new asset service
func NewAssetService(
	db *gorm.DB,
	assetRepo *repositories.AssetRepository,
	txRepo *repositories.AssetTransactionRepository,
	masterRepo *repositories.MasterRepository,
	userRepo repositories.UserRepository,
	holding config.AssetConfig,
	m *metrics.Metrics,
) *AssetService {
	return &AssetService{
		db:         db,
		assetRepo:  assetRepo,
		txRepo:     txRepo,
		masterRepo: masterRepo,
		userRepo:   userRepo,
		holding:    holding,
		metrics:    m,
	}
}

// RegisterAssetInput represents register asset input
type RegisterAssetInput struct {
	Tag             string     `json:"tag" validate:"required,max=50"`
	SerialNumber    string     `json:"serial_number,omitempty" validate:"max=100"`
	Name            string     `json:"name" validate:"required,max=200"`
	CategoryID      *uint      `json:"category_id,omitempty"`
	SubcategoryID   *uint      `json:"subcategory_id,omitempty"`
	PurchaseOrderID *uint      `json:"purchase_order_id,omitempty"`
	SupplierID      *uint      `json:"supplier_id,omitempty"`
	PurchaseDate    *time.Time `json:"purchase_date,omitempty"`
	Cost            float64    `json:"cost" validate:"gte=0"`
	WarrantyExpiry  *time.Time `json:"warranty_expiry,omitempty"`
	Condition       string     `json:"condition" validate:"required,oneof=new secondhand"`
	Notes           string     `json:"notes,omitempty"`
}

// LocationInput represents the target of receive and transfer
type LocationInput struct {
	DepartmentID uint   `json:"department_id" validate:"required"`
	RoomID       *uint  `json:"room_id,omitempty"`
	Note         string `json:"note,omitempty"`
}

// AllocateInput represents allocate input
type AllocateInput struct {
	DepartmentID uint   `json:"department_id" validate:"required"`
	RoomID       *uint  `json:"room_id,omitempty"`
	CustodianID  uint   `json:"custodian_id" validate:"required"`
	Note         string `json:"note,omitempty"`
}

// ReturnAssetInput represents return input. Department and room override the holding location.
type ReturnAssetInput struct {
	DepartmentID *uint  `json:"department_id,omitempty"`
	RoomID       *uint  `json:"room_id,omitempty"`
	Note         string `json:"note,omitempty"`
}

// NoteInput carries an optional note for status-only operations
type NoteInput struct {
	Note string `json:"note,omitempty"`
}

// ReportInput represents an administrative lost/damaged report
type ReportInput struct {
	Status string `json:"status" validate:"required,oneof=lost damaged"`
	Note   string `json:"note,omitempty"`
}

// Register creates an asset record that has not been received yet
func (s *AssetService) Register(ctx context.Context, input *RegisterAssetInput, userID uint) (*models.Asset, error) {
	if !domain.AssetCondition(input.Condition).Valid() {
		return nil, fmt.Errorf("unknown condition %q: %w", input.Condition, domain.ErrInvalidInput)
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}

	if input.CategoryID != nil {
		if _, err := s.masterRepo.GetCategory(ctx, *input.CategoryID); err != nil {
			return nil, notFound(err, domain.ErrCategoryNotFound)
		}
	}
	if input.SubcategoryID != nil {
		sub, err := s.masterRepo.GetCategory(ctx, *input.SubcategoryID)
		if err != nil {
			return nil, notFound(err, domain.ErrCategoryNotFound)
		}
		if input.CategoryID == nil || sub.ParentID == nil || *sub.ParentID != *input.CategoryID {
			return nil, fmt.Errorf("subcategory %d is not under the given category: %w", sub.ID, domain.ErrInvalidInput)
		}
	}

	exists, err := s.assetRepo.ExistsByTag(ctx, input.Tag)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateAssetTag
	}

	asset := &models.Asset{
		Tag:             input.Tag,
		SerialNumber:    input.SerialNumber,
		Name:            input.Name,
		CategoryID:      input.CategoryID,
		SubcategoryID:   input.SubcategoryID,
		PurchaseOrderID: input.PurchaseOrderID,
		SupplierID:      input.SupplierID,
		PurchaseDate:    input.PurchaseDate,
		Cost:            input.Cost,
		WarrantyExpiry:  input.WarrantyExpiry,
		Condition:       input.Condition,
		Notes:           input.Notes,
		CreatedBy:       userID,
	}

	if err := s.assetRepo.Create(ctx, asset); err != nil {
		return nil, constraint(err, domain.ErrDuplicateAssetTag)
	}

	log.Printf("📦 Asset registered: %s (%s)", asset.Tag, asset.Name)
	return asset, nil
}

// Receive takes a registered asset into stock at the given location
func (s *AssetService) Receive(ctx context.Context, assetID uint, input *LocationInput, userID uint, ipAddress string) (*models.Asset, error) {
	return s.apply(ctx, assetID, domain.TxReceived, userID, ipAddress, input.Note,
		func(tx *gorm.DB, asset *models.Asset, record *models.AssetTransaction) error {
			count, err := s.txRepo.WithTx(tx).CountByAssetID(ctx, asset.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				return &domain.TransitionError{From: domain.AssetStatus(asset.Status), Op: domain.TxReceived}
			}

			record.FromDepartmentID = nil
			record.FromRoomID = nil
			record.CustodianID = nil
			return s.moveTo(ctx, tx, record, &input.DepartmentID, input.RoomID)
		})
}

// Allocate hands an available asset to a custodian at a location
func (s *AssetService) Allocate(ctx context.Context, assetID uint, input *AllocateInput, userID uint, ipAddress string) (*models.Asset, error) {
	return s.apply(ctx, assetID, domain.TxAllocated, userID, ipAddress, input.Note,
		func(tx *gorm.DB, _ *models.Asset, record *models.AssetTransaction) error {
			if _, err := s.userRepo.WithTx(tx).GetByID(ctx, input.CustodianID); err != nil {
				return notFound(err, domain.ErrUserNotFound)
			}
			record.CustodianID = &input.CustodianID
			return s.moveTo(ctx, tx, record, &input.DepartmentID, input.RoomID)
		})
}

// Transfer moves an asset to another location. Status and custodian are unchanged.
func (s *AssetService) Transfer(ctx context.Context, assetID uint, input *LocationInput, userID uint, ipAddress string) (*models.Asset, error) {
	return s.apply(ctx, assetID, domain.TxTransfer, userID, ipAddress, input.Note,
		func(tx *gorm.DB, _ *models.Asset, record *models.AssetTransaction) error {
			return s.moveTo(ctx, tx, record, &input.DepartmentID, input.RoomID)
		})
}

// Return takes an allocated asset back. It goes to the override location if given,
// else to the configured holding location, else it stays where it is.
// A room override needs its department.
func (s *AssetService) Return(ctx context.Context, assetID uint, input *ReturnAssetInput, userID uint, ipAddress string) (*models.Asset, error) {
	return s.apply(ctx, assetID, domain.TxReturned, userID, ipAddress, input.Note,
		func(tx *gorm.DB, _ *models.Asset, record *models.AssetTransaction) error {
			if input.RoomID != nil && input.DepartmentID == nil {
				return fmt.Errorf("room %d given without department: %w", *input.RoomID, domain.ErrInvalidInput)
			}
			record.CustodianID = nil

			switch {
			case input.DepartmentID != nil:
				return s.moveTo(ctx, tx, record, input.DepartmentID, input.RoomID)
			case s.holding.HoldingDepartmentID != 0:
				var room *uint
				if s.holding.HoldingRoomID != 0 {
					room = &s.holding.HoldingRoomID
				}
				return s.moveTo(ctx, tx, record, &s.holding.HoldingDepartmentID, room)
			}
			return nil
		})
}

// StartMaintenance sends an available or allocated asset to maintenance
func (s *AssetService) StartMaintenance(ctx context.Context, assetID uint, input *NoteInput, userID uint, ipAddress string) (*models.Asset, error) {
	return s.apply(ctx, assetID, domain.TxMaintenanceStart, userID, ipAddress, input.Note, nil)
}

// EndMaintenance restores the status the asset had before maintenance
func (s *AssetService) EndMaintenance(ctx context.Context, assetID uint, input *NoteInput, userID uint, ipAddress string) (*models.Asset, error) {
	return s.apply(ctx, assetID, domain.TxMaintenanceEnd, userID, ipAddress, input.Note, nil)
}

// Dispose retires an asset for good and clears its custodian
func (s *AssetService) Dispose(ctx context.Context, assetID uint, input *NoteInput, userID uint, ipAddress string) (*models.Asset, error) {
	return s.apply(ctx, assetID, domain.TxDisposed, userID, ipAddress, input.Note,
		func(_ *gorm.DB, _ *models.Asset, record *models.AssetTransaction) error {
			record.CustodianID = nil
			return nil
		})
}

// Report marks an allocated or in-maintenance asset as lost or damaged
func (s *AssetService) Report(ctx context.Context, assetID uint, input *ReportInput, userID uint, ipAddress string) (*models.Asset, error) {
	op, err := domain.ReportTxType(domain.AssetStatus(input.Status))
	if err != nil {
		s.metrics.AssetOperation("report", outcome(err))
		return nil, err
	}
	return s.apply(ctx, assetID, op, userID, ipAddress, input.Note, nil)
}

// prepareFunc fills in the target side of a history row inside the transaction
type prepareFunc func(tx *gorm.DB, asset *models.Asset, record *models.AssetTransaction) error

// apply runs one lifecycle operation atomically
func (s *AssetService) apply(
	ctx context.Context,
	assetID uint,
	op domain.AssetTxType,
	userID uint,
	ipAddress string,
	note string,
	prepare prepareFunc,
) (*models.Asset, error) {
	var asset *models.Asset
	var record *models.AssetTransaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assets := s.assetRepo.WithTx(tx)
		history := s.txRepo.WithTx(tx)

		var err error
		asset, err = assets.GetByIDForUpdate(ctx, assetID)
		if err != nil {
			return notFound(err, domain.ErrAssetNotFound)
		}

		if _, err := s.userRepo.WithTx(tx).GetByID(ctx, userID); err != nil {
			return notFound(err, domain.ErrUserNotFound)
		}

		state, err := s.state(ctx, history, asset)
		if err != nil {
			return err
		}

		to, err := domain.Next(state, op)
		if err != nil {
			return err
		}

		// defaults: nothing moves, custodian kept
		record = &models.AssetTransaction{
			AssetID:          asset.ID,
			TransactionType:  string(op),
			FromStatus:       asset.Status,
			ToStatus:         string(to),
			FromDepartmentID: asset.DepartmentID,
			ToDepartmentID:   asset.DepartmentID,
			FromRoomID:       asset.RoomID,
			ToRoomID:         asset.RoomID,
			CustodianID:      asset.CustodianID,
			Note:             note,
			PerformedBy:      userID,
			IPAddress:        ipAddress,
		}

		if prepare != nil {
			if err := prepare(tx, asset, record); err != nil {
				return err
			}
		}

		if err := history.Create(ctx, record); err != nil {
			return constraint(err, domain.ErrConstraintViolation)
		}

		asset.Apply(record)
		return assets.Update(ctx, asset)
	})

	s.metrics.AssetOperation(string(op), outcome(err))
	if err != nil {
		return nil, err
	}

	log.Printf("📦 Asset %s: %s (%s → %s) by user %d", asset.Tag, op, displayStatus(record.FromStatus), record.ToStatus, userID)

	// same shape as GetByID
	return s.GetByID(ctx, asset.ID)
}

// state builds the lifecycle view of a locked asset
func (s *AssetService) state(ctx context.Context, history *repositories.AssetTransactionRepository, asset *models.Asset) (domain.AssetState, error) {
	if asset.Status != string(domain.AssetMaintenance) {
		return asset.State(""), nil
	}

	latest, err := history.Latest(ctx, asset.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AssetState{}, fmt.Errorf("asset %d in maintenance without history: %w", asset.ID, domain.ErrHistoryInconsistent)
		}
		return domain.AssetState{}, err
	}
	return asset.State(domain.AssetStatus(latest.FromStatus)), nil
}

// moveTo resolves the target location inside tx and writes it onto record
func (s *AssetService) moveTo(ctx context.Context, tx *gorm.DB, record *models.AssetTransaction, departmentID, roomID *uint) error {
	master := s.masterRepo.WithTx(tx)

	if _, err := master.GetDepartment(ctx, *departmentID); err != nil {
		return notFound(err, domain.ErrDepartmentNotFound)
	}
	if roomID != nil {
		if _, err := master.GetRoom(ctx, *roomID); err != nil {
			return notFound(err, domain.ErrRoomNotFound)
		}
	}

	dept := *departmentID
	record.ToDepartmentID = &dept
	if roomID != nil {
		room := *roomID
		record.ToRoomID = &room
	} else {
		record.ToRoomID = nil
	}
	return nil
}

func displayStatus(s string) string {
	if s == "" {
		return "new"
	}
	return s
}

// GetByID gets an asset by ID
func (s *AssetService) GetByID(ctx context.Context, id uint) (*models.Asset, error) {
	asset, err := s.assetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrAssetNotFound)
	}
	return asset, nil
}

// ListAssetsInput represents list assets input
type ListAssetsInput struct {
	Status       string
	DepartmentID *uint
	CustodianID  *uint
	Search       string
	Offset       int
	Limit        int
	Order        string
}

// List lists assets
func (s *AssetService) List(ctx context.Context, input *ListAssetsInput) ([]*models.Asset, int64, error) {
	filter := repositories.AssetFilter{
		DepartmentID: input.DepartmentID,
		CustodianID:  input.CustodianID,
		Search:       input.Search,
		Order:        input.Order,
	}
	if input.Status != "" {
		status, err := domain.ParseAssetStatus(input.Status)
		if err != nil {
			return nil, 0, err
		}
		v := string(status)
		filter.Status = &v
	}

	return s.assetRepo.List(ctx, filter, input.Offset, input.Limit)
}

// GetHistory gets the history of an asset, oldest first
func (s *AssetService) GetHistory(ctx context.Context, assetID uint) ([]*models.AssetTransaction, error) {
	if _, err := s.assetRepo.GetByID(ctx, assetID); err != nil {
		return nil, notFound(err, domain.ErrAssetNotFound)
	}
	return s.txRepo.GetByAssetID(ctx, assetID)
}

// StatusCounts counts assets per status; unreceived assets are counted under ""
func (s *AssetService) StatusCounts(ctx context.Context) (map[string]int64, error) {
	return s.assetRepo.CountByStatus(ctx)
}

// AssetMismatch describes an asset whose row disagrees with its history
type AssetMismatch struct {
	AssetID uint   `json:"asset_id"`
	Tag     string `json:"tag"`
	Reason  string `json:"reason"`
}

// AuditResult is the outcome of a consistency audit
type AuditResult struct {
	Checked    int             `json:"checked"`
	Mismatches []AssetMismatch `json:"mismatches"`
}

// auditBatchSize is the number of assets loaded per audit query
const auditBatchSize = 200

// Verify replays the history of one asset and compares it with the asset row.
// It returns nil when they agree.
func (s *AssetService) Verify(ctx context.Context, assetID uint) (*AssetMismatch, error) {
	asset, err := s.assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, notFound(err, domain.ErrAssetNotFound)
	}
	txs, err := s.txRepo.GetByAssetID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return compare(asset, txs), nil
}

// Audit checks every asset against its history
func (s *AssetService) Audit(ctx context.Context) (*AuditResult, error) {
	result := &AuditResult{Mismatches: []AssetMismatch{}}

	err := s.assetRepo.InBatches(ctx, auditBatchSize, func(assets []*models.Asset) error {
		ids := make([]uint, 0, len(assets))
		for _, a := range assets {
			ids = append(ids, a.ID)
		}

		histories, err := s.txRepo.GetByAssetIDs(ctx, ids)
		if err != nil {
			return err
		}

		for _, a := range assets {
			result.Checked++
			if m := compare(a, histories[a.ID]); m != nil {
				result.Mismatches = append(result.Mismatches, *m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// compare replays txs and reports how they disagree with asset, if at all
func compare(asset *models.Asset, txs []*models.AssetTransaction) *AssetMismatch {
	mismatch := func(reason string) *AssetMismatch {
		return &AssetMismatch{AssetID: asset.ID, Tag: asset.Tag, Reason: reason}
	}

	snap, err := domain.Replay(models.Events(txs))
	if err != nil {
		return mismatch(err.Error())
	}
	if snap.Events == 0 {
		if asset.Status != "" {
			return mismatch(fmt.Sprintf("status %s without history", asset.Status))
		}
		return nil
	}
	if !snap.Matches(domain.AssetStatus(asset.Status), asset.DepartmentID, asset.RoomID, asset.CustodianID) {
		return mismatch(fmt.Sprintf("row is %s, history gives %s", asset.Status, snap.Status))
	}
	return nil
}
