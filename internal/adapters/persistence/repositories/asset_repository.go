package repositories

import (
	"context"

	"schoolhub/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssetFilter narrows asset listings. An empty Order means newest first.
type AssetFilter struct {
	Status       *string
	DepartmentID *uint
	CustodianID  *uint
	Search       string
	Order        string
}

// AssetRepository handles asset data access
type AssetRepository struct {
	db *gorm.DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *AssetRepository) WithTx(tx *gorm.DB) *AssetRepository {
	return &AssetRepository{db: tx}
}

// Create creates a new asset
func (r *AssetRepository) Create(ctx context.Context, asset *models.Asset) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(asset).Error
}

// GetByID gets an asset by ID with relations
func (r *AssetRepository) GetByID(ctx context.Context, id uint) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Department").
		Preload("Room").
		Preload("Custodian").
		First(&asset, id).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// GetByIDForUpdate gets an asset and locks its row until the surrounding transaction ends
func (r *AssetRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&asset, id).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// ExistsByTag checks if an asset tag is taken
func (r *AssetRepository) ExistsByTag(ctx context.Context, tag string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Asset{}).Where("tag = ?", tag).Count(&count).Error
	return count > 0, err
}

// Update saves every column of the asset without touching relations
func (r *AssetRepository) Update(ctx context.Context, asset *models.Asset) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(asset).Error
}

// List lists assets with pagination
func (r *AssetRepository) List(ctx context.Context, filter AssetFilter, offset, limit int) ([]*models.Asset, int64, error) {
	var assets []*models.Asset
	var total int64

	query := r.filtered(ctx, filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.filtered(ctx, filter).
		Preload("Category").
		Preload("Department").
		Preload("Room").
		Preload("Custodian").
		Order(orderOr(filter.Order, "id DESC")).
		Offset(offset).
		Limit(limit).
		Find(&assets).Error

	return assets, total, err
}

func (r *AssetRepository) filtered(ctx context.Context, filter AssetFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Asset{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.DepartmentID != nil {
		query = query.Where("department_id = ?", *filter.DepartmentID)
	}
	if filter.CustodianID != nil {
		query = query.Where("custodian_id = ?", *filter.CustodianID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("tag LIKE ? OR name LIKE ? OR serial_number LIKE ?", like, like, like)
	}
	return query
}

// InBatches walks every asset in ID order, batchSize rows at a time
func (r *AssetRepository) InBatches(ctx context.Context, batchSize int, fn func(assets []*models.Asset) error) error {
	var batch []*models.Asset
	return r.db.WithContext(ctx).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}

// CountByStatus counts assets per status
func (r *AssetRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// AssetTransactionRepository handles asset history data access. History rows are
// only ever inserted.
type AssetTransactionRepository struct {
	db *gorm.DB
}

// NewAssetTransactionRepository creates a new asset transaction repository
func NewAssetTransactionRepository(db *gorm.DB) *AssetTransactionRepository {
	return &AssetTransactionRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *AssetTransactionRepository) WithTx(tx *gorm.DB) *AssetTransactionRepository {
	return &AssetTransactionRepository{db: tx}
}

// Create appends a history row
func (r *AssetTransactionRepository) Create(ctx context.Context, tx *models.AssetTransaction) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(tx).Error
}

// Latest gets the most recent history row of an asset
func (r *AssetTransactionRepository) Latest(ctx context.Context, assetID uint) (*models.AssetTransaction, error) {
	var tx models.AssetTransaction
	err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("id DESC").
		First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// CountByAssetID counts history rows of an asset
func (r *AssetTransactionRepository) CountByAssetID(ctx context.Context, assetID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AssetTransaction{}).
		Where("asset_id = ?", assetID).
		Count(&count).Error
	return count, err
}

// GetByAssetID gets the history of an asset, oldest first
func (r *AssetTransactionRepository) GetByAssetID(ctx context.Context, assetID uint) ([]*models.AssetTransaction, error) {
	var txs []*models.AssetTransaction
	err := r.db.WithContext(ctx).
		Preload("Performer").
		Preload("FromDepartment").
		Preload("ToDepartment").
		Preload("FromRoom").
		Preload("ToRoom").
		Where("asset_id = ?", assetID).
		Order("id ASC").
		Find(&txs).Error
	return txs, err
}

// GetByAssetIDs gets the bare history of several assets, oldest first, grouped by asset
func (r *AssetTransactionRepository) GetByAssetIDs(ctx context.Context, assetIDs []uint) (map[uint][]*models.AssetTransaction, error) {
	var txs []*models.AssetTransaction
	err := r.db.WithContext(ctx).
		Where("asset_id IN ?", assetIDs).
		Order("asset_id ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[uint][]*models.AssetTransaction, len(assetIDs))
	for _, t := range txs {
		grouped[t.AssetID] = append(grouped[t.AssetID], t)
	}
	return grouped, nil
}
