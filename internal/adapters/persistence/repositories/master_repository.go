package repositories

import (
	"context"

	"schoolhub/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MasterRepository handles read access to master data: campuses, buildings,
// departments, rooms and asset categories
type MasterRepository struct {
	db *gorm.DB
}

// NewMasterRepository creates a new master data repository
func NewMasterRepository(db *gorm.DB) *MasterRepository {
	return &MasterRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *MasterRepository) WithTx(tx *gorm.DB) *MasterRepository {
	return &MasterRepository{db: tx}
}

// GetDepartment gets a department by ID
func (r *MasterRepository) GetDepartment(ctx context.Context, id uint) (*models.Department, error) {
	var department models.Department
	err := r.db.WithContext(ctx).First(&department, id).Error
	if err != nil {
		return nil, err
	}
	return &department, nil
}

// GetRoom gets a room by ID
func (r *MasterRepository) GetRoom(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetCategory gets an asset category by ID
func (r *MasterRepository) GetCategory(ctx context.Context, id uint) (*models.AssetCategory, error) {
	var category models.AssetCategory
	err := r.db.WithContext(ctx).First(&category, id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetCampus gets a campus by ID
func (r *MasterRepository) GetCampus(ctx context.Context, id uint) (*models.Campus, error) {
	var campus models.Campus
	err := r.db.WithContext(ctx).First(&campus, id).Error
	if err != nil {
		return nil, err
	}
	return &campus, nil
}

// ListCampuses lists all active campuses
func (r *MasterRepository) ListCampuses(ctx context.Context) ([]*models.Campus, error) {
	var campuses []*models.Campus
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("code").Find(&campuses).Error
	return campuses, err
}

// ListBuildings lists buildings, optionally of one campus
func (r *MasterRepository) ListBuildings(ctx context.Context, campusID *uint) ([]*models.Building, error) {
	var buildings []*models.Building
	query := r.db.WithContext(ctx).Order("code")
	if campusID != nil {
		query = query.Where("campus_id = ?", *campusID)
	}
	err := query.Find(&buildings).Error
	return buildings, err
}

// ListDepartments lists all departments
func (r *MasterRepository) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	var departments []*models.Department
	err := r.db.WithContext(ctx).Order("code").Find(&departments).Error
	return departments, err
}

// ListRooms lists rooms, optionally of one building
func (r *MasterRepository) ListRooms(ctx context.Context, buildingID *uint) ([]*models.Room, error) {
	var rooms []*models.Room
	query := r.db.WithContext(ctx).Preload("Building").Order("code")
	if buildingID != nil {
		query = query.Where("building_id = ?", *buildingID)
	}
	err := query.Find(&rooms).Error
	return rooms, err
}

// ListCategories lists asset categories; subcategories carry a parent_id
func (r *MasterRepository) ListCategories(ctx context.Context) ([]*models.AssetCategory, error) {
	var categories []*models.AssetCategory
	err := r.db.WithContext(ctx).Order("code").Find(&categories).Error
	return categories, err
}

// Create inserts a master record (campus, building, department, room or category)
func (r *MasterRepository) Create(ctx context.Context, record interface{}) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(record).Error
}
