package models

import (
	"errors"
	"time"

	"schoolhub/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Assets
// ============================================================

// Asset ครุภัณฑ์ (ตารางหลัก). Status is empty until the asset is received.
type Asset struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Tag             string     `gorm:"size:50;uniqueIndex;not null" json:"tag"`
	SerialNumber    string     `gorm:"size:100" json:"serial_number"`
	Name            string     `gorm:"size:200;not null" json:"name"`
	CategoryID      *uint      `gorm:"index" json:"category_id"`
	SubcategoryID   *uint      `json:"subcategory_id"`
	PurchaseOrderID *uint      `json:"purchase_order_id"`
	SupplierID      *uint      `json:"supplier_id"`
	PurchaseDate    *time.Time `gorm:"type:date" json:"purchase_date"`
	Cost            float64    `gorm:"type:decimal(15,2)" json:"cost"`
	WarrantyExpiry  *time.Time `gorm:"type:date" json:"warranty_expiry"`
	Condition       string     `gorm:"size:20;not null" json:"condition"`
	Status          string     `gorm:"size:20;index" json:"status"`
	DepartmentID    *uint      `gorm:"index" json:"department_id"`
	RoomID          *uint      `gorm:"index" json:"room_id"`
	CustodianID     *uint      `gorm:"index" json:"custodian_id"`
	Notes           string     `gorm:"type:text" json:"notes"`
	ReceivedAt      *time.Time `json:"received_at"`
	DisposedAt      *time.Time `json:"disposed_at"`
	CreatedBy       uint       `gorm:"not null" json:"created_by"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Category   *AssetCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Department *Department    `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Room       *Room          `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Custodian  *User          `gorm:"foreignKey:CustodianID" json:"custodian,omitempty"`
}

func (Asset) TableName() string {
	return "assets"
}

// State returns the lifecycle view of the asset. prior is the status recorded as
// from_status on the latest history row and only matters while in maintenance.
func (a *Asset) State(prior domain.AssetStatus) domain.AssetState {
	s := domain.AssetState{Status: domain.AssetStatus(a.Status)}
	if s.Status == domain.AssetMaintenance {
		s.Prior = prior
	}
	return s
}

// Apply moves the asset to the state recorded by tx. Status, location and custodian
// change only through here so the row always equals its latest history record.
func (a *Asset) Apply(tx *AssetTransaction) {
	a.Status = tx.ToStatus
	a.DepartmentID = tx.ToDepartmentID
	a.RoomID = tx.ToRoomID
	a.CustodianID = tx.CustodianID

	now := tx.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	switch domain.AssetTxType(tx.TransactionType) {
	case domain.TxReceived:
		a.ReceivedAt = &now
	case domain.TxDisposed:
		a.DisposedAt = &now
	}
}

// AssetResponse DTO
type AssetResponse struct {
	ID             uint       `json:"id"`
	Tag            string     `json:"tag"`
	SerialNumber   string     `json:"serial_number"`
	Name           string     `json:"name"`
	CategoryID     *uint      `json:"category_id"`
	CategoryName   string     `json:"category_name,omitempty"`
	SubcategoryID  *uint      `json:"subcategory_id"`
	Condition      string     `json:"condition"`
	Status         string     `json:"status"`
	Received       bool       `json:"received"`
	DepartmentID   *uint      `json:"department_id"`
	DepartmentName string     `json:"department_name,omitempty"`
	RoomID         *uint      `json:"room_id"`
	RoomName       string     `json:"room_name,omitempty"`
	CustodianID    *uint      `json:"custodian_id"`
	CustodianName  string     `json:"custodian_name,omitempty"`
	Cost           float64    `json:"cost"`
	PurchaseDate   *time.Time `json:"purchase_date"`
	WarrantyExpiry *time.Time `json:"warranty_expiry"`
	Notes          string     `json:"notes"`
	ReceivedAt     *time.Time `json:"received_at"`
	DisposedAt     *time.Time `json:"disposed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (a *Asset) ToResponse() *AssetResponse {
	resp := &AssetResponse{
		ID:             a.ID,
		Tag:            a.Tag,
		SerialNumber:   a.SerialNumber,
		Name:           a.Name,
		CategoryID:     a.CategoryID,
		SubcategoryID:  a.SubcategoryID,
		Condition:      a.Condition,
		Status:         a.Status,
		Received:       a.Status != "",
		DepartmentID:   a.DepartmentID,
		RoomID:         a.RoomID,
		CustodianID:    a.CustodianID,
		Cost:           a.Cost,
		PurchaseDate:   a.PurchaseDate,
		WarrantyExpiry: a.WarrantyExpiry,
		Notes:          a.Notes,
		ReceivedAt:     a.ReceivedAt,
		DisposedAt:     a.DisposedAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}

	if a.Category != nil {
		resp.CategoryName = a.Category.Name
	}
	if a.Department != nil {
		resp.DepartmentName = a.Department.Name
	}
	if a.Room != nil {
		resp.RoomName = a.Room.Name
	}
	if a.Custodian != nil {
		resp.CustodianName = a.Custodian.FullName
	}

	return resp
}

// ErrHistoryImmutable is returned when something tries to change a written history row.
var ErrHistoryImmutable = errors.New("asset transactions are append-only")

// AssetTransaction ประวัติครุภัณฑ์ (append-only)
type AssetTransaction struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AssetID          uint      `gorm:"not null;index" json:"asset_id"`
	TransactionType  string    `gorm:"size:30;not null" json:"transaction_type"`
	FromStatus       string    `gorm:"size:20" json:"from_status"`
	ToStatus         string    `gorm:"size:20;not null" json:"to_status"`
	FromDepartmentID *uint     `json:"from_department_id"`
	ToDepartmentID   *uint     `json:"to_department_id"`
	FromRoomID       *uint     `json:"from_room_id"`
	ToRoomID         *uint     `json:"to_room_id"`
	CustodianID      *uint     `json:"custodian_id"`
	Note             string    `gorm:"type:text" json:"note"`
	PerformedBy      uint      `gorm:"not null" json:"performed_by"`
	IPAddress        string    `gorm:"size:50" json:"ip_address"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Performer      *User       `gorm:"foreignKey:PerformedBy" json:"performer,omitempty"`
	FromDepartment *Department `gorm:"foreignKey:FromDepartmentID" json:"from_department,omitempty"`
	ToDepartment   *Department `gorm:"foreignKey:ToDepartmentID" json:"to_department,omitempty"`
	FromRoom       *Room       `gorm:"foreignKey:FromRoomID" json:"from_room,omitempty"`
	ToRoom         *Room       `gorm:"foreignKey:ToRoomID" json:"to_room,omitempty"`
}

func (AssetTransaction) TableName() string {
	return "asset_transactions"
}

// BeforeUpdate blocks updates of history rows.
func (t *AssetTransaction) BeforeUpdate(*gorm.DB) error {
	return ErrHistoryImmutable
}

// BeforeDelete blocks deletes of history rows.
func (t *AssetTransaction) BeforeDelete(*gorm.DB) error {
	return ErrHistoryImmutable
}

// Event returns the lifecycle content of the row.
func (t *AssetTransaction) Event() domain.AssetEvent {
	return domain.AssetEvent{
		Type:             domain.AssetTxType(t.TransactionType),
		FromStatus:       domain.AssetStatus(t.FromStatus),
		ToStatus:         domain.AssetStatus(t.ToStatus),
		FromDepartmentID: t.FromDepartmentID,
		ToDepartmentID:   t.ToDepartmentID,
		FromRoomID:       t.FromRoomID,
		ToRoomID:         t.ToRoomID,
		CustodianID:      t.CustodianID,
	}
}

// Events converts history rows, oldest first, into replayable events.
func Events(txs []*AssetTransaction) []domain.AssetEvent {
	events := make([]domain.AssetEvent, 0, len(txs))
	for _, t := range txs {
		events = append(events, t.Event())
	}
	return events
}
