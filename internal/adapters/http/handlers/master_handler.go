package handlers

import (
	"errors"
	"log"

	"schoolhub/internal/adapters/persistence/models"
	"schoolhub/internal/adapters/persistence/repositories"
	"schoolhub/internal/pkg/response"
	"schoolhub/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// MasterHandler handles master data endpoints
type MasterHandler struct {
	masterRepo *repositories.MasterRepository
	v          *validation.Validator
}

// NewMasterHandler creates a new master handler
func NewMasterHandler(masterRepo *repositories.MasterRepository, v *validation.Validator) *MasterHandler {
	return &MasterHandler{
		masterRepo: masterRepo,
		v:          v,
	}
}

// create inserts record and maps unique and foreign key failures
func (h *MasterHandler) create(c *fiber.Ctx, record interface{}, key, message string) error {
	if err := h.masterRepo.Create(c.Context(), record); err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return response.Conflict(c, "Code already exists")
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			return response.BadRequest(c, "Referenced record does not exist")
		}
		log.Printf("❌ Failed to create %s: %v", key, err)
		return response.InternalServerError(c, "Failed to create "+key)
	}

	return response.Created(c, message, fiber.Map{key: record})
}

// ============================================================
// Campus
// ============================================================

// ListCampuses lists active campuses
// @Summary List campuses
// @Tags Master
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /master/campuses [get]
func (h *MasterHandler) ListCampuses(c *fiber.Ctx) error {
	campuses, err := h.masterRepo.ListCampuses(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list campuses")
	}

	return response.Success(c, "Campuses retrieved successfully", fiber.Map{
		"campuses": campuses,
	})
}

// CreateCampusRequest represents create campus request
type CreateCampusRequest struct {
	Code string `json:"code" validate:"required,max=20"`
	Name string `json:"name" validate:"required,max=100"`
}

// CreateCampus creates a campus
// @Summary Create campus
// @Description Create a new campus (Admin only)
// @Tags Master
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateCampusRequest true "Campus data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /master/campuses [post]
func (h *MasterHandler) CreateCampus(c *fiber.Ctx) error {
	var req CreateCampusRequest
	if err := bind(c, h.v, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	return h.create(c, &models.Campus{
		Code:     req.Code,
		Name:     req.Name,
		IsActive: true,
	}, "campus", "Campus created successfully")
}

// ============================================================
// Building
// ============================================================

// ListBuildings lists buildings
// @Summary List buildings
// @Tags Master
// @Produce json
// @Security BearerAuth
// @Param campus_id query int false "Filter by campus"
// @Success 200 {object} response.Response
// @Router /master/buildings [get]
func (h *MasterHandler) ListBuildings(c *fiber.Ctx) error {
	campusID, err := queryUint(c, "campus_id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	buildings, err := h.masterRepo.ListBuildings(c.Context(), campusID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list buildings")
	}

	return response.Success(c, "Buildings retrieved successfully", fiber.Map{
		"buildings": buildings,
	})
}

// CreateBuildingRequest represents create building request
type CreateBuildingRequest struct {
	CampusID uint   `json:"campus_id" validate:"required"`
	Code     string `json:"code" validate:"required,max=20"`
	Name     string `json:"name" validate:"required,max=100"`
}

// CreateBuilding creates a building
// @Summary Create building
// @Description Create a new building (Admin only)
// @Tags Master
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateBuildingRequest true "Building data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /master/buildings [post]
func (h *MasterHandler) CreateBuilding(c *fiber.Ctx) error {
	var req CreateBuildingRequest
	if err := bind(c, h.v, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if _, err := h.masterRepo.GetCampus(c.Context(), req.CampusID); err != nil {
		return response.BadRequest(c, "Campus not found")
	}

	return h.create(c, &models.Building{
		CampusID: req.CampusID,
		Code:     req.Code,
		Name:     req.Name,
	}, "building", "Building created successfully")
}

// ============================================================
// Department
// ============================================================

// ListDepartments lists departments
// @Summary List departments
// @Tags Master
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /master/departments [get]
func (h *MasterHandler) ListDepartments(c *fiber.Ctx) error {
	departments, err := h.masterRepo.ListDepartments(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list departments")
	}

	return response.Success(c, "Departments retrieved successfully", fiber.Map{
		"departments": departments,
	})
}

// CreateDepartmentRequest represents create department request
type CreateDepartmentRequest struct {
	CampusID  *uint  `json:"campus_id,omitempty"`
	Code      string `json:"code" validate:"required,max=20"`
	Name      string `json:"name" validate:"required,max=100"`
	IsHolding bool   `json:"is_holding"`
}

// CreateDepartment creates a department
// @Summary Create department
// @Description Create a new department (Admin only)
// @Tags Master
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateDepartmentRequest true "Department data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /master/departments [post]
func (h *MasterHandler) CreateDepartment(c *fiber.Ctx) error {
	var req CreateDepartmentRequest
	if err := bind(c, h.v, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if req.CampusID != nil {
		if _, err := h.masterRepo.GetCampus(c.Context(), *req.CampusID); err != nil {
			return response.BadRequest(c, "Campus not found")
		}
	}

	return h.create(c, &models.Department{
		CampusID:  req.CampusID,
		Code:      req.Code,
		Name:      req.Name,
		IsHolding: req.IsHolding,
	}, "department", "Department created successfully")
}

// ============================================================
// Room
// ============================================================

// ListRooms lists rooms
// @Summary List rooms
// @Tags Master
// @Produce json
// @Security BearerAuth
// @Param building_id query int false "Filter by building"
// @Success 200 {object} response.Response
// @Router /master/rooms [get]
func (h *MasterHandler) ListRooms(c *fiber.Ctx) error {
	buildingID, err := queryUint(c, "building_id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	rooms, err := h.masterRepo.ListRooms(c.Context(), buildingID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list rooms")
	}

	return response.Success(c, "Rooms retrieved successfully", fiber.Map{
		"rooms": rooms,
	})
}

// CreateRoomRequest represents create room request
type CreateRoomRequest struct {
	BuildingID   uint   `json:"building_id" validate:"required"`
	DepartmentID *uint  `json:"department_id,omitempty"`
	Code         string `json:"code" validate:"required,max=20"`
	Name         string `json:"name" validate:"required,max=100"`
}

// CreateRoom creates a room
// @Summary Create room
// @Description Create a new room (Admin only)
// @Tags Master
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateRoomRequest true "Room data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /master/rooms [post]
func (h *MasterHandler) CreateRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := bind(c, h.v, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if req.DepartmentID != nil {
		if _, err := h.masterRepo.GetDepartment(c.Context(), *req.DepartmentID); err != nil {
			return response.BadRequest(c, "Department not found")
		}
	}

	return h.create(c, &models.Room{
		BuildingID:   req.BuildingID,
		DepartmentID: req.DepartmentID,
		Code:         req.Code,
		Name:         req.Name,
	}, "room", "Room created successfully")
}

// ============================================================
// Asset Category
// ============================================================

// ListCategories lists asset categories
// @Summary List asset categories
// @Tags Master
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /master/categories [get]
func (h *MasterHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.masterRepo.ListCategories(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list categories")
	}

	return response.Success(c, "Categories retrieved successfully", fiber.Map{
		"categories": categories,
	})
}

// CreateCategoryRequest represents create category request. ParentID makes it a subcategory.
type CreateCategoryRequest struct {
	ParentID *uint  `json:"parent_id,omitempty"`
	Code     string `json:"code" validate:"required,max=20"`
	Name     string `json:"name" validate:"required,max=100"`
}

// CreateCategory creates an asset category
// @Summary Create asset category
// @Description Create a category or subcategory (Admin only)
// @Tags Master
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateCategoryRequest true "Category data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /master/categories [post]
func (h *MasterHandler) CreateCategory(c *fiber.Ctx) error {
	var req CreateCategoryRequest
	if err := bind(c, h.v, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if req.ParentID != nil {
		parent, err := h.masterRepo.GetCategory(c.Context(), *req.ParentID)
		if err != nil {
			return response.BadRequest(c, "Parent category not found")
		}
		if parent.ParentID != nil {
			return response.BadRequest(c, "Parent must be a top-level category")
		}
	}

	return h.create(c, &models.AssetCategory{
		ParentID: req.ParentID,
		Code:     req.Code,
		Name:     req.Name,
	}, "category", "Category created successfully")
}
