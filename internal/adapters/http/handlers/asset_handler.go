package handlers

import (
	"context"

	"schoolhub/internal/adapters/persistence/models"
	"schoolhub/internal/core/services"
	"schoolhub/internal/pkg/pagination"
	"schoolhub/internal/pkg/response"
	"schoolhub/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// AssetHandler handles asset endpoints
type AssetHandler struct {
	assetService *services.AssetService
	v            *validation.Validator
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(assetService *services.AssetService, v *validation.Validator) *AssetHandler {
	return &AssetHandler{
		assetService: assetService,
		v:            v,
	}
}

// Register registers a new asset
// @Summary Register asset
// @Description Create an asset record that is not yet received (Admin/Staff)
// @Tags Assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.RegisterAssetInput true "Asset data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /assets [post]
func (h *AssetHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterAssetInput
	if err := bind(c, h.v, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	asset, err := h.assetService.Register(c.Context(), &req, userID)
	if err != nil {
		return writeError(c, err, "Failed to register asset")
	}

	return response.Created(c, "Asset registered successfully", fiber.Map{
		"asset": asset.ToResponse(),
	})
}

// List lists assets
// @Summary List assets
// @Description List assets with filters (Admin/Staff)
// @Tags Assets
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param status query string false "Filter by status"
// @Param department_id query int false "Filter by department"
// @Param custodian_id query int false "Filter by custodian"
// @Param search query string false "Search tag, name or serial number"
// @Param sort query string false "newest, oldest, tag, name or status" default(newest)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /assets [get]
func (h *AssetHandler) List(c *fiber.Ctx) error {
	params, err := pagination.Assets.Parse(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	departmentID, err := queryUint(c, "department_id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	custodianID, err := queryUint(c, "custodian_id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	assets, total, err := h.assetService.List(c.Context(), &services.ListAssetsInput{
		Status:       c.Query("status"),
		DepartmentID: departmentID,
		CustodianID:  custodianID,
		Search:       c.Query("search"),
		Offset:       params.Offset,
		Limit:        params.Limit,
		Order:        params.Order,
	})
	if err != nil {
		return writeError(c, err, "Failed to list assets")
	}

	data := make([]*models.AssetResponse, len(assets))
	for i, a := range assets {
		data[i] = a.ToResponse()
	}

	return response.Success(c, "Assets retrieved successfully", pagination.NewResponse(data, params, total))
}

// GetByID gets an asset by ID
// @Summary Get asset by ID
// @Tags Assets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /assets/{id} [get]
func (h *AssetHandler) GetByID(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid asset ID")
	}

	asset, err := h.assetService.GetByID(c.Context(), id)
	if err != nil {
		return writeError(c, err, "Failed to get asset")
	}

	return response.Success(c, "Asset retrieved successfully", fiber.Map{
		"asset": asset.ToResponse(),
	})
}

// GetHistory gets the transaction history of an asset
// @Summary Get asset history
// @Description Transactions of an asset, oldest first
// @Tags Assets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /assets/{id}/history [get]
func (h *AssetHandler) GetHistory(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid asset ID")
	}

	history, err := h.assetService.GetHistory(c.Context(), id)
	if err != nil {
		return writeError(c, err, "Failed to get history")
	}

	return response.Success(c, "History retrieved successfully", fiber.Map{
		"transactions": history,
	})
}

// Verify compares an asset with its replayed history
// @Summary Verify asset consistency
// @Tags Assets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /assets/{id}/verify [get]
func (h *AssetHandler) Verify(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid asset ID")
	}

	mismatch, err := h.assetService.Verify(c.Context(), id)
	if err != nil {
		return writeError(c, err, "Failed to verify asset")
	}

	return response.Success(c, "Asset verified", fiber.Map{
		"consistent": mismatch == nil,
		"mismatch":   mismatch,
	})
}

// Receive takes an asset into stock
// @Summary Receive asset
// @Tags Assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Param body body services.LocationInput true "Target location"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /assets/{id}/receive [post]
func (h *AssetHandler) Receive(c *fiber.Ctx) error {
	var req services.LocationInput
	return h.transition(c, &req, "Asset received", func(ctx context.Context, id, userID uint, ip string) (*models.Asset, error) {
		return h.assetService.Receive(ctx, id, &req, userID, ip)
	})
}

// Allocate hands an asset to a custodian
// @Summary Allocate asset
// @Tags Assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Param body body services.AllocateInput true "Location and custodian"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /assets/{id}/allocate [post]
func (h *AssetHandler) Allocate(c *fiber.Ctx) error {
	var req services.AllocateInput
	return h.transition(c, &req, "Asset allocated", func(ctx context.Context, id, userID uint, ip string) (*models.Asset, error) {
		return h.assetService.Allocate(ctx, id, &req, userID, ip)
	})
}

// Transfer moves an asset to another location
// @Summary Transfer asset
// @Tags Assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Param body body services.LocationInput true "Target location"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /assets/{id}/transfer [post]
func (h *AssetHandler) Transfer(c *fiber.Ctx) error {
	var req services.LocationInput
	return h.transition(c, &req, "Asset transferred", func(ctx context.Context, id, userID uint, ip string) (*models.Asset, error) {
		return h.assetService.Transfer(ctx, id, &req, userID, ip)
	})
}

// Return takes an allocated asset back
// @Summary Return asset
// @Description Goes to the holding location unless department_id is given. room_id needs department_id.
// @Tags Assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Param body body services.ReturnAssetInput false "Override location"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /assets/{id}/return [post]
func (h *AssetHandler) Return(c *fiber.Ctx) error {
	var req services.ReturnAssetInput
	return h.transition(c, &req, "Asset returned", func(ctx context.Context, id, userID uint, ip string) (*models.Asset, error) {
		return h.assetService.Return(ctx, id, &req, userID, ip)
	})
}

// StartMaintenance sends an asset to maintenance
// @Summary Start maintenance
// @Tags Assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Param body body services.NoteInput false "Note"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /assets/{id}/maintenance/start [post]
func (h *AssetHandler) StartMaintenance(c *fiber.Ctx) error {
	var req services.NoteInput
	return h.transition(c, &req, "Maintenance started", func(ctx context.Context, id, userID uint, ip string) (*models.Asset, error) {
		return h.assetService.StartMaintenance(ctx, id, &req, userID, ip)
	})
}

// EndMaintenance brings an asset back from maintenance
// @Summary End maintenance
// @Tags Assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Param body body services.NoteInput false "Note"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /assets/{id}/maintenance/end [post]
func (h *AssetHandler) EndMaintenance(c *fiber.Ctx) error {
	var req services.NoteInput
	return h.transition(c, &req, "Maintenance ended", func(ctx context.Context, id, userID uint, ip string) (*models.Asset, error) {
		return h.assetService.EndMaintenance(ctx, id, &req, userID, ip)
	})
}

// Dispose retires an asset
// @Summary Dispose asset
// @Tags Assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Param body body services.NoteInput false "Note"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /assets/{id}/dispose [post]
func (h *AssetHandler) Dispose(c *fiber.Ctx) error {
	var req services.NoteInput
	return h.transition(c, &req, "Asset disposed", func(ctx context.Context, id, userID uint, ip string) (*models.Asset, error) {
		return h.assetService.Dispose(ctx, id, &req, userID, ip)
	})
}

// Report marks an asset lost or damaged
// @Summary Report asset lost or damaged
// @Description Administrative override (Admin only)
// @Tags Assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Param body body services.ReportInput true "Reported status"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /assets/{id}/report [post]
func (h *AssetHandler) Report(c *fiber.Ctx) error {
	var req services.ReportInput
	return h.transition(c, &req, "Asset reported", func(ctx context.Context, id, userID uint, ip string) (*models.Asset, error) {
		return h.assetService.Report(ctx, id, &req, userID, ip)
	})
}

// Audit checks every asset against its history
// @Summary Run consistency audit
// @Tags Assets
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /assets/audit [get]
func (h *AssetHandler) Audit(c *fiber.Ctx) error {
	result, err := h.assetService.Audit(c.Context())
	if err != nil {
		return writeError(c, err, "Failed to audit assets")
	}
	return response.Success(c, "Audit completed", result)
}

// transition parses req, runs op for the asset in the path and writes the result
func (h *AssetHandler) transition(
	c *fiber.Ctx,
	req interface{},
	message string,
	op func(ctx context.Context, id, userID uint, ip string) (*models.Asset, error),
) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid asset ID")
	}
	if err := bind(c, h.v, req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	asset, err := op(c.Context(), id, userID, getClientIP(c))
	if err != nil {
		return writeError(c, err, "Failed to update asset")
	}

	return response.Success(c, message, fiber.Map{
		"asset": asset.ToResponse(),
	})
}
