package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appdeduction "github.com/stockpool/backend/internal/application/deduction"
	deddomain "github.com/stockpool/backend/internal/domain/deduction"
	"github.com/stockpool/backend/internal/domain/shared"
	"github.com/stockpool/backend/internal/interfaces/http/dto"
)

// DeductionHandler handles deduction-related API endpoints
type DeductionHandler struct {
	BaseHandler
	previewService  *appdeduction.PreviewService
	executorService *appdeduction.ExecutorService
	recovery        *appdeduction.RecoveryManager
	rollback        *appdeduction.RollbackCoordinator
	history         *deddomain.ErrorHistory
}

// NewDeductionHandler creates a new DeductionHandler
func NewDeductionHandler(
	previewService *appdeduction.PreviewService,
	executorService *appdeduction.ExecutorService,
	recovery *appdeduction.RecoveryManager,
	rollback *appdeduction.RollbackCoordinator,
	history *deddomain.ErrorHistory,
) *DeductionHandler {
	return &DeductionHandler{
		previewService:  previewService,
		executorService: executorService,
		recovery:        recovery,
		rollback:        rollback,
		history:         history,
	}
}

// OrderItemRequest represents one order line in a deduction request
// @Description Order line extracted from a marketplace export
type OrderItemRequest struct {
	SKU      string `json:"sku" binding:"required" example:"PHONE-001"`
	Quantity string `json:"quantity" binding:"required" example:"3"`
	Platform string `json:"platform" binding:"required,platform" example:"amazon"`
	OrderID  string `json:"order_id" binding:"omitempty,max=100" example:"407-1234567-1234567"`
}

// PreviewDeductionRequest represents a request to preview deductions
// @Description Request body for previewing inventory deductions
type PreviewDeductionRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,dive"`
}

// ProcessDeductionRequest represents a request to execute deductions
// @Description Request body for processing inventory deductions
type ProcessDeductionRequest struct {
	Items          []OrderItemRequest `json:"items" binding:"required,dive"`
	OrderReference string             `json:"order_reference" binding:"required,min=1,max=100" example:"BATCH-2024-0117"`
}

// DeductionErrorResponse represents one classified error in the history
// @Description Classified deduction error
type DeductionErrorResponse struct {
	ID               string         `json:"id"`
	Timestamp        string         `json:"timestamp"`
	Type             string         `json:"type"`
	Severity         string         `json:"severity"`
	Message          string         `json:"message"`
	Context          map[string]any `json:"context,omitempty"`
	Recoverable      bool           `json:"recoverable"`
	SuggestedActions []string       `json:"suggested_actions,omitempty"`
}

func (r OrderItemRequest) toDomain() (deddomain.OrderItem, error) {
	item, err := deddomain.NewOrderItem(r.SKU, r.Quantity, deddomain.Platform(r.Platform))
	if err != nil {
		return deddomain.OrderItem{}, err
	}
	item.OrderID = r.OrderID
	return item, nil
}

func toOrderItems(reqs []OrderItemRequest) ([]deddomain.OrderItem, error) {
	items := make([]deddomain.OrderItem, 0, len(reqs))
	for i, r := range reqs {
		item, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Preview godoc
// @Summary      Preview inventory deductions
// @Description  Calculate what an order would deduct without touching inventory
// @Tags         deductions
// @Accept       json
// @Produce      json
// @Param        request body PreviewDeductionRequest true "Order items to preview"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /deductions/preview [post]
func (h *DeductionHandler) Preview(c *gin.Context) {
	var req PreviewDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}

	items, err := toOrderItems(req.Items)
	if err != nil {
		h.ErrorWithCode(c, domainErrorCode(err), err.Error())
		return
	}

	report := h.previewService.Preview(c.Request.Context(), items)
	h.Success(c, report)
}

// Process godoc
// @Summary      Process inventory deductions
// @Description  Calculate and commit inventory deductions for an order batch
// @Tags         deductions
// @Accept       json
// @Produce      json
// @Param        request body ProcessDeductionRequest true "Order items to process"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /deductions/process [post]
func (h *DeductionHandler) Process(c *gin.Context) {
	var req ProcessDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}

	items, err := toOrderItems(req.Items)
	if err != nil {
		h.ErrorWithCode(c, domainErrorCode(err), err.Error())
		return
	}

	result := h.executorService.Process(c.Request.Context(), items, req.OrderReference)
	if result.AlreadyProcessed {
		h.ErrorWithCode(c, dto.ErrCodeDuplicateOrder,
			fmt.Sprintf("order reference %s was already processed", req.OrderReference))
		return
	}

	h.trackCommittedDeductions(result)
	h.Success(c, result)
}

// trackCommittedDeductions registers compensating operations for the groups
// that committed in a run that also reported failures. A fully successful
// run leaves nothing pending; a partially failed one can be undone through
// the rollback endpoint.
func (h *DeductionHandler) trackCommittedDeductions(result *appdeduction.ProcessResult) {
	if h.rollback == nil || len(result.Result.Errors) == 0 {
		return
	}
	for _, d := range result.Result.Deductions {
		original := d.NewInventoryLevel.Add(d.DeductedQuantity)
		h.rollback.TrackOperation(deddomain.NewInventoryRevert(d.CategoryGroupID, original))
	}
}

// RecoverError godoc
// @Summary      Attempt recovery for a classified error
// @Description  Run the bounded recovery strategy for one error from the history
// @Tags         deductions
// @Produce      json
// @Param        id path string true "Error ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /deductions/errors/{id}/recover [post]
func (h *DeductionHandler) RecoverError(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid error id")
		return
	}

	var target *deddomain.DeductionError
	for _, e := range h.history.Snapshot() {
		if e.ID == id {
			target = e
			break
		}
	}
	if target == nil {
		h.NotFound(c, "error not found in history")
		return
	}

	h.Success(c, h.recovery.AttemptRecovery(c.Request.Context(), target))
}

// PendingRollbacks godoc
// @Summary      List pending compensating operations
// @Tags         deductions
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /deductions/rollbacks [get]
func (h *DeductionHandler) PendingRollbacks(c *gin.Context) {
	h.Success(c, h.rollback.PendingRollbacks())
}

// Rollback godoc
// @Summary      Replay all pending compensating operations
// @Description  Restore the original inventory levels captured for pending operations
// @Tags         deductions
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /deductions/rollbacks [post]
func (h *DeductionHandler) Rollback(c *gin.Context) {
	pending := h.rollback.PendingRollbacks()
	if !h.rollback.RollbackOperations(c.Request.Context(), pending) {
		h.InternalError(c, "compensating rollback failed; operations remain pending")
		return
	}
	h.Success(c, gin.H{"rolled_back": len(pending)})
}

// Errors godoc
// @Summary      List recent deduction errors
// @Description  Return the bounded history of classified errors, oldest first
// @Tags         deductions
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /deductions/errors [get]
func (h *DeductionHandler) Errors(c *gin.Context) {
	snapshot := h.history.Snapshot()
	out := make([]DeductionErrorResponse, 0, len(snapshot))
	for _, e := range snapshot {
		out = append(out, DeductionErrorResponse{
			ID:               e.ID.String(),
			Timestamp:        e.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
			Type:             string(e.Type),
			Severity:         string(e.Severity),
			Message:          e.Message,
			Context:          e.Context,
			Recoverable:      e.Recoverable,
			SuggestedActions: e.SuggestedActions,
		})
	}
	h.Success(c, out)
}

// RegisterRoutes registers all deduction routes
func (h *DeductionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	deductions := rg.Group("/deductions")
	{
		deductions.POST("/preview", h.Preview)
		deductions.POST("/process", h.Process)
		deductions.GET("/errors", h.Errors)
		deductions.POST("/errors/:id/recover", h.RecoverError)
		deductions.GET("/rollbacks", h.PendingRollbacks)
		deductions.POST("/rollbacks", h.Rollback)
	}
}

// domainErrorCode maps a domain error to an API error code
func domainErrorCode(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return dto.ErrCodeInvalidInput
	}
	return dto.ErrCodeBadRequest
}
