package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appdeduction "github.com/stockpool/backend/internal/application/deduction"
	"github.com/stockpool/backend/internal/domain/shared"
)

// ChainHandler exposes category dependency chains for display
type ChainHandler struct {
	BaseHandler
	chainService *appdeduction.ChainService
}

// NewChainHandler creates a new ChainHandler
func NewChainHandler(chainService *appdeduction.ChainService) *ChainHandler {
	return &ChainHandler{chainService: chainService}
}

// Chains godoc
// @Summary      List dependency chains for a category
// @Description  Walk active category links from the given category and return each maximal path. Chains are informational; only the first hop ever deducts.
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /categories/{id}/chains [get]
func (h *ChainHandler) Chains(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid category ID")
		return
	}

	chains, err := h.chainService.DependencyChains(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "category not found")
			return
		}
		h.InternalError(c, err.Error())
		return
	}
	h.Success(c, chains)
}

// RegisterRoutes registers all category chain routes
func (h *ChainHandler) RegisterRoutes(rg *gin.RouterGroup) {
	categories := rg.Group("/categories")
	{
		categories.GET("/:id/chains", h.Chains)
	}
}
