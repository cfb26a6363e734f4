package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/arcadia-games/webrpg/server/game/item"
	mw "github.com/arcadia-games/webrpg/server/middleware"
	"github.com/arcadia-games/webrpg/server/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// InventoryHandler handles inventory REST endpoints.
type InventoryHandler struct {
	db  *gorm.DB
	inv *item.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(db *gorm.DB, inv *item.InventoryService) *InventoryHandler {
	return &InventoryHandler{db: db, inv: inv}
}

// List handles GET /api/inventory.
func (h *InventoryHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)

	var char model.Character
	err := h.db.Where("user_id = ?", userID).First(&char).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	items, err := h.inv.List(c.Request.Context(), char.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": items})
}

// Delete handles DELETE /api/inventory/:id.
func (h *InventoryHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.inv.Remove(c.Request.Context(), mw.GetUserID(c), id); err != nil {
		respondEquipError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
