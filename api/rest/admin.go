package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/arcadia-games/webrpg/server/audit"
	"github.com/arcadia-games/webrpg/server/game/item"
	mw "github.com/arcadia-games/webrpg/server/middleware"
	"github.com/arcadia-games/webrpg/server/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminHandler handles the admin item-authoring endpoints.
// Routes must be protected by Auth + RequireAdmin middleware.
type AdminHandler struct {
	db     *gorm.DB
	inv    *item.InventoryService
	audit  *audit.Service
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, inv *item.InventoryService, auditSvc *audit.Service, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, inv: inv, audit: auditSvc, logger: logger}
}

type gameItemRequest struct {
	Name            string           `json:"name" binding:"required,min=1,max=64"`
	Type            string           `json:"type" binding:"required"`
	Rarity          string           `json:"rarity"`
	MinLevel        int              `json:"min_level"`
	RequiredClasses []string         `json:"required_classes"`
	RequiredStats   model.Attributes `json:"required_stats"`
	Stats           model.Attributes `json:"stats"`
	BonusHealth     int              `json:"bonus_health"`
	BonusDamage     int              `json:"bonus_damage"`
	BonusArmor      int              `json:"bonus_armor"`
	IsStackable     bool             `json:"is_stackable"`
	MaxQuantity     int              `json:"max_quantity"`
	Description     string           `json:"description"`
	Image           string           `json:"image"`
}

func (r *gameItemRequest) validate() string {
	if !model.ValidItemType(r.Type) {
		return "invalid item type"
	}
	if r.Rarity != "" && !model.ValidRarity(r.Rarity) {
		return "invalid rarity"
	}
	for _, cls := range r.RequiredClasses {
		if !model.ValidClass(cls) {
			return "invalid class in required_classes"
		}
	}
	if r.IsStackable && r.MaxQuantity < 1 {
		return "stackable item needs max_quantity >= 1"
	}
	return ""
}

func (r *gameItemRequest) apply(gi *model.GameItem) {
	gi.Name = r.Name
	gi.Type = r.Type
	gi.Rarity = r.Rarity
	if gi.Rarity == "" {
		gi.Rarity = model.RarityCommon
	}
	gi.MinLevel = r.MinLevel
	if gi.MinLevel < 1 {
		gi.MinLevel = 1
	}
	classes, _ := json.Marshal(r.RequiredClasses)
	gi.RequiredClasses = datatypes.JSON(classes)
	gi.RequiredStats = r.RequiredStats
	gi.Stats = r.Stats
	gi.BonusHealth = r.BonusHealth
	gi.BonusDamage = r.BonusDamage
	gi.BonusArmor = r.BonusArmor
	gi.IsStackable = r.IsStackable
	gi.MaxQuantity = r.MaxQuantity
	if gi.MaxQuantity < 1 {
		gi.MaxQuantity = 1
	}
	gi.Description = r.Description
	gi.Image = r.Image
}

// ListItems handles GET /api/admin/items.
func (h *AdminHandler) ListItems(c *gin.Context) {
	q := h.db
	if t := c.Query("type"); t != "" {
		q = q.Where("type = ?", t)
	}
	if r := c.Query("rarity"); r != "" {
		q = q.Where("rarity = ?", r)
	}
	var items []model.GameItem
	if err := q.Order("id").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// CreateItem handles POST /api/admin/items.
func (h *AdminHandler) CreateItem(c *gin.Context) {
	var req gameItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var gi model.GameItem
	req.apply(&gi)
	if err := h.db.Create(&gi).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "item name already taken"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	h.logger.Info("game item created", zap.Int64("id", gi.ID), zap.String("name", gi.Name))
	c.JSON(http.StatusCreated, gi)
}

// UpdateItem handles PUT /api/admin/items/:id.
func (h *AdminHandler) UpdateItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req gameItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var gi model.GameItem
	if err := h.db.First(&gi, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	req.apply(&gi)
	if err := h.db.Save(&gi).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "item name already taken"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, gi)
}

// DeleteItem handles DELETE /api/admin/items/:id.
// Items referenced by any character inventory cannot be removed.
func (h *AdminHandler) DeleteItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var refs []model.CharacterItem
	if err := h.db.Select("id").Where("game_item_id = ?", id).Limit(1).Find(&refs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if len(refs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item is owned by characters"})
		return
	}

	result := h.db.Delete(&model.GameItem{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

type grantItemRequest struct {
	CharacterID int64 `json:"character_id" binding:"required"`
	Quantity    int   `json:"quantity"`
}

// GrantItem handles POST /api/admin/items/:id/grant: sends a catalog item
// to a character's inventory.
func (h *AdminHandler) GrantItem(c *gin.Context) {
	start := time.Now()
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req grantItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.inv.Grant(c.Request.Context(), req.CharacterID, id, req.Quantity); err != nil {
		respondEquipError(c, err)
		return
	}

	if h.audit != nil {
		userID := mw.GetUserID(c)
		h.audit.Log(audit.Entry{
			TraceID:     mw.GetTraceID(c),
			UserID:      &userID,
			CharacterID: &req.CharacterID,
			Action:      "admin.grant_item",
			Request:     req,
			IP:          c.ClientIP(),
			DurationMs:  int(time.Since(start).Milliseconds()),
		})
	}
	c.JSON(http.StatusOK, gin.H{"message": "granted"})
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var users []model.User
	if err := h.db.Order("id").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// BanUser handles POST /api/admin/users/:id/ban.
func (h *AdminHandler) BanUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	result := h.db.Model(&model.User{}).Where("id = ?", id).Update("status", 0)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "banned"})
}
