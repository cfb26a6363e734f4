package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/arcadia-games/webrpg/server/audit"
	"github.com/arcadia-games/webrpg/server/game/character"
	"github.com/arcadia-games/webrpg/server/game/item"
	mw "github.com/arcadia-games/webrpg/server/middleware"
	"github.com/arcadia-games/webrpg/server/model"
	"github.com/gin-gonic/gin"
)

// CharacterHandler handles character REST endpoints.
type CharacterHandler struct {
	chars *character.Service
	equip *item.EquipService
	audit *audit.Service
}

// NewCharacterHandler creates a new CharacterHandler.
func NewCharacterHandler(chars *character.Service, equip *item.EquipService, auditSvc *audit.Service) *CharacterHandler {
	return &CharacterHandler{chars: chars, equip: equip, audit: auditSvc}
}

// Get handles GET /api/character.
func (h *CharacterHandler) Get(c *gin.Context) {
	agg, err := h.chars.Get(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondCharacterError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

type createCharacterRequest struct {
	Nickname   string           `json:"nickname" binding:"required,min=1,max=32"`
	Class      string           `json:"class"    binding:"required"`
	Attributes model.Attributes `json:"attributes"`
}

// Create handles POST /api/character.
func (h *CharacterHandler) Create(c *gin.Context) {
	var req createCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agg, err := h.chars.Create(c.Request.Context(), mw.GetUserID(c), character.CreateInput{
		Nickname:   req.Nickname,
		Class:      req.Class,
		Attributes: req.Attributes,
	})
	if err != nil {
		respondCharacterError(c, err)
		return
	}
	c.JSON(http.StatusCreated, agg)
}

type allocateRequest struct {
	Attributes model.Attributes `json:"attributes"`
	Version    *int64           `json:"version" binding:"required"`
}

// Allocate handles PUT /api/character: attribute reallocation under the
// optimistic-concurrency protocol.
func (h *CharacterHandler) Allocate(c *gin.Context) {
	start := time.Now()
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := mw.GetUserID(c)
	agg, err := h.chars.AllocateAttributes(c.Request.Context(), userID, character.AllocateInput{
		Attributes: req.Attributes,
		Version:    *req.Version,
	})
	if err != nil {
		h.logAudit(c, "character.allocate", userID, nil, req, err, start)
		respondCharacterError(c, err)
		return
	}
	h.logAudit(c, "character.allocate", userID, &agg.Character.ID, req, agg.Character, start)
	c.JSON(http.StatusOK, agg)
}

type equipRequest struct {
	CharacterItemID int64 `json:"character_item_id" binding:"required"`
}

// Equip handles POST /api/character/equip: toggles the equipped state of one
// inventory item.
func (h *CharacterHandler) Equip(c *gin.Context) {
	start := time.Now()
	var req equipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := mw.GetUserID(c)
	if err := h.equip.Toggle(c.Request.Context(), userID, req.CharacterItemID); err != nil {
		h.logAudit(c, "character.equip", userID, nil, req, err, start)
		respondEquipError(c, err)
		return
	}

	agg, err := h.chars.Get(c.Request.Context(), userID)
	if err != nil {
		respondCharacterError(c, err)
		return
	}
	h.logAudit(c, "character.equip", userID, &agg.Character.ID, req, agg.Character, start)
	c.JSON(http.StatusOK, agg)
}

// GetStatus handles GET /api/character/status.
func (h *CharacterHandler) GetStatus(c *gin.Context) {
	status, autoStatus, err := h.chars.GetStatus(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondCharacterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "auto_status": autoStatus})
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus handles PUT /api/character/status.
func (h *CharacterHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.chars.SetStatus(c.Request.Context(), mw.GetUserID(c), req.Status); err != nil {
		respondCharacterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

func (h *CharacterHandler) logAudit(c *gin.Context, action string, userID int64, charID *int64, req, resp interface{}, start time.Time) {
	if h.audit == nil {
		return
	}
	entry := audit.Entry{
		TraceID:     mw.GetTraceID(c),
		UserID:      &userID,
		CharacterID: charID,
		Action:      action,
		Request:     req,
		Response:    resp,
		IP:          c.ClientIP(),
		DurationMs:  int(time.Since(start).Milliseconds()),
	}
	if err, ok := resp.(error); ok {
		entry.Error = err.Error()
		entry.Response = nil
	}
	h.audit.Log(entry)
}

// respondCharacterError maps character service errors to HTTP responses.
// Version conflicts are the one recoverable case: the client refetches and
// may retry; everything else rejects this specific request.
func respondCharacterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, character.ErrCharacterNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
	case errors.Is(err, character.ErrCharacterExists), errors.Is(err, character.ErrNicknameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, character.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "stale data, refetch and retry", "conflict": true})
	case errors.Is(err, character.ErrFinalDistribution):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, character.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// respondEquipError maps equip/inventory service errors to HTTP responses.
func respondEquipError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, item.ErrCharacterNotFound), errors.Is(err, item.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, item.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "stale data, refetch and retry", "conflict": true})
	case errors.Is(err, item.ErrNotEquippable),
		errors.Is(err, item.ErrLevelTooLow),
		errors.Is(err, item.ErrClassForbidden),
		errors.Is(err, item.ErrStatsTooLow),
		errors.Is(err, item.ErrItemEquipped),
		errors.Is(err, item.ErrStackLimit),
		errors.Is(err, item.ErrGameItemNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
