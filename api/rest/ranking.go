package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/arcadia-games/webrpg/server/cache"
	"github.com/arcadia-games/webrpg/server/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RankingHandler handles leaderboard REST endpoints.
type RankingHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(db *gorm.DB, c cache.Cache, logger *zap.Logger) *RankingHandler {
	return &RankingHandler{db: db, cache: c, logger: logger}
}

const rankingZKey = "ranking:exp"
const rankingTop = 100

// RankEntry is one row in the leaderboard.
type RankEntry struct {
	Rank       int    `json:"rank"`
	CharID     int64  `json:"char_id"`
	Nickname   string `json:"nickname"`
	Level      int    `json:"level"`
	Experience int64  `json:"experience"`
}

// TopExp returns the top characters sorted by experience.
// GET /api/ranking/exp?limit=20
func (h *RankingHandler) TopExp(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= rankingTop {
		limit = l
	}

	// Try cached ranking from sorted set.
	ctx := c.Request.Context()
	members, err := h.cache.ZRevRange(ctx, rankingZKey, 0, int64(limit-1))
	if err == nil && len(members) > 0 {
		entries := make([]RankEntry, 0, len(members))
		for i, m := range members {
			charID, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				continue
			}
			score, _ := h.cache.ZScore(ctx, rankingZKey, m)
			entries = append(entries, RankEntry{
				Rank:       i + 1,
				CharID:     charID,
				Experience: int64(score),
			})
		}
		h.enrichNames(entries)
		c.JSON(http.StatusOK, gin.H{"ranking": entries})
		return
	}

	// Fall back to DB query.
	var chars []model.Character
	h.db.Select("id, nickname, level, experience").
		Order("experience DESC").
		Limit(limit).
		Find(&chars)

	entries := make([]RankEntry, len(chars))
	for i, ch := range chars {
		entries[i] = RankEntry{
			Rank:       i + 1,
			CharID:     ch.ID,
			Nickname:   ch.Nickname,
			Level:      ch.Level,
			Experience: ch.Experience,
		}
		// Refresh cache entry.
		_ = h.cache.ZAdd(ctx, rankingZKey, float64(ch.Experience), strconv.FormatInt(ch.ID, 10))
	}
	c.JSON(http.StatusOK, gin.H{"ranking": entries})
}

// Refresh handles POST /api/admin/ranking/refresh.
func (h *RankingHandler) Refresh(c *gin.Context) {
	n, err := h.RefreshFromDB(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": n})
}

// RefreshFromDB rebuilds the ranking sorted set from the DB.
// Called periodically by the scheduler.
func (h *RankingHandler) RefreshFromDB(ctx context.Context) (int, error) {
	var chars []model.Character
	if err := h.db.Select("id, experience").Order("experience DESC").Limit(rankingTop).Find(&chars).Error; err != nil {
		return 0, err
	}
	for _, ch := range chars {
		_ = h.cache.ZAdd(ctx, rankingZKey, float64(ch.Experience), strconv.FormatInt(ch.ID, 10))
	}
	return len(chars), nil
}

func (h *RankingHandler) enrichNames(entries []RankEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.CharID
	}
	var chars []model.Character
	h.db.Select("id, nickname, level, experience").Where("id IN ?", ids).Find(&chars)
	nameMap := make(map[int64]model.Character, len(chars))
	for _, ch := range chars {
		nameMap[ch.ID] = ch
	}
	for i := range entries {
		if ch, ok := nameMap[entries[i].CharID]; ok {
			entries[i].Nickname = ch.Nickname
			entries[i].Level = ch.Level
			entries[i].Experience = ch.Experience
		}
	}
}
