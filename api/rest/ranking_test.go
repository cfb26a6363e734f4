package rest_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/arcadia-games/webrpg/server/api/rest"
	"github.com/arcadia-games/webrpg/server/cache"
	"github.com/arcadia-games/webrpg/server/model"
	"github.com/arcadia-games/webrpg/server/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newRankingRouter(t *testing.T) (*gin.Engine, *gorm.DB, cache.Cache, *rest.RankingHandler) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	h := rest.NewRankingHandler(db, c, zap.NewNop())
	r := gin.New()
	r.GET("/api/ranking/exp", h.TopExp)
	return r, db, c, h
}

func seedRanked(t *testing.T, db *gorm.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, db.Create(&model.Character{
			UserID:           int64(i),
			Nickname:         fmt.Sprintf("Ranked%d", i),
			Class:            model.ClassWarrior,
			Level:            i,
			Experience:       int64(i * 100),
			Status:           model.StatusIdle,
			Health:           150,
			LastHealthUpdate: time.Now(),
			FullRegenTime:    600,
		}).Error)
	}
}

func TestTopExpFromDB(t *testing.T) {
	r, db, _, _ := newRankingRouter(t)
	seedRanked(t, db, 5)

	w := doRequest(r, http.MethodGet, "/api/ranking/exp?limit=3", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	entries := resp["ranking"].([]interface{})
	require.Len(t, entries, 3)

	first := entries[0].(map[string]interface{})
	assert.Equal(t, "Ranked5", first["nickname"])
	assert.Equal(t, float64(1), first["rank"])
	assert.Equal(t, float64(500), first["experience"])
}

func TestTopExpFromCache(t *testing.T) {
	r, db, _, h := newRankingRouter(t)
	seedRanked(t, db, 4)

	n, err := h.RefreshFromDB(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	w := doRequest(r, http.MethodGet, "/api/ranking/exp", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	entries := resp["ranking"].([]interface{})
	require.Len(t, entries, 4)

	// Ordered by experience descending, names joined from the DB.
	first := entries[0].(map[string]interface{})
	assert.Equal(t, "Ranked4", first["nickname"])
	last := entries[3].(map[string]interface{})
	assert.Equal(t, "Ranked1", last["nickname"])
}

func TestTopExpEmpty(t *testing.T) {
	r, _, _, _ := newRankingRouter(t)

	w := doRequest(r, http.MethodGet, "/api/ranking/exp", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp["ranking"])
}
