package rest_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/arcadia-games/webrpg/server/api/rest"
	"github.com/arcadia-games/webrpg/server/game/item"
	mw "github.com/arcadia-games/webrpg/server/middleware"
	"github.com/arcadia-games/webrpg/server/model"
	"github.com/arcadia-games/webrpg/server/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// newAdminRouter wires the admin routes and returns an admin token and a
// plain player token.
func newAdminRouter(t *testing.T) (*gin.Engine, *gorm.DB, string, string) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	sec := testSec()
	logger := zap.NewNop()

	invSvc := item.NewInventoryService(db, logger)
	authH := rest.NewAuthHandler(db, c, sec)
	adminH := rest.NewAdminHandler(db, invSvc, nil, logger)

	r := gin.New()
	r.POST("/api/auth/login", authH.Login)
	adminG := r.Group("/api/admin", mw.Auth(sec, c), mw.RequireAdmin())
	{
		adminG.GET("/items", adminH.ListItems)
		adminG.POST("/items", adminH.CreateItem)
		adminG.PUT("/items/:id", adminH.UpdateItem)
		adminG.DELETE("/items/:id", adminH.DeleteItem)
		adminG.POST("/items/:id/grant", adminH.GrantItem)
		adminG.GET("/users", adminH.ListUsers)
		adminG.POST("/users/:id/ban", adminH.BanUser)
	}

	// The role claim is minted at login, so the admin user must exist with
	// its role before the first login.
	hash, err := bcrypt.GenerateFromPassword([]byte("adminpass"), 12)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.User{
		Username: "gm", PasswordHash: string(hash), Role: model.RoleAdmin, Status: 1,
	}).Error)

	adminToken := loginAndGetToken(t, r, "gm", "adminpass")
	playerToken := loginAndGetToken(t, r, "mortal", "playerpass")
	return r, db, adminToken, playerToken
}

func seedAdminCharacter(t *testing.T, db *gorm.DB, userID int64, nickname string) *model.Character {
	t.Helper()
	char := &model.Character{
		UserID: userID, Nickname: nickname, Class: model.ClassWarrior, Level: 1,
		Status: model.StatusIdle,
		Attributes: model.Attributes{
			Strength: 10, Dexterity: 10, Intelligence: 10, Endurance: 10, Charisma: 10,
		},
		Health: 150, LastHealthUpdate: time.Now(), FullRegenTime: 600,
	}
	require.NoError(t, db.Create(char).Error)
	return char
}

func itemBody(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":      name,
		"type":      "weapon",
		"rarity":    "rare",
		"min_level": 2,
		"stats":     map[string]int{"strength": 3},
	}
}

func TestAdminCreateItem(t *testing.T) {
	r, _, admin, _ := newAdminRouter(t)

	w := doRequest(r, http.MethodPost, "/api/admin/items", itemBody("Fine Sword"), admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var gi map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gi))
	assert.Equal(t, "Fine Sword", gi["name"])
	assert.Equal(t, "rare", gi["rarity"])
}

func TestAdminCreateItemValidation(t *testing.T) {
	r, _, admin, _ := newAdminRouter(t)

	body := itemBody("Oddity")
	body["type"] = "relic"
	w := doRequest(r, http.MethodPost, "/api/admin/items", body, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = itemBody("Pots")
	body["type"] = "useful"
	body["is_stackable"] = true
	body["max_quantity"] = 0
	w = doRequest(r, http.MethodPost, "/api/admin/items", body, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminCreateItemDuplicateName(t *testing.T) {
	r, _, admin, _ := newAdminRouter(t)

	w := doRequest(r, http.MethodPost, "/api/admin/items", itemBody("Twin Blade"), admin)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(r, http.MethodPost, "/api/admin/items", itemBody("Twin Blade"), admin)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminListItemsFiltered(t *testing.T) {
	r, db, admin, _ := newAdminRouter(t)
	require.NoError(t, db.Create(&model.GameItem{Name: "Sword", Type: "weapon", Rarity: "common", MinLevel: 1, MaxQuantity: 1}).Error)
	require.NoError(t, db.Create(&model.GameItem{Name: "Helm", Type: "helmet", Rarity: "rare", MinLevel: 1, MaxQuantity: 1}).Error)

	w := doRequest(r, http.MethodGet, "/api/admin/items?type=helmet", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	items := resp["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Helm", items[0].(map[string]interface{})["name"])
}

func TestAdminUpdateItem(t *testing.T) {
	r, db, admin, _ := newAdminRouter(t)
	gi := &model.GameItem{Name: "Old Name", Type: "weapon", Rarity: "common", MinLevel: 1, MaxQuantity: 1}
	require.NoError(t, db.Create(gi).Error)

	body := itemBody("New Name")
	w := doRequest(r, http.MethodPut, fmt.Sprintf("/api/admin/items/%d", gi.ID), body, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got model.GameItem
	require.NoError(t, db.First(&got, gi.ID).Error)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, 2, got.MinLevel)
}

func TestAdminUpdateItemNotFound(t *testing.T) {
	r, _, admin, _ := newAdminRouter(t)
	w := doRequest(r, http.MethodPut, "/api/admin/items/999", itemBody("Ghost"), admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminDeleteItem(t *testing.T) {
	r, db, admin, _ := newAdminRouter(t)
	gi := &model.GameItem{Name: "Trash", Type: "weapon", MinLevel: 1, MaxQuantity: 1}
	require.NoError(t, db.Create(gi).Error)

	w := doRequest(r, http.MethodDelete, fmt.Sprintf("/api/admin/items/%d", gi.ID), nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodDelete, fmt.Sprintf("/api/admin/items/%d", gi.ID), nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminDeleteOwnedItemRejected(t *testing.T) {
	r, db, admin, _ := newAdminRouter(t)
	char := seedAdminCharacter(t, db, 50, "Owner")
	gi := &model.GameItem{Name: "Heirloom", Type: "weapon", MinLevel: 1, MaxQuantity: 1}
	require.NoError(t, db.Create(gi).Error)
	require.NoError(t, db.Create(&model.CharacterItem{CharacterID: char.ID, GameItemID: gi.ID, Quantity: 1}).Error)

	w := doRequest(r, http.MethodDelete, fmt.Sprintf("/api/admin/items/%d", gi.ID), nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminGrantItem(t *testing.T) {
	r, db, admin, _ := newAdminRouter(t)
	char := seedAdminCharacter(t, db, 51, "Lucky")
	gi := &model.GameItem{Name: "Gift Sword", Type: "weapon", MinLevel: 1, MaxQuantity: 1}
	require.NoError(t, db.Create(gi).Error)

	w := doRequest(r, http.MethodPost, fmt.Sprintf("/api/admin/items/%d/grant", gi.ID), map[string]interface{}{
		"character_id": char.ID,
		"quantity":     1,
	}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int64
	db.Model(&model.CharacterItem{}).Where("character_id = ?", char.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAdminGrantUnknownItem(t *testing.T) {
	r, db, admin, _ := newAdminRouter(t)
	char := seedAdminCharacter(t, db, 52, "Unlucky")

	w := doRequest(r, http.MethodPost, "/api/admin/items/999/grant", map[string]interface{}{
		"character_id": char.ID,
	}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminForbiddenForPlayer(t *testing.T) {
	r, _, _, player := newAdminRouter(t)

	w := doRequest(r, http.MethodGet, "/api/admin/items", nil, player)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, http.MethodPost, "/api/admin/items", itemBody("Nope"), player)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminListUsers(t *testing.T) {
	r, _, admin, _ := newAdminRouter(t)

	w := doRequest(r, http.MethodGet, "/api/admin/users", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// "gm" and "mortal" registered in setup.
	assert.Equal(t, float64(2), resp["count"])
}

func TestAdminBanUser(t *testing.T) {
	r, db, admin, _ := newAdminRouter(t)

	var mortal model.User
	require.NoError(t, db.Where("username = ?", "mortal").First(&mortal).Error)

	w := doRequest(r, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/ban", mortal.ID), nil, admin)
	require.Equal(t, http.StatusOK, w.Code)

	var got model.User
	require.NoError(t, db.First(&got, mortal.ID).Error)
	assert.Equal(t, 0, got.Status)

	w = doRequest(r, http.MethodPost, "/api/admin/users/999/ban", nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
