package rest_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/arcadia-games/webrpg/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedInventoryRow(t *testing.T, db *gorm.DB, charID int64, name, itemType string) *model.CharacterItem {
	t.Helper()
	gi := &model.GameItem{Name: name, Type: itemType, MinLevel: 1, MaxQuantity: 1}
	require.NoError(t, db.Create(gi).Error)
	ci := &model.CharacterItem{CharacterID: charID, GameItemID: gi.ID, Quantity: 1}
	require.NoError(t, db.Create(ci).Error)
	return ci
}

func TestInventoryList(t *testing.T) {
	r, db, token := newGameRouter(t)
	agg := createTestCharacter(t, r, token, "Bagman")
	charID := int64(agg["character"].(map[string]interface{})["id"].(float64))

	seedInventoryRow(t, db, charID, "Sword", model.ItemTypeWeapon)
	seedInventoryRow(t, db, charID, "Shield", model.ItemTypeShield)

	w := doRequest(r, http.MethodGet, "/api/inventory", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	items := resp["inventory"].([]interface{})
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.NotEmpty(t, first["game_item"].(map[string]interface{})["name"])
}

func TestInventoryListNoCharacter(t *testing.T) {
	r, _, token := newGameRouter(t)
	w := doRequest(r, http.MethodGet, "/api/inventory", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInventoryDelete(t *testing.T) {
	r, db, token := newGameRouter(t)
	agg := createTestCharacter(t, r, token, "Dropper")
	charID := int64(agg["character"].(map[string]interface{})["id"].(float64))
	ci := seedInventoryRow(t, db, charID, "Junk", model.ItemTypeUseful)

	w := doRequest(r, http.MethodDelete, fmt.Sprintf("/api/inventory/%d", ci.ID), nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&model.CharacterItem{}).Where("id = ?", ci.ID).Count(&count)
	assert.Zero(t, count)
}

func TestInventoryDeleteEquipped(t *testing.T) {
	r, db, token := newGameRouter(t)
	agg := createTestCharacter(t, r, token, "Armored")
	charID := int64(agg["character"].(map[string]interface{})["id"].(float64))
	ci := seedInventoryRow(t, db, charID, "Sword", model.ItemTypeWeapon)

	w := doRequest(r, http.MethodPost, "/api/character/equip", map[string]interface{}{
		"character_item_id": ci.ID,
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(r, http.MethodDelete, fmt.Sprintf("/api/inventory/%d", ci.ID), nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInventoryDeleteInvalidID(t *testing.T) {
	r, _, token := newGameRouter(t)
	createTestCharacter(t, r, token, "Fumbler")

	w := doRequest(r, http.MethodDelete, "/api/inventory/notanid", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
