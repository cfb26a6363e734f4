// Package item implements equip/unequip and inventory mutations against the
// character aggregate.
package item

import (
	"context"
	"errors"
	"time"

	"github.com/arcadia-games/webrpg/server/game/stats"
	"github.com/arcadia-games/webrpg/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrItemNotFound      = errors.New("item not found in inventory")
	ErrNotEquippable     = errors.New("item type cannot be equipped")
	ErrLevelTooLow       = errors.New("character level below item requirement")
	ErrClassForbidden    = errors.New("item not usable by this class")
	ErrStatsTooLow       = errors.New("base attributes below item requirements")
	// ErrConflict is recoverable: a concurrent save touched the character
	// between read and write.
	ErrConflict = errors.New("character was modified concurrently")
)

// EquipService handles equip and unequip operations.
type EquipService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewEquipService creates a new EquipService.
func NewEquipService(db *gorm.DB, logger *zap.Logger) *EquipService {
	return &EquipService{db: db, logger: logger}
}

// Toggle flips the equipped state of one CharacterItem owned by userID's
// character. Equipping checks eligibility against base attributes and evicts
// any current occupant of the slot; unequipping has no checks. Either
// transition rescales the health snapshot and increments the character
// version, all in one transaction.
func (svc *EquipService) Toggle(ctx context.Context, userID, characterItemID int64) error {
	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var char model.Character
		err := tx.Preload("Items.GameItem").Where("user_id = ?", userID).First(&char).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCharacterNotFound
		}
		if err != nil {
			return err
		}

		target := -1
		for i := range char.Items {
			if char.Items[i].ID == characterItemID {
				target = i
				break
			}
		}
		if target < 0 {
			return ErrItemNotFound
		}
		ci := &char.Items[target]

		oldSheet := stats.Compute(&char, char.Items)
		now := time.Now()
		current := stats.CurrentHealth(char.Health, char.LastHealthUpdate, oldSheet, now)

		var touched []*model.CharacterItem
		if ci.IsEquipped {
			ci.IsEquipped = false
			ci.Slot = ""
			touched = append(touched, ci)
		} else {
			slot, ok := ci.GameItem.Slot()
			if !ok {
				return ErrNotEquippable
			}
			if char.Level < ci.GameItem.MinLevel {
				return ErrLevelTooLow
			}
			if !ci.GameItem.AllowsClass(char.Class) {
				return ErrClassForbidden
			}
			// Requirements are checked against base attributes, not
			// item-boosted ones.
			if !char.Attributes.Meets(ci.GameItem.RequiredStats) {
				return ErrStatsTooLow
			}
			// Exactly one occupant per slot.
			for i := range char.Items {
				if i != target && char.Items[i].IsEquipped && char.Items[i].Slot == slot {
					char.Items[i].IsEquipped = false
					char.Items[i].Slot = ""
					touched = append(touched, &char.Items[i])
				}
			}
			ci.IsEquipped = true
			ci.Slot = slot
			touched = append(touched, ci)
		}

		for _, row := range touched {
			res := tx.Model(&model.CharacterItem{}).Where("id = ?", row.ID).
				Updates(map[string]interface{}{
					"is_equipped": row.IsEquipped,
					"slot":        row.Slot,
				})
			if res.Error != nil {
				return res.Error
			}
		}

		newSheet := stats.Compute(&char, char.Items)
		newHealth := stats.RescaleHealth(current, float64(oldSheet.MaxHealth), float64(newSheet.MaxHealth))

		res := tx.Model(&model.Character{}).
			Where("id = ? AND version = ?", char.ID, char.Version).
			Updates(map[string]interface{}{
				"health":             newHealth,
				"last_health_update": now,
				"version":            char.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		svc.logger.Info("equip toggled",
			zap.Int64("character_id", char.ID),
			zap.Int64("character_item_id", ci.ID),
			zap.Bool("equipped", ci.IsEquipped),
			zap.String("slot", ci.Slot))
		return nil
	})
}
