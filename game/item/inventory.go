package item

import (
	"context"
	"errors"

	"github.com/arcadia-games/webrpg/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrGameItemNotFound = errors.New("game item not found")
	ErrStackLimit       = errors.New("stack quantity limit exceeded")
	ErrItemEquipped     = errors.New("item is equipped, unequip it first")
)

// InventoryService handles inventory add/remove flows.
type InventoryService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(db *gorm.DB, logger *zap.Logger) *InventoryService {
	return &InventoryService{db: db, logger: logger}
}

// List returns all inventory rows of a character with catalog data joined.
func (svc *InventoryService) List(ctx context.Context, characterID int64) ([]model.CharacterItem, error) {
	var items []model.CharacterItem
	err := svc.db.WithContext(ctx).Preload("GameItem").
		Where("character_id = ?", characterID).Find(&items).Error
	return items, err
}

// Grant adds quantity of a catalog item to a character (the send-item flow).
// Stackable items merge into an existing unequipped stack up to the item's
// max quantity; non-stackable items get one row each. Any inventory change
// bumps the character version.
func (svc *InventoryService) Grant(ctx context.Context, characterID, gameItemID int64, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}
	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gi model.GameItem
		if err := tx.First(&gi, gameItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGameItemNotFound
			}
			return err
		}
		var char model.Character
		if err := tx.First(&char, characterID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCharacterNotFound
			}
			return err
		}

		if gi.IsStackable {
			var existing model.CharacterItem
			err := tx.Where("character_id = ? AND game_item_id = ? AND is_equipped = false",
				characterID, gameItemID).First(&existing).Error
			switch {
			case err == nil:
				if existing.Quantity+quantity > gi.MaxQuantity {
					return ErrStackLimit
				}
				if err := tx.Model(&existing).
					Update("quantity", existing.Quantity+quantity).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if quantity > gi.MaxQuantity {
					return ErrStackLimit
				}
				if err := tx.Create(&model.CharacterItem{
					CharacterID: characterID,
					GameItemID:  gameItemID,
					Quantity:    quantity,
				}).Error; err != nil {
					return err
				}
			default:
				return err
			}
		} else {
			for i := 0; i < quantity; i++ {
				if err := tx.Create(&model.CharacterItem{
					CharacterID: characterID,
					GameItemID:  gameItemID,
					Quantity:    1,
				}).Error; err != nil {
					return err
				}
			}
		}

		if err := bumpVersion(tx, characterID); err != nil {
			return err
		}
		svc.logger.Info("item granted",
			zap.Int64("character_id", characterID),
			zap.Int64("game_item_id", gameItemID),
			zap.Int("quantity", quantity))
		return nil
	})
}

// Remove deletes one inventory row owned by userID's character (the
// delete-item flow). Equipped items must be unequipped first so removal
// never changes derived stats.
func (svc *InventoryService) Remove(ctx context.Context, userID, characterItemID int64) error {
	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var char model.Character
		err := tx.Where("user_id = ?", userID).First(&char).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCharacterNotFound
		}
		if err != nil {
			return err
		}

		var ci model.CharacterItem
		err = tx.Where("id = ? AND character_id = ?", characterItemID, char.ID).First(&ci).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return err
		}
		if ci.IsEquipped {
			return ErrItemEquipped
		}
		if err := tx.Delete(&ci).Error; err != nil {
			return err
		}
		return bumpVersion(tx, char.ID)
	})
}

// bumpVersion increments the optimistic-concurrency counter after an
// inventory mutation.
func bumpVersion(tx *gorm.DB, characterID int64) error {
	return tx.Model(&model.Character{}).Where("id = ?", characterID).
		Update("version", gorm.Expr("version + 1")).Error
}
