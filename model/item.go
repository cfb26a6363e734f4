package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Item types. Every type except "useful" maps to an equipment slot of the
// same name.
const (
	ItemTypeWeapon = "weapon"
	ItemTypeArmor  = "armor"
	ItemTypeHelmet = "helmet"
	ItemTypeShield = "shield"
	ItemTypeCloak  = "cloak"
	ItemTypeBelt   = "belt"
	ItemTypeBoots  = "boots"
	ItemTypeBanner = "banner"
	ItemTypeUseful = "useful"
)

// Rarities, ordered weakest to strongest.
const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

var rarityRank = map[string]int{
	RarityCommon:    0,
	RarityUncommon:  1,
	RarityRare:      2,
	RarityEpic:      3,
	RarityLegendary: 4,
}

// ValidItemType reports whether t is a known item type.
func ValidItemType(t string) bool {
	_, ok := slotForType(t)
	return ok || t == ItemTypeUseful
}

// ValidRarity reports whether r is a known rarity.
func ValidRarity(r string) bool {
	_, ok := rarityRank[r]
	return ok
}

// RarityRank returns the ordering index of a rarity (common=0 … legendary=4).
func RarityRank(r string) int {
	return rarityRank[r]
}

func slotForType(t string) (string, bool) {
	switch t {
	case ItemTypeWeapon, ItemTypeArmor, ItemTypeHelmet, ItemTypeShield,
		ItemTypeCloak, ItemTypeBelt, ItemTypeBoots, ItemTypeBanner:
		return t, true
	}
	return "", false
}

// GameItem is an immutable catalog entry authored by admins. Gameplay never
// mutates it.
type GameItem struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Type     string `gorm:"size:16;not null" json:"type"`
	Rarity   string `gorm:"size:16;default:common" json:"rarity"`
	MinLevel int    `gorm:"default:1" json:"min_level"`
	// RequiredClasses is a JSON array of class tags; empty means any class.
	RequiredClasses datatypes.JSON `json:"required_classes"`
	// RequiredStats are per-attribute minimums checked against base attributes.
	RequiredStats Attributes `gorm:"embedded;embeddedPrefix:req_" json:"required_stats"`
	// Stats are per-attribute bonuses applied while the item is equipped.
	Stats Attributes `gorm:"embedded;embeddedPrefix:bonus_" json:"stats"`
	// Flat combat bonuses, not summed into attributes.
	BonusHealth int       `gorm:"default:0" json:"bonus_health"`
	BonusDamage int       `gorm:"default:0" json:"bonus_damage"`
	BonusArmor  int       `gorm:"default:0" json:"bonus_armor"`
	IsStackable bool      `gorm:"default:false" json:"is_stackable"`
	MaxQuantity int       `gorm:"default:1" json:"max_quantity"`
	Description string    `gorm:"type:text" json:"description"`
	Image       string    `gorm:"size:128" json:"image"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Slot returns the equipment slot for this item type. ok is false for
// non-equippable types.
func (i *GameItem) Slot() (string, bool) {
	return slotForType(i.Type)
}

// AllowsClass reports whether class may equip this item. An empty or missing
// RequiredClasses list allows any class.
func (i *GameItem) AllowsClass(class string) bool {
	if len(i.RequiredClasses) == 0 {
		return true
	}
	var classes []string
	if err := json.Unmarshal(i.RequiredClasses, &classes); err != nil {
		return false
	}
	if len(classes) == 0 {
		return true
	}
	for _, c := range classes {
		if c == class {
			return true
		}
	}
	return false
}

// CharacterItem binds one GameItem to one Character: an inventory slot.
// It may be equipped only when Slot is non-empty, and at most one item
// occupies a given slot per character.
type CharacterItem struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CharacterID int64     `gorm:"index:idx_char_items;not null" json:"character_id"`
	GameItemID  int64     `gorm:"not null" json:"game_item_id"`
	GameItem    GameItem  `gorm:"foreignKey:GameItemID" json:"game_item"`
	Quantity    int       `gorm:"default:1" json:"quantity"`
	IsEquipped  bool      `gorm:"default:false" json:"is_equipped"`
	Slot        string    `gorm:"size:16;default:''" json:"slot"` // empty = not equipped
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
