package model

import "time"

// Character classes. Immutable after creation.
const (
	ClassWarrior = "warrior"
	ClassMage    = "mage"
	ClassArcher  = "archer"
)

// User-selectable status labels.
const (
	StatusIdle             = "idle"
	StatusResting          = "resting"
	StatusLookingForBattle = "looking-for-battle"
)

// ValidClass reports whether class is one of the playable classes.
func ValidClass(class string) bool {
	switch class {
	case ClassWarrior, ClassMage, ClassArcher:
		return true
	}
	return false
}

// ValidStatus reports whether status is a user-selectable label.
func ValidStatus(status string) bool {
	switch status {
	case StatusIdle, StatusResting, StatusLookingForBattle:
		return true
	}
	return false
}

// Attributes holds the five base attributes. Embedded into Character and,
// with prefixes, into GameItem for requirements and bonuses.
type Attributes struct {
	Strength     int `gorm:"default:0" json:"strength"`
	Dexterity    int `gorm:"default:0" json:"dexterity"`
	Intelligence int `gorm:"default:0" json:"intelligence"`
	Endurance    int `gorm:"default:0" json:"endurance"`
	Charisma     int `gorm:"default:0" json:"charisma"`
}

// Total returns the sum of all five attributes.
func (a Attributes) Total() int {
	return a.Strength + a.Dexterity + a.Intelligence + a.Endurance + a.Charisma
}

// Add returns a + b field by field.
func (a Attributes) Add(b Attributes) Attributes {
	return Attributes{
		Strength:     a.Strength + b.Strength,
		Dexterity:    a.Dexterity + b.Dexterity,
		Intelligence: a.Intelligence + b.Intelligence,
		Endurance:    a.Endurance + b.Endurance,
		Charisma:     a.Charisma + b.Charisma,
	}
}

// Meets reports whether every attribute in a is >= the matching requirement.
func (a Attributes) Meets(req Attributes) bool {
	return a.Strength >= req.Strength &&
		a.Dexterity >= req.Dexterity &&
		a.Intelligence >= req.Intelligence &&
		a.Endurance >= req.Endurance &&
		a.Charisma >= req.Charisma
}

// Character is the single playable character of a user.
//
// Health is a persisted snapshot paired with LastHealthUpdate; the current
// value is extrapolated lazily at read time. Version is the optimistic
// concurrency counter: every save that changes base attributes or the
// inventory increments it by exactly one.
type Character struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            int64           `gorm:"uniqueIndex:idx_char_user;not null" json:"user_id"`
	Nickname          string          `gorm:"uniqueIndex;size:32;not null" json:"nickname"`
	Class             string          `gorm:"size:16;not null" json:"class"`
	Level             int             `gorm:"default:1" json:"level"`
	Experience        int64           `gorm:"default:0" json:"experience"`
	Gold              int64           `gorm:"default:0" json:"gold"`
	Status            string          `gorm:"size:32;default:idle" json:"status"`
	AutoStatus        string          `gorm:"size:32" json:"auto_status"`
	Attributes        Attributes      `gorm:"embedded" json:"attributes"`
	AvailablePoints   int             `gorm:"default:0" json:"available_points"`
	FinalDistribution bool            `gorm:"default:false" json:"final_distribution"`
	Health            float64         `gorm:"not null" json:"health"`
	LastHealthUpdate  time.Time       `gorm:"not null" json:"last_health_update"`
	FullRegenTime     int             `gorm:"default:600" json:"full_regen_time"` // seconds from 0 to full
	Version           int64           `gorm:"default:0" json:"version"`
	Items             []CharacterItem `gorm:"foreignKey:CharacterID" json:"items,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
