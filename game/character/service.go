// Package character implements the character aggregate: creation, reads
// with lazily extrapolated health, the attribute-allocation protocol, and
// the status sub-resource.
package character

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arcadia-games/webrpg/server/config"
	"github.com/arcadia-games/webrpg/server/game/stats"
	"github.com/arcadia-games/webrpg/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrCharacterExists: a user may own exactly one character.
	ErrCharacterExists   = errors.New("character already exists for this user")
	ErrNicknameTaken     = errors.New("nickname already taken")
	ErrCharacterNotFound = errors.New("character not found")
	// ErrVersionConflict is recoverable: the caller must refetch and may
	// retry with the new version. All other failures are terminal for the
	// request.
	ErrVersionConflict   = errors.New("character was modified concurrently")
	ErrFinalDistribution = errors.New("attribute distribution is final")
	// ErrValidation wraps budget and range violations; the message names the
	// violated constraint.
	ErrValidation = errors.New("invalid request")
)

// Service owns all Character mutations.
type Service struct {
	db     *gorm.DB
	game   config.GameConfig
	logger *zap.Logger
}

// NewService creates a character Service.
func NewService(db *gorm.DB, game config.GameConfig, logger *zap.Logger) *Service {
	return &Service{db: db, game: game, logger: logger}
}

// Aggregate is the character read model: the record with inventory joined,
// the derived stat sheet, and the health snapshot replaced by the
// extrapolated current value.
type Aggregate struct {
	Character *model.Character `json:"character"`
	Stats     stats.Sheet      `json:"stats"`
}

// CreateInput is the creation payload. Attribute totals may exceed the
// baseline (five times the base attribute) by at most the bonus-point
// budget.
type CreateInput struct {
	Nickname   string
	Class      string
	Attributes model.Attributes
}

// Create makes the one character of userID. Rejects a second character, an
// unknown class, attributes below the floor, and overspent bonus points.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (*Aggregate, error) {
	if !model.ValidClass(in.Class) {
		return nil, fmt.Errorf("%w: unknown class %q", ErrValidation, in.Class)
	}
	base := s.game.BaseAttribute
	for name, v := range map[string]int{
		"strength":     in.Attributes.Strength,
		"dexterity":    in.Attributes.Dexterity,
		"intelligence": in.Attributes.Intelligence,
		"endurance":    in.Attributes.Endurance,
		"charisma":     in.Attributes.Charisma,
	} {
		if v < base {
			return nil, fmt.Errorf("%w: %s below minimum %d", ErrValidation, name, base)
		}
	}
	spent := in.Attributes.Total() - base*5
	if spent > s.game.BonusPoints {
		return nil, fmt.Errorf("%w: %d bonus points spent, only %d available", ErrValidation, spent, s.game.BonusPoints)
	}

	char := &model.Character{
		UserID:            userID,
		Nickname:          in.Nickname,
		Class:             in.Class,
		Level:             1,
		Status:            model.StatusIdle,
		Attributes:        in.Attributes,
		AvailablePoints:   s.game.BonusPoints - spent,
		FinalDistribution: s.game.BonusPoints-spent == 0,
		FullRegenTime:     s.game.FullRegenTimeS,
		LastHealthUpdate:  time.Now(),
		Version:           0,
	}
	sheet := stats.Compute(char, nil)
	char.Health = float64(sheet.MaxHealth)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Character
		err := tx.Where("user_id = ?", userID).First(&existing).Error
		if err == nil {
			return ErrCharacterExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(char).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrNicknameTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("character created",
		zap.Int64("user_id", userID),
		zap.String("nickname", char.Nickname),
		zap.String("class", char.Class))
	return &Aggregate{Character: char, Stats: sheet}, nil
}

// Get loads the aggregate of userID's character with inventory populated.
// The health field carries the extrapolated current value; the persisted
// snapshot is untouched.
func (s *Service) Get(ctx context.Context, userID int64) (*Aggregate, error) {
	char, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	sheet := stats.Compute(char, char.Items)
	char.Health = stats.CurrentHealth(char.Health, char.LastHealthUpdate, sheet, time.Now())
	return &Aggregate{Character: char, Stats: sheet}, nil
}

// AllocateInput is the attribute-reallocation payload. Version must echo
// the version the client last observed.
type AllocateInput struct {
	Attributes model.Attributes
	Version    int64
}

// AllocateAttributes applies a client-proposed attribute set under the
// optimistic-concurrency protocol. Checks run in order: version, terminal
// state, point budget, per-attribute range. On success the attributes,
// remaining points, rescaled health and version+1 are saved in one
// compare-and-swap update.
func (s *Service) AllocateAttributes(ctx context.Context, userID int64, in AllocateInput) (*Aggregate, error) {
	var result *Aggregate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		char, err := loadTx(tx, userID)
		if err != nil {
			return err
		}
		if in.Version != char.Version {
			return ErrVersionConflict
		}
		if char.FinalDistribution {
			return ErrFinalDistribution
		}
		spent := in.Attributes.Total() - char.Attributes.Total()
		if spent < 0 {
			return fmt.Errorf("%w: attribute points cannot be removed", ErrValidation)
		}
		if spent > char.AvailablePoints {
			return fmt.Errorf("%w: %d points spent, only %d available", ErrValidation, spent, char.AvailablePoints)
		}
		if err := checkRanges(char.Attributes, in.Attributes, char.AvailablePoints); err != nil {
			return err
		}

		oldSheet := stats.Compute(char, char.Items)
		now := time.Now()
		current := stats.CurrentHealth(char.Health, char.LastHealthUpdate, oldSheet, now)

		char.Attributes = in.Attributes
		char.AvailablePoints -= spent
		char.FinalDistribution = char.AvailablePoints == 0
		newSheet := stats.Compute(char, char.Items)
		char.Health = stats.RescaleHealth(current, float64(oldSheet.MaxHealth), float64(newSheet.MaxHealth))
		char.LastHealthUpdate = now

		res := tx.Model(&model.Character{}).
			Where("id = ? AND version = ?", char.ID, in.Version).
			Updates(map[string]interface{}{
				"strength":           char.Attributes.Strength,
				"dexterity":          char.Attributes.Dexterity,
				"intelligence":       char.Attributes.Intelligence,
				"endurance":          char.Attributes.Endurance,
				"charisma":           char.Attributes.Charisma,
				"available_points":   char.AvailablePoints,
				"final_distribution": char.FinalDistribution,
				"health":             char.Health,
				"last_health_update": char.LastHealthUpdate,
				"version":            in.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race between read and write.
			return ErrVersionConflict
		}
		char.Version = in.Version + 1
		char.Health = stats.CurrentHealth(char.Health, char.LastHealthUpdate, newSheet, time.Now())
		result = &Aggregate{Character: char, Stats: newSheet}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("attributes allocated",
		zap.Int64("character_id", result.Character.ID),
		zap.Int("available_points", result.Character.AvailablePoints),
		zap.Int64("version", result.Character.Version))
	return result, nil
}

// GetStatus returns the user-chosen and auto status labels.
func (s *Service) GetStatus(ctx context.Context, userID int64) (status, autoStatus string, err error) {
	char, err := s.load(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return char.Status, char.AutoStatus, nil
}

// SetStatus updates the user-chosen status label. Independent of the auto
// status and of the version counter (no attribute or inventory change).
func (s *Service) SetStatus(ctx context.Context, userID int64, status string) error {
	if !model.ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	res := s.db.WithContext(ctx).Model(&model.Character{}).
		Where("user_id = ?", userID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

func (s *Service) load(ctx context.Context, userID int64) (*model.Character, error) {
	return loadTx(s.db.WithContext(ctx), userID)
}

func loadTx(tx *gorm.DB, userID int64) (*model.Character, error) {
	var char model.Character
	err := tx.Preload("Items.GameItem").Where("user_id = ?", userID).First(&char).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCharacterNotFound
	}
	if err != nil {
		return nil, err
	}
	return &char, nil
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}

// checkRanges verifies each attribute stays within [old, old+available].
func checkRanges(old, proposed model.Attributes, available int) error {
	check := func(name string, o, p int) error {
		if p < o {
			return fmt.Errorf("%w: %s cannot decrease below %d", ErrValidation, name, o)
		}
		if p > o+available {
			return fmt.Errorf("%w: %s exceeds %d available points", ErrValidation, name, available)
		}
		return nil
	}
	if err := check("strength", old.Strength, proposed.Strength); err != nil {
		return err
	}
	if err := check("dexterity", old.Dexterity, proposed.Dexterity); err != nil {
		return err
	}
	if err := check("intelligence", old.Intelligence, proposed.Intelligence); err != nil {
		return err
	}
	if err := check("endurance", old.Endurance, proposed.Endurance); err != nil {
		return err
	}
	return check("charisma", old.Charisma, proposed.Charisma)
}
