// Package stats derives the combat-stat sheet of a character from its base
// attributes and currently equipped items. Everything here is a pure
// function over a snapshot; nothing except the health snapshot itself is
// ever persisted.
package stats

import (
	"math"
	"time"

	"github.com/arcadia-games/webrpg/server/model"
)

// Sheet is the full derived combat-stat sheet. Attributes are effective
// values (base + equipped bonuses). Percent stats are rounded to two
// decimal places; MaxHealth, Damage, Armor and CriticalDamage to the
// nearest integer.
type Sheet struct {
	Attributes      model.Attributes `json:"attributes"`
	MaxHealth       int              `json:"max_health"`
	HealthRegenRate float64          `json:"health_regen_rate"` // health per second
	Damage          int              `json:"damage"`
	Armor           int              `json:"armor"`
	CriticalChance  float64          `json:"critical_chance"` // percent
	CriticalDamage  int              `json:"critical_damage"` // percent
	Dodge           float64          `json:"dodge"`           // percent
	CounterAttack   float64          `json:"counter_attack"`  // percent
}

// Compute derives the stat sheet for char with the given inventory. Only
// rows with IsEquipped contribute; attribute bonuses are summed into the
// effective attributes, flat health/damage/armor bonuses are kept apart.
func Compute(char *model.Character, items []model.CharacterItem) Sheet {
	eff := char.Attributes
	var flatHealth, flatDamage, flatArmor int
	for i := range items {
		if !items[i].IsEquipped {
			continue
		}
		gi := &items[i].GameItem
		eff = eff.Add(gi.Stats)
		flatHealth += gi.BonusHealth
		flatDamage += gi.BonusDamage
		flatArmor += gi.BonusArmor
	}

	maxHealth := int(math.Round(100*float64(char.Level) + float64(eff.Endurance)*5 + float64(flatHealth)))
	var regen float64
	if char.FullRegenTime > 0 {
		regen = float64(maxHealth) / float64(char.FullRegenTime)
	}

	return Sheet{
		Attributes:      eff,
		MaxHealth:       maxHealth,
		HealthRegenRate: regen,
		Damage:          int(math.Round(float64(eff.Strength)*1.5+float64(eff.Intelligence)*0.5)) + flatDamage,
		Armor:           int(math.Round(float64(eff.Endurance)*0.5)) + flatArmor,
		CriticalChance:  round2(float64(eff.Intelligence) * 0.2),
		CriticalDamage:  100 + eff.Intelligence*2,
		Dodge:           round2(float64(eff.Dexterity) * 0.3),
		CounterAttack:   round2(float64(eff.Dexterity)*0.2 + float64(eff.Charisma)*0.1),
	}
}

// CurrentHealth extrapolates the stored health snapshot to now. Elapsed time
// before the snapshot is clamped to zero to tolerate clock skew; the result
// never exceeds the sheet's max health. Pure: the snapshot is not touched.
func CurrentHealth(health float64, lastUpdate time.Time, sheet Sheet, now time.Time) float64 {
	elapsed := now.Sub(lastUpdate).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return clamp(health+sheet.HealthRegenRate*elapsed, float64(sheet.MaxHealth))
}

// RescaleHealth is the commit rule for saves that change max health: the
// current health fraction is preserved so equipment and attribute changes
// scale the bar proportionally instead of leaving an absolute value behind.
func RescaleHealth(current, oldMax, newMax float64) float64 {
	if oldMax <= 0 || oldMax == newMax {
		return clamp(current, newMax)
	}
	return clamp(math.Round(newMax*(current/oldMax)), newMax)
}

func clamp(v, max float64) float64 {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
