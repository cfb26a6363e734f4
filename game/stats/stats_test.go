package stats_test

import (
	"testing"
	"time"

	"github.com/arcadia-games/webrpg/server/game/stats"
	"github.com/arcadia-games/webrpg/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseChar() *model.Character {
	return &model.Character{
		Level:         1,
		FullRegenTime: 600,
		Attributes: model.Attributes{
			Strength: 10, Dexterity: 10, Intelligence: 10, Endurance: 10, Charisma: 10,
		},
	}
}

func TestComputeBaseline(t *testing.T) {
	sheet := stats.Compute(baseChar(), nil)

	assert.Equal(t, 150, sheet.MaxHealth) // 100*1 + 10*5
	assert.InDelta(t, 0.25, sheet.HealthRegenRate, 1e-9)
	assert.Equal(t, 20, sheet.Damage) // round(10*1.5 + 10*0.5)
	assert.Equal(t, 5, sheet.Armor)   // round(10*0.5)
	assert.InDelta(t, 2.0, sheet.CriticalChance, 1e-9)
	assert.Equal(t, 120, sheet.CriticalDamage)
	assert.InDelta(t, 3.0, sheet.Dodge, 1e-9)
	assert.InDelta(t, 3.0, sheet.CounterAttack, 1e-9)
}

func TestComputeEnduranceFifteen(t *testing.T) {
	char := baseChar()
	char.Attributes.Endurance = 15

	sheet := stats.Compute(char, nil)
	assert.Equal(t, 175, sheet.MaxHealth)
	assert.InDelta(t, 175.0/600.0, sheet.HealthRegenRate, 1e-9)
}

func TestComputeEquippedItemsOnly(t *testing.T) {
	char := baseChar()
	items := []model.CharacterItem{
		{
			IsEquipped: true,
			GameItem: model.GameItem{
				Stats:       model.Attributes{Strength: 4, Endurance: 2},
				BonusHealth: 20,
				BonusDamage: 3,
				BonusArmor:  1,
			},
		},
		{
			// Sitting in the bag, must not contribute.
			IsEquipped: false,
			GameItem: model.GameItem{
				Stats:       model.Attributes{Strength: 100},
				BonusHealth: 1000,
			},
		},
	}

	sheet := stats.Compute(char, items)
	assert.Equal(t, 14, sheet.Attributes.Strength)
	assert.Equal(t, 12, sheet.Attributes.Endurance)
	// 100 + 12*5 + 20
	assert.Equal(t, 180, sheet.MaxHealth)
	// round(14*1.5 + 10*0.5) + 3
	assert.Equal(t, 29, sheet.Damage)
	// round(12*0.5) + 1
	assert.Equal(t, 7, sheet.Armor)
}

func TestComputeMonotonicInEndurance(t *testing.T) {
	char := baseChar()
	prev := stats.Compute(char, nil).MaxHealth
	for end := 11; end <= 30; end++ {
		char.Attributes.Endurance = end
		cur := stats.Compute(char, nil).MaxHealth
		require.Greater(t, cur, prev, "endurance %d", end)
		prev = cur
	}
}

func TestCurrentHealthRegenerates(t *testing.T) {
	sheet := stats.Compute(baseChar(), nil) // max 150, regen 0.25/s
	last := time.Now()

	got := stats.CurrentHealth(100, last, sheet, last.Add(40*time.Second))
	assert.InDelta(t, 110, got, 1e-6)
}

func TestCurrentHealthClampedAtMax(t *testing.T) {
	sheet := stats.Compute(baseChar(), nil)
	last := time.Now()

	got := stats.CurrentHealth(149, last, sheet, last.Add(24*time.Hour))
	assert.InDelta(t, float64(sheet.MaxHealth), got, 1e-9)
}

func TestCurrentHealthClockSkew(t *testing.T) {
	sheet := stats.Compute(baseChar(), nil)
	last := time.Now()

	// A snapshot from the "future" must not drain health.
	got := stats.CurrentHealth(100, last, sheet, last.Add(-time.Minute))
	assert.InDelta(t, 100, got, 1e-9)
}

func TestCurrentHealthMonotonic(t *testing.T) {
	sheet := stats.Compute(baseChar(), nil)
	last := time.Now()
	prev := stats.CurrentHealth(50, last, sheet, last)
	for s := 1; s <= 10; s++ {
		cur := stats.CurrentHealth(50, last, sheet, last.Add(time.Duration(s)*time.Second))
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestRescaleHealthProportional(t *testing.T) {
	// Half full stays half full.
	assert.InDelta(t, 100, stats.RescaleHealth(75, 150, 200), 1e-9)
	// Shrinking max shrinks health.
	assert.InDelta(t, 75, stats.RescaleHealth(100, 200, 150), 1e-9)
}

func TestRescaleHealthEdgeCases(t *testing.T) {
	// Same max: untouched (clamped only).
	assert.InDelta(t, 120, stats.RescaleHealth(120, 150, 150), 1e-9)
	// Old max zero: clamp to new max.
	assert.InDelta(t, 150, stats.RescaleHealth(999, 0, 150), 1e-9)
	// Never exceeds new max.
	assert.LessOrEqual(t, stats.RescaleHealth(150, 150, 100), 100.0)
}
