package teams

import (
	"math"
	"testing"

	"volley_queue/internal/models"

	"github.com/stretchr/testify/assert"
)

func makeEntries(skills []string) []models.RosterEntry {
	entries := make([]models.RosterEntry, 0, len(skills))
	for i, s := range skills {
		e := models.RosterEntry{
			PlayerName: "Игрок " + string(rune('А'+i)),
			SkillLevel: s,
			Position:   i + 1,
		}
		e.ID = uint(i + 1)
		entries = append(entries, e)
	}
	return entries
}

func TestBalanceRequiresTwelvePlayers(t *testing.T) {
	_, _, err := Balance(makeEntries([]string{models.SkillBeginner, models.SkillAdvanced}))
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	skills := make([]string, 13)
	for i := range skills {
		skills[i] = models.SkillBeginner
	}
	_, _, err = Balance(makeEntries(skills))
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
}

func TestBalanceTwoAdvancedFourIntermediateSixBeginners(t *testing.T) {
	skills := []string{
		models.SkillAdvanced, models.SkillAdvanced,
		models.SkillIntermediate, models.SkillIntermediate,
		models.SkillIntermediate, models.SkillIntermediate,
		models.SkillBeginner, models.SkillBeginner, models.SkillBeginner,
		models.SkillBeginner, models.SkillBeginner, models.SkillBeginner,
	}

	team1, team2, err := Balance(makeEntries(skills))
	assert.NoError(t, err)
	assert.Len(t, team1.Players, TeamSize, "в первой команде должно быть 6 игроков")
	assert.Len(t, team2.Players, TeamSize, "во второй команде должно быть 6 игроков")

	diff := math.Abs(team1.AverageSkill - team2.AverageSkill)
	assert.LessOrEqual(t, diff, 0.5, "разница средних уровней должна быть не больше 0.5")
}

func TestBalanceIsDeterministic(t *testing.T) {
	skills := []string{
		models.SkillAdvanced, models.SkillIntermediate, models.SkillBeginner,
		models.SkillAdvanced, models.SkillIntermediate, models.SkillBeginner,
		models.SkillAdvanced, models.SkillIntermediate, models.SkillBeginner,
		models.SkillAdvanced, models.SkillIntermediate, models.SkillBeginner,
	}
	entries := makeEntries(skills)

	team1a, team2a, err := Balance(entries)
	assert.NoError(t, err)
	team1b, team2b, err := Balance(entries)
	assert.NoError(t, err)

	assert.Equal(t, team1a, team1b, "повторный вызов должен давать тот же состав")
	assert.Equal(t, team2a, team2b, "повторный вызов должен давать тот же состав")
}

func TestBalanceSkewedTiersStillSixEach(t *testing.T) {
	// 11 новичков и один сильный: поочерёдная раздача даёт 7 и 5,
	// выравнивание хвостом должно вернуть 6/6
	skills := []string{
		models.SkillAdvanced,
		models.SkillBeginner, models.SkillBeginner, models.SkillBeginner,
		models.SkillBeginner, models.SkillBeginner, models.SkillBeginner,
		models.SkillBeginner, models.SkillBeginner, models.SkillBeginner,
		models.SkillBeginner, models.SkillBeginner,
	}

	team1, team2, err := Balance(makeEntries(skills))
	assert.NoError(t, err)
	assert.Len(t, team1.Players, TeamSize)
	assert.Len(t, team2.Players, TeamSize)

	total := 0
	for _, p := range append(team1.Players, team2.Players...) {
		total += models.SkillValue(p.SkillLevel)
	}
	assert.Equal(t, 14, total, "суммарный вес игроков должен сохраняться")
}
