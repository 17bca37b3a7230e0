package teams

import (
	"errors"

	"volley_queue/internal/models"
)

// TeamSize — игроков в каждой из двух команд.
const TeamSize = 6

var ErrNotEnoughPlayers = errors.New("для генерации команд нужно ровно 12 игроков")

type Player struct {
	EntryID    uint   `json:"entry_id"`
	Name       string `json:"name"`
	SkillLevel string `json:"skill_level"`
	Position   int    `json:"position"`
}

type Team struct {
	Players      []Player `json:"players"`
	AverageSkill float64  `json:"average_skill"`
}

// Balance делит 12 подтверждённых игроков на две равные команды.
// Алгоритм детерминированный: игроки группируются по уровню (сильные,
// средние, новички), внутри группы раздаются поочерёдно в команды 1 и 2
// в исходном порядке, затем хвост большей команды перекидывается в меньшую
// до равенства 6/6. Никакой случайности, несмотря на «перемешивание» в UI.
func Balance(entries []models.RosterEntry) (Team, Team, error) {
	if len(entries) != 2*TeamSize {
		return Team{}, Team{}, ErrNotEnoughPlayers
	}

	byTier := map[string][]models.RosterEntry{}
	for _, e := range entries {
		byTier[e.SkillLevel] = append(byTier[e.SkillLevel], e)
	}

	var team1, team2 []models.RosterEntry
	for _, tier := range []string{models.SkillAdvanced, models.SkillIntermediate, models.SkillBeginner} {
		for i, e := range byTier[tier] {
			if i%2 == 0 {
				team1 = append(team1, e)
			} else {
				team2 = append(team2, e)
			}
		}
	}

	// Выравнивание: лишних забираем с конца
	for len(team1) > TeamSize {
		last := team1[len(team1)-1]
		team1 = team1[:len(team1)-1]
		team2 = append(team2, last)
	}
	for len(team2) > TeamSize {
		last := team2[len(team2)-1]
		team2 = team2[:len(team2)-1]
		team1 = append(team1, last)
	}

	return buildTeam(team1), buildTeam(team2), nil
}

func buildTeam(entries []models.RosterEntry) Team {
	team := Team{Players: make([]Player, 0, len(entries))}
	total := 0
	for _, e := range entries {
		team.Players = append(team.Players, Player{
			EntryID:    e.ID,
			Name:       e.PlayerName,
			SkillLevel: e.SkillLevel,
			Position:   e.Position,
		})
		total += models.SkillValue(e.SkillLevel)
	}
	if len(entries) > 0 {
		team.AverageSkill = float64(total) / float64(len(entries))
	}
	return team
}
