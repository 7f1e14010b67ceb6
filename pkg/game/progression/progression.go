// Package progression keeps the per activity level counters of a player and
// unlocks achievements when thresholds are reached.
package progression

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/pkg/store"
)

var (
	Types = []string{"auction", "betting", "racing", "trading"}

	tiers = []struct {
		level int
		name  string
		icon  string
	}{
		{5, "novice", "novice_badge"},
		{10, "expert", "expert_badge"},
		{25, "master", "master_badge"},
		{50, "legend", "legend_badge"},
	}
)

type (
	Achievement struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	}
	Result struct {
		Player   *model.Player
		Type     string
		Level    int
		Unlocked []Achievement
	}
	Service struct {
		store *store.Store
	}
)

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Achievements returns all achievements reachable for the type at level
func Achievements(activity string, level int) []Achievement {
	ret := []Achievement{}
	for _, t := range tiers {
		if level < t.level {
			break
		}
		title := strings.ToUpper(activity[:1]) + activity[1:] + " " +
			strings.ToUpper(t.name[:1]) + t.name[1:]
		ret = append(ret, Achievement{
			ID:          fmt.Sprintf("%s_%s", activity, t.name),
			Title:       title,
			Description: fmt.Sprintf("Reached level %d in %s", t.level, activity),
			Icon:        t.icon,
		})
	}
	return ret
}

// LevelUp raises the level of activity by amount (1 if amount <= 0).
// Achievements are unlocked once, the returned result only holds the new ones.
func (s *Service) LevelUp(playerID, activity string, amount int) (*Result, error) {
	p, ok := s.store.Player(playerID)
	if !ok {
		return nil, gameerr.ErrPlayerNotFound
	}
	if !lo.Contains(Types, activity) {
		return nil, gameerr.Wrap(gameerr.ErrInvalidInput, "unknown level type %q", activity)
	}
	if amount <= 0 {
		amount = 1
	}
	level, ok := p.Levels[activity]
	if !ok {
		level = 1
	}
	level += amount
	p.Levels[activity] = level

	ret := &Result{Player: p, Type: activity, Level: level, Unlocked: []Achievement{}}
	for _, a := range Achievements(activity, level) {
		if lo.Contains(p.Achievements, a.ID) {
			continue
		}
		p.Achievements = append(p.Achievements, a.ID)
		if !lo.Contains(p.Titles, a.Title) {
			p.Titles = append(p.Titles, a.Title)
		}
		ret.Unlocked = append(ret.Unlocked, a)
	}
	return ret, nil
}
