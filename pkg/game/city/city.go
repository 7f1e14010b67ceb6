// Package city handles the special cities. A player unlocks them by chance
// while exploring and may teleport to an unlocked city afterwards.
package city

import (
	"math/rand/v2"

	"github.com/samber/lo"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/pkg/store"
)

// UnlockChance is the probability of a city event per trigger
const UnlockChance = 0.01

type City struct {
	Name     string     `json:"name"`
	Position model.Vec3 `json:"position"`
}

var cities = []City{
	{Name: "skyCity", Position: model.Vec3{Y: 2000}},
	{Name: "volcanoCity", Position: model.Vec3{X: 5000}},
	{Name: "undergroundCity", Position: model.Vec3{Y: -1000}},
	{Name: "waterCity", Position: model.Vec3{X: -5000}},
}

func Cities() []City {
	return append([]City{}, cities...)
}

func ByName(name string) (City, bool) {
	return lo.Find(cities, func(c City) bool { return c.Name == name })
}

type (
	// Random is satisfied by *rand.Rand
	Random interface {
		Float64() float64
		IntN(n int) int
	}
	Option  func(*Service)
	Service struct {
		store *store.Store
		rnd   Random
		l     *log.Logger
	}
)

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }
func (globalRandom) IntN(n int) int   { return rand.IntN(n) }

// WithRandom replaces the source used for rolling city events
func WithRandom(rnd Random) Option {
	return func(s *Service) {
		s.rnd = rnd
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.l = l
	}
}

func NewService(st *store.Store, opts ...Option) *Service {
	ret := &Service{
		store: st,
		rnd:   globalRandom{},
		l:     log.Default().Named("city"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Trigger rolls for a city event. If it hits, a random city is unlocked for
// the player. The returned city is nil unless it was newly unlocked.
func (s *Service) Trigger(playerID string) (*City, error) {
	p, ok := s.store.Player(playerID)
	if !ok {
		return nil, gameerr.ErrPlayerNotFound
	}
	if s.rnd.Float64() >= UnlockChance {
		return nil, nil
	}
	c := cities[s.rnd.IntN(len(cities))]
	if lo.Contains(p.UnlockedCities, c.Name) {
		return nil, nil
	}
	p.UnlockedCities = append(p.UnlockedCities, c.Name)
	s.l.Info("city unlocked", log.String("player", p.ID), log.String("city", c.Name))
	return &c, nil
}

// Teleport moves the player to an unlocked city
func (s *Service) Teleport(playerID, name string) (City, error) {
	p, ok := s.store.Player(playerID)
	if !ok {
		return City{}, gameerr.ErrPlayerNotFound
	}
	if !lo.Contains(p.UnlockedCities, name) {
		return City{}, gameerr.ErrCityLocked
	}
	c, ok := ByName(name)
	if !ok {
		return City{}, gameerr.ErrCityLocked
	}
	p.Position = c.Position
	return c, nil
}
