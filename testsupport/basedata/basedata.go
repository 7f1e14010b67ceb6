package basedata

import (
	"fmt"
	"time"

	"github.com/mpapenbr/carclash-server/pkg/catalog"
	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/pkg/store"
)

func TestTime() time.Time {
	t, _ := time.Parse(time.RFC3339, "2024-04-28T11:10:12Z")
	return t
}

// Clock is a manually advanced clock for tests
type Clock struct {
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: TestTime()}
}

func (c *Clock) Now() time.Time {
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// SequenceIDs returns an id generator producing prefix-1, prefix-2, ...
func SequenceIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func SampleCatalog() *catalog.Catalog {
	c := catalog.New()
	c.Merge([]model.CarDefinition{
		{
			ID: "bmw-m3", Name: "BMW M3", Brand: "BMW", Price: 70000,
			TopSpeed: 180, Acceleration: 4.1, Handling: 88,
			Rarity: model.RarityRare, Category: "normal",
		},
		{
			ID: "honda-civic", Name: "Honda Civic Type R", Brand: "Honda", Price: 35000,
			TopSpeed: 169, Acceleration: 5.7, Handling: 85,
			Rarity: model.RarityCommon, Category: "normal",
		},
		{
			ID: "bugatti-chiron", Name: "Bugatti Chiron", Brand: "Bugatti", Price: 3000000,
			TopSpeed: 261, Acceleration: 2.4, Handling: 100,
			Rarity: model.RarityMythic, Category: "supercars",
		},
	})
	return c
}

// SampleStore returns a store with the sample catalog, a test clock and
// predictable ids
func SampleStore(clock *Clock) *store.Store {
	return store.New(
		store.WithCatalog(SampleCatalog()),
		store.WithClock(clock.Now),
		store.WithIDGenerator(SequenceIDs("id")),
	)
}

// AddPlayer registers a player with the given money and cars (by definition id)
func AddPlayer(s *store.Store, id string, money int64, cars ...string) *model.Player {
	p := model.NewPlayer(id, "name-"+id, money)
	for _, defID := range cars {
		c, ok := s.Instantiate(defID)
		if !ok {
			panic("unknown car " + defID)
		}
		p.Cars = append(p.Cars, c)
	}
	s.AddPlayer(p)
	return p
}
