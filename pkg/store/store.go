package store

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mpapenbr/carclash-server/pkg/catalog"
	"github.com/mpapenbr/carclash-server/pkg/model"
)

type (
	Option func(*Store)
	// Store holds all game entities. It has no locking on its own,
	// every access has to happen on the engine goroutine.
	Store struct {
		Catalog *catalog.Catalog

		players        map[string]*model.Player
		playerOrder    []string
		auctions       map[string]*model.Auction
		auctionHistory map[string]*model.Auction
		races          map[string]*model.Race
		tournaments    map[string]*model.Tournament
		trades         map[string]*model.TradeOffer
		banned         map[string]struct{}
		frozen         map[string]struct{}

		now   func() time.Time
		newID func() string
	}
)

func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Store) {
		s.Catalog = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		players:        map[string]*model.Player{},
		playerOrder:    []string{},
		auctions:       map[string]*model.Auction{},
		auctionHistory: map[string]*model.Auction{},
		races:          map[string]*model.Race{},
		tournaments:    map[string]*model.Tournament{},
		trades:         map[string]*model.TradeOffer{},
		banned:         map[string]struct{}{},
		frozen:         map[string]struct{}{},
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Catalog == nil {
		s.Catalog = catalog.Default()
	}
	return s
}

func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) NewID() string {
	return s.newID()
}

// Instantiate creates a fresh car instance from the catalog definition
func (s *Store) Instantiate(definitionID string) (*model.CarInstance, bool) {
	def, ok := s.Catalog.Get(definitionID)
	if !ok {
		return nil, false
	}
	return &model.CarInstance{
		CarDefinition: def,
		InstanceID:    s.NewID(),
		DefinitionID:  def.ID,
		AcquiredAt:    s.Now(),
		Fuel:          100,
		Charge:        100,
		Customization: model.Customization{},
	}, true
}

func (s *Store) AddPlayer(p *model.Player) {
	if _, ok := s.players[p.ID]; !ok {
		s.playerOrder = append(s.playerOrder, p.ID)
	}
	s.players[p.ID] = p
}

func (s *Store) Player(id string) (*model.Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

func (s *Store) RemovePlayer(id string) *model.Player {
	p, ok := s.players[id]
	if !ok {
		return nil
	}
	delete(s.players, id)
	s.playerOrder = lo.Without(s.playerOrder, id)
	return p
}

// Players returns the players in join order
func (s *Store) Players() []*model.Player {
	return lo.Map(s.playerOrder, func(id string, _ int) *model.Player {
		return s.players[id]
	})
}

func (s *Store) PlayerCount() int {
	return len(s.players)
}

func (s *Store) AddAuction(a *model.Auction) {
	s.auctions[a.ID] = a
}

// Auction looks up active auctions first, then the history
func (s *Store) Auction(id string) (*model.Auction, bool) {
	if a, ok := s.auctions[id]; ok {
		return a, true
	}
	a, ok := s.auctionHistory[id]
	return a, ok
}

// ArchiveAuction moves an auction out of the active set
func (s *Store) ArchiveAuction(id string) {
	if a, ok := s.auctions[id]; ok {
		delete(s.auctions, id)
		s.auctionHistory[id] = a
	}
}

// ActiveAuctions are ordered by end time
func (s *Store) ActiveAuctions() []*model.Auction {
	ret := lo.Values(s.auctions)
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].EndTime.Equal(ret[j].EndTime) {
			return ret[i].ID < ret[j].ID
		}
		return ret[i].EndTime.Before(ret[j].EndTime)
	})
	return ret
}

func (s *Store) AuctionHistory() []*model.Auction {
	ret := lo.Values(s.auctionHistory)
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].EndTime.Before(ret[j].EndTime)
	})
	return ret
}

// ListedCar returns the active auction holding the instance, if any
func (s *Store) ListedCar(instanceID string) (*model.Auction, bool) {
	return lo.Find(lo.Values(s.auctions), func(a *model.Auction) bool {
		return a.Car != nil && a.Car.InstanceID == instanceID
	})
}

func (s *Store) AddRace(r *model.Race) {
	s.races[r.ID] = r
}

func (s *Store) Race(id string) (*model.Race, bool) {
	r, ok := s.races[id]
	return r, ok
}

func (s *Store) RemoveRace(id string) {
	delete(s.races, id)
}

// Races are ordered by creation time
func (s *Store) Races() []*model.Race {
	ret := lo.Values(s.races)
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].ID < ret[j].ID
		}
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret
}

func (s *Store) AddTournament(t *model.Tournament) {
	s.tournaments[t.ID] = t
}

func (s *Store) Tournament(id string) (*model.Tournament, bool) {
	t, ok := s.tournaments[id]
	return t, ok
}

func (s *Store) Tournaments() []*model.Tournament {
	ret := lo.Values(s.tournaments)
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].ID < ret[j].ID
		}
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret
}

func (s *Store) AddTradeOffer(o *model.TradeOffer) {
	s.trades[o.ID] = o
}

func (s *Store) TradeOffer(id string) (*model.TradeOffer, bool) {
	o, ok := s.trades[id]
	return o, ok
}

func (s *Store) RemoveTradeOffer(id string) {
	delete(s.trades, id)
}

// RemoveTradeOffersOf drops every offer the player sent or received
func (s *Store) RemoveTradeOffersOf(playerID string) []*model.TradeOffer {
	removed := []*model.TradeOffer{}
	for id, o := range s.trades {
		if o.FromID == playerID || o.ToID == playerID {
			removed = append(removed, o)
			delete(s.trades, id)
		}
	}
	return removed
}

// Ban registers a connection id or account name as banned
func (s *Store) Ban(key string) {
	s.banned[key] = struct{}{}
}

func (s *Store) Unban(key string) {
	delete(s.banned, key)
}

func (s *Store) IsBanned(keys ...string) bool {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := s.banned[k]; ok {
			return true
		}
	}
	return false
}

func (s *Store) Freeze(playerID string) {
	s.frozen[playerID] = struct{}{}
}

func (s *Store) Unfreeze(playerID string) {
	delete(s.frozen, playerID)
}

func (s *Store) IsFrozen(playerID string) bool {
	_, ok := s.frozen[playerID]
	return ok
}

// TotalMoney sums the wallets of all players and the escrowed bids
func (s *Store) TotalMoney() int64 {
	total := lo.SumBy(lo.Values(s.players), func(p *model.Player) int64 { return p.Money })
	for _, a := range s.auctions {
		if a.HasBidder() {
			total += a.CurrentBid
		}
	}
	return total
}
