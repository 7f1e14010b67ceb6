package economy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/pkg/store"
)

const (
	DefaultRefillAmount = 10
	maxTank             = 100
)

var (
	saleRatio  = decimal.RequireFromString("0.8")
	fuelRate   = decimal.NewFromInt(2)
	chargeRate = decimal.NewFromInt(3)
)

type (
	Option  func(*Service)
	Service struct {
		store         *store.Store
		tradeCooldown time.Duration
		l             *log.Logger
	}
)

func WithTradeCooldown(d time.Duration) Option {
	return func(s *Service) {
		s.tradeCooldown = d
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.l = l
	}
}

func NewService(st *store.Store, opts ...Option) *Service {
	ret := &Service{
		store:         st,
		tradeCooldown: 5 * time.Minute,
		l:             log.Default().Named("economy"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// SalePrice is the amount credited when selling a car of the given price
func SalePrice(price int64) int64 {
	return decimal.NewFromInt(price).Mul(saleRatio).Floor().IntPart()
}

func refillCost(amount float64, rate decimal.Decimal) int64 {
	return decimal.NewFromFloat(amount).Mul(rate).Ceil().IntPart()
}

func (s *Service) player(id string) (*model.Player, error) {
	p, ok := s.store.Player(id)
	if !ok {
		return nil, gameerr.ErrPlayerNotFound
	}
	return p, nil
}

func (s *Service) BuyCar(playerID, carID string) (*model.CarInstance, error) {
	p, err := s.player(playerID)
	if err != nil {
		return nil, err
	}
	def, ok := s.store.Catalog.Get(carID)
	if !ok {
		return nil, gameerr.ErrCarNotFound
	}
	if p.Money < def.Price {
		return nil, gameerr.ErrNotEnoughMoney
	}
	car, _ := s.store.Instantiate(carID)
	p.Money -= def.Price
	p.Cars = append(p.Cars, car)
	s.l.Debug("car bought",
		log.String("player", p.ID),
		log.String("car", carID),
		log.Int64("price", def.Price))
	return car, nil
}

// SellCar removes the instance from the inventory and returns the credited amount
func (s *Service) SellCar(playerID, instanceID string) (int64, error) {
	p, err := s.player(playerID)
	if err != nil {
		return 0, err
	}
	idx := p.FindCar(instanceID)
	if idx < 0 {
		return 0, gameerr.ErrCarNotFound
	}
	if _, listed := s.store.ListedCar(instanceID); listed {
		return 0, gameerr.ErrCarInAuction
	}
	car := p.RemoveCar(instanceID)
	price := SalePrice(car.Price)
	p.Money += price
	s.l.Debug("car sold",
		log.String("player", p.ID),
		log.String("car", car.DefinitionID),
		log.Int64("price", price))
	return price, nil
}

// Refuel raises the fuel of the first car. Returns the cost.
func (s *Service) Refuel(playerID string, amount float64) (int64, error) {
	return s.refill(playerID, amount, fuelRate, func(c *model.CarInstance) *float64 {
		return &c.Fuel
	})
}

// Recharge raises the charge of the first car. Returns the cost.
func (s *Service) Recharge(playerID string, amount float64) (int64, error) {
	return s.refill(playerID, amount, chargeRate, func(c *model.CarInstance) *float64 {
		return &c.Charge
	})
}

//nolint:whitespace // can't make both editor and linter happy
func (s *Service) refill(
	playerID string,
	amount float64,
	rate decimal.Decimal,
	level func(*model.CarInstance) *float64,
) (int64, error) {
	p, err := s.player(playerID)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		amount = DefaultRefillAmount
	}
	car := p.FirstCar()
	if car == nil {
		return 0, gameerr.ErrNoCars
	}
	cost := refillCost(amount, rate)
	if p.Money < cost {
		return 0, gameerr.ErrNotEnoughMoney
	}
	p.Money -= cost
	v := level(car)
	*v = min(maxTank, *v+amount)
	return cost, nil
}

//nolint:whitespace // can't make both editor and linter happy
func (s *Service) Customize(
	playerID string, patch model.CustomizationPatch,
) (*model.CarInstance, error) {
	p, err := s.player(playerID)
	if err != nil {
		return nil, err
	}
	car := p.FirstCar()
	if car == nil {
		return nil, gameerr.ErrNoCars
	}
	car.Customization.Apply(patch)
	return car, nil
}
