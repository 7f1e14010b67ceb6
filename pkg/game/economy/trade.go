package economy

import (
	"github.com/samber/lo"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/model"
)

func (s *Service) onCooldown(p *model.Player) bool {
	return !p.LastTrade.IsZero() && s.store.Now().Sub(p.LastTrade) < s.tradeCooldown
}

// validateItems checks a basket against the current state of its owner
func (s *Service) validateItems(owner *model.Player, items []model.TradeItem) error {
	seen := map[string]bool{}
	var money int64
	for _, item := range items {
		switch item.Kind {
		case model.TradeItemCar:
			if item.InstanceID == "" || seen[item.InstanceID] {
				return gameerr.ErrInvalidTradeItems
			}
			seen[item.InstanceID] = true
			if owner.FindCar(item.InstanceID) < 0 {
				return gameerr.ErrInvalidTradeItems
			}
			if _, listed := s.store.ListedCar(item.InstanceID); listed {
				return gameerr.ErrInvalidTradeItems
			}
		case model.TradeItemMoney:
			if item.Amount <= 0 {
				return gameerr.ErrInvalidTradeItems
			}
			money += item.Amount
			if money > owner.Money {
				return gameerr.ErrInvalidTradeItems
			}
		default:
			return gameerr.ErrInvalidTradeItems
		}
	}
	return nil
}

func (s *Service) validateTrade(a, b *model.Player, offer, request []model.TradeItem) error {
	if a.ID == b.ID {
		return gameerr.ErrInvalidTradeItems
	}
	if len(offer) == 0 && len(request) == 0 {
		return gameerr.ErrInvalidTradeItems
	}
	if s.onCooldown(a) || s.onCooldown(b) {
		return gameerr.ErrTradeOnCooldown
	}
	if err := s.validateItems(a, offer); err != nil {
		return err
	}
	return s.validateItems(b, request)
}

// ExecuteTrade swaps the baskets between a (offer) and b (request).
// Nothing is changed unless every item validates. Received cars are fresh
// catalog instances, so wear and customization do not travel with a trade.
func (s *Service) ExecuteTrade(aID, bID string, offer, request []model.TradeItem) error {
	a, err := s.player(aID)
	if err != nil {
		return err
	}
	b, err := s.player(bID)
	if err != nil {
		return err
	}
	if err := s.validateTrade(a, b, offer, request); err != nil {
		return err
	}
	// resolve definitions before anything is removed
	defsOf := func(owner *model.Player, items []model.TradeItem) []string {
		cars := lo.Filter(items, func(i model.TradeItem, _ int) bool {
			return i.Kind == model.TradeItemCar
		})
		return lo.Map(cars, func(i model.TradeItem, _ int) string {
			return owner.Cars[owner.FindCar(i.InstanceID)].DefinitionID
		})
	}
	offerDefs := defsOf(a, offer)
	requestDefs := defsOf(b, request)

	take(a, offer)
	take(b, request)
	s.grant(a, request, requestDefs)
	s.grant(b, offer, offerDefs)

	now := s.store.Now()
	a.LastTrade = now
	b.LastTrade = now
	s.l.Info("trade executed",
		log.String("from", a.ID),
		log.String("to", b.ID),
		log.Int("offer", len(offer)),
		log.Int("request", len(request)))
	return nil
}

func take(p *model.Player, items []model.TradeItem) {
	for _, item := range items {
		switch item.Kind {
		case model.TradeItemCar:
			p.RemoveCar(item.InstanceID)
		case model.TradeItemMoney:
			p.Money -= item.Amount
		}
	}
}

func (s *Service) grant(p *model.Player, items []model.TradeItem, defs []string) {
	for _, item := range items {
		if item.Kind == model.TradeItemMoney {
			p.Money += item.Amount
		}
	}
	for _, defID := range defs {
		if car, ok := s.store.Instantiate(defID); ok {
			p.Cars = append(p.Cars, car)
		} else {
			s.l.Warn("traded car no longer in catalog", log.String("car", defID))
		}
	}
}

// ProposeTrade validates the baskets and stores the offer for the target
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) ProposeTrade(
	fromID, toID string, offer, request []model.TradeItem,
) (*model.TradeOffer, error) {
	from, err := s.player(fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.player(toID)
	if err != nil {
		return nil, err
	}
	if err := s.validateTrade(from, to, offer, request); err != nil {
		return nil, err
	}
	o := &model.TradeOffer{
		ID:        s.store.NewID(),
		FromID:    from.ID,
		FromName:  from.Name,
		ToID:      to.ID,
		Offer:     offer,
		Request:   request,
		CreatedAt: s.store.Now(),
	}
	s.store.AddTradeOffer(o)
	return o, nil
}

// AcceptTrade executes a stored offer. The offer is consumed even when the
// execution fails, the state it was made for is gone.
func (s *Service) AcceptTrade(acceptorID, offerID string) (*model.TradeOffer, error) {
	o, ok := s.store.TradeOffer(offerID)
	if !ok {
		return nil, gameerr.ErrTradeNotFound
	}
	if o.ToID != acceptorID {
		return nil, gameerr.ErrNotRecipient
	}
	s.store.RemoveTradeOffer(offerID)
	if err := s.ExecuteTrade(o.FromID, o.ToID, o.Offer, o.Request); err != nil {
		return o, err
	}
	return o, nil
}

func (s *Service) DeclineTrade(acceptorID, offerID string) (*model.TradeOffer, error) {
	o, ok := s.store.TradeOffer(offerID)
	if !ok {
		return nil, gameerr.ErrTradeNotFound
	}
	if o.ToID != acceptorID {
		return nil, gameerr.ErrNotRecipient
	}
	s.store.RemoveTradeOffer(offerID)
	return o, nil
}
