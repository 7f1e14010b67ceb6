package auction

import (
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/auth"
	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/pkg/permission"
	"github.com/mpapenbr/carclash-server/pkg/store"
)

type (
	Option  func(*Service)
	Service struct {
		store *store.Store
		pe    permission.PermissionEvaluator
		l     *log.Logger
	}
	// BidResult carries the player who got the previous bid back, if any
	BidResult struct {
		Auction  *model.Auction
		Refunded *model.Player
	}
	// Settlement describes the outcome of an ended auction.
	// Winner and Seller are nil if they left the server.
	Settlement struct {
		Auction *model.Auction
		Winner  *model.Player
		Seller  *model.Player
	}
)

func WithPermissionEvaluator(pe permission.PermissionEvaluator) Option {
	return func(s *Service) {
		s.pe = pe
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
		l:     log.Default().Named("auction"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

//nolint:whitespace // can't make both editor and linter happy
func (s *Service) CreateAuction(
	sellerID, instanceID string,
	startingPrice int64,
	duration time.Duration,
) (*model.Auction, error) {
	seller, ok := s.store.Player(sellerID)
	if !ok {
		return nil, gameerr.ErrPlayerNotFound
	}
	idx := seller.FindCar(instanceID)
	if idx < 0 {
		return nil, gameerr.ErrCarNotFound
	}
	if startingPrice <= 0 {
		return nil, gameerr.ErrInvalidAmount
	}
	if duration <= 0 {
		return nil, gameerr.ErrInvalidDuration
	}
	if _, listed := s.store.ListedCar(instanceID); listed {
		return nil, gameerr.ErrCarInAuction
	}
	a := &model.Auction{
		ID:            s.store.NewID(),
		SellerID:      seller.ID,
		SellerName:    seller.Name,
		Car:           seller.Cars[idx],
		StartingPrice: startingPrice,
		CurrentBid:    startingPrice,
		BidHistory:    []model.Bid{},
		EndTime:       s.store.Now().Add(duration),
		Status:        model.AuctionActive,
	}
	s.store.AddAuction(a)
	s.l.Debug("auction created",
		log.String("auction", a.ID),
		log.String("seller", seller.ID),
		log.Int64("startingPrice", startingPrice),
		log.Time("endTime", a.EndTime))
	return a, nil
}

// PlaceBid escrows amount from the bidder. The previous bidder is refunded
// before the new bid is recorded.
func (s *Service) PlaceBid(auctionID, bidderID string, amount int64) (*BidResult, error) {
	a, ok := s.store.Auction(auctionID)
	if !ok {
		return nil, gameerr.ErrAuctionNotFound
	}
	bidder, ok := s.store.Player(bidderID)
	if !ok {
		return nil, gameerr.ErrPlayerNotFound
	}
	if a.Status != model.AuctionActive || !s.store.Now().Before(a.EndTime) {
		return nil, gameerr.ErrAuctionNotActive
	}
	if amount <= a.CurrentBid {
		return nil, gameerr.ErrBidTooLow
	}
	if bidder.ID == a.SellerID {
		return nil, gameerr.ErrSelfBid
	}
	if bidder.Money < amount {
		return nil, gameerr.ErrNotEnoughMoney
	}

	ret := &BidResult{Auction: a}
	if a.HasBidder() {
		if prev, ok := s.store.Player(a.CurrentBidderID); ok {
			prev.Money += a.CurrentBid
			ret.Refunded = prev
		}
	}
	bidder.Money -= amount
	a.CurrentBid = amount
	a.CurrentBidderID = bidder.ID
	a.BidHistory = append(a.BidHistory, model.Bid{
		BidderID:   bidder.ID,
		BidderName: bidder.Name,
		Amount:     amount,
		At:         s.store.Now(),
	})
	return ret, nil
}

// CancelAuction withdraws an auction without bids
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) CancelAuction(
	a auth.Authentication, auctionID string,
) (*model.Auction, error) {
	auc, ok := s.store.Auction(auctionID)
	if !ok {
		return nil, gameerr.ErrAuctionNotFound
	}
	if !s.mayCancel(a, auc) {
		return nil, gameerr.ErrNotSeller
	}
	if auc.Status != model.AuctionActive {
		return nil, gameerr.ErrAuctionNotActive
	}
	if len(auc.BidHistory) > 0 {
		return nil, gameerr.ErrAuctionHasBids
	}
	now := s.store.Now()
	auc.Status = model.AuctionCancelled
	auc.SettledAt = &now
	s.store.ArchiveAuction(auc.ID)
	return auc, nil
}

func (s *Service) mayCancel(a auth.Authentication, auc *model.Auction) bool {
	if a == nil {
		return false
	}
	if s.pe != nil {
		return s.pe.HasObjectPermission(a, permission.PermissionCancelAuction, auc.SellerID)
	}
	return a.Principal().Name() == auc.SellerID
}

// Settle ends an active auction whose end time has been reached.
// With a bidder the car moves to the winner and the seller gets the bid.
func (s *Service) Settle(auctionID string) (*Settlement, error) {
	a, ok := s.store.Auction(auctionID)
	if !ok {
		return nil, gameerr.ErrAuctionNotFound
	}
	now := s.store.Now()
	if a.Status != model.AuctionActive || now.Before(a.EndTime) {
		return nil, gameerr.ErrAuctionNotActive
	}
	ret := &Settlement{Auction: a}
	seller, sellerOk := s.store.Player(a.SellerID)
	if sellerOk {
		ret.Seller = seller
	}
	if a.HasBidder() {
		winner, winnerOk := s.store.Player(a.CurrentBidderID)
		switch {
		case winnerOk && sellerOk && seller.RemoveCar(a.Car.InstanceID) != nil:
			winner.Cars = append(winner.Cars, a.Car)
			seller.Money += a.CurrentBid
			ret.Winner = winner
		case winnerOk:
			// nothing to hand over, the escrow goes back
			winner.Money += a.CurrentBid
			ret.Winner = winner
			s.l.Warn("auction settled without car",
				log.String("auction", a.ID),
				log.String("seller", a.SellerID))
		default:
			s.l.Info("auction winner left, car stays with seller",
				log.String("auction", a.ID),
				log.String("winner", a.CurrentBidderID))
		}
	}
	a.Status = model.AuctionEnded
	a.SettledAt = &now
	s.store.ArchiveAuction(a.ID)
	s.l.Debug("auction settled",
		log.String("auction", a.ID),
		log.String("winner", a.CurrentBidderID),
		log.Int64("amount", a.CurrentBid))
	return ret, nil
}

// Sweep settles every auction whose end time has been reached
func (s *Service) Sweep() []*Settlement {
	now := s.store.Now()
	ret := []*Settlement{}
	for _, a := range s.store.ActiveAuctions() {
		if now.Before(a.EndTime) {
			// ordered by end time
			break
		}
		if st, err := s.Settle(a.ID); err == nil {
			ret = append(ret, st)
		}
	}
	return ret
}

func (s *Service) Active() []*model.Auction {
	return s.store.ActiveAuctions()
}

func (s *Service) BySeller(sellerID string) []*model.Auction {
	return lo.Filter(s.store.ActiveAuctions(), func(a *model.Auction, _ int) bool {
		return a.SellerID == sellerID
	})
}

// ByBidder lists active auctions the player has bid on
func (s *Service) ByBidder(bidderID string) []*model.Auction {
	return lo.Filter(s.store.ActiveAuctions(), func(a *model.Auction, _ int) bool {
		return lo.ContainsBy(a.BidHistory, func(b model.Bid) bool {
			return b.BidderID == bidderID
		})
	})
}
