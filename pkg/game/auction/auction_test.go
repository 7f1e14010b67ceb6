//nolint:funlen,lll // ok for tests
package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/carclash-server/pkg/auth"
	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/pkg/permission"
	"github.com/mpapenbr/carclash-server/pkg/store"
	"github.com/mpapenbr/carclash-server/testsupport/basedata"
)

type fixture struct {
	st     *store.Store
	svc    *Service
	clock  *basedata.Clock
	seller *model.Player
	x      *model.Player
	y      *model.Player
}

func setup(t *testing.T) *fixture {
	t.Helper()
	clock := basedata.NewClock()
	st := basedata.SampleStore(clock)
	return &fixture{
		st:     st,
		svc:    NewService(st),
		clock:  clock,
		seller: basedata.AddPlayer(st, "seller", 0, "bmw-m3"),
		x:      basedata.AddPlayer(st, "x", 100000),
		y:      basedata.AddPlayer(st, "y", 100000),
	}
}

func (f *fixture) create(t *testing.T, price int64) *model.Auction {
	t.Helper()
	a, err := f.svc.CreateAuction("seller", f.seller.Cars[0].InstanceID, price, 5*time.Minute)
	require.NoError(t, err)
	return a
}

func TestCreateAuction(t *testing.T) {
	f := setup(t)
	a := f.create(t, 10000)
	assert.Equal(t, model.AuctionActive, a.Status)
	assert.Equal(t, int64(10000), a.CurrentBid)
	assert.Equal(t, "name-seller", a.SellerName)
	assert.Equal(t, f.clock.Now().Add(5*time.Minute), a.EndTime)
	// the car stays in the inventory while listed
	assert.Len(t, f.seller.Cars, 1)

	_, err := f.svc.CreateAuction("seller", f.seller.Cars[0].InstanceID, 1, time.Minute)
	assert.ErrorIs(t, err, gameerr.ErrCarInAuction)
}

func TestCreateAuctionErrors(t *testing.T) {
	tests := []struct {
		name     string
		seller   string
		instance func(f *fixture) string
		price    int64
		duration time.Duration
		wantErr  error
	}{
		{
			name: "car not owned", seller: "x",
			instance: func(f *fixture) string { return f.seller.Cars[0].InstanceID },
			price:    1, duration: time.Minute, wantErr: gameerr.ErrCarNotFound,
		},
		{
			name: "zero price", seller: "seller",
			instance: func(f *fixture) string { return f.seller.Cars[0].InstanceID },
			price:    0, duration: time.Minute, wantErr: gameerr.ErrInvalidInput,
		},
		{
			name: "zero duration", seller: "seller",
			instance: func(f *fixture) string { return f.seller.Cars[0].InstanceID },
			price:    1, duration: 0, wantErr: gameerr.ErrInvalidDuration,
		},
		{
			name: "unknown seller", seller: "ghost",
			instance: func(f *fixture) string { return "x" },
			price:    1, duration: time.Minute, wantErr: gameerr.ErrPlayerNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			_, err := f.svc.CreateAuction(tt.seller, tt.instance(f), tt.price, tt.duration)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.st.ActiveAuctions())
		})
	}
}

func TestBiddingScenario(t *testing.T) {
	f := setup(t)
	a := f.create(t, 10000)
	total := f.st.TotalMoney()

	res, err := f.svc.PlaceBid(a.ID, "x", 12000)
	require.NoError(t, err)
	assert.Nil(t, res.Refunded)
	assert.Equal(t, int64(88000), f.x.Money)
	assert.Equal(t, total, f.st.TotalMoney())

	res, err = f.svc.PlaceBid(a.ID, "y", 15000)
	require.NoError(t, err)
	assert.Same(t, f.x, res.Refunded)
	assert.Equal(t, int64(100000), f.x.Money)
	assert.Equal(t, int64(85000), f.y.Money)
	assert.Equal(t, total, f.st.TotalMoney())

	_, err = f.svc.PlaceBid(a.ID, "y", 15000)
	assert.ErrorIs(t, err, gameerr.ErrBidTooLow)
	_, err = f.svc.PlaceBid(a.ID, "x", 15000)
	assert.ErrorIs(t, err, gameerr.ErrBidTooLow)
	assert.Equal(t, int64(85000), f.y.Money)

	// bid history is non decreasing and ends with the current bid
	require.Len(t, a.BidHistory, 2)
	for i := 1; i < len(a.BidHistory); i++ {
		assert.Greater(t, a.BidHistory[i].Amount, a.BidHistory[i-1].Amount)
	}
	assert.Equal(t, a.CurrentBid, a.BidHistory[len(a.BidHistory)-1].Amount)
}

func TestOutbiddingConservesMoney(t *testing.T) {
	f := setup(t)
	a := f.create(t, 100)
	total := f.st.TotalMoney()
	bids := []struct {
		who    string
		amount int64
	}{
		{"x", 200}, {"y", 300}, {"x", 450}, {"x", 500}, {"y", 90000}, {"x", 95000},
	}
	for _, b := range bids {
		_, err := f.svc.PlaceBid(a.ID, b.who, b.amount)
		require.NoError(t, err)
		assert.Equal(t, total, f.st.TotalMoney())
		assert.GreaterOrEqual(t, f.x.Money, int64(0))
		assert.GreaterOrEqual(t, f.y.Money, int64(0))
	}
	assert.Equal(t, int64(5000), f.x.Money)
	assert.Equal(t, int64(100000), f.y.Money)
}

func TestPlaceBidErrors(t *testing.T) {
	f := setup(t)
	a := f.create(t, 10000)

	_, err := f.svc.PlaceBid(a.ID, "seller", 20000)
	assert.ErrorIs(t, err, gameerr.ErrSelfBid)

	_, err = f.svc.PlaceBid(a.ID, "x", 200000)
	assert.ErrorIs(t, err, gameerr.ErrInsufficientFunds)

	_, err = f.svc.PlaceBid("nope", "x", 20000)
	assert.ErrorIs(t, err, gameerr.ErrAuctionNotFound)

	f.clock.Advance(5 * time.Minute)
	_, err = f.svc.PlaceBid(a.ID, "x", 20000)
	assert.ErrorIs(t, err, gameerr.ErrAuctionNotActive)
	assert.Equal(t, int64(100000), f.x.Money)
}

func TestSettleTransfersCar(t *testing.T) {
	f := setup(t)
	a := f.create(t, 10000)
	car := f.seller.Cars[0]
	_, err := f.svc.PlaceBid(a.ID, "x", 12000)
	require.NoError(t, err)

	_, err = f.svc.Settle(a.ID)
	assert.ErrorIs(t, err, gameerr.ErrAuctionNotActive)

	f.clock.Advance(5 * time.Minute)
	settled := f.svc.Sweep()
	require.Len(t, settled, 1)
	assert.Same(t, f.x, settled[0].Winner)
	assert.Same(t, f.seller, settled[0].Seller)
	assert.Equal(t, model.AuctionEnded, a.Status)
	assert.Equal(t, int64(12000), f.seller.Money)
	assert.Empty(t, f.seller.Cars)
	require.Len(t, f.x.Cars, 1)
	assert.Same(t, car, f.x.Cars[0])
	assert.Empty(t, f.st.ActiveAuctions())

	// terminal
	assert.Empty(t, f.svc.Sweep())
	_, err = f.svc.PlaceBid(a.ID, "y", 50000)
	assert.ErrorIs(t, err, gameerr.ErrAuctionNotActive)
}

func TestSettleWithoutBidder(t *testing.T) {
	f := setup(t)
	a := f.create(t, 10000)
	f.clock.Advance(10 * time.Minute)
	settled := f.svc.Sweep()
	require.Len(t, settled, 1)
	assert.Nil(t, settled[0].Winner)
	assert.Equal(t, model.AuctionEnded, a.Status)
	assert.Len(t, f.seller.Cars, 1)
	assert.Equal(t, int64(0), f.seller.Money)
}

func TestSettleWhenPartiesLeft(t *testing.T) {
	t.Run("winner left", func(t *testing.T) {
		f := setup(t)
		a := f.create(t, 10000)
		_, err := f.svc.PlaceBid(a.ID, "x", 12000)
		require.NoError(t, err)
		f.st.RemovePlayer("x")
		f.clock.Advance(5 * time.Minute)
		st, err := f.svc.Settle(a.ID)
		require.NoError(t, err)
		assert.Nil(t, st.Winner)
		assert.Len(t, f.seller.Cars, 1)
		assert.Equal(t, int64(0), f.seller.Money)
	})
	t.Run("seller left", func(t *testing.T) {
		f := setup(t)
		a := f.create(t, 10000)
		_, err := f.svc.PlaceBid(a.ID, "x", 12000)
		require.NoError(t, err)
		f.st.RemovePlayer("seller")
		f.clock.Advance(5 * time.Minute)
		st, err := f.svc.Settle(a.ID)
		require.NoError(t, err)
		assert.Nil(t, st.Seller)
		assert.Equal(t, int64(100000), f.x.Money)
		assert.Empty(t, f.x.Cars)
	})
}

func TestCancelAuction(t *testing.T) {
	pe, err := permission.NewOpaPermissionEvaluator()
	require.NoError(t, err)
	tests := []struct {
		name    string
		actor   auth.Authentication
		bid     bool
		wantErr error
	}{
		{"seller without bids", auth.NewSimpleAuth("seller", auth.RolePlayer), false, nil},
		{"other player", auth.NewSimpleAuth("x", auth.RolePlayer), false, gameerr.ErrPermissionDenied},
		{"seller with bids", auth.NewSimpleAuth("seller", auth.RolePlayer), true, gameerr.ErrAuctionHasBids},
		{"admin", auth.NewSimpleAuth("admin", auth.RoleAdmin), false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			f.svc = NewService(f.st, WithPermissionEvaluator(pe))
			a := f.create(t, 100)
			if tt.bid {
				_, err := f.svc.PlaceBid(a.ID, "x", 200)
				require.NoError(t, err)
			}
			_, err := f.svc.CancelAuction(tt.actor, a.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, model.AuctionActive, a.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.AuctionCancelled, a.Status)
			assert.Empty(t, f.st.ActiveAuctions())
			assert.Len(t, f.seller.Cars, 1)
		})
	}
}

func TestQueries(t *testing.T) {
	f := setup(t)
	a := f.create(t, 100)
	_, err := f.svc.PlaceBid(a.ID, "x", 200)
	require.NoError(t, err)
	assert.Len(t, f.svc.BySeller("seller"), 1)
	assert.Empty(t, f.svc.BySeller("x"))
	assert.Len(t, f.svc.ByBidder("x"), 1)
	assert.Empty(t, f.svc.ByBidder("y"))
	assert.Len(t, f.svc.Active(), 1)
}
