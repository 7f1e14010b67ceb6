package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/testsupport/basedata"
)

func TestInstantiate(t *testing.T) {
	clock := basedata.NewClock()
	s := basedata.SampleStore(clock)

	c1, ok := s.Instantiate("bmw-m3")
	require.True(t, ok)
	c2, _ := s.Instantiate("bmw-m3")
	assert.NotEqual(t, c1.InstanceID, c2.InstanceID)
	assert.Equal(t, "bmw-m3", c1.DefinitionID)
	assert.InDelta(t, 100.0, c1.Fuel, 0.001)
	assert.InDelta(t, 100.0, c1.Charge, 0.001)
	assert.Equal(t, clock.Now(), c1.AcquiredAt)
	assert.Equal(t, model.Customization{}, c1.Customization)

	_, ok = s.Instantiate("nope")
	assert.False(t, ok)
}

func TestPlayersKeepJoinOrder(t *testing.T) {
	s := basedata.SampleStore(basedata.NewClock())
	basedata.AddPlayer(s, "b", 1)
	basedata.AddPlayer(s, "a", 1)
	basedata.AddPlayer(s, "c", 1)
	s.RemovePlayer("a")
	ids := []string{}
	for _, p := range s.Players() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"b", "c"}, ids)
	assert.Nil(t, s.RemovePlayer("a"))
}

func TestAuctionArchive(t *testing.T) {
	clock := basedata.NewClock()
	s := basedata.SampleStore(clock)
	p := basedata.AddPlayer(s, "p", 0, "bmw-m3")
	a := &model.Auction{
		ID: "a1", Car: p.Cars[0], Status: model.AuctionActive,
		EndTime: clock.Now().Add(time.Minute),
	}
	s.AddAuction(a)

	listed, ok := s.ListedCar(p.Cars[0].InstanceID)
	require.True(t, ok)
	assert.Equal(t, "a1", listed.ID)

	s.ArchiveAuction("a1")
	assert.Empty(t, s.ActiveAuctions())
	assert.Len(t, s.AuctionHistory(), 1)
	_, ok = s.ListedCar(p.Cars[0].InstanceID)
	assert.False(t, ok)
	got, ok := s.Auction("a1")
	assert.True(t, ok)
	assert.Same(t, a, got)
}

func TestModerationSets(t *testing.T) {
	s := basedata.SampleStore(basedata.NewClock())
	s.Ban("conn-1")
	assert.True(t, s.IsBanned("", "conn-1"))
	assert.False(t, s.IsBanned("conn-2", ""))
	s.Unban("conn-1")
	assert.False(t, s.IsBanned("conn-1"))

	s.Freeze("p")
	assert.True(t, s.IsFrozen("p"))
	s.Unfreeze("p")
	assert.False(t, s.IsFrozen("p"))
}

func TestTotalMoneyIncludesEscrow(t *testing.T) {
	s := basedata.SampleStore(basedata.NewClock())
	basedata.AddPlayer(s, "a", 100)
	basedata.AddPlayer(s, "b", 50)
	s.AddAuction(&model.Auction{ID: "x", CurrentBid: 25, CurrentBidderID: "b"})
	assert.Equal(t, int64(175), s.TotalMoney())
}
