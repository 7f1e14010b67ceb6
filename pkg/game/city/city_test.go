package city

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/testsupport/basedata"
)

type fixedRandom struct {
	roll float64
	pick int
}

func (f fixedRandom) Float64() float64 { return f.roll }
func (f fixedRandom) IntN(int) int     { return f.pick }

func TestTrigger(t *testing.T) {
	tests := []struct {
		name     string
		rnd      fixedRandom
		unlocked []string
		want     string
	}{
		{"miss", fixedRandom{roll: UnlockChance, pick: 0}, nil, ""},
		{"hit", fixedRandom{roll: 0, pick: 1}, nil, "volcanoCity"},
		{"already unlocked", fixedRandom{roll: 0.005, pick: 3}, []string{"waterCity"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := basedata.SampleStore(basedata.NewClock())
			p := basedata.AddPlayer(st, "p", 0)
			p.UnlockedCities = append(p.UnlockedCities, tt.unlocked...)
			svc := NewService(st, WithRandom(tt.rnd))

			c, err := svc.Trigger("p")
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, c)
				assert.Len(t, p.UnlockedCities, len(tt.unlocked))
				return
			}
			require.NotNil(t, c)
			assert.Equal(t, tt.want, c.Name)
			assert.Contains(t, p.UnlockedCities, tt.want)
		})
	}
}

func TestTriggerUnknownPlayer(t *testing.T) {
	svc := NewService(basedata.SampleStore(basedata.NewClock()))
	_, err := svc.Trigger("nobody")
	assert.ErrorIs(t, err, gameerr.ErrPlayerNotFound)
}

func TestTeleport(t *testing.T) {
	st := basedata.SampleStore(basedata.NewClock())
	p := basedata.AddPlayer(st, "p", 0)
	svc := NewService(st)

	_, err := svc.Teleport("p", "skyCity")
	assert.ErrorIs(t, err, gameerr.ErrCityLocked)
	assert.ErrorIs(t, err, gameerr.ErrInvalidState)

	p.UnlockedCities = []string{"skyCity", "atlantis"}
	c, err := svc.Teleport("p", "skyCity")
	require.NoError(t, err)
	assert.Equal(t, model.Vec3{Y: 2000}, c.Position)
	assert.Equal(t, model.Vec3{Y: 2000}, p.Position)

	_, err = svc.Teleport("p", "atlantis")
	assert.ErrorIs(t, err, gameerr.ErrCityLocked)
	_, err = svc.Teleport("ghost", "skyCity")
	assert.ErrorIs(t, err, gameerr.ErrPlayerNotFound)
}

func TestCities(t *testing.T) {
	cs := Cities()
	assert.Len(t, cs, 4)
	cs[0].Name = "changed"
	c, ok := ByName("skyCity")
	assert.True(t, ok)
	assert.Equal(t, "skyCity", c.Name)
}
