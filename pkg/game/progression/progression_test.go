package progression

import (
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/testsupport/basedata"
)

func TestAchievements(t *testing.T) {
	tests := []struct {
		name  string
		level int
		want  []string
	}{
		{"below first tier", 4, []string{}},
		{"novice", 5, []string{"Racing Novice"}},
		{"expert", 24, []string{"Racing Novice", "Racing Expert"}},
		{"legend", 50, []string{"Racing Novice", "Racing Expert", "Racing Master", "Racing Legend"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []string{}
			for _, a := range Achievements("racing", tt.level) {
				got = append(got, a.Title)
			}
			assert.DeepEqual(t, tt.want, got)
		})
	}
}

func TestLevelUp(t *testing.T) {
	st := basedata.SampleStore(basedata.NewClock())
	p := basedata.AddPlayer(st, "p", 0)
	svc := NewService(st)

	res, err := svc.LevelUp("p", "trading", 0)
	assert.NilError(t, err)
	assert.Equal(t, 2, res.Level)
	assert.Check(t, is.Len(res.Unlocked, 0))

	res, err = svc.LevelUp("p", "trading", 3)
	assert.NilError(t, err)
	assert.Equal(t, 5, res.Level)
	assert.Check(t, is.Len(res.Unlocked, 1))
	assert.Equal(t, "trading_novice", res.Unlocked[0].ID)
	assert.Equal(t, "Reached level 5 in trading", res.Unlocked[0].Description)

	res, err = svc.LevelUp("p", "trading", 5)
	assert.NilError(t, err)
	assert.Equal(t, 10, res.Level)
	assert.Check(t, is.Len(res.Unlocked, 1))
	assert.Equal(t, "trading_expert", res.Unlocked[0].ID)

	assert.DeepEqual(t, []string{"trading_novice", "trading_expert"}, p.Achievements)
	assert.DeepEqual(t, []string{"Trading Novice", "Trading Expert"}, p.Titles)
	assert.Equal(t, 1, p.Levels["racing"])
}

func TestLevelUpErrors(t *testing.T) {
	st := basedata.SampleStore(basedata.NewClock())
	basedata.AddPlayer(st, "p", 0)
	svc := NewService(st)

	_, err := svc.LevelUp("p", "cooking", 1)
	assert.ErrorIs(t, err, gameerr.ErrInvalidInput)
	_, err = svc.LevelUp("x", "racing", 1)
	assert.ErrorIs(t, err, gameerr.ErrPlayerNotFound)
}
