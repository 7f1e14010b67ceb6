package race

import "github.com/mpapenbr/carclash-server/pkg/model"

var tracks = []model.Track{
	{ID: "city-circuit", Name: "City Circuit", Laps: 3, Checkpoints: 4},
	{ID: "mountain-pass", Name: "Mountain Pass", Laps: 5, Checkpoints: 5},
	{ID: "desert-highway", Name: "Desert Highway", Laps: 2, Checkpoints: 4},
	{ID: "coastal-road", Name: "Coastal Road", Laps: 4, Checkpoints: 4},
}

func Tracks() []model.Track {
	return append([]model.Track{}, tracks...)
}

func TrackByID(id string) (model.Track, bool) {
	for _, t := range tracks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Track{}, false
}
