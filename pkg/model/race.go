package model

import "time"

type RaceStatus string

const (
	RaceWaiting  RaceStatus = "waiting"
	RaceStarting RaceStatus = "starting"
	RaceRacing   RaceStatus = "racing"
	RaceFinished RaceStatus = "finished"
)

var raceOrder = map[RaceStatus]int{
	RaceWaiting: 0, RaceStarting: 1, RaceRacing: 2, RaceFinished: 3,
}

// CanAdvance reports whether the transition from s to next moves forward
func (s RaceStatus) CanAdvance(next RaceStatus) bool {
	return raceOrder[next] > raceOrder[s]
}

type Track struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Laps        int    `json:"laps"`
	Checkpoints int    `json:"checkpoints"`
}

type RaceParticipant struct {
	PlayerID          string          `json:"playerId"`
	PlayerName        string          `json:"playerName"`
	Car               *CarInstance    `json:"car"`
	CurrentLap        int             `json:"currentLap"`
	CurrentCheckpoint int             `json:"currentCheckpoint"`
	LapStart          time.Time       `json:"-"`
	LapTimes          []time.Duration `json:"lapTimes"`
	BestLap           time.Duration   `json:"bestLap,omitempty"`
	TotalTime         time.Duration   `json:"totalTime,omitempty"`
	Finished          bool            `json:"finished"`
	Retired           bool            `json:"retired"`
	Position          int             `json:"position,omitempty"`
}

func (p *RaceParticipant) Done() bool {
	return p.Finished || p.Retired
}

type Race struct {
	ID              string             `json:"id"`
	CreatorID       string             `json:"creatorId"`
	Track           Track              `json:"track"`
	Laps            int                `json:"laps"`
	MaxParticipants int                `json:"maxParticipants"`
	Participants    []*RaceParticipant `json:"participants"`
	Status          RaceStatus         `json:"status"`
	CreatedAt       time.Time          `json:"createdAt"`
	StartTime       *time.Time         `json:"startTime,omitempty"`
	EndTime         *time.Time         `json:"endTime,omitempty"`
}

func (r *Race) Participant(playerID string) *RaceParticipant {
	for _, p := range r.Participants {
		if p.PlayerID == playerID {
			return p
		}
	}
	return nil
}
