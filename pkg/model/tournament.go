package model

import "time"

type TournamentStatus string

const (
	TournamentWaiting    TournamentStatus = "waiting"
	TournamentInProgress TournamentStatus = "in_progress"
	TournamentFinished   TournamentStatus = "finished"
)

type TournamentFormat string

const (
	FormatFlat     TournamentFormat = "flat"
	FormatKnockout TournamentFormat = "knockout"
)

// Match is a pairing within the bracket. B is empty for a bye.
type Match struct {
	Round  int    `json:"round"`
	A      string `json:"a"`
	B      string `json:"b,omitempty"`
	Winner string `json:"winner,omitempty"`
}

func (m *Match) IsBye() bool {
	return m.B == ""
}

func (m *Match) Involves(playerID string) bool {
	return m.A == playerID || m.B == playerID
}

type Rewards struct {
	Money int64 `json:"money"`
}

type Tournament struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	CreatorID    string           `json:"creatorId"`
	Status       TournamentStatus `json:"status"`
	Format       TournamentFormat `json:"format"`
	MaxPlayers   int              `json:"maxPlayers"`
	Arena        string           `json:"arena"`
	Participants []string         `json:"participants"`
	Bracket      []*Match         `json:"bracket"`
	Rewards      Rewards          `json:"rewards"`
	Champion     string           `json:"champion,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}
