// Package protocol defines the messages exchanged over the websocket.
// Every message is an Envelope holding the message type and its payload.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/mpapenbr/carclash-server/pkg/model"
)

type CommandKind string

//nolint:lll // readability
const (
	CmdJoinGame         CommandKind = "join-game"
	CmdBuyCar           CommandKind = "buy-car"
	CmdSellCar          CommandKind = "sell-car"
	CmdRefuel           CommandKind = "refuel"
	CmdRecharge         CommandKind = "recharge"
	CmdCustomizeCar     CommandKind = "customize-car"
	CmdCreateAuction    CommandKind = "create-auction"
	CmdPlaceBid         CommandKind = "place-bid"
	CmdCancelAuction    CommandKind = "cancel-auction"
	CmdCreateRace       CommandKind = "create-race"
	CmdJoinRace         CommandKind = "join-race"
	CmdLeaveRace        CommandKind = "leave-race"
	CmdStartRace        CommandKind = "start-race"
	CmdCheckpoint       CommandKind = "checkpoint"
	CmdTournamentCreate CommandKind = "tournament:create"
	CmdTournamentJoin   CommandKind = "tournament:join"
	CmdTournamentStart  CommandKind = "tournament:start"
	CmdTournamentReport CommandKind = "tournament:reportResult"
	CmdLevelUp          CommandKind = "level-up"
	CmdTradeRequest     CommandKind = "trade-request"
	CmdTradeAccept      CommandKind = "trade-accept"
	CmdTradeDecline     CommandKind = "trade-decline"
	CmdReportPlayer     CommandKind = "report:player"
	CmdUpdatePosition   CommandKind = "update-position"
	CmdHeartbeat        CommandKind = "heartbeat"
	CmdAdminExec        CommandKind = "admin:exec"
	CmdCityEvent        CommandKind = "city-event-trigger"
	CmdTeleportToCity   CommandKind = "teleport-to-city"
)

// outbound event types
const (
	EvtGameState           = "game-state"
	EvtPlayerJoined        = "player-joined"
	EvtPlayerLeft          = "player-left"
	EvtPlayerMoved         = "player-moved"
	EvtUpdatePlayer        = "update-player"
	EvtBanned              = "banned"
	EvtError               = "error"
	EvtBuyCarResult        = "buy-car-result"
	EvtSellCarResult       = "sell-car-result"
	EvtCustomizeResult     = "customize-car-result"
	EvtAuctionResult       = "auction-result"
	EvtBidResult           = "bid-result"
	EvtCancelAuctionResult = "cancel-auction-result"
	EvtNewAuction          = "new-auction"
	EvtAuctionUpdated      = "auction-updated"
	EvtAuctionEnded        = "auction-ended"
	EvtAuctionCancelled    = "auction-cancelled"
	EvtRaceResult          = "race-result"
	EvtRaceCreated         = "race-created"
	EvtNewRace             = "new-race"
	EvtRaceUpdated         = "race-updated"
	EvtRaceCountdown       = "race-countdown"
	EvtRaceStarted         = "race-started"
	EvtRaceProgress        = "race-progress"
	EvtRaceFinished        = "race-finished"
	EvtTournamentCreated   = "tournament:created"
	EvtTournamentUpdated   = "tournament:updated"
	EvtTournamentStarted   = "tournament:started"
	EvtTournamentFinished  = "tournament:finished"
	EvtLevelUpdated        = "level-updated"
	EvtAchievementUnlocked = "achievement-unlocked"
	EvtTradeOffer          = "trade-offer"
	EvtTradeSent           = "trade-sent"
	EvtTradeCompleted      = "trade-completed"
	EvtTradeDeclined       = "trade-declined"
	EvtTradeError          = "trade-error"
	EvtReportAck           = "report:ack"
	EvtHeartbeat           = "heartbeat-ack"
	EvtAdminLog            = "admin:log"
	EvtCatalogUpdated      = "catalog-updated"
	EvtCityUnlocked        = "city-unlocked"
	EvtTeleported          = "teleported"
	EvtPlayerTeleported    = "player-teleported"
	EvtTeleportError       = "teleport-error"
)

// Envelope is the wire format of inbound messages
type Envelope struct {
	Type    CommandKind     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is the wire format of outbound messages
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func NewEvent(eventType string, payload any) Event {
	return Event{Type: eventType, Payload: payload}
}

// Encoded is an event already marshaled by the hub. Unlike Event it holds no
// references into the store and may be passed to other goroutines.
type Encoded struct {
	Type string
	Data []byte
}

// Decode unmarshals the payload into target. A missing payload leaves target
// untouched.
func (e Envelope) Decode(target any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(e.Payload, target)
}

type (
	JoinGame struct {
		Name string `json:"name"`
	}
	CreateAuction struct {
		CarID         string  `json:"carId"`
		StartingPrice int64   `json:"startingPrice"`
		Duration      float64 `json:"duration"` // minutes
	}
	PlaceBid struct {
		AuctionID string `json:"auctionId"`
		Amount    int64  `json:"amount"`
	}
	CancelAuction struct {
		AuctionID string `json:"auctionId"`
	}
	CreateRace struct {
		Track           string `json:"track"`
		Laps            int    `json:"laps"`
		MaxParticipants int    `json:"maxParticipants"`
	}
	Checkpoint struct {
		RaceID     string `json:"raceId"`
		Checkpoint int    `json:"checkpoint"`
	}
	RaceProgress struct {
		RaceID     string `json:"raceId"`
		PlayerID   string `json:"playerId"`
		Lap        int    `json:"lap"`
		Checkpoint int    `json:"checkpoint"`
		Finished   bool   `json:"finished"`
	}
	RaceCountdown struct {
		RaceID  string `json:"raceId"`
		Seconds int    `json:"seconds"`
	}
	LevelUp struct {
		Type   string `json:"type"`
		Amount int    `json:"amount"`
	}
	LevelUpdated struct {
		Type   string        `json:"type"`
		Level  int           `json:"level"`
		Player *model.Player `json:"player"`
	}
	TradeRequest struct {
		TargetPlayerID string            `json:"targetPlayerId"`
		Offer          []model.TradeItem `json:"offer"`
		Request        []model.TradeItem `json:"request"`
	}
	TradeReply struct {
		OfferID string `json:"offerId"`
	}
	TradeOffer struct {
		OfferID        string            `json:"offerId"`
		FromPlayerID   string            `json:"fromPlayerId"`
		FromPlayerName string            `json:"fromPlayerName"`
		Offer          []model.TradeItem `json:"offer"`
		Request        []model.TradeItem `json:"request"`
	}
	TradeNotice struct {
		Message      string        `json:"message"`
		OfferID      string        `json:"offerId,omitempty"`
		FromPlayerID string        `json:"fromPlayerId,omitempty"`
		Player       *model.Player `json:"player,omitempty"`
		Code         string        `json:"code,omitempty"`
	}
	TournamentReport struct {
		TournamentID string `json:"tournamentId"`
		WinnerID     string `json:"winnerId"`
	}
	ReportPlayer struct {
		AccusedID string `json:"accusedId"`
		Category  string `json:"category"`
		Message   string `json:"message"`
	}
	UpdatePosition struct {
		Position model.Vec3 `json:"position"`
		Rotation model.Vec3 `json:"rotation"`
	}
	PlayerMoved struct {
		PlayerID string     `json:"playerId"`
		Position model.Vec3 `json:"position"`
		Rotation model.Vec3 `json:"rotation"`
	}
	Heartbeat struct {
		SentAt int64 `json:"sentAt"`
	}
	HeartbeatAck struct {
		ServerTime int64 `json:"serverTime"`
		ClientTime int64 `json:"clientTime"`
	}
	AdminExec struct {
		Secret string    `json:"secret"`
		Cmd    string    `json:"cmd"`
		Args   AdminArgs `json:"args"`
	}
	AdminArgs struct {
		TargetID string `json:"targetId"`
		Amount   int64  `json:"amount"`
		CarID    string `json:"carId"`
		Document string `json:"document"`
	}
	AdminLog struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	}
	TeleportToCity struct {
		CityName string `json:"cityName"`
	}
	CityUnlocked struct {
		City    string `json:"city"`
		Message string `json:"message"`
	}
	Teleported struct {
		PlayerID string     `json:"playerId,omitempty"`
		City     string     `json:"city"`
		Position model.Vec3 `json:"position"`
	}
	TeleportError struct {
		Message string `json:"message"`
		Code    string `json:"code,omitempty"`
	}
	CatalogUpdated struct {
		Added []string `json:"added"`
	}
	GameState struct {
		Player         *model.Player                    `json:"player"`
		AvailableCars  map[string][]model.CarDefinition `json:"availableCars"`
		ActiveAuctions []*model.Auction                 `json:"activeAuctions"`
		ActiveRaces    []*model.Race                    `json:"activeRaces"`
		Tournaments    []*model.Tournament              `json:"tournaments"`
		Tracks         []model.Track                    `json:"tracks"`
		ServerTime     time.Time                        `json:"serverTime"`
	}
	// Result answers a mutating command to the requester
	Result struct {
		Success   bool               `json:"success"`
		Message   string             `json:"message,omitempty"`
		Code      string             `json:"code,omitempty"`
		Player    *model.Player      `json:"player,omitempty"`
		SellPrice int64              `json:"sellPrice,omitempty"`
		Car       *model.CarInstance `json:"car,omitempty"`
		Auction   *model.Auction     `json:"auction,omitempty"`
		Race      *model.Race        `json:"race,omitempty"`
	}
	ErrorPayload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Command string `json:"command,omitempty"`
	}
)
