package race

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/auth"
	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/pkg/permission"
	"github.com/mpapenbr/carclash-server/pkg/store"
)

const (
	// DefaultLaps is used for tracks without a lap count of their own
	DefaultLaps            = 3
	DefaultMaxParticipants = 8
	// FinishedRetention is how long a finished race stays listed
	FinishedRetention = time.Minute
	minParticipants   = 2
)

type (
	Option  func(*Service)
	Service struct {
		store *store.Store
		pe    permission.PermissionEvaluator
		l     *log.Logger
	}
	CheckpointResult struct {
		Race         *model.Race
		Participant  *model.RaceParticipant
		Advanced     bool
		LapCompleted bool
		RaceFinished bool
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
		l:     log.Default().Named("race"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// CreateRace registers a waiting race. The creator does not join implicitly.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) CreateRace(
	creatorID, trackID string, laps, maxParticipants int,
) (*model.Race, error) {
	if _, ok := s.store.Player(creatorID); !ok {
		return nil, gameerr.ErrPlayerNotFound
	}
	track, ok := TrackByID(trackID)
	if !ok {
		return nil, gameerr.ErrTrackNotFound
	}
	if laps <= 0 {
		laps = track.Laps
	}
	if laps <= 0 {
		laps = DefaultLaps
	}
	if maxParticipants <= 0 {
		maxParticipants = DefaultMaxParticipants
	}
	r := &model.Race{
		ID:              s.store.NewID(),
		CreatorID:       creatorID,
		Track:           track,
		Laps:            laps,
		MaxParticipants: maxParticipants,
		Participants:    []*model.RaceParticipant{},
		Status:          model.RaceWaiting,
		CreatedAt:       s.store.Now(),
	}
	s.store.AddRace(r)
	return r, nil
}

func (s *Service) race(id string) (*model.Race, error) {
	r, ok := s.store.Race(id)
	if !ok {
		return nil, gameerr.ErrRaceNotFound
	}
	return r, nil
}

// JoinRace adds the player with the first car of the inventory
func (s *Service) JoinRace(raceID, playerID string) (*model.Race, error) {
	r, err := s.race(raceID)
	if err != nil {
		return nil, err
	}
	p, ok := s.store.Player(playerID)
	if !ok {
		return nil, gameerr.ErrPlayerNotFound
	}
	if r.Status != model.RaceWaiting {
		return nil, gameerr.ErrRaceNotJoinable
	}
	if r.Participant(playerID) != nil {
		return nil, gameerr.ErrAlreadyJoined
	}
	if len(r.Participants) >= r.MaxParticipants {
		return nil, gameerr.ErrRaceFull
	}
	car := p.FirstCar()
	if car == nil {
		return nil, gameerr.ErrNoCars
	}
	r.Participants = append(r.Participants, &model.RaceParticipant{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Car:        car,
		LapTimes:   []time.Duration{},
	})
	return r, nil
}

func (s *Service) LeaveRace(raceID, playerID string) (*model.Race, error) {
	r, err := s.race(raceID)
	if err != nil {
		return nil, err
	}
	if r.Status != model.RaceWaiting {
		return nil, gameerr.ErrRaceNotJoinable
	}
	if r.Participant(playerID) == nil {
		return nil, gameerr.ErrPlayerNotFound
	}
	r.Participants = lo.Reject(r.Participants, func(p *model.RaceParticipant, _ int) bool {
		return p.PlayerID == playerID
	})
	return r, nil
}

// StartRace moves the race to starting. The caller is responsible to call
// BeginRacing once the countdown elapsed.
func (s *Service) StartRace(a auth.Authentication, raceID string) (*model.Race, error) {
	r, err := s.race(raceID)
	if err != nil {
		return nil, err
	}
	if !s.mayStart(a, r) {
		return nil, gameerr.ErrNotCreator
	}
	if r.Status != model.RaceWaiting {
		return nil, gameerr.ErrRaceNotJoinable
	}
	if len(r.Participants) < minParticipants {
		return nil, gameerr.ErrNotEnoughPlayers
	}
	r.Status = model.RaceStarting
	return r, nil
}

func (s *Service) mayStart(a auth.Authentication, r *model.Race) bool {
	if a == nil {
		return false
	}
	if s.pe != nil {
		return s.pe.HasObjectPermission(a, permission.PermissionStartRace, r.CreatorID)
	}
	return a.Principal().Name() == r.CreatorID
}

// BeginRacing ends the countdown. A race whose participants all left during
// the countdown is finished right away.
func (s *Service) BeginRacing(raceID string) (*model.Race, error) {
	r, err := s.race(raceID)
	if err != nil {
		return nil, err
	}
	if r.Status != model.RaceStarting {
		return nil, gameerr.New(gameerr.ErrInvalidState, "race not starting")
	}
	now := s.store.Now()
	r.Status = model.RaceRacing
	r.StartTime = &now
	for _, p := range r.Participants {
		p.LapStart = now
	}
	s.l.Debug("race started",
		log.String("race", r.ID),
		log.Int("participants", len(r.Participants)))
	s.finishIfDone(r)
	return r, nil
}

// Checkpoint records a checkpoint hit. Hits that are not the expected next
// checkpoint are ignored without error.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) Checkpoint(
	raceID, playerID string, index int,
) (*CheckpointResult, error) {
	r, err := s.race(raceID)
	if err != nil {
		return nil, err
	}
	p := r.Participant(playerID)
	if p == nil {
		return nil, gameerr.ErrPlayerNotFound
	}
	ret := &CheckpointResult{Race: r, Participant: p}
	if r.Status != model.RaceRacing || p.Done() || index != p.CurrentCheckpoint {
		return ret, nil
	}
	ret.Advanced = true
	p.CurrentCheckpoint++
	if p.CurrentCheckpoint < r.Track.Checkpoints {
		return ret, nil
	}

	now := s.store.Now()
	ret.LapCompleted = true
	p.CurrentCheckpoint = 0
	p.CurrentLap++
	lapTime := now.Sub(p.LapStart)
	p.LapTimes = append(p.LapTimes, lapTime)
	if p.BestLap == 0 || lapTime < p.BestLap {
		p.BestLap = lapTime
	}
	p.LapStart = now
	if p.CurrentLap >= r.Laps {
		p.Finished = true
		p.TotalTime = now.Sub(*r.StartTime)
	}
	ret.RaceFinished = s.finishIfDone(r)
	return ret, nil
}

// RetirePlayer removes a leaving player from all races.
// Returns the races that changed.
func (s *Service) RetirePlayer(playerID string) []*model.Race {
	changed := []*model.Race{}
	for _, r := range s.store.Races() {
		p := r.Participant(playerID)
		if p == nil {
			continue
		}
		switch r.Status {
		case model.RaceWaiting, model.RaceStarting:
			r.Participants = lo.Reject(r.Participants,
				func(x *model.RaceParticipant, _ int) bool { return x.PlayerID == playerID })
			changed = append(changed, r)
		case model.RaceRacing:
			if !p.Done() {
				p.Retired = true
				s.finishIfDone(r)
				changed = append(changed, r)
			}
		case model.RaceFinished:
		}
	}
	return changed
}

// PurgeFinished removes races that finished more than FinishedRetention ago.
// Returns the ids of the removed races.
func (s *Service) PurgeFinished() []string {
	now := s.store.Now()
	ret := []string{}
	for _, r := range s.store.Races() {
		if r.Status != model.RaceFinished || r.EndTime == nil {
			continue
		}
		if now.Sub(*r.EndTime) < FinishedRetention {
			continue
		}
		s.store.RemoveRace(r.ID)
		ret = append(ret, r.ID)
	}
	if len(ret) > 0 {
		s.l.Debug("finished races removed", log.Int("count", len(ret)))
	}
	return ret
}

func (s *Service) finishIfDone(r *model.Race) bool {
	if r.Status != model.RaceRacing {
		return false
	}
	if !lo.EveryBy(r.Participants, func(p *model.RaceParticipant) bool { return p.Done() }) {
		return false
	}
	now := s.store.Now()
	r.Status = model.RaceFinished
	r.EndTime = &now
	rank(r.Participants)
	s.l.Info("race finished", log.String("race", r.ID))
	return true
}

// rank orders finishers by total time, retired participants follow
func rank(participants []*model.RaceParticipant) {
	sort.SliceStable(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if a.Finished != b.Finished {
			return a.Finished
		}
		if a.Finished {
			return a.TotalTime < b.TotalTime
		}
		return false
	})
	for i, p := range participants {
		p.Position = i + 1
	}
}

func (s *Service) Races() []*model.Race {
	return s.store.Races()
}
