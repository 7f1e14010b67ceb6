package tournament

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/samber/lo"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/auth"
	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/pkg/permission"
	"github.com/mpapenbr/carclash-server/pkg/store"
)

const (
	DefaultMaxPlayers  = 8
	DefaultRewardMoney = 5000
	DefaultArena       = "default-arena"
	minParticipants    = 2
)

type (
	Option  func(*Service)
	Service struct {
		store   *store.Store
		pe      permission.PermissionEvaluator
		shuffle func(ids []string)
		l       *log.Logger
	}
	Config struct {
		Name       string                 `json:"name"`
		MaxPlayers int                    `json:"maxPlayers"`
		Rewards    *model.Rewards         `json:"rewards"`
		Arena      string                 `json:"arena"`
		Format     model.TournamentFormat `json:"format"`
	}
	// Result is returned by ReportResult. Champion is set once the tournament
	// finished and the champion is still connected.
	Result struct {
		Tournament *model.Tournament
		Finished   bool
		Champion   *model.Player
	}
)

func WithPermissionEvaluator(pe permission.PermissionEvaluator) Option {
	return func(s *Service) {
		s.pe = pe
	}
}

// WithShuffle replaces the random permutation used for seeding the bracket
func WithShuffle(shuffle func(ids []string)) Option {
	return func(s *Service) {
		s.shuffle = shuffle
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
		shuffle: func(ids []string) {
			rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		},
		l: log.Default().Named("tournament"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *Service) Create(creatorID string, cfg Config) (*model.Tournament, error) {
	if _, ok := s.store.Player(creatorID); !ok {
		return nil, gameerr.ErrPlayerNotFound
	}
	id := s.store.NewID()
	t := &model.Tournament{
		ID:           id,
		Name:         cfg.Name,
		CreatorID:    creatorID,
		Status:       model.TournamentWaiting,
		Format:       cfg.Format,
		MaxPlayers:   cfg.MaxPlayers,
		Arena:        cfg.Arena,
		Participants: []string{},
		Bracket:      []*model.Match{},
		Rewards:      model.Rewards{Money: DefaultRewardMoney},
		CreatedAt:    s.store.Now(),
	}
	if t.Name == "" {
		t.Name = fmt.Sprintf("Tournament %s", id[:min(5, len(id))])
	}
	if t.MaxPlayers <= 0 {
		t.MaxPlayers = DefaultMaxPlayers
	}
	if t.Arena == "" {
		t.Arena = DefaultArena
	}
	switch t.Format {
	case model.FormatFlat, model.FormatKnockout:
	case "":
		t.Format = model.FormatFlat
	default:
		return nil, gameerr.Wrap(gameerr.ErrInvalidInput, "unknown format %q", cfg.Format)
	}
	if cfg.Rewards != nil {
		if cfg.Rewards.Money < 0 {
			return nil, gameerr.ErrInvalidAmount
		}
		t.Rewards = *cfg.Rewards
	}
	s.store.AddTournament(t)
	return t, nil
}

func (s *Service) tournament(id string) (*model.Tournament, error) {
	t, ok := s.store.Tournament(id)
	if !ok {
		return nil, gameerr.ErrTournamentNotFound
	}
	return t, nil
}

func (s *Service) Join(tournamentID, playerID string) (*model.Tournament, error) {
	t, err := s.tournament(tournamentID)
	if err != nil {
		return nil, err
	}
	if _, ok := s.store.Player(playerID); !ok {
		return nil, gameerr.ErrPlayerNotFound
	}
	if t.Status != model.TournamentWaiting {
		return nil, gameerr.ErrTournamentNotWaiting
	}
	if lo.Contains(t.Participants, playerID) {
		return nil, gameerr.ErrAlreadyJoined
	}
	if len(t.Participants) >= t.MaxPlayers {
		return nil, gameerr.ErrTournamentFull
	}
	t.Participants = append(t.Participants, playerID)
	return t, nil
}

// Start freezes the participant list and seeds the first round
func (s *Service) Start(a auth.Authentication, tournamentID string) (*model.Tournament, error) {
	t, err := s.tournament(tournamentID)
	if err != nil {
		return nil, err
	}
	if !s.mayStart(a, t) {
		return nil, gameerr.ErrNotCreator
	}
	if t.Status != model.TournamentWaiting {
		return nil, gameerr.ErrTournamentNotWaiting
	}
	if len(t.Participants) < minParticipants {
		return nil, gameerr.ErrNotEnoughPlayers
	}
	ids := append([]string{}, t.Participants...)
	s.shuffle(ids)
	t.Bracket = pair(1, ids)
	t.Status = model.TournamentInProgress
	s.l.Debug("tournament started",
		log.String("tournament", t.ID),
		log.Int("participants", len(ids)),
		log.String("format", string(t.Format)))
	return t, nil
}

func (s *Service) mayStart(a auth.Authentication, t *model.Tournament) bool {
	if a == nil {
		return false
	}
	if s.pe != nil {
		return s.pe.HasObjectPermission(a, permission.PermissionStartTournament, t.CreatorID)
	}
	return a.Principal().Name() == t.CreatorID
}

// pair builds the matches of a round. An odd player out gets a bye which
// is won right away.
func pair(round int, ids []string) []*model.Match {
	ret := make([]*model.Match, 0, (len(ids)+1)/2)
	for i := 0; i < len(ids); i += 2 {
		m := &model.Match{Round: round, A: ids[i]}
		if i+1 < len(ids) {
			m.B = ids[i+1]
		} else {
			m.Winner = m.A
		}
		ret = append(ret, m)
	}
	return ret
}

// ReportResult records winnerID for the first open match involving that player.
func (s *Service) ReportResult(tournamentID, winnerID string) (*Result, error) {
	t, err := s.tournament(tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TournamentInProgress {
		return nil, gameerr.ErrTournamentNotRunning
	}
	m, found := lo.Find(t.Bracket, func(m *model.Match) bool {
		return m.Winner == "" && m.Involves(winnerID)
	})
	if !found {
		return nil, gameerr.ErrNoOpenMatch
	}
	m.Winner = winnerID

	ret := &Result{Tournament: t}
	if !lo.EveryBy(t.Bracket, func(m *model.Match) bool { return m.Winner != "" }) {
		return ret, nil
	}
	var champion string
	switch t.Format {
	case model.FormatKnockout:
		round := lastRound(t.Bracket)
		winners := lo.FilterMap(t.Bracket, func(m *model.Match, _ int) (string, bool) {
			return m.Winner, m.Round == round
		})
		if len(winners) > 1 {
			t.Bracket = append(t.Bracket, pair(round+1, winners)...)
			return ret, nil
		}
		champion = winners[0]
	default:
		champion = mostWins(t.Bracket)
	}
	return s.conclude(t, champion, ret), nil
}

func (s *Service) conclude(t *model.Tournament, champion string, ret *Result) *Result {
	t.Status = model.TournamentFinished
	t.Champion = champion
	ret.Finished = true
	if p, ok := s.store.Player(champion); ok {
		p.Money += t.Rewards.Money
		ret.Champion = p
	}
	s.l.Info("tournament finished",
		log.String("tournament", t.ID),
		log.String("champion", champion))
	return ret
}

func lastRound(bracket []*model.Match) int {
	return lo.MaxBy(bracket, func(a, b *model.Match) bool { return a.Round > b.Round }).Round
}

// mostWins picks the player with the most recorded wins. Ties go to the player
// with more contested wins, then to the one whose first win comes earlier
// in the bracket.
func mostWins(bracket []*model.Match) string {
	type score struct {
		id        string
		wins      int
		contested int
		first     int
	}
	scores := map[string]*score{}
	for i, m := range bracket {
		sc, ok := scores[m.Winner]
		if !ok {
			sc = &score{id: m.Winner, first: i}
			scores[m.Winner] = sc
		}
		sc.wins++
		if !m.IsBye() {
			sc.contested++
		}
	}
	all := lo.Values(scores)
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.wins != b.wins {
			return a.wins > b.wins
		}
		if a.contested != b.contested {
			return a.contested > b.contested
		}
		return a.first < b.first
	})
	return all[0].id
}

// RemovePlayer drops a leaving player from waiting tournaments.
// Returns the tournaments that changed.
func (s *Service) RemovePlayer(playerID string) []*model.Tournament {
	changed := []*model.Tournament{}
	for _, t := range s.store.Tournaments() {
		if t.Status != model.TournamentWaiting || !lo.Contains(t.Participants, playerID) {
			continue
		}
		t.Participants = lo.Without(t.Participants, playerID)
		changed = append(changed, t)
	}
	return changed
}

func (s *Service) Tournaments() []*model.Tournament {
	return s.store.Tournaments()
}
