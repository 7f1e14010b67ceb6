// Package account keeps the demo accounts of the lobby endpoints.
// Accounts live in memory only, login tokens expire.
package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/utils/cache"
	"github.com/mpapenbr/carclash-server/pkg/utils/cache/loadercache"
)

var (
	ErrMissingCredentials = errors.New("username and password required")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type (
	Profile struct {
		DisplayName string   `json:"displayName"`
		Level       int      `json:"level"`
		Experience  int      `json:"experience"`
		Money       int64    `json:"money"`
		Cars        []string `json:"cars"`
	}
	Account struct {
		Username     string
		CreatedAt    time.Time
		Profile      Profile
		passwordHash []byte
	}
	Option  func(*Service)
	Service struct {
		mu            sync.RWMutex
		accounts      map[string]*Account
		tokens        cache.Cache[string, string]
		expiration    time.Duration
		startingMoney int64
		hashCost      int
		now           func() time.Time
		newToken      func() string
		l             *log.Logger
	}
)

func WithTokenExpiration(d time.Duration) Option {
	return func(s *Service) {
		s.expiration = d
	}
}

func WithStartingMoney(money int64) Option {
	return func(s *Service) {
		s.startingMoney = money
	}
}

// WithHashCost sets the bcrypt cost of stored passwords
func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.hashCost = cost
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithTokenGenerator(gen func() string) Option {
	return func(s *Service) {
		s.newToken = gen
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.l = l
	}
}

func NewService(opts ...Option) *Service {
	ret := &Service{
		accounts:      map[string]*Account{},
		expiration:    24 * time.Hour,
		startingMoney: 100000,
		hashCost:      bcrypt.DefaultCost,
		now:           time.Now,
		newToken:      uuid.NewString,
		l:             log.Default().Named("account"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.tokens = loadercache.New(
		loadercache.WithExpiration[string, string](ret.expiration),
		loadercache.WithClock[string, string](ret.now),
		loadercache.WithLogger[string, string](ret.l.Named("tokens")),
	)
	return ret
}

func (s *Service) Register(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[username]; ok {
		return ErrUsernameTaken
	}
	s.accounts[username] = &Account{
		Username:     username,
		CreatedAt:    s.now(),
		passwordHash: hash,
		Profile: Profile{
			DisplayName: username,
			Level:       1,
			Money:       s.startingMoney,
			Cars:        []string{},
		},
	}
	s.l.Info("account registered", log.String("username", username))
	return nil
}

// Login checks the credentials and issues a new token
func (s *Service) Login(ctx context.Context, username, password string) (string, Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", Profile{}, ErrMissingCredentials
	}
	s.mu.RLock()
	acc, ok := s.accounts[username]
	s.mu.RUnlock()
	if !ok {
		return "", Profile{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		s.l.Debug("login failed", log.String("username", username))
		return "", Profile{}, ErrInvalidCredentials
	}
	token := s.newToken()
	s.tokens.Set(ctx, token, &username)
	return token, acc.Profile, nil
}

// AccountForToken returns the account name of a valid login token
func (s *Service) AccountForToken(ctx context.Context, token string) (string, error) {
	name, err := s.tokens.Get(ctx, token)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return *name, nil
}

func (s *Service) Profile(ctx context.Context, token string) (Profile, error) {
	name, err := s.AccountForToken(ctx, token)
	if err != nil {
		return Profile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[name]
	if !ok {
		return Profile{}, ErrInvalidToken
	}
	return acc.Profile, nil
}

func (s *Service) Logout(ctx context.Context, token string) {
	s.tokens.Invalidate(ctx, token)
}

// PurgeTokens drops expired tokens
func (s *Service) PurgeTokens(ctx context.Context) int {
	return s.tokens.Purge(ctx)
}
