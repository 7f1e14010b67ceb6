package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/mpapenbr/carclash-server/log"
)

const (
	tokenHeader = "api-token"
	// login tokens may also be passed as query parameter on websocket upgrades
	tokenQueryParam = "token"
)

type (
	AuthenticationProvider interface {
		// Authenticate returns nil, nil if the request carries nothing
		// this provider is responsible for
		Authenticate(ctx context.Context, r *http.Request) (Authentication, error)
	}
	// TokenResolver maps a login token to an account name
	TokenResolver interface {
		AccountForToken(ctx context.Context, token string) (string, error)
	}
	Option        func(*Authenticator)
	Authenticator struct {
		adminToken string
		tokens     TokenResolver
		providers  []AuthenticationProvider
		l          *log.Logger
	}
	anonymousAuthenticator struct{}
	apiKeyAuthenticator    struct {
		adminToken string
	}
	bearerAuthenticator struct {
		tokens TokenResolver
	}
)

func WithAdminToken(token string) Option {
	return func(a *Authenticator) {
		a.adminToken = token
	}
}

func WithTokenResolver(arg TokenResolver) Option {
	return func(a *Authenticator) {
		a.tokens = arg
	}
}

func NewAuthenticator(opts ...Option) *Authenticator {
	ret := &Authenticator{
		l: log.Default().Named("auth"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.providers = []AuthenticationProvider{
		&apiKeyAuthenticator{adminToken: ret.adminToken},
	}
	if ret.tokens != nil {
		ret.providers = append(ret.providers, &bearerAuthenticator{tokens: ret.tokens})
	}
	ret.providers = append(ret.providers, &anonymousAuthenticator{})
	return ret
}

// Authenticate asks each provider in turn. A provider error stops the chain.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) (Authentication, error) {
	for _, p := range a.providers {
		res, err := p.Authenticate(ctx, r)
		if err != nil {
			a.l.Debug("authentication failed", log.ErrorField(err))
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return anon, nil
}

// Middleware stores the authentication of the request in its context.
// Requests with an invalid token are rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := a.Authenticate(r.Context(), r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(AddToContext(r.Context(), res)))
	})
}

//nolint:whitespace // editor/linter issue
func (a *anonymousAuthenticator) Authenticate(
	ctx context.Context,
	r *http.Request,
) (Authentication, error) {
	return anon, nil
}

//nolint:whitespace // editor/linter issue
func (a *apiKeyAuthenticator) Authenticate(
	ctx context.Context,
	r *http.Request,
) (Authentication, error) {
	token := r.Header.Get(tokenHeader)
	if token == "" {
		return nil, nil
	}
	if a.adminToken != "" && token == a.adminToken {
		return NewSimpleAuth("admin", RoleAdmin), nil
	}
	return nil, ErrPermissionDenied
}

//nolint:whitespace // editor/linter issue
func (b *bearerAuthenticator) Authenticate(
	ctx context.Context,
	r *http.Request,
) (Authentication, error) {
	token := BearerToken(r)
	if token == "" {
		return nil, nil
	}
	account, err := b.tokens.AccountForToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return NewSimpleAuth(account, RolePlayer), nil
}

// BearerToken extracts the login token from the Authorization header or
// the token query parameter
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, found := strings.CutPrefix(h, "Bearer "); found {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get(tokenQueryParam)
}
