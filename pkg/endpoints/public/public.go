// Package public provides the lobby HTTP endpoints next to the websocket
// gateway.
package public

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/account"
	"github.com/mpapenbr/carclash-server/pkg/auth"
	"github.com/mpapenbr/carclash-server/pkg/config"
	"github.com/mpapenbr/carclash-server/version"
)

const maxBodySize = 64 * 1024

type (
	Option        func(*PublicManager)
	PublicManager struct {
		accounts     *account.Service
		servers      []config.Server
		ws           http.Handler
		sessionCount func() int
		l            *log.Logger
		reports      *log.Logger
	}
	endpointHandler struct {
		method  string
		path    string
		handler http.HandlerFunc
	}
	credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	playerReport struct {
		ReporterID string `json:"reporterId"`
		AccusedID  string `json:"accusedId"`
		Category   string `json:"category"`
		Message    string `json:"message"`
	}
	response struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
	}
)

func WithAccounts(s *account.Service) Option {
	return func(p *PublicManager) {
		p.accounts = s
	}
}

func WithServers(servers []config.Server) Option {
	return func(p *PublicManager) {
		p.servers = servers
	}
}

// WithWebsocket mounts the game gateway at /ws
func WithWebsocket(h http.Handler) Option {
	return func(p *PublicManager) {
		p.ws = h
	}
}

func WithSessionCount(f func() int) Option {
	return func(p *PublicManager) {
		p.sessionCount = f
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *PublicManager) {
		p.l = l
	}
}

func NewPublicManager(opts ...Option) *PublicManager {
	ret := &PublicManager{
		servers:      []config.Server{},
		sessionCount: func() int { return 0 },
		l:            log.Default().Named("public"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.accounts == nil {
		ret.accounts = account.NewService()
	}
	ret.reports = ret.l.Named("reports")
	return ret
}

func (pub *PublicManager) endpoints() []endpointHandler {
	return []endpointHandler{
		{http.MethodPost, "/auth/register", pub.register},
		{http.MethodPost, "/auth/login", pub.login},
		{http.MethodGet, "/auth/profile", pub.profile},
		{http.MethodGet, "/servers", pub.serverList},
		{http.MethodPost, "/report", pub.report},
		{http.MethodGet, "/healthz", pub.health},
		{http.MethodGet, "/version", pub.version},
	}
}

// Router returns the routes without CORS handling
func (pub *PublicManager) Router() *mux.Router {
	r := mux.NewRouter()
	for _, e := range pub.endpoints() {
		r.HandleFunc(e.path, e.handler).Methods(e.method)
	}
	if pub.ws != nil {
		r.Handle("/ws", pub.ws).Methods(http.MethodGet)
	}
	r.Use(pub.logRequests)
	return r
}

func (pub *PublicManager) Handler() http.Handler {
	return newCORS().Handler(pub.Router())
}

func (pub *PublicManager) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !pub.decode(w, r, &req) {
		return
	}
	if err := pub.accounts.Register(req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, account.ErrMissingCredentials):
			writeError(w, http.StatusBadRequest, "Username and password required")
		case errors.Is(err, account.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "Username already exists")
		default:
			pub.l.Error("register failed", log.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Registration failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true})
}

func (pub *PublicManager) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !pub.decode(w, r, &req) {
		return
	}
	token, profile, err := pub.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrMissingCredentials) {
			writeError(w, http.StatusBadRequest, "Username and password required")
			return
		}
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool            `json:"success"`
		Token   string          `json:"token"`
		Profile account.Profile `json:"profile"`
	}{true, token, profile})
}

func (pub *PublicManager) profile(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	profile, err := pub.accounts.Profile(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool            `json:"success"`
		Profile account.Profile `json:"profile"`
	}{true, profile})
}

func (pub *PublicManager) serverList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Success bool            `json:"success"`
		Servers []config.Server `json:"servers"`
	}{true, pub.servers})
}

func (pub *PublicManager) report(w http.ResponseWriter, r *http.Request) {
	var req playerReport
	if !pub.decode(w, r, &req) {
		return
	}
	pub.reports.Info("player report",
		log.String("reporter", req.ReporterID),
		log.String("accused", req.AccusedID),
		log.String("category", req.Category),
		log.String("message", req.Message),
		log.String("remote", r.RemoteAddr))
	writeJSON(w, http.StatusOK, response{Success: true})
}

func (pub *PublicManager) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Success  bool `json:"success"`
		Sessions int  `json:"sessions"`
	}{true, pub.sessionCount()})
}

func (pub *PublicManager) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Version   string `json:"version"`
		GitCommit string `json:"gitCommit"`
		BuildDate string `json:"buildDate"`
	}{version.Version, version.GitCommit, version.BuildDate})
}

// decode reads the JSON body into target. An empty body leaves target untouched.
func (pub *PublicManager) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		pub.l.Debug("invalid request body", log.String("path", r.URL.Path), log.ErrorField(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (pub *PublicManager) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		pub.l.Debug("request",
			log.String("method", r.Method),
			log.String("path", r.URL.Path),
			log.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("could not write response", log.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, response{Success: false, Message: msg})
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		MaxAge:         int(2 * time.Hour / time.Second),
	})
}
