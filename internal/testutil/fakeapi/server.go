// Package fakeapi is an in-process stand-in for the chat service's REST
// API. It serves a fixed fixture, records every call, and lets tests force
// failures or hold a response until released.
//
//	srv := fakeapi.New(fakeapi.DefaultFixture())
//	ts := httptest.NewServer(srv.Handler())
//	defer ts.Close()
//	client := api.New(ts.URL)
//
// The same server backs the "parley mockserver" command.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/Iron-Ham/parley/internal/logging"
	"github.com/Iron-Ham/parley/internal/model"
)

// Route names. They match the gateway's operation names.
const (
	RouteLogin             = "login"
	RouteSelf              = "fetch_self"
	RouteGuilds            = "fetch_guilds"
	RouteChannels          = "fetch_channels"
	RouteMessages          = "fetch_messages"
	RoutePostMessage       = "post_message"
	RouteRelationships     = "fetch_relationships"
	RoutePostFriendRequest = "post_friend_request"
)

// Call is one recorded request.
type Call struct {
	Route         string
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          []byte
}

// FriendRequest is a recorded POST /users/@me/relationships body.
type FriendRequest struct {
	Username      string `json:"username"`
	Discriminator *int   `json:"discriminator,omitempty"`
	Type          int    `json:"type"`
}

type failure struct {
	status int
	body   any
	times  int // 0 = until cleared
}

// Server is the fake API. It is safe for concurrent use.
type Server struct {
	mu       sync.Mutex
	fixture  Fixture
	valid    map[string]bool
	calls    []Call
	failures map[string]*failure
	gates    map[string]*Gate
	friends  []FriendRequest
	nextID   int
	logger   *logging.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger logs every request at INFO.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.WithComponent("fakeapi")
		}
	}
}

// New creates a Server serving f. The fixture's maps are copied.
func New(f Fixture, opts ...Option) *Server {
	s := &Server{
		fixture:  f.clone(),
		valid:    map[string]bool{f.Token: true},
		failures: make(map[string]*failure),
		gates:    make(map[string]*Gate),
		nextID:   1000,
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API mounted at the root path.
func (s *Server) Handler() http.Handler {
	return s.Routes("")
}

// Routes returns the API mounted under prefix (for example "/api/v9").
func (s *Server) Routes(prefix string) http.Handler {
	root := mux.NewRouter()
	r := root
	if prefix != "" {
		r = root.PathPrefix(prefix).Subrouter()
	}

	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	r.HandleFunc("/users/@me", s.authed(s.handleSelf)).Methods(http.MethodGet).Name(RouteSelf)
	r.HandleFunc("/users/@me/guilds", s.authed(s.handleGuilds)).Methods(http.MethodGet).Name(RouteGuilds)
	r.HandleFunc("/users/@me/relationships", s.authed(s.handleRelationships)).Methods(http.MethodGet).Name(RouteRelationships)
	r.HandleFunc("/users/@me/relationships", s.authed(s.handleFriendRequest)).Methods(http.MethodPost).Name(RoutePostFriendRequest)
	r.HandleFunc("/guilds/{guildID}/channels", s.authed(s.handleChannels)).Methods(http.MethodGet).Name(RouteChannels)
	r.HandleFunc("/channels/{channelID}/messages", s.authed(s.handleMessages)).Methods(http.MethodGet).Name(RouteMessages)
	r.HandleFunc("/channels/{channelID}/messages", s.authed(s.handlePostMessage)).Methods(http.MethodPost).Name(RoutePostMessage)

	r.Use(s.record)
	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: 0, Message: "404: Not Found"})
	})
	return root
}

// -----------------------------------------------------------------------------
// Test controls
// -----------------------------------------------------------------------------

// Fail makes route answer with status and a {"code","message"} body. times
// limits how many requests fail; 0 means every request until ClearFailures.
func (s *Server) Fail(route string, status int, code int, message string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var body any
	if message != "" {
		body = errorBody{Code: code, Message: message}
	}
	s.failures[route] = &failure{status: status, body: body, times: times}
}

// FailRaw makes route answer with status and a raw, possibly non-JSON, body.
func (s *Server) FailRaw(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = &failure{status: status, body: rawBody(body)}
}

// ClearFailures removes every forced failure.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]*failure)
}

// RevokeTokens makes every issued token answer 401 from now on.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = make(map[string]bool)
}

// Hold blocks the next request on route after it is recorded, until the
// returned gate is released.
func (s *Server) Hold(route string) *Gate {
	g := &Gate{arrived: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	s.gates[route] = g
	s.mu.Unlock()
	return g
}

// Calls returns a copy of every recorded request.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns how many requests hit route.
func (s *Server) CallCount(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Route == route {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded requests.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// FriendRequests returns the friend requests received so far.
func (s *Server) FriendRequests() []FriendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FriendRequest(nil), s.friends...)
}

// Messages returns the current message window of a channel.
func (s *Server) Messages(channelID string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.fixture.Messages[channelID]...)
}

// SetMessages replaces the message window of a channel.
func (s *Server) SetMessages(channelID string, msgs []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixture.Messages[channelID] = append([]model.Message(nil), msgs...)
}

// SetGuilds replaces the guild list.
func (s *Server) SetGuilds(guilds []model.Guild) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixture.Guilds = append([]model.Guild(nil), guilds...)
}

// Gate holds one request until released.
type Gate struct {
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
}

// Arrived is closed once the held request reached the server.
func (g *Gate) Arrived() <-chan struct{} {
	return g.arrived
}

// Release lets the held request complete. It is safe to call twice.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := ""
		if cur := mux.CurrentRoute(r); cur != nil {
			route = cur.GetName()
		}
		body := readBody(r)
		start := time.Now()

		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Route:         route,
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          body,
		})
		gate := s.gates[route]
		delete(s.gates, route)
		fail := s.failures[route]
		if fail != nil && fail.times > 0 {
			fail.times--
			if fail.times == 0 {
				delete(s.failures, route)
			}
		}
		s.mu.Unlock()

		if gate != nil {
			close(gate.arrived)
			<-gate.release
		}

		if fail != nil {
			writeFailure(w, fail)
		} else {
			next.ServeHTTP(w, r)
		}

		s.logger.Info("request served",
			"route", route,
			"method", r.Method,
			"path", r.URL.Path,
			"forced_failure", fail != nil,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// authed rejects requests whose Authorization header is not a live token.
func (s *Server) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		ok := s.valid[r.Header.Get("Authorization")]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Code: 0, Message: "401: Unauthorized"})
			return
		}
		h(w, r)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(readBody(r), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: 50109, Message: "The request body contains invalid JSON."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.fixture
	if req.Email != f.Email || req.Password != f.Password {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: 50035, Message: "Invalid Form Body"})
		return
	}
	if f.TwoFactor {
		writeJSON(w, http.StatusForbidden, errorBody{Code: 60003, Message: "Two factor is required for this operation"})
		return
	}
	s.valid[f.Token] = true
	writeJSON(w, http.StatusOK, map[string]string{"token": f.Token})
}

func (s *Server) handleSelf(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	u := s.fixture.Self
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, toWireUser(u))
}

func (s *Server) handleGuilds(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wireGuild, 0, len(s.fixture.Guilds))
	for _, g := range s.fixture.Guilds {
		out = append(out, wireGuild{ID: g.ID, Name: g.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guildID"]

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fixture.hasGuild(guildID) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: 10004, Message: "Unknown Guild"})
		return
	}
	channels := s.fixture.Channels[guildID]
	out := make([]wireChannel, 0, len(channels))
	for _, ch := range channels {
		out = append(out, wireChannel{ID: ch.ID, Name: ch.Name, Type: wireType(ch.Kind), GuildID: guildID})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channelID"]

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fixture.hasChannel(channelID) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: 10003, Message: "Unknown Channel"})
		return
	}
	msgs := s.fixture.Messages[channelID]
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, wireMessage{ID: m.ID, Content: m.Content, ChannelID: channelID, Author: wireUser{ID: "", Username: m.AuthorName}})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channelID"]
	var req struct {
		Content string `json:"content"`
		TTS     bool   `json:"tts"`
	}
	if err := json.Unmarshal(readBody(r), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: 50109, Message: "The request body contains invalid JSON."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fixture.hasChannel(channelID) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: 10003, Message: "Unknown Channel"})
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: 50006, Message: "Cannot send an empty message"})
		return
	}
	s.nextID++
	msg := model.Message{ID: strconv.Itoa(s.nextID), AuthorName: s.fixture.Self.Username, Content: req.Content}
	// Newest first.
	s.fixture.Messages[channelID] = append([]model.Message{msg}, s.fixture.Messages[channelID]...)
	writeJSON(w, http.StatusOK, wireMessage{ID: msg.ID, Content: msg.Content, ChannelID: channelID, Author: toWireUser(s.fixture.Self)})
}

func (s *Server) handleRelationships(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wireRelationship, 0, len(s.fixture.Relationships))
	for _, rel := range s.fixture.Relationships {
		out = append(out, wireRelationship{ID: rel.ID, Type: rel.Type, User: toWireUser(rel.User)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req FriendRequest
	if err := json.Unmarshal(readBody(r), &req); err != nil || req.Username == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: 50035, Message: "Invalid Form Body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Username == s.fixture.Self.Username {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: 80003, Message: "Cannot send friend request to self"})
		return
	}
	s.friends = append(s.friends, req)
	w.WriteHeader(http.StatusNoContent)
}
