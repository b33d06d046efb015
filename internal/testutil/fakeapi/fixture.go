package fakeapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Iron-Ham/parley/internal/model"
)

// Fixture is the data the fake service serves.
type Fixture struct {
	Email    string
	Password string
	// Token is issued on a successful login and accepted on every call.
	Token string
	// TwoFactor makes a correct login answer 403.
	TwoFactor bool

	Self          model.User
	Guilds        []model.Guild
	Channels      map[string][]model.Channel // guild ID -> channels
	Messages      map[string][]model.Message // channel ID -> newest first
	Relationships []model.Relationship
}

// DefaultFixture is a small account: guild "1" holds the text channel
// "10", guild "2" mixes text, voice and a category.
func DefaultFixture() Fixture {
	return Fixture{
		Email:    "a@b.com",
		Password: "secret",
		Token:    "tok123",
		Self:     model.User{ID: "100", Username: "alice", Discriminator: "0001"},
		Guilds: []model.Guild{
			{ID: "1", Name: "Guild1"},
			{ID: "2", Name: "Guild2"},
		},
		Channels: map[string][]model.Channel{
			"1": {
				{ID: "10", Name: "general", Kind: model.ChannelText},
			},
			"2": {
				{ID: "20", Name: "lobby", Kind: model.ChannelText},
				{ID: "21", Name: "Voice", Kind: model.ChannelVoice},
				{ID: "22", Name: "Info", Kind: model.ChannelOther},
			},
		},
		Messages: map[string][]model.Message{
			"10": {
				{ID: "502", AuthorName: "bob", Content: "welcome!"},
				{ID: "501", AuthorName: "alice", Content: "hello"},
			},
			"20": {
				{ID: "601", AuthorName: "carol", Content: "anyone here?"},
			},
			"21": {},
		},
		Relationships: []model.Relationship{
			{ID: "200", Type: model.RelationshipFriend, User: model.User{ID: "200", Username: "bob", Discriminator: "0042"}},
			{ID: "300", Type: 3, User: model.User{ID: "300", Username: "carol", Discriminator: "0"}},
		},
	}
}

func (f Fixture) clone() Fixture {
	out := f
	out.Guilds = append([]model.Guild(nil), f.Guilds...)
	out.Relationships = append([]model.Relationship(nil), f.Relationships...)
	out.Channels = make(map[string][]model.Channel, len(f.Channels))
	for k, v := range f.Channels {
		out.Channels[k] = append([]model.Channel(nil), v...)
	}
	out.Messages = make(map[string][]model.Message, len(f.Messages))
	for k, v := range f.Messages {
		out.Messages[k] = append([]model.Message(nil), v...)
	}
	return out
}

func (f Fixture) hasGuild(id string) bool {
	for _, g := range f.Guilds {
		if g.ID == id {
			return true
		}
	}
	return false
}

func (f Fixture) hasChannel(id string) bool {
	for _, channels := range f.Channels {
		for _, ch := range channels {
			if ch.ID == id {
				return true
			}
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Wire encoding
// -----------------------------------------------------------------------------

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rawBody string

type wireUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
}

type wireGuild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireChannel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    int    `json:"type"`
	GuildID string `json:"guild_id"`
}

type wireMessage struct {
	ID        string   `json:"id"`
	ChannelID string   `json:"channel_id"`
	Content   string   `json:"content"`
	Author    wireUser `json:"author"`
}

type wireRelationship struct {
	ID   string   `json:"id"`
	Type int      `json:"type"`
	User wireUser `json:"user"`
}

func toWireUser(u model.User) wireUser {
	return wireUser{ID: u.ID, Username: u.Username, Discriminator: u.Discriminator}
}

// wireType is the inverse of model.ChannelKindFromType. Other kinds are
// served as categories (type 4).
func wireType(k model.ChannelKind) int {
	switch k {
	case model.ChannelText:
		return 0
	case model.ChannelVoice:
		return 2
	default:
		return 4
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, f *failure) {
	switch body := f.body.(type) {
	case nil:
		w.WriteHeader(f.status)
	case rawBody:
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, string(body))
	default:
		writeJSON(w, f.status, body)
	}
}

// readBody reads the request body and puts it back so later handlers can
// read it again.
func readBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	data, _ := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data
}
