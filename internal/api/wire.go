package api

import (
	"strconv"
	"strings"

	"github.com/Iron-Ham/parley/internal/model"
)

// JSON shapes as the service sends them. Only the fields the client reads
// are declared.

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	// MFA is set instead of a token when the account needs a second factor.
	MFA bool `json:"mfa"`
}

type wireUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
}

func (u wireUser) model() model.User {
	return model.User{ID: u.ID, Username: u.Username, Discriminator: u.Discriminator}
}

type wireGuild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

type wireMessage struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Author  wireUser `json:"author"`
}

type wireRelationship struct {
	ID   string   `json:"id"`
	Type int      `json:"type"`
	User wireUser `json:"user"`
}

type postMessageRequest struct {
	Content string `json:"content"`
	TTS     bool   `json:"tts"`
}

type friendRequest struct {
	Username      string `json:"username"`
	Discriminator *int   `json:"discriminator,omitempty"`
	Type          int    `json:"type"`
}

// newFriendRequest accepts "name" or the legacy "name#1234" tag.
func newFriendRequest(username string) friendRequest {
	req := friendRequest{Username: username, Type: model.RelationshipFriend}
	i := strings.LastIndex(username, "#")
	if i <= 0 || i == len(username)-1 {
		return req
	}
	tag := username[i+1:]
	if !isDiscriminator(tag) {
		return req
	}
	disc, err := strconv.Atoi(tag)
	if err != nil {
		return req
	}
	req.Username = username[:i]
	req.Discriminator = &disc
	return req
}

// isDiscriminator reports whether tag is exactly four ASCII digits.
func isDiscriminator(tag string) bool {
	if len(tag) != 4 {
		return false
	}
	for i := 0; i < len(tag); i++ {
		if tag[i] < '0' || tag[i] > '9' {
			return false
		}
	}
	return true
}
