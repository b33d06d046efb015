// Package model defines the remote resources the client browses: guilds,
// channels, messages, users and relationships. Values are immutable once
// fetched and are identified by their ID.
package model

// ChannelKind classifies a channel by what the client can do with it.
type ChannelKind int

const (
	// ChannelOther covers categories, threads, stages and anything else the
	// client lists but cannot open.
	ChannelOther ChannelKind = iota
	ChannelText
	ChannelVoice
)

// Wire values of the channel "type" field.
const (
	wireTypeText  = 0
	wireTypeVoice = 2
)

// ChannelKindFromType maps the service's numeric channel type.
func ChannelKindFromType(t int) ChannelKind {
	switch t {
	case wireTypeText:
		return ChannelText
	case wireTypeVoice:
		return ChannelVoice
	default:
		return ChannelOther
	}
}

// String returns the lowercase name of the kind.
func (k ChannelKind) String() string {
	switch k {
	case ChannelText:
		return "text"
	case ChannelVoice:
		return "voice"
	default:
		return "other"
	}
}

// Joinable reports whether a channel of this kind can be selected.
func (k ChannelKind) Joinable() bool {
	return k == ChannelText || k == ChannelVoice
}

// Guild is a server grouping channels.
type Guild struct {
	ID   string
	Name string
}

// Channel belongs to exactly one guild.
type Channel struct {
	ID   string
	Name string
	Kind ChannelKind
}

// Message belongs to exactly one channel. Sequences of messages keep the
// order the service delivered them in (newest first).
type Message struct {
	ID         string
	AuthorName string
	Content    string
}

// User is the identity behind a token or a relationship.
type User struct {
	ID            string
	Username      string
	Discriminator string
}

// Tag renders the user as shown in the UI: "name#1234", or just "name"
// for accounts migrated off discriminators.
func (u User) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// RelationshipFriend is the relationship type of an accepted friend.
const RelationshipFriend = 1

// Relationship is a stored connection between the user and another account.
type Relationship struct {
	ID   string
	Type int
	User User
}

// IsFriend reports whether the relationship is a confirmed friend.
func (r Relationship) IsFriend() bool {
	return r.Type == RelationshipFriend
}
