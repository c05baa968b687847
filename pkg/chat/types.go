// Package chat is a minimal client for the group-chat platform's HTTP API.
// Only the fields and endpoints the bot needs.
package chat

import "time"

// Member is a guild member. Bot marks platform-operated accounts.
type Member struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Bot         bool   `json:"bot"`
	JoinedAt    *time.Time `json:"joined_at,omitempty"`
}

// Mention renders the member as a platform mention token.
func (m Member) Mention() string {
	return "<@" + itoa(m.ID) + ">"
}

type ChannelType string

const (
	ChannelTypeText     ChannelType = "text"
	ChannelTypeVoice    ChannelType = "voice"
	ChannelTypeCategory ChannelType = "category"
)

type Channel struct {
	ID        int64       `json:"id"`
	GuildID   int64       `json:"guild_id"`
	Name      string      `json:"name"`
	Type      ChannelType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}

// Mention renders the channel as a platform mention token.
func (c Channel) Mention() string {
	return "<#" + itoa(c.ID) + ">"
}

type Guild struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Reaction is one reaction group on a message: the emoji and every user who
// applied it.
type Reaction struct {
	Emoji Emoji    `json:"emoji"`
	Users []Member `json:"users"`
}

type Message struct {
	ID        int64      `json:"id"`
	ChannelID int64      `json:"channel_id"`
	GuildID   int64      `json:"guild_id"`
	Author    Member     `json:"author"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	Reactions []Reaction `json:"reactions,omitempty"`
	JumpURL   string     `json:"jump_url,omitempty"`
}

// VoiceState is one user's voice snapshot. ChannelID 0 means not connected.
type VoiceState struct {
	ChannelID   int64  `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	SelfMute    bool   `json:"self_mute"`
	SelfDeaf    bool   `json:"self_deaf"`
	SelfStream  bool   `json:"self_stream"`
	SelfVideo   bool   `json:"self_video"`
	AFK         bool   `json:"afk"`
}

// Connected reports whether the state has a channel.
func (s VoiceState) Connected() bool { return s.ChannelID != 0 }

// VoiceUpdate is a before/after state pair for one member.
type VoiceUpdate struct {
	GuildID int64      `json:"guild_id"`
	Member  Member     `json:"member"`
	Before  VoiceState `json:"before"`
	After   VoiceState `json:"after"`
}

type EventType string

const (
	EventReady       EventType = "ready"
	EventMessage     EventType = "message"
	EventVoiceUpdate EventType = "voice_state_update"
)

// Event is one gateway event delivered by the long-poll endpoint.
type Event struct {
	ID          int         `json:"id"`
	Type        EventType   `json:"type"`
	GuildID     int64       `json:"guild_id"`
	GuildIDs    []int64     `json:"guild_ids,omitempty"` // ready only
	Message     *Message    `json:"message,omitempty"`
	VoiceUpdate *VoiceUpdate `json:"voice_update,omitempty"`
}

// Embed is a structured message payload.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// AddField appends a field and returns the embed for chaining.
func (e *Embed) AddField(name, value string, inline bool) *Embed {
	e.Fields = append(e.Fields, EmbedField{Name: name, Value: value, Inline: inline})
	return e
}
