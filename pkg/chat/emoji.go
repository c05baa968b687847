package chat

import "strings"

// EmojiKind distinguishes the three reaction-emoji variants the platform
// reports.
type EmojiKind string

const (
	// EmojiCustom is a guild custom emoji with a resolved id and name.
	EmojiCustom EmojiKind = "custom"
	// EmojiPartial is an unresolved custom emoji; the id may be missing.
	EmojiPartial EmojiKind = "partial"
	// EmojiUnicode is a literal unicode emoji.
	EmojiUnicode EmojiKind = "unicode"
)

// Emoji is the tagged union over the reaction-emoji variants. Custom and
// partial emojis carry ID/Name, unicode emojis carry Text.
type Emoji struct {
	Kind EmojiKind `json:"kind"`
	ID   int64     `json:"id,omitempty"`
	Name string    `json:"name,omitempty"`
	Text string    `json:"text,omitempty"`
}

// String renders the emoji the way it appears in message content:
// custom/partial as :name:, unicode as the literal text.
func (e Emoji) String() string {
	switch e.Kind {
	case EmojiUnicode:
		return e.Text
	default:
		return ":" + e.Name + ":"
	}
}

// Matches reports whether the emoji matches a user-supplied query. Custom
// emojis match when their name occurs in the query (queries arrive as
// ":name:"), partial emojis the same but only with a known id, unicode
// emojis on exact text equality.
func (e Emoji) Matches(query string) bool {
	switch e.Kind {
	case EmojiCustom:
		return e.Name != "" && strings.Contains(query, e.Name)
	case EmojiPartial:
		return e.ID != 0 && e.Name != "" && strings.Contains(query, e.Name)
	case EmojiUnicode:
		return e.Text == query
	default:
		return false
	}
}

// Is reports whether the emoji is the same custom emoji as other, by id.
func (e Emoji) Is(other Emoji) bool {
	if e.Kind == EmojiUnicode || other.Kind == EmojiUnicode {
		return e.Kind == other.Kind && e.Text == other.Text
	}
	return e.ID != 0 && e.ID == other.ID
}
