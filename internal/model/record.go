// Package model holds the ledger record types and their row codecs.
package model

import (
	"strconv"
	"strings"
)

// VoiceStateRecordHeader is the column order of the voice-state event log.
var VoiceStateRecordHeader = []string{"date", "time", "user_name", "user_id", "channel_name", "channel_id", "state"}

// VoiceStateRecord is one observed voice transition. Records are append-only:
// written once, never mutated, only read back and filtered.
type VoiceStateRecord struct {
	Date        string `json:"date"`
	Time        string `json:"time"` // may exceed 24:00 (day-rollover convention)
	UserName    string `json:"user_name"`
	UserID      int64  `json:"user_id"`
	ChannelName string `json:"channel_name"`
	ChannelID   int64  `json:"channel_id"`
	State       string `json:"state"` // comma-joined transition tags
}

// HasState reports whether the record's tag list contains the query as a
// substring, the same loose match the counting command has always used.
func (r VoiceStateRecord) HasState(state string) bool {
	return strings.Contains(r.State, state)
}

func (r VoiceStateRecord) ToRow() []string {
	return []string{
		r.Date,
		r.Time,
		r.UserName,
		strconv.FormatInt(r.UserID, 10),
		r.ChannelName,
		strconv.FormatInt(r.ChannelID, 10),
		r.State,
	}
}

// VoiceStateRecordFromMap decodes a ledger record keyed by header name.
func VoiceStateRecordFromMap(m map[string]string) VoiceStateRecord {
	userID, _ := strconv.ParseInt(m["user_id"], 10, 64)
	channelID, _ := strconv.ParseInt(m["channel_id"], 10, 64)
	return VoiceStateRecord{
		Date:        m["date"],
		Time:        m["time"],
		UserName:    m["user_name"],
		UserID:      userID,
		ChannelName: m["channel_name"],
		ChannelID:   channelID,
		State:       m["state"],
	}
}

// NotifyRecordHeader is the column order of the notify subscription sheet.
var NotifyRecordHeader = []string{"user_id", "channel_id", "is_valid"}

// NotifyRecord is one (user, channel) message-notification subscription.
// The (UserID, ChannelID) pair is the uniqueness key.
type NotifyRecord struct {
	UserID    int64
	ChannelID int64
	IsValid   bool
}

func (r NotifyRecord) ToRow() []string {
	return []string{
		strconv.FormatInt(r.UserID, 10),
		strconv.FormatInt(r.ChannelID, 10),
		formatBool(r.IsValid),
	}
}

// NotifyRecordFromMap decodes a ledger record keyed by header name.
func NotifyRecordFromMap(m map[string]string) NotifyRecord {
	userID, _ := strconv.ParseInt(m["user_id"], 10, 64)
	channelID, _ := strconv.ParseInt(m["channel_id"], 10, 64)
	return NotifyRecord{
		UserID:    userID,
		ChannelID: channelID,
		IsValid:   strings.EqualFold(m["is_valid"], "true"),
	}
}

// The sheet historically stores Python-style booleans.
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// DirectoryChannelHeader is the column order of the channel snapshot sheet.
var DirectoryChannelHeader = []string{"id", "name", "type", "created_at"}

// DirectoryMemberHeader is the column order of the member snapshot sheet.
var DirectoryMemberHeader = []string{"id", "name", "nick", "joined_at"}
