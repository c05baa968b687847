// Package export encodes command results into the downloadable artifacts the
// bot attaches to its replies.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/guild-audit-bot/internal/service"
	"github.com/example/guild-audit-bot/internal/timewindow"
	"github.com/example/guild-audit-bot/pkg/chat"
)

// TimestampFormat renders instants with a space instead of the ISO "T";
// easier on the eyes for the people reading the dumps.
const TimestampFormat = "2006-01-02 15:04:05"

// Timestamp marshals as civil JST time in TimestampFormat.
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).In(timewindow.JST).Format(TimestampFormat))
}

// MessageRecord is one entry of the message-dump artifact.
type MessageRecord struct {
	ID          int64      `json:"id"`
	Author      string     `json:"author"`
	DisplayName string     `json:"display_name"`
	CreatedAt   Timestamp  `json:"created_at"`
	Message     string     `json:"message"`
	EditedAt    *Timestamp `json:"edited_at,omitempty"`
}

// MessageRecords converts history messages into dump entries.
func MessageRecords(msgs []chat.Message) []MessageRecord {
	records := make([]MessageRecord, len(msgs))
	for i, m := range msgs {
		records[i] = MessageRecord{
			ID:          m.ID,
			Author:      m.Author.Name,
			DisplayName: m.Author.DisplayName,
			CreatedAt:   Timestamp(m.CreatedAt),
			Message:     m.Content,
		}
		if m.EditedAt != nil {
			edited := Timestamp(*m.EditedAt)
			records[i].EditedAt = &edited
		}
	}
	return records
}

// EncodeJSON renders any artifact payload as indented JSON.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// MessageDumpFilename names the message-dump artifact after its channel and
// window bounds.
func MessageDumpFilename(channelID int64, afterStr, beforeStr string) string {
	return fmt.Sprintf("%d_%s_%s_messages.json", channelID, afterStr, beforeStr)
}

// MessageCountFilename names the message-count artifact after its window
// bounds, with date separators stripped.
func MessageCountFilename(afterStr, beforeStr string) string {
	name := fmt.Sprintf("message_count_%s_%s.csv", afterStr, beforeStr)
	return strings.ReplaceAll(name, "/", "")
}

// MessageCountCSV renders the count cross-product as CSV: a "user" column
// followed by one column per scanned channel, one row per member.
func MessageCountCSV(result *service.MessageCountResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, 0, len(result.Channels)+1)
	header = append(header, "user")
	for _, ch := range result.Channels {
		header = append(header, ch.Name)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, u := range result.Users {
		row := make([]string, 0, len(header))
		row = append(row, u.DisplayName)
		for _, ch := range result.Channels {
			row = append(row, strconv.Itoa(result.Counts[u.ID][ch.ID]))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// IgnoreEntry is one entry of the ignore-list download artifact. Users who
// already left the guild are kept with placeholder names.
type IgnoreEntry struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// IgnoreListFilename names the ignore-list artifact after its guild.
func IgnoreListFilename(guildID int64) string {
	return fmt.Sprintf("ignore_list_%d.json", guildID)
}
