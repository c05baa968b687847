package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Sentinel errors derived from the API's status codes.
var (
	ErrNotFound  = errors.New("chat: not found")
	ErrForbidden = errors.New("chat: forbidden")
)

// Client is a minimal chat platform API client.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(token string, baseURL string) *Client {
	return &Client{
		token:      token,
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		// stay comfortably under the platform's rate limit
		limiter: rate.NewLimiter(rate.Limit(25), 25),
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (c *Client) url(path string) string {
	return c.baseURL + "/api/" + path
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrForbidden
	default:
		return errors.New("chat: unexpected status " + resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, nil, bytes.NewReader(b), "application/json", out)
}

// Events long-polls the gateway for events newer than offset.
func (c *Client) Events(ctx context.Context, offset int) ([]Event, error) {
	q := url.Values{}
	if offset != 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var wrapper struct {
		OK     bool    `json:"ok"`
		Result []Event `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "gateway/events", q, nil, "", &wrapper); err != nil {
		return nil, err
	}
	if !wrapper.OK {
		return nil, errors.New("chat: api responded with not ok")
	}
	return wrapper.Result, nil
}

// SendMessage sends plain text to a channel.
func (c *Client) SendMessage(ctx context.Context, channelID int64, text string) error {
	body := map[string]any{"content": text}
	return c.postJSON(ctx, "channels/"+itoa(channelID)+"/messages", body, nil)
}

// SendEmbed sends a structured embed, optionally with leading text.
func (c *Client) SendEmbed(ctx context.Context, channelID int64, text string, embed *Embed) error {
	body := map[string]any{"content": text, "embed": embed}
	return c.postJSON(ctx, "channels/"+itoa(channelID)+"/messages", body, nil)
}

// SendDirectEmbed delivers an embed to a user's direct-message channel.
func (c *Client) SendDirectEmbed(ctx context.Context, userID int64, embed *Embed) error {
	body := map[string]any{"embed": embed}
	return c.postJSON(ctx, "users/"+itoa(userID)+"/messages", body, nil)
}

// SendFile uploads a file attachment with optional caption text and embed.
func (c *Client) SendFile(ctx context.Context, channelID int64, filename string, content []byte, text string, embed *Embed) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(content); err != nil {
		return err
	}
	if text != "" {
		if err := w.WriteField("content", text); err != nil {
			return err
		}
	}
	if embed != nil {
		b, err := json.Marshal(embed)
		if err != nil {
			return err
		}
		if err := w.WriteField("embed", string(b)); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "channels/"+itoa(channelID)+"/messages", nil, &buf, w.FormDataContentType(), nil)
}

// Guild fetches guild metadata.
func (c *Client) Guild(ctx context.Context, guildID int64) (*Guild, error) {
	var g Guild
	if err := c.do(ctx, http.MethodGet, "guilds/"+itoa(guildID), nil, nil, "", &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GuildChannels lists every channel in the guild.
func (c *Client) GuildChannels(ctx context.Context, guildID int64) ([]Channel, error) {
	var out []Channel
	if err := c.do(ctx, http.MethodGet, "guilds/"+itoa(guildID)+"/channels", nil, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GuildMembers lists every member in the guild.
func (c *Client) GuildMembers(ctx context.Context, guildID int64) ([]Member, error) {
	var out []Member
	if err := c.do(ctx, http.MethodGet, "guilds/"+itoa(guildID)+"/members", nil, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GuildEmojis lists the guild's custom emojis.
func (c *Client) GuildEmojis(ctx context.Context, guildID int64) ([]Emoji, error) {
	var out []Emoji
	if err := c.do(ctx, http.MethodGet, "guilds/"+itoa(guildID)+"/emojis", nil, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Channel fetches one channel, ErrNotFound when it does not exist.
func (c *Client) Channel(ctx context.Context, channelID int64) (*Channel, error) {
	var ch Channel
	if err := c.do(ctx, http.MethodGet, "channels/"+itoa(channelID), nil, nil, "", &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// Member fetches one guild member, ErrNotFound when it does not exist.
func (c *Client) Member(ctx context.Context, guildID, userID int64) (*Member, error) {
	var m Member
	if err := c.do(ctx, http.MethodGet, "guilds/"+itoa(guildID)+"/members/"+itoa(userID), nil, nil, "", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ChannelMessage fetches a single message by id.
func (c *Client) ChannelMessage(ctx context.Context, channelID, messageID int64) (*Message, error) {
	var m Message
	if err := c.do(ctx, http.MethodGet, "channels/"+itoa(channelID)+"/messages/"+itoa(messageID), nil, nil, "", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ChannelMessages fetches one page of history, newest first, within the
// optional naive-UTC (before, after) bounds. cursor pages through results;
// an empty next cursor means the end.
func (c *Client) ChannelMessages(ctx context.Context, channelID int64, limit int, before, after *time.Time, cursor string) ([]Message, string, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if before != nil {
		q.Set("before", before.Format(time.RFC3339Nano))
	}
	if after != nil {
		q.Set("after", after.Format(time.RFC3339Nano))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var page struct {
		Messages []Message `json:"messages"`
		Next     string    `json:"next"`
	}
	if err := c.do(ctx, http.MethodGet, "channels/"+itoa(channelID)+"/messages", q, nil, "", &page); err != nil {
		return nil, "", err
	}
	return page.Messages, page.Next, nil
}

const historyPageSize = 100

// History returns a lazy iterator over a channel's messages, newest first,
// within the optional (before, after) bounds. The iterator is restartable
// only by calling History again; no cursor survives it.
func (c *Client) History(channelID int64, before, after *time.Time) *HistoryIter {
	return &HistoryIter{client: c, channelID: channelID, before: before, after: after}
}

// HistoryIter pages through message history on demand.
type HistoryIter struct {
	client    *Client
	channelID int64
	before    *time.Time
	after     *time.Time

	cursor string
	buf    []Message
	done   bool
}

// Next returns the next message, or nil at the end of history. Errors from
// the underlying page fetch are returned as-is and are not retried.
func (it *HistoryIter) Next(ctx context.Context) (*Message, error) {
	for len(it.buf) == 0 {
		if it.done {
			return nil, nil
		}
		page, next, err := it.client.ChannelMessages(ctx, it.channelID, historyPageSize, it.before, it.after, it.cursor)
		if err != nil {
			return nil, fmt.Errorf("fetch history page: %w", err)
		}
		it.cursor = next
		it.done = next == "" || len(page) == 0
		it.buf = page
	}
	msg := it.buf[0]
	it.buf = it.buf[1:]
	return &msg, nil
}
