package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryIterPagesLazily(t *testing.T) {
	var pages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/channels/5/messages", r.URL.Path)
		require.Equal(t, "Bot token", r.Header.Get("Authorization"))
		pages++
		cursor := r.URL.Query().Get("cursor")
		switch cursor {
		case "":
			json.NewEncoder(w).Encode(map[string]any{
				"messages": []Message{{ID: 3}, {ID: 2}},
				"next":     "p2",
			})
		case "p2":
			json.NewEncoder(w).Encode(map[string]any{
				"messages": []Message{{ID: 1}},
				"next":     "",
			})
		default:
			t.Fatalf("unexpected cursor %q", cursor)
		}
	}))
	defer srv.Close()

	c := NewClient("token", srv.URL)
	it := c.History(5, nil, nil)

	var ids []int64
	for {
		msg, err := it.Next(context.Background())
		require.NoError(t, err)
		if msg == nil {
			break
		}
		ids = append(ids, msg.ID)
	}
	assert.Equal(t, []int64{3, 2, 1}, ids)
	assert.Equal(t, 2, pages)

	// exhausted iterator stays exhausted
	msg, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestChannelMessagesSendsBounds(t *testing.T) {
	before := time.Date(2023, 3, 9, 15, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, before.Format(time.RFC3339Nano), r.URL.Query().Get("before"))
		assert.Equal(t, "", r.URL.Query().Get("after"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(map[string]any{"messages": []Message{}, "next": ""})
	}))
	defer srv.Close()

	c := NewClient("token", srv.URL)
	msgs, next, err := c.ChannelMessages(context.Background(), 1, 100, &before, nil, "")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, "", next)
}

func TestStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/api/channels/"):]
		n, _ := strconv.Atoi(id)
		switch n {
		case 403:
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient("token", srv.URL)
	_, err := c.Channel(context.Background(), 403)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = c.Channel(context.Background(), 404)
	assert.True(t, errors.Is(err, ErrNotFound))
}
