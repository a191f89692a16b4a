package mattermost_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/domain/types"
	"github.com/unread-lab/catchup/pkg/service/mattermost"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	gt.NoError(t, json.NewEncoder(w).Encode(v))
}

// testServer builds a fake Mattermost API that always answers /users/me and
// dispatches everything else to the given handler
func testServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]string{"id": "me0000000000000000000000000", "username": "poller"})
	})
	if handler != nil {
		mux.HandleFunc("/", handler)
	}
	return httptest.NewServer(mux)
}

func TestNewVerifiesCredential(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		srv := testServer(t, nil)
		defer srv.Close()

		client, err := mattermost.New(context.Background(), srv.URL, mattermost.StaticToken("tok"))
		gt.NoError(t, err).Required()
		defer client.Close()

		me := gt.R1(client.Me(context.Background())).NoError(t)
		gt.Value(t, me.Username).Equal("poller")
	})

	t.Run("rejected token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := mattermost.New(context.Background(), srv.URL, mattermost.StaticToken("bad"))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, types.ErrAuthentication))
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := mattermost.New(context.Background(), "http://localhost", mattermost.StaticToken(""))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, types.ErrInvalidConfig))
	})
}

func TestListUnreadChannels(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/users/me/teams":
			writeJSON(t, w, []map[string]any{{"id": "team1", "name": "main"}})
		case "/api/v4/users/me/teams/team1/channels":
			writeJSON(t, w, []map[string]any{
				{"id": "ch-unread", "team_id": "team1", "type": "O", "name": "general",
					"display_name": "General", "last_post_at": 2000, "total_msg_count": 10},
				{"id": "ch-read", "team_id": "team1", "type": "O", "name": "random",
					"last_post_at": 1000, "total_msg_count": 5},
				{"id": "ch-dm", "team_id": "team1", "type": "D", "name": "dm",
					"last_post_at": 3000, "total_msg_count": 4},
				{"id": "ch-nomember", "team_id": "team1", "type": "O", "name": "town",
					"last_post_at": 4000, "total_msg_count": 9},
				{"id": "ch-stale", "team_id": "team1", "type": "P", "name": "stale",
					"last_post_at": 500, "total_msg_count": 7},
			})
		case "/api/v4/users/me/teams/team1/channels/members":
			writeJSON(t, w, []map[string]any{
				{"channel_id": "ch-unread", "msg_count": 7, "last_viewed_at": 1500},
				{"channel_id": "ch-read", "msg_count": 5, "last_viewed_at": 1200},
				{"channel_id": "ch-dm", "msg_count": 1, "last_viewed_at": 100},
				{"channel_id": "ch-stale", "msg_count": 4, "last_viewed_at": 900},
			})
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer srv.Close()

	client := gt.R1(mattermost.New(context.Background(), srv.URL, mattermost.StaticToken("tok"))).NoError(t)
	defer client.Close()

	channels := gt.R1(client.ListUnreadChannels(context.Background())).NoError(t)

	// ch-read has no new count, ch-dm is a direct message, ch-nomember has no
	// membership, ch-stale was viewed after its last post
	gt.Array(t, channels).Length(1)
	gt.Value(t, channels[0].ID).Equal(types.ChannelID("ch-unread"))
	gt.Value(t, channels[0].UnreadCount).Equal(3)
	gt.Value(t, channels[0].Title()).Equal("General")
	gt.True(t, channels[0].HasUnread())
}

func TestFetchMessages(t *testing.T) {
	var userCalls int32
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/channels/ch1/posts":
			gt.Value(t, r.URL.Query().Get("since")).Equal("1000")
			writeJSON(t, w, map[string]any{
				"order": []string{"p4", "p3", "p2", "p1"},
				"posts": map[string]any{
					"p1": map[string]any{"id": "p1", "channel_id": "ch1", "user_id": "u1",
						"message": "already read", "create_at": 1000},
					"p2": map[string]any{"id": "p2", "channel_id": "ch1", "user_id": "u1",
						"message": "first unread", "create_at": 1500},
					"p3": map[string]any{"id": "p3", "channel_id": "ch1", "user_id": "u2",
						"message": "joined the channel", "type": "system_join_channel", "create_at": 1600},
					"p4": map[string]any{"id": "p4", "channel_id": "ch1", "user_id": "u1",
						"message": "second unread", "create_at": 2000},
				},
			})
		case "/api/v4/users/u1":
			atomic.AddInt32(&userCalls, 1)
			writeJSON(t, w, map[string]any{"id": "u1", "username": "alice", "nickname": "Alice"})
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer srv.Close()

	client := gt.R1(mattermost.New(context.Background(), srv.URL, mattermost.StaticToken("tok"))).NoError(t)
	defer client.Close()

	channel := &model.Channel{
		ID:           types.ChannelID("ch1"),
		Name:         "general",
		Type:         types.ChannelTypeOpen,
		LastViewedAt: time.UnixMilli(1000).UTC(),
		UnreadCount:  3,
	}

	posts := gt.R1(client.FetchMessages(context.Background(), channel, nil)).NoError(t)

	// p1 is at the threshold, p3 is a system post
	gt.Array(t, posts).Length(2)
	gt.Value(t, posts[0].ID).Equal(types.PostID("p2"))
	gt.Value(t, posts[1].ID).Equal(types.PostID("p4"))
	gt.Value(t, posts[0].AuthorName).Equal("Alice")
	gt.True(t, posts[0].CreateAt.Before(posts[1].CreateAt))

	// Both kept posts share an author, resolved with one lookup
	gt.Value(t, atomic.LoadInt32(&userCalls)).Equal(1)
}

func TestFetchMessagesMarkerOverride(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/channels/ch1/posts":
			// The summarization marker (2000) is newer than last_viewed (1000)
			gt.Value(t, r.URL.Query().Get("since")).Equal("2000")
			writeJSON(t, w, map[string]any{
				"order": []string{"p9", "p8"},
				"posts": map[string]any{
					"p8": map[string]any{"id": "p8", "channel_id": "ch1", "user_id": "u1",
						"message": "covered by marker", "create_at": 2000},
					"p9": map[string]any{"id": "p9", "channel_id": "ch1", "user_id": "u1",
						"message": "new", "create_at": 2500},
				},
			})
		case "/api/v4/users/u1":
			writeJSON(t, w, map[string]any{"id": "u1", "username": "alice"})
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
		}
	})
	defer srv.Close()

	client := gt.R1(mattermost.New(context.Background(), srv.URL, mattermost.StaticToken("tok"))).NoError(t)
	defer client.Close()

	channel := &model.Channel{
		ID:           types.ChannelID("ch1"),
		Name:         "general",
		LastViewedAt: time.UnixMilli(1000).UTC(),
		UnreadCount:  2,
	}
	marker := &model.Marker{
		LastPostID: types.PostID("p8"),
		LastPostAt: time.UnixMilli(2000).UTC(),
	}

	posts := gt.R1(client.FetchMessages(context.Background(), channel, marker)).NoError(t)
	gt.Array(t, posts).Length(1)
	gt.Value(t, posts[0].ID).Equal(types.PostID("p9"))
}

func TestFetchMessagesPagination(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/channels/ch1/posts":
			switch r.URL.Query().Get("page") {
			case "0":
				writeJSON(t, w, map[string]any{
					"order": []string{"p3", "p2"},
					"posts": map[string]any{
						"p2": map[string]any{"id": "p2", "channel_id": "ch1", "user_id": "u1",
							"message": "middle", "create_at": 200},
						"p3": map[string]any{"id": "p3", "channel_id": "ch1", "user_id": "u1",
							"message": "newest", "create_at": 300},
					},
				})
			case "1":
				writeJSON(t, w, map[string]any{
					"order": []string{"p1"},
					"posts": map[string]any{
						"p1": map[string]any{"id": "p1", "channel_id": "ch1", "user_id": "u1",
							"message": "oldest", "create_at": 100},
					},
				})
			default:
				writeJSON(t, w, map[string]any{"order": []string{}, "posts": map[string]any{}})
			}
		case "/api/v4/users/u1":
			writeJSON(t, w, map[string]any{"id": "u1", "username": "alice"})
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
		}
	})
	defer srv.Close()

	client := gt.R1(mattermost.New(context.Background(), srv.URL,
		mattermost.StaticToken("tok"), mattermost.WithPageSize(2))).NoError(t)
	defer client.Close()

	// No last-viewed time and no marker forces the pagination path
	channel := &model.Channel{
		ID:          types.ChannelID("ch1"),
		Name:        "general",
		UnreadCount: 3,
	}

	posts := gt.R1(client.FetchMessages(context.Background(), channel, nil)).NoError(t)
	gt.Array(t, posts).Length(3)
	gt.Value(t, posts[0].Message).Equal("oldest")
	gt.Value(t, posts[2].Message).Equal("newest")
}

func TestAcknowledge(t *testing.T) {
	var viewed int32
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v4/channels/ch1/members/me/view" && r.Method == http.MethodPost {
			var body map[string]string
			gt.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			gt.Value(t, body["channel_id"]).Equal("ch1")
			atomic.AddInt32(&viewed, 1)
			writeJSON(t, w, map[string]string{"status": "OK"})
			return
		}
		t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	client := gt.R1(mattermost.New(context.Background(), srv.URL, mattermost.StaticToken("tok"))).NoError(t)
	defer client.Close()

	gt.NoError(t, client.Acknowledge(context.Background(), types.ChannelID("ch1")))
	gt.Value(t, atomic.LoadInt32(&viewed)).Equal(1)
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/users/me/teams" {
			t.Errorf("unexpected request: %s", r.URL.Path)
			return
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(t, w, []map[string]any{})
	})
	defer srv.Close()

	client := gt.R1(mattermost.New(context.Background(), srv.URL,
		mattermost.StaticToken("tok"), mattermost.WithBackoffBase(time.Millisecond))).NoError(t)
	defer client.Close()

	channels := gt.R1(client.ListUnreadChannels(context.Background())).NoError(t)
	gt.Array(t, channels).Length(0)
	gt.Value(t, atomic.LoadInt32(&calls)).Equal(2)
}

func TestRetryWithZeroBackoff(t *testing.T) {
	var calls int32
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/users/me/teams" {
			t.Errorf("unexpected request: %s", r.URL.Path)
			return
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(t, w, []map[string]any{})
	})
	defer srv.Close()

	client := gt.R1(mattermost.New(context.Background(), srv.URL,
		mattermost.StaticToken("tok"), mattermost.WithBackoffBase(0))).NoError(t)
	defer client.Close()

	channels := gt.R1(client.ListUnreadChannels(context.Background())).NoError(t)
	gt.Array(t, channels).Length(0)
	gt.Value(t, atomic.LoadInt32(&calls)).Equal(2)
}

func TestPasswordLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.URL.Path).Equal("/api/v4/users/login")
		var body map[string]string
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gt.Value(t, body["login_id"]).Equal("alice")
		gt.Value(t, body["password"]).Equal("secret")
		w.Header().Set("Token", "session-token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	login := &mattermost.PasswordLogin{
		BaseURL:  srv.URL,
		LoginID:  "alice",
		Password: "secret",
	}
	token := gt.R1(login.Acquire(context.Background())).NoError(t)
	gt.Value(t, token).Equal("session-token")
}

func TestPasswordLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	login := &mattermost.PasswordLogin{BaseURL: srv.URL, LoginID: "alice", Password: "wrong"}
	_, err := login.Acquire(context.Background())
	gt.Error(t, err)
	gt.True(t, errors.Is(err, types.ErrAuthentication))
}
