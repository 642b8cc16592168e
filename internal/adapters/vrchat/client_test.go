package vrchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsleep/vrsleep/internal/domain"
	"github.com/vrsleep/vrsleep/internal/ports"
)

type staticAuth map[string]string

func (a staticAuth) AuthHeaders(context.Context) (map[string]string, error) {
	return a, nil
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL}, srv.Client(), staticAuth{"Cookie": "auth=token"})
}

func TestFetchInvitesFiltersToInviteRequestsWithSender(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/user/notifications", r.URL.Path)
		require.Equal(t, "50", r.URL.Query().Get("n"))
		require.Equal(t, "0", r.URL.Query().Get("offset"))
		require.Equal(t, "auth=token", r.Header.Get("Cookie"))
		_, _ = w.Write([]byte(`[
			{"id":"not_1","type":"requestInvite","senderUserId":"usr_alice","senderDisplayName":"Alice"},
			{"id":"not_2","type":"friendRequest","senderUserId":"usr_bob"},
			{"id":"not_3","type":"requestInvite","senderUserId":""},
			{"_id":"not_4","type":"requestInvite","senderUserId":"usr_carol","senderUsername":"carol"}
		]`))
	}))

	invites, err := client.FetchInvites(context.Background())
	require.NoError(t, err)
	require.Len(t, invites, 2)

	assert.Equal(t, domain.InviteNotification{ID: "not_1", SenderID: "usr_alice", SenderDisplayName: "Alice"}, invites[0])
	// legacy _id and username fallbacks
	assert.Equal(t, domain.InviteNotification{ID: "not_4", SenderID: "usr_carol", SenderDisplayName: "carol"}, invites[1])
}

func TestFetchInvitesTagsUnreachablePlatform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client := NewClient(Config{BaseURL: srv.URL}, srv.Client(), staticAuth{})
	srv.Close()

	_, err := client.FetchInvites(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConnectivity)
}

func TestFetchInvitesVendorRejectionIsNotConnectivity(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"over the limit"}}`))
	}))

	_, err := client.FetchInvites(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConnectivity)
	assert.False(t, IsConnectivityError(err))
}

func TestIsConnectivityError(t *testing.T) {
	assert.False(t, IsConnectivityError(nil))
	assert.False(t, IsConnectivityError(&APIError{Status: 502, Message: "bad gateway"}))
	assert.True(t, IsConnectivityError(context.DeadlineExceeded))
	assert.True(t, IsConnectivityError(errors.New("dial tcp 127.0.0.1:1: connection refused")))
	assert.True(t, IsConnectivityError(errors.New("lookup api.invalid: no such host")))
	assert.False(t, IsConnectivityError(errors.New("tls handshake failure")))
}

func TestFetchInvitesMalformedBodyYieldsEmpty(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":"object"}`))
	}))

	invites, err := client.FetchInvites(context.Background())
	require.NoError(t, err)
	assert.Empty(t, invites)
}

func TestSendInvitePrefersPresencePair(t *testing.T) {
	var inviteBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/user":
			_, _ = w.Write([]byte(`{"id":"usr_me","location":"wrld_x:999","presence":{"world":"wrld_a","instance":"42~private"}}`))
		case "/invite/usr_alice":
			require.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&inviteBody))
			_, _ = w.Write([]byte(`{}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	slot := 3
	err := client.SendInvite(context.Background(), ports.SendInviteRequest{
		UserID:      "usr_alice",
		MessageSlot: &slot,
		MessageType: domain.MessageTypeMessage,
	})
	require.NoError(t, err)

	assert.Equal(t, "wrld_a:42~private", inviteBody["instanceId"])
	assert.Equal(t, float64(3), inviteBody["messageSlot"])
	assert.Equal(t, "message", inviteBody["messageSlotType"])
}

func TestSendInviteFreeformMessageWinsOverSlot(t *testing.T) {
	var inviteBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/user":
			_, _ = w.Write([]byte(`{"id":"usr_me","location":"wrld_b:7"}`))
		case "/invite/usr_alice":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&inviteBody))
			_, _ = w.Write([]byte(`{}`))
		}
	}))

	slot := 5
	err := client.SendInvite(context.Background(), ports.SendInviteRequest{
		UserID:      "usr_alice",
		Message:     "  come join  ",
		MessageSlot: &slot,
	})
	require.NoError(t, err)

	assert.Equal(t, "wrld_b:7", inviteBody["instanceId"])
	assert.Equal(t, "come join", inviteBody["message"])
	assert.NotContains(t, inviteBody, "messageSlot")
}

func TestSendInviteOfflineLocationFails(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/user", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"usr_me","location":"offline"}`))
	}))

	err := client.SendInvite(context.Background(), ports.SendInviteRequest{UserID: "usr_alice"})
	require.ErrorIs(t, err, domain.ErrNoJoinableLocation)
}

func TestResolveInviteLocationOrder(t *testing.T) {
	tests := []struct {
		name    string
		user    domain.User
		want    string
		wantErr bool
	}{
		{
			name: "presence pair first",
			user: domain.User{Location: "wrld_l:1", Presence: domain.Presence{World: "wrld_p", Instance: "2"}},
			want: "wrld_p:2",
		},
		{
			name: "private instance marker",
			user: domain.User{Location: "wrld_l:1", Presence: domain.Presence{Instance: "wrld_q:5~hidden(usr_x)"}},
			want: "wrld_q:5~hidden(usr_x)",
		},
		{
			name: "plain location fallback",
			user: domain.User{Location: "wrld_l:1"},
			want: "wrld_l:1",
		},
		{
			name:    "offline is not joinable",
			user:    domain.User{Location: "offline"},
			wantErr: true,
		},
		{
			name:    "nothing set",
			user:    domain.User{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveInviteLocation(tt.user)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrNoJoinableLocation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeleteNotificationUsesHideEndpoint(t *testing.T) {
	var called bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/auth/user/notifications/not_1/hide", r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))

	require.NoError(t, client.DeleteNotification(context.Background(), "not_1"))
	assert.True(t, called)
}

func TestGetFriendsPaginatesUntilShortPage(t *testing.T) {
	page := func(n int, status string) []byte {
		items := make([]map[string]any, n)
		for i := range items {
			items[i] = map[string]any{"id": "usr", "displayName": "f", "status": status}
		}
		data, _ := json.Marshal(items)
		return data
	}

	var offsets []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/user/friends", r.URL.Path)
		offset := r.URL.Query().Get("offset")
		offsets = append(offsets, offset)
		if offset == "0" {
			_, _ = w.Write(page(100, "active"))
			return
		}
		_, _ = w.Write(page(3, ""))
	}))

	friends, err := client.GetFriends(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "100"}, offsets)
	require.Len(t, friends, 103)
	// empty status falls back to offline
	assert.Equal(t, "offline", friends[102].Status)
	assert.Equal(t, "active", friends[0].Status)
}

func TestUpdateStatusPutsToUsersEndpoint(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/users/usr_me", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "busy", body["status"])
		require.Equal(t, "zzz", body["statusDescription"])

		_, _ = w.Write([]byte(`{"id":"usr_me","status":"busy","statusDescription":"zzz"}`))
	}))

	user, err := client.UpdateStatus(context.Background(), "usr_me", "busy", "zzz")
	require.NoError(t, err)
	assert.Equal(t, "busy", user.Status)
	assert.Equal(t, "zzz", user.StatusDescription)
}

func TestAPIErrorMessageExtraction(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid credentials","status_code":401}}`))
	}))

	_, err := client.GetCurrentUser(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
}
