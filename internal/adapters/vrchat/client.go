package vrchat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vrsleep/vrsleep/internal/domain"
	"github.com/vrsleep/vrsleep/internal/ports"
)

const friendsPageSize = 100

// AuthHeaderSource supplies the auth headers for API calls; in practice
// this is the SessionManager.
type AuthHeaderSource interface {
	AuthHeaders(ctx context.Context) (map[string]string, error)
}

// Client is the stateless request builder/parser layer for the handful
// of vendor endpoints this agent consumes.
type Client struct {
	tr   *transport
	auth AuthHeaderSource
}

var _ ports.PlatformClient = (*Client)(nil)

func NewClient(cfg Config, httpClient *http.Client, auth AuthHeaderSource) *Client {
	return &Client{tr: newTransport(cfg, httpClient), auth: auth}
}

type notificationPayload struct {
	ID                string `json:"id"`
	LegacyID          string `json:"_id"`
	Type              string `json:"type"`
	SenderUserID      string `json:"senderUserId"`
	SenderDisplayName string `json:"senderDisplayName"`
	SenderUsername    string `json:"senderUsername"`
}

// FetchInvites pulls the most recent 50 notifications and filters them
// to invite requests with a sender present. Malformed entries are
// dropped, not errored.
func (c *Client) FetchInvites(ctx context.Context) ([]domain.InviteNotification, error) {
	raw, err := c.get(ctx, "/auth/user/notifications?n=50&offset=0")
	if err != nil {
		return nil, fmt.Errorf("fetch notifications: %w", err)
	}

	var payload []notificationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil
	}

	invites := make([]domain.InviteNotification, 0, len(payload))
	for _, item := range payload {
		if item.Type != "requestInvite" || item.SenderUserID == "" {
			continue
		}
		id := item.ID
		if id == "" {
			id = item.LegacyID
		}
		name := item.SenderDisplayName
		if name == "" {
			name = item.SenderUsername
		}
		invites = append(invites, domain.InviteNotification{
			ID:                id,
			SenderID:          item.SenderUserID,
			SenderDisplayName: name,
		})
	}
	return invites, nil
}

// SendInvite invites a user to the caller's own current instance. The
// invite payload must reference a joinable location, so the caller's
// presence is resolved first.
func (c *Client) SendInvite(ctx context.Context, req ports.SendInviteRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("missing user id")
	}

	user, err := c.GetCurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("resolve own location: %w", err)
	}

	location, err := resolveInviteLocation(user)
	if err != nil {
		return err
	}

	body := map[string]any{"instanceId": location}
	if message := strings.TrimSpace(req.Message); message != "" {
		body["message"] = message
	} else if req.MessageSlot != nil {
		body["messageSlot"] = *req.MessageSlot
		if req.MessageType.Valid() {
			body["messageSlotType"] = string(req.MessageType)
		}
	}

	path := "/invite/" + url.PathEscape(req.UserID)
	if _, _, err := c.authedJSON(ctx, http.MethodPost, path, body); err != nil {
		return fmt.Errorf("send invite: %w", err)
	}
	return nil
}

// resolveInviteLocation prefers the live presence world+instance pair,
// then an instance string carrying the private-instance marker, then
// the plain location field.
func resolveInviteLocation(user domain.User) (string, error) {
	presence := user.Presence
	switch {
	case presence.World != "" && presence.Instance != "":
		return presence.World + ":" + presence.Instance, nil
	case strings.Contains(presence.Instance, "~"):
		return presence.Instance, nil
	case user.Location != "" && user.Location != "offline":
		return user.Location, nil
	default:
		return "", domain.ErrNoJoinableLocation
	}
}

// DeleteNotification hides a notification. Callers treat failures as
// best-effort cleanup.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("missing notification id")
	}
	path := "/auth/user/notifications/" + url.PathEscape(id) + "/hide"
	if _, _, err := c.authedJSON(ctx, http.MethodPut, path, nil); err != nil {
		return fmt.Errorf("hide notification: %w", err)
	}
	return nil
}

type friendPayload struct {
	ID                             string `json:"id"`
	DisplayName                    string `json:"displayName"`
	Username                       string `json:"username"`
	Status                         string `json:"status"`
	StatusDescription              string `json:"statusDescription"`
	CurrentAvatarThumbnailImageURL string `json:"currentAvatarThumbnailImageUrl"`
	ProfilePicOverride             string `json:"profilePicOverride"`
}

// GetFriends paginates through the full friends list until a short page
// is returned.
func (c *Client) GetFriends(ctx context.Context) ([]domain.Friend, error) {
	var friends []domain.Friend
	for offset := 0; ; offset += friendsPageSize {
		path := fmt.Sprintf("/auth/user/friends?n=%d&offset=%d", friendsPageSize, offset)
		raw, err := c.get(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("fetch friends page at offset %d: %w", offset, err)
		}

		var page []friendPayload
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decode friends page: %w", err)
		}

		for _, friend := range page {
			status := friend.Status
			if status == "" {
				status = "offline"
			}
			thumbnail := friend.CurrentAvatarThumbnailImageURL
			if thumbnail == "" {
				thumbnail = friend.ProfilePicOverride
			}
			friends = append(friends, domain.Friend{
				ID:                friend.ID,
				DisplayName:       friend.DisplayName,
				Username:          friend.Username,
				Status:            status,
				StatusDescription: friend.StatusDescription,
				ThumbnailURL:      thumbnail,
			})
		}

		if len(page) < friendsPageSize {
			return friends, nil
		}
	}
}

func (c *Client) GetCurrentUser(ctx context.Context) (domain.User, error) {
	raw, err := c.get(ctx, "/auth/user")
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch current user: %w", err)
	}

	var payload userPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.User{}, fmt.Errorf("decode current user: %w", err)
	}
	return payload.toDomain(), nil
}

func (c *Client) UpdateStatus(ctx context.Context, userID string, status string, statusDescription string) (domain.User, error) {
	if userID == "" {
		return domain.User{}, fmt.Errorf("missing user id")
	}

	body := map[string]string{
		"status":            status,
		"statusDescription": statusDescription,
	}
	_, raw, err := c.authedJSON(ctx, http.MethodPut, "/users/"+url.PathEscape(userID), body)
	if err != nil {
		return domain.User{}, fmt.Errorf("update status: %w", err)
	}

	var payload userPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.User{}, fmt.Errorf("decode updated user: %w", err)
	}
	return payload.toDomain(), nil
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	_, raw, err := c.authedJSON(ctx, http.MethodGet, path, nil)
	return raw, err
}

func (c *Client) authedJSON(ctx context.Context, method string, path string, body any) (*http.Response, json.RawMessage, error) {
	headers, err := c.auth.AuthHeaders(ctx)
	if err != nil {
		return nil, nil, err
	}
	return c.tr.doJSON(ctx, method, path, headers, body)
}

func slotPath(userID string, t domain.MessageType, slot int) string {
	return "/message/" + url.PathEscape(userID) + "/" + url.PathEscape(string(t)) + "/" + strconv.Itoa(slot)
}
