package ports

import (
	"context"

	"github.com/vrsleep/vrsleep/internal/domain"
)

// SendInviteRequest addresses an invite to a user. When Message is
// non-empty it wins over the slot reference; otherwise a non-nil
// MessageSlot attaches that template.
type SendInviteRequest struct {
	UserID      string
	Message     string
	MessageSlot *int
	MessageType domain.MessageType
}

// MessageSlotUpdate is the result of a remote slot write. The vendor
// sometimes answers with the full 12-slot state for the type; when it
// does, All is populated and must be treated as an authoritative bulk
// refresh.
type MessageSlotUpdate struct {
	Slot domain.MessageSlot
	All  []domain.MessageSlot
}

// PlatformClient is the vendor REST surface the engine and services
// consume. Every call carries a bounded timeout.
type PlatformClient interface {
	FetchInvites(ctx context.Context) ([]domain.InviteNotification, error)
	SendInvite(ctx context.Context, req SendInviteRequest) error
	DeleteNotification(ctx context.Context, id string) error
	GetFriends(ctx context.Context) ([]domain.Friend, error)
	GetCurrentUser(ctx context.Context) (domain.User, error)
	UpdateStatus(ctx context.Context, userID string, status string, statusDescription string) (domain.User, error)
	GetMessageSlot(ctx context.Context, userID string, t domain.MessageType, slot int) (domain.MessageSlot, error)
	GetMessageSlots(ctx context.Context, userID string, t domain.MessageType) ([]domain.MessageSlot, error)
	UpdateMessageSlot(ctx context.Context, userID string, t domain.MessageType, slot int, message string) (MessageSlotUpdate, error)
}
