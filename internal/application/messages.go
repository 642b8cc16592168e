package application

import (
	"context"
	"fmt"
	"time"

	"github.com/vrsleep/vrsleep/internal/domain"
	"github.com/vrsleep/vrsleep/internal/ports"
)

// cooldownDriftTolerance is how far the locally computed remaining
// minutes may drift from the vendor's report before the stored unlock
// time is overwritten. Within tolerance the local value wins, so a UI
// countdown does not jump back to the top of a minute on every poll.
const cooldownDriftTolerance = 1

// MessageService keeps the local mirror of the 48 message templates
// reconciled against the vendor, including the per-slot cooldowns.
type MessageService struct {
	client ports.PlatformClient
	auth   ports.Authenticator
	repo   ports.MessageSlotRepository
	clock  ports.Clock
}

func NewMessageService(client ports.PlatformClient, auth ports.Authenticator, repo ports.MessageSlotRepository, clock ports.Clock) *MessageService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &MessageService{client: client, auth: auth, repo: repo, clock: clock}
}

func (s *MessageService) userID(ctx context.Context) (string, error) {
	status := s.auth.Status(ctx)
	if !status.Authenticated || status.UserID == "" {
		return "", domain.ErrNotAuthenticated
	}
	return status.UserID, nil
}

// GetSlot fetches one slot from the vendor, reconciles its cooldown,
// and refreshes the cached text.
func (s *MessageService) GetSlot(ctx context.Context, t domain.MessageType, slot int) (domain.MessageSlot, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return domain.MessageSlot{}, err
	}

	fetched, err := s.client.GetMessageSlot(ctx, userID, t, slot)
	if err != nil {
		return domain.MessageSlot{}, err
	}

	s.syncCooldown(ctx, t, fetched)
	if err := s.repo.SetSlot(ctx, t, fetched.Slot, fetched.Message); err != nil {
		return domain.MessageSlot{}, fmt.Errorf("cache slot: %w", err)
	}
	return fetched, nil
}

// GetAllSlots fetches the full 12-slot state for a type and overwrites
// the cache for that type.
func (s *MessageService) GetAllSlots(ctx context.Context, t domain.MessageType) ([]domain.MessageSlot, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}

	slots, err := s.client.GetMessageSlots(ctx, userID, t)
	if err != nil {
		return nil, err
	}

	s.cacheBulk(ctx, t, slots)
	return slots, nil
}

// UpdateSlot writes one slot remotely. When the vendor answers with
// the full 12-slot state, the whole cached type is overwritten from
// that response rather than just the written index.
func (s *MessageService) UpdateSlot(ctx context.Context, t domain.MessageType, slot int, message string) (ports.MessageSlotUpdate, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return ports.MessageSlotUpdate{}, err
	}

	update, err := s.client.UpdateMessageSlot(ctx, userID, t, slot, message)
	if err != nil {
		return ports.MessageSlotUpdate{}, err
	}

	if len(update.All) > 0 {
		s.cacheBulk(ctx, t, update.All)
		return update, nil
	}

	s.syncCooldown(ctx, t, update.Slot)
	if err := s.repo.SetSlot(ctx, t, update.Slot.Slot, update.Slot.Message); err != nil {
		return ports.MessageSlotUpdate{}, fmt.Errorf("cache slot: %w", err)
	}
	return update, nil
}

// CachedSlots returns the local mirror without touching the network.
func (s *MessageService) CachedSlots(ctx context.Context) (map[domain.MessageType][]string, error) {
	return s.repo.Slots(ctx)
}

// Cooldowns returns the stored unlock timestamps.
func (s *MessageService) Cooldowns(ctx context.Context) (domain.SlotCooldowns, error) {
	return s.repo.Cooldowns(ctx)
}

func (s *MessageService) cacheBulk(ctx context.Context, t domain.MessageType, slots []domain.MessageSlot) {
	messages := make([]string, domain.MessageSlotCount)
	for _, slot := range slots {
		if slot.Slot < 0 || slot.Slot >= domain.MessageSlotCount {
			continue
		}
		messages[slot.Slot] = slot.Message
		s.syncCooldown(ctx, t, slot)
	}
	// Cache writes are a local mirror; a failed write only costs a
	// refetch.
	_ = s.repo.SetSlots(ctx, t, messages)
}

// syncCooldown reconciles one slot's stored unlock time against the
// vendor-reported remaining minutes. The stored value is overwritten
// only when the drift exceeds the tolerance or when a cooldown newly
// starts that the local state does not know about.
func (s *MessageService) syncCooldown(ctx context.Context, t domain.MessageType, slot domain.MessageSlot) {
	cooldowns, err := s.repo.Cooldowns(ctx)
	if err != nil {
		return
	}

	now := s.clock.Now()
	localRemaining := cooldowns.RemainingMinutes(t, slot.Slot, now)
	apiRemaining := slot.RemainingCooldownMinutes

	drift := localRemaining - apiRemaining
	if drift < 0 {
		drift = -drift
	}
	newlyStarting := localRemaining == 0 && apiRemaining > 0

	if drift <= cooldownDriftTolerance && !newlyStarting {
		return
	}

	var unlock int64
	if apiRemaining > 0 {
		unlock = now.Add(time.Duration(apiRemaining) * time.Minute).UnixMilli()
	}
	_ = s.repo.SetCooldown(ctx, t, slot.Slot, unlock)
}
