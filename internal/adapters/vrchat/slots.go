package vrchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vrsleep/vrsleep/internal/domain"
	"github.com/vrsleep/vrsleep/internal/ports"
)

const (
	slotFetchBatchSize = 3
	slotFetchSpacing   = 200 * time.Millisecond
)

// slotPayload is the object form of a slot response. The vendor also
// answers with a bare string or with the full 12-element array for the
// type; all three shapes are normalized here and never leak past this
// boundary.
type slotPayload struct {
	Slot                     *int   `json:"slot"`
	Message                  string `json:"message"`
	RemainingCooldownMinutes int    `json:"remainingCooldownMinutes"`
}

func decodeSlot(raw json.RawMessage, fallbackIndex int) (domain.MessageSlot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.MessageSlot{Slot: fallbackIndex}, nil
	}

	if trimmed[0] == '"' {
		var message string
		if err := json.Unmarshal(trimmed, &message); err != nil {
			return domain.MessageSlot{}, fmt.Errorf("decode slot string: %w", err)
		}
		return domain.MessageSlot{Slot: fallbackIndex, Message: message}, nil
	}

	var payload slotPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return domain.MessageSlot{}, fmt.Errorf("decode slot object: %w", err)
	}
	slot := fallbackIndex
	if payload.Slot != nil {
		slot = *payload.Slot
	}
	return domain.MessageSlot{
		Slot:                     slot,
		Message:                  payload.Message,
		RemainingCooldownMinutes: payload.RemainingCooldownMinutes,
	}, nil
}

func decodeSlotList(raw json.RawMessage) ([]domain.MessageSlot, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}

	slots := make([]domain.MessageSlot, 0, len(items))
	for i, item := range items {
		slot, err := decodeSlot(item, i)
		if err != nil {
			slot = domain.MessageSlot{Slot: i}
		}
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Slot < slots[j].Slot })
	return slots, true
}

func (c *Client) GetMessageSlot(ctx context.Context, userID string, t domain.MessageType, slot int) (domain.MessageSlot, error) {
	if err := validateSlotRef(userID, t, slot); err != nil {
		return domain.MessageSlot{}, err
	}

	raw, err := c.get(ctx, slotPath(userID, t, slot))
	if err != nil {
		return domain.MessageSlot{}, fmt.Errorf("fetch message slot %s/%d: %w", t, slot, err)
	}
	return decodeSlot(raw, slot)
}

// GetMessageSlots fetches all 12 slots for a type in batches of three
// with a short pause between batches, staying under the vendor's rate
// limit. A per-slot failure degrades to an empty placeholder rather
// than aborting the batch.
func (c *Client) GetMessageSlots(ctx context.Context, userID string, t domain.MessageType) ([]domain.MessageSlot, error) {
	if err := validateSlotRef(userID, t, 0); err != nil {
		return nil, err
	}

	slots := make([]domain.MessageSlot, domain.MessageSlotCount)
	limiter := rate.NewLimiter(rate.Every(slotFetchSpacing), 1)

	for batchStart := 0; batchStart < domain.MessageSlotCount; batchStart += slotFetchBatchSize {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var wg sync.WaitGroup
		for i := batchStart; i < batchStart+slotFetchBatchSize && i < domain.MessageSlotCount; i++ {
			wg.Add(1)
			go func(index int) {
				defer wg.Done()
				slot, err := c.GetMessageSlot(ctx, userID, t, index)
				if err != nil {
					slot = domain.MessageSlot{Slot: index}
				}
				slots[index] = slot
			}(i)
		}
		wg.Wait()
	}
	return slots, nil
}

// UpdateMessageSlot writes one slot. The vendor may answer with the
// full 12-slot state for the type; that shape is surfaced as All so the
// caller can bulk-refresh its cache.
func (c *Client) UpdateMessageSlot(ctx context.Context, userID string, t domain.MessageType, slot int, message string) (ports.MessageSlotUpdate, error) {
	if err := validateSlotRef(userID, t, slot); err != nil {
		return ports.MessageSlotUpdate{}, err
	}

	body := map[string]string{"message": message}
	_, raw, err := c.authedJSON(ctx, http.MethodPut, slotPath(userID, t, slot), body)
	if err != nil {
		return ports.MessageSlotUpdate{}, fmt.Errorf("update message slot %s/%d: %w", t, slot, err)
	}

	if all, ok := decodeSlotList(raw); ok {
		return ports.MessageSlotUpdate{All: all}, nil
	}

	updated, err := decodeSlot(raw, slot)
	if err != nil {
		return ports.MessageSlotUpdate{}, err
	}
	if updated.Message == "" {
		updated.Message = message
	}
	return ports.MessageSlotUpdate{Slot: updated}, nil
}

func validateSlotRef(userID string, t domain.MessageType, slot int) error {
	if userID == "" {
		return fmt.Errorf("missing user id")
	}
	if !t.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidMessageType, t)
	}
	if slot < 0 || slot >= domain.MessageSlotCount {
		return fmt.Errorf("%w: %d", domain.ErrInvalidMessageSlot, slot)
	}
	return nil
}
