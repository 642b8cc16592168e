package ports

import (
	"context"

	"github.com/vrsleep/vrsleep/internal/domain"
)

// WhitelistRepository persists the auto-invite whitelist as a flat
// ordered array. Get returns an empty list for a missing or unreadable
// file.
type WhitelistRepository interface {
	Get(ctx context.Context) (domain.Whitelist, error)
	Set(ctx context.Context, list domain.Whitelist) (domain.Whitelist, error)
}

// SettingsRepository persists settings as one JSON object. Get merges
// the stored object over the documented defaults; Set is a
// read-modify-write of the given patch.
type SettingsRepository interface {
	Get(ctx context.Context) (domain.Settings, error)
	Set(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error)
}

// MessageSlotRepository mirrors the 48 remote message templates and
// their per-slot cooldown unlock timestamps.
type MessageSlotRepository interface {
	Slots(ctx context.Context) (map[domain.MessageType][]string, error)
	SetSlot(ctx context.Context, t domain.MessageType, slot int, message string) error
	SetSlots(ctx context.Context, t domain.MessageType, messages []string) error
	Cooldowns(ctx context.Context) (domain.SlotCooldowns, error)
	SetCooldown(ctx context.Context, t domain.MessageType, slot int, unlockMillis int64) error
}
