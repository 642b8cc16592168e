package domain

import "time"

// MessageType is one of the four VRChat message template categories.
type MessageType string

const (
	MessageTypeMessage         MessageType = "message"
	MessageTypeResponse        MessageType = "response"
	MessageTypeRequest         MessageType = "request"
	MessageTypeRequestResponse MessageType = "requestResponse"
)

// MessageSlotCount is the number of addressable slots per type.
const MessageSlotCount = 12

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeMessage, MessageTypeResponse, MessageTypeRequest, MessageTypeRequestResponse:
		return true
	default:
		return false
	}
}

func MessageTypes() []MessageType {
	return []MessageType{
		MessageTypeMessage,
		MessageTypeResponse,
		MessageTypeRequest,
		MessageTypeRequestResponse,
	}
}

// MessageSlot is the normalized shape for one slot, regardless of which
// of the vendor's three response shapes produced it.
type MessageSlot struct {
	Slot                     int    `json:"slot"`
	Message                  string `json:"message"`
	RemainingCooldownMinutes int    `json:"remainingCooldownMinutes"`
}

// SlotCooldowns maps message type -> slot index -> unlock time in epoch
// milliseconds. Zero or a past timestamp means the slot is unlocked.
type SlotCooldowns map[MessageType]map[int]int64

// UnlockAt returns the unlock timestamp for a slot, zero if none is
// recorded.
func (c SlotCooldowns) UnlockAt(t MessageType, slot int) int64 {
	byType, ok := c[t]
	if !ok {
		return 0
	}
	return byType[slot]
}

// Set records the unlock timestamp for a slot.
func (c SlotCooldowns) Set(t MessageType, slot int, unlockMillis int64) {
	byType, ok := c[t]
	if !ok {
		byType = map[int]int64{}
		c[t] = byType
	}
	byType[slot] = unlockMillis
}

// RemainingMinutes converts a stored unlock timestamp into whole
// remaining minutes at the given instant, rounding up so a cooldown
// with any time left reports at least one minute.
func (c SlotCooldowns) RemainingMinutes(t MessageType, slot int, now time.Time) int {
	unlock := c.UnlockAt(t, slot)
	remaining := unlock - now.UnixMilli()
	if remaining <= 0 {
		return 0
	}
	minutes := remaining / int64(time.Minute/time.Millisecond)
	if remaining%int64(time.Minute/time.Millisecond) != 0 {
		minutes++
	}
	return int(minutes)
}
