package jsonfile

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/vrsleep/vrsleep/internal/domain"
	"github.com/vrsleep/vrsleep/internal/ports"
)

const slotsFileName = "message-slots.json"

// SlotStore mirrors the 48 remote message templates plus the per-slot
// cooldown unlock timestamps, keyed by type.
type SlotStore struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.MessageSlotRepository = (*SlotStore)(nil)

func NewSlotStore(dir string) *SlotStore {
	path := filepath.Join(dir, slotsFileName)
	return &SlotStore{path: path, mu: lockForPath(path)}
}

// JSON object keys must be strings, so slot indices are serialized as
// their decimal form.
type slotsSchema struct {
	Slots     map[string][]string         `json:"slots"`
	Cooldowns map[string]map[string]int64 `json:"cooldowns"`
}

func defaultSchema() slotsSchema {
	schema := slotsSchema{
		Slots:     map[string][]string{},
		Cooldowns: map[string]map[string]int64{},
	}
	for _, t := range domain.MessageTypes() {
		schema.Slots[string(t)] = make([]string, domain.MessageSlotCount)
		schema.Cooldowns[string(t)] = map[string]int64{}
	}
	return schema
}

func (s *SlotStore) read() slotsSchema {
	schema := defaultSchema()
	var stored slotsSchema
	if readJSON(s.path, &stored) {
		for _, t := range domain.MessageTypes() {
			if slots, ok := stored.Slots[string(t)]; ok && len(slots) == domain.MessageSlotCount {
				schema.Slots[string(t)] = slots
			}
			if cooldowns, ok := stored.Cooldowns[string(t)]; ok && cooldowns != nil {
				schema.Cooldowns[string(t)] = cooldowns
			}
		}
	}
	return schema
}

func (s *SlotStore) Slots(ctx context.Context) (map[domain.MessageType][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	schema := s.read()
	slots := make(map[domain.MessageType][]string, len(schema.Slots))
	for _, t := range domain.MessageTypes() {
		slots[t] = schema.Slots[string(t)]
	}
	return slots, nil
}

func (s *SlotStore) SetSlot(ctx context.Context, t domain.MessageType, slot int, message string) error {
	if err := validateRef(t, slot); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	schema := s.read()
	schema.Slots[string(t)][slot] = message
	return writeJSON(s.path, schema)
}

func (s *SlotStore) SetSlots(ctx context.Context, t domain.MessageType, messages []string) error {
	if err := validateRef(t, 0); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	schema := s.read()
	slots := make([]string, domain.MessageSlotCount)
	copy(slots, messages)
	schema.Slots[string(t)] = slots
	return writeJSON(s.path, schema)
}

func (s *SlotStore) Cooldowns(ctx context.Context) (domain.SlotCooldowns, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	schema := s.read()
	cooldowns := domain.SlotCooldowns{}
	for _, t := range domain.MessageTypes() {
		for key, unlock := range schema.Cooldowns[string(t)] {
			slot, err := strconv.Atoi(key)
			if err != nil || slot < 0 || slot >= domain.MessageSlotCount {
				continue
			}
			cooldowns.Set(t, slot, unlock)
		}
	}
	return cooldowns, nil
}

func (s *SlotStore) SetCooldown(ctx context.Context, t domain.MessageType, slot int, unlockMillis int64) error {
	if err := validateRef(t, slot); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	schema := s.read()
	schema.Cooldowns[string(t)][strconv.Itoa(slot)] = unlockMillis
	return writeJSON(s.path, schema)
}

func validateRef(t domain.MessageType, slot int) error {
	if !t.Valid() {
		return domain.ErrInvalidMessageType
	}
	if slot < 0 || slot >= domain.MessageSlotCount {
		return domain.ErrInvalidMessageSlot
	}
	return nil
}
