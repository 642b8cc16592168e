package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsleep/vrsleep/internal/domain"
	"github.com/vrsleep/vrsleep/internal/ports"
)

type fakeSlotClient struct {
	fakeClient

	slot   domain.MessageSlot
	slots  []domain.MessageSlot
	update ports.MessageSlotUpdate
}

func (c *fakeSlotClient) GetMessageSlot(context.Context, string, domain.MessageType, int) (domain.MessageSlot, error) {
	return c.slot, nil
}

func (c *fakeSlotClient) GetMessageSlots(context.Context, string, domain.MessageType) ([]domain.MessageSlot, error) {
	return c.slots, nil
}

func (c *fakeSlotClient) UpdateMessageSlot(context.Context, string, domain.MessageType, int, string) (ports.MessageSlotUpdate, error) {
	return c.update, nil
}

type fakeSlotRepo struct {
	slots     map[domain.MessageType][]string
	cooldowns domain.SlotCooldowns

	setSlotCalls     int
	setSlotsCalls    int
	setCooldownCalls int
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{
		slots:     map[domain.MessageType][]string{},
		cooldowns: domain.SlotCooldowns{},
	}
}

func (r *fakeSlotRepo) Slots(context.Context) (map[domain.MessageType][]string, error) {
	return r.slots, nil
}

func (r *fakeSlotRepo) SetSlot(_ context.Context, t domain.MessageType, slot int, message string) error {
	r.setSlotCalls++
	if r.slots[t] == nil {
		r.slots[t] = make([]string, domain.MessageSlotCount)
	}
	r.slots[t][slot] = message
	return nil
}

func (r *fakeSlotRepo) SetSlots(_ context.Context, t domain.MessageType, messages []string) error {
	r.setSlotsCalls++
	r.slots[t] = messages
	return nil
}

func (r *fakeSlotRepo) Cooldowns(context.Context) (domain.SlotCooldowns, error) {
	return r.cooldowns, nil
}

func (r *fakeSlotRepo) SetCooldown(_ context.Context, t domain.MessageType, slot int, unlockMillis int64) error {
	r.setCooldownCalls++
	r.cooldowns.Set(t, slot, unlockMillis)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 8, 28, 4, 0, 0, 0, time.UTC)

func newMessageFixture(client ports.PlatformClient) (*MessageService, *fakeSlotRepo) {
	repo := newFakeSlotRepo()
	service := NewMessageService(client, &fakeAuth{ready: true, userID: "usr_me"}, repo, fixedClock{now: testNow})
	return service, repo
}

func TestGetSlotRequiresAuthentication(t *testing.T) {
	repo := newFakeSlotRepo()
	service := NewMessageService(&fakeSlotClient{}, &fakeAuth{}, repo, fixedClock{now: testNow})

	_, err := service.GetSlot(context.Background(), domain.MessageTypeMessage, 0)
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestGetSlotCachesTextAndCooldown(t *testing.T) {
	client := &fakeSlotClient{slot: domain.MessageSlot{Slot: 3, Message: "hello", RemainingCooldownMinutes: 10}}
	service, repo := newMessageFixture(client)

	got, err := service.GetSlot(context.Background(), domain.MessageTypeMessage, 3)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Message)

	assert.Equal(t, "hello", repo.slots[domain.MessageTypeMessage][3])
	assert.Equal(t, 10, repo.cooldowns.RemainingMinutes(domain.MessageTypeMessage, 3, testNow))
}

func TestCooldownSyncWithinToleranceKeepsLocalValue(t *testing.T) {
	client := &fakeSlotClient{slot: domain.MessageSlot{Slot: 0, RemainingCooldownMinutes: 5}}
	service, repo := newMessageFixture(client)

	// local countdown also says 5 minutes
	localUnlock := testNow.Add(5 * time.Minute).UnixMilli()
	repo.cooldowns.Set(domain.MessageTypeMessage, 0, localUnlock)

	_, err := service.GetSlot(context.Background(), domain.MessageTypeMessage, 0)
	require.NoError(t, err)

	assert.Zero(t, repo.setCooldownCalls)
	assert.Equal(t, localUnlock, repo.cooldowns.UnlockAt(domain.MessageTypeMessage, 0))
}

func TestCooldownSyncOverwritesOnDrift(t *testing.T) {
	client := &fakeSlotClient{slot: domain.MessageSlot{Slot: 0, RemainingCooldownMinutes: 3}}
	service, repo := newMessageFixture(client)

	// local says 5 minutes, the vendor says 3: drift of 2 exceeds the
	// one-minute tolerance
	repo.cooldowns.Set(domain.MessageTypeMessage, 0, testNow.Add(5*time.Minute).UnixMilli())

	_, err := service.GetSlot(context.Background(), domain.MessageTypeMessage, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.setCooldownCalls)
	assert.Equal(t, testNow.Add(3*time.Minute).UnixMilli(), repo.cooldowns.UnlockAt(domain.MessageTypeMessage, 0))
}

func TestCooldownSyncAdoptsNewlyStartingCooldown(t *testing.T) {
	client := &fakeSlotClient{slot: domain.MessageSlot{Slot: 0, RemainingCooldownMinutes: 1}}
	service, repo := newMessageFixture(client)

	_, err := service.GetSlot(context.Background(), domain.MessageTypeMessage, 0)
	require.NoError(t, err)

	// drift of 1 is within tolerance, but a cooldown the local state
	// does not know about must still be adopted
	assert.Equal(t, 1, repo.setCooldownCalls)
	assert.Equal(t, testNow.Add(time.Minute).UnixMilli(), repo.cooldowns.UnlockAt(domain.MessageTypeMessage, 0))
}

func TestCooldownSyncClearsExpiredCooldown(t *testing.T) {
	client := &fakeSlotClient{slot: domain.MessageSlot{Slot: 0, RemainingCooldownMinutes: 0}}
	service, repo := newMessageFixture(client)

	repo.cooldowns.Set(domain.MessageTypeMessage, 0, testNow.Add(5*time.Minute).UnixMilli())

	_, err := service.GetSlot(context.Background(), domain.MessageTypeMessage, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(0), repo.cooldowns.UnlockAt(domain.MessageTypeMessage, 0))
}

func TestGetAllSlotsOverwritesCacheForType(t *testing.T) {
	slots := make([]domain.MessageSlot, domain.MessageSlotCount)
	for i := range slots {
		slots[i] = domain.MessageSlot{Slot: i, Message: "m"}
	}
	client := &fakeSlotClient{slots: slots}
	service, repo := newMessageFixture(client)

	got, err := service.GetAllSlots(context.Background(), domain.MessageTypeResponse)
	require.NoError(t, err)
	require.Len(t, got, domain.MessageSlotCount)

	assert.Equal(t, 1, repo.setSlotsCalls)
	assert.Equal(t, "m", repo.slots[domain.MessageTypeResponse][11])
}

func TestUpdateSlotSingleResponseCachesOneSlot(t *testing.T) {
	client := &fakeSlotClient{update: ports.MessageSlotUpdate{Slot: domain.MessageSlot{Slot: 2, Message: "new"}}}
	service, repo := newMessageFixture(client)

	update, err := service.UpdateSlot(context.Background(), domain.MessageTypeMessage, 2, "new")
	require.NoError(t, err)
	assert.Empty(t, update.All)

	assert.Equal(t, 1, repo.setSlotCalls)
	assert.Equal(t, "new", repo.slots[domain.MessageTypeMessage][2])
}

func TestUpdateSlotBulkResponseRefreshesWholeType(t *testing.T) {
	all := make([]domain.MessageSlot, domain.MessageSlotCount)
	for i := range all {
		all[i] = domain.MessageSlot{Slot: i, Message: "bulk"}
	}
	client := &fakeSlotClient{update: ports.MessageSlotUpdate{All: all}}
	service, repo := newMessageFixture(client)

	update, err := service.UpdateSlot(context.Background(), domain.MessageTypeMessage, 0, "bulk")
	require.NoError(t, err)
	require.Len(t, update.All, domain.MessageSlotCount)

	assert.Equal(t, 1, repo.setSlotsCalls)
	assert.Zero(t, repo.setSlotCalls)
	assert.Equal(t, "bulk", repo.slots[domain.MessageTypeMessage][7])
}
