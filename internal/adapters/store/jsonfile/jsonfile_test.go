package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsleep/vrsleep/internal/domain"
)

func TestWhitelistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store := NewWhitelistStore(dir)

	saved, err := store.Set(ctx, domain.Whitelist{"Alice", "usr_123"})
	require.NoError(t, err)
	assert.Equal(t, domain.Whitelist{"Alice", "usr_123"}, saved)

	loaded, err := NewWhitelistStore(dir).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Whitelist{"Alice", "usr_123"}, loaded)
}

func TestWhitelistMissingFileIsEmptyList(t *testing.T) {
	list, err := NewWhitelistStore(t.TempDir()).Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWhitelistCorruptFileIsEmptyList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "whitelist.json"), []byte("{not json"), 0o600))

	list, err := NewWhitelistStore(dir).Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWhitelistFilePermissions(t *testing.T) {
	dir := t.TempDir()
	_, err := NewWhitelistStore(dir).Set(context.Background(), domain.Whitelist{"alice"})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "whitelist.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSettingsMissingFileYieldsDefaults(t *testing.T) {
	settings, err := NewSettingsStore(t.TempDir()).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestSettingsPartialFileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{"sleepStatus":"busy","unknownKey":true}`), 0o600))

	settings, err := NewSettingsStore(dir).Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "busy", settings.SleepStatus)
	// everything else stays at the defaults; unknown keys are dropped
	assert.Equal(t, domain.MessageTypeMessage, settings.InviteMessageType)
	assert.Equal(t, "whitelist", settings.ActiveTab)
}

func TestSettingsInvalidMessageTypeFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{"inviteMessageType":"bogus"}`), 0o600))

	settings, err := NewSettingsStore(dir).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeMessage, settings.InviteMessageType)
}

func TestSettingsSetIsReadModifyWrite(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store := NewSettingsStore(dir)

	status := "join me"
	_, err := store.Set(ctx, domain.SettingsPatch{SleepStatus: &status})
	require.NoError(t, err)

	enabled := true
	merged, err := store.Set(ctx, domain.SettingsPatch{AutoStatusEnabled: &enabled})
	require.NoError(t, err)

	assert.Equal(t, "join me", merged.SleepStatus)
	assert.True(t, merged.AutoStatusEnabled)
}

func TestSlotStoreDefaultsToEmptySlots(t *testing.T) {
	slots, err := NewSlotStore(t.TempDir()).Slots(context.Background())
	require.NoError(t, err)

	require.Len(t, slots, len(domain.MessageTypes()))
	for _, t2 := range domain.MessageTypes() {
		assert.Len(t, slots[t2], domain.MessageSlotCount)
	}
}

func TestSlotStoreSetSlotAndSetSlots(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store := NewSlotStore(dir)

	require.NoError(t, store.SetSlot(ctx, domain.MessageTypeMessage, 3, "hello"))

	bulk := make([]string, domain.MessageSlotCount)
	bulk[0] = "first"
	require.NoError(t, store.SetSlots(ctx, domain.MessageTypeResponse, bulk))

	slots, err := NewSlotStore(dir).Slots(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", slots[domain.MessageTypeMessage][3])
	assert.Equal(t, "first", slots[domain.MessageTypeResponse][0])
	assert.Equal(t, "", slots[domain.MessageTypeMessage][0])
}

func TestSlotStoreCooldownRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store := NewSlotStore(dir)

	require.NoError(t, store.SetCooldown(ctx, domain.MessageTypeMessage, 4, 1234567890))

	cooldowns, err := NewSlotStore(dir).Cooldowns(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1234567890), cooldowns.UnlockAt(domain.MessageTypeMessage, 4))
	assert.Equal(t, int64(0), cooldowns.UnlockAt(domain.MessageTypeMessage, 5))
}

func TestSlotStoreRejectsInvalidRefs(t *testing.T) {
	store := NewSlotStore(t.TempDir())
	ctx := context.Background()

	require.ErrorIs(t, store.SetSlot(ctx, domain.MessageType("bogus"), 0, "x"), domain.ErrInvalidMessageType)
	require.ErrorIs(t, store.SetSlot(ctx, domain.MessageTypeMessage, 12, "x"), domain.ErrInvalidMessageSlot)
	require.ErrorIs(t, store.SetCooldown(ctx, domain.MessageTypeMessage, -1, 0), domain.ErrInvalidMessageSlot)
}
