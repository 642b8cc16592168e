package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vrsleep/vrsleep/internal/domain"
	"github.com/vrsleep/vrsleep/internal/ports"
)

const (
	// DefaultPollInterval is the configured floor for the invite poll.
	DefaultPollInterval = 15 * time.Second
	// MinimumPollInterval is the absolute minimum; configured values
	// are clamped up to it, never down, protecting the vendor's rate
	// limit.
	MinimumPollInterval = 10 * time.Second
)

// EngineConfig carries the tunables for the auto-responder.
type EngineConfig struct {
	PollInterval time.Duration
	MinInterval  time.Duration
}

func (c EngineConfig) effectiveInterval() time.Duration {
	min := c.MinInterval
	if min <= 0 {
		min = MinimumPollInterval
	}
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if interval < min {
		return min
	}
	return interval
}

type statusSnapshot struct {
	status      string
	description string
}

// Engine is the sleep-mode auto-responder: a two-state machine (asleep
// or awake) driving the invite poll, whitelist matching, invite
// dispatch, notification cleanup, and status rotation. All mutating
// operations it performs are idempotent or best-effort, so manual user
// actions interleaving with a poll cycle cannot corrupt state.
type Engine struct {
	client    ports.PlatformClient
	auth      ports.Authenticator
	whitelist ports.WhitelistRepository
	settings  ports.SettingsRepository
	logger    *slog.Logger
	config    EngineConfig

	mu                   sync.Mutex
	awake                bool
	polling              bool
	stopPolling          chan struct{}
	handledSenders       map[string]struct{}
	handledNotifications map[string]struct{}
	preSleep             *statusSnapshot
	lastSet              *statusSnapshot
}

func NewEngine(client ports.PlatformClient, auth ports.Authenticator, whitelist ports.WhitelistRepository, settings ports.SettingsRepository, logger *slog.Logger, config EngineConfig) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:               client,
		auth:                 auth,
		whitelist:            whitelist,
		settings:             settings,
		logger:               logger,
		config:               config,
		handledSenders:       map[string]struct{}{},
		handledNotifications: map[string]struct{}{},
	}
}

// Awake reports whether the engine is polling.
func (e *Engine) Awake() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.awake
}

// Start transitions asleep -> awake: arms the poll timer, fires one
// immediate poll, then attempts a status refresh. Errors are logged and
// swallowed; a lifecycle operation must never crash the host.
func (e *Engine) Start(ctx context.Context) bool {
	e.mu.Lock()
	if e.awake {
		e.mu.Unlock()
		return true
	}
	e.awake = true
	e.stopPolling = make(chan struct{})
	stop := e.stopPolling
	e.mu.Unlock()

	e.logger.Info("sleep mode enabled")
	go e.pollLoop(stop)

	e.CheckInvites(ctx)
	e.RefreshStatus(ctx)
	return true
}

// Stop transitions awake -> asleep: disarms the timer, clears the
// handled-id sets so a future session can re-respond to the same
// people, and restores the pre-sleep status if the user has not
// manually overridden it in the meantime. An in-flight poll cycle is
// allowed to finish; only future ticks are prevented.
func (e *Engine) Stop(ctx context.Context) bool {
	e.mu.Lock()
	if !e.awake {
		e.mu.Unlock()
		return false
	}
	e.awake = false
	close(e.stopPolling)
	e.stopPolling = nil
	e.handledSenders = map[string]struct{}{}
	e.handledNotifications = map[string]struct{}{}
	preSleep := e.preSleep
	lastSet := e.lastSet
	e.preSleep = nil
	e.lastSet = nil
	e.mu.Unlock()

	e.logger.Info("sleep mode disabled")
	e.restoreStatus(ctx, preSleep, lastSet)
	return false
}

func (e *Engine) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(e.config.effectiveInterval())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.CheckInvites(context.Background())
		}
	}
}

// CheckInvites runs one poll cycle. Cycles never overlap: when one is
// still in flight the next tick is skipped, so a slow invite dispatch
// cannot race a fresh fetch into double-inviting the same sender. A
// fetch error aborts the cycle; it is retried on the next tick.
func (e *Engine) CheckInvites(ctx context.Context) {
	e.mu.Lock()
	if !e.awake || e.polling {
		e.mu.Unlock()
		return
	}
	e.polling = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.polling = false
		e.mu.Unlock()
	}()

	if !e.auth.ReadyForAPI(ctx) {
		return
	}

	invites, err := e.client.FetchInvites(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrConnectivity) {
			e.logger.Debug("invite poll failed, retrying next tick", "error", err)
		} else {
			e.logger.Warn("invite poll failed, retrying next tick", "error", err)
		}
		return
	}

	if len(invites) == 0 {
		return
	}

	list, err := e.whitelist.Get(ctx)
	if err != nil {
		e.logger.Warn("whitelist read failed", "error", err)
		return
	}

	for _, invite := range invites {
		e.handleInvite(ctx, invite, list)
	}
}

func (e *Engine) handleInvite(ctx context.Context, invite domain.InviteNotification, list domain.Whitelist) {
	displayName := invite.SenderDisplayName
	if displayName == "" {
		displayName = invite.SenderID
	}

	// One invite per sender per awake session, even if they spam new
	// requests. The notification is still hidden to keep the feed
	// clean.
	if e.senderHandled(invite.SenderID) {
		e.hideNotification(ctx, invite.ID)
		return
	}

	// The same notification can come back before the hide lands;
	// never process a notification id twice.
	if invite.ID != "" && e.notificationHandled(invite.ID) {
		return
	}

	if !list.Matches(invite.SenderID, invite.SenderDisplayName) {
		e.hideNotification(ctx, invite.ID)
		return
	}

	req := ports.SendInviteRequest{UserID: invite.SenderID}
	settings, err := e.settings.Get(ctx)
	if err == nil && settings.InviteMessageEnabled {
		slot := settings.InviteMessageSlot
		req.MessageSlot = &slot
		req.MessageType = settings.InviteMessageType
	}

	if err := e.client.SendInvite(ctx, req); err != nil {
		e.logger.Warn("failed to send invite", "to", displayName, "error", err)
		// Hide it anyway so the same notification does not fail again
		// on every subsequent poll.
		e.hideNotification(ctx, invite.ID)
		return
	}

	e.markHandled(invite.SenderID, invite.ID)
	e.logger.Info("sent invite", "to", displayName)
	e.hideNotification(ctx, invite.ID)
}

// RefreshStatus synchronizes the live status with the sleep settings.
// Called at Start and whenever settings change while awake.
func (e *Engine) RefreshStatus(ctx context.Context) {
	if !e.Awake() || !e.auth.ReadyForAPI(ctx) {
		return
	}

	settings, err := e.settings.Get(ctx)
	if err != nil {
		e.logger.Warn("settings read failed", "error", err)
		return
	}

	hasStatus := settings.SleepStatus != "" && settings.SleepStatus != domain.SleepStatusNone
	targetDescription := strings.TrimSpace(settings.SleepStatusDescription)

	if settings.AutoStatusEnabled && (hasStatus || targetDescription != "") {
		user, err := e.client.GetCurrentUser(ctx)
		if err != nil {
			e.logger.Warn("failed to read current status", "error", err)
			return
		}

		e.mu.Lock()
		if e.preSleep == nil {
			e.preSleep = &statusSnapshot{status: user.Status, description: user.StatusDescription}
		}
		preSleep := *e.preSleep
		e.mu.Unlock()

		targetStatus := preSleep.status
		if hasStatus {
			targetStatus = settings.SleepStatus
		}

		// Skip the remote write when nothing would change; redundant
		// writes burn the vendor's rate limit.
		if user.Status == targetStatus && user.StatusDescription == targetDescription {
			return
		}

		updated, err := e.client.UpdateStatus(ctx, user.ID, targetStatus, targetDescription)
		if err != nil {
			e.logger.Warn("failed to update status", "error", err)
			return
		}

		e.mu.Lock()
		e.lastSet = &statusSnapshot{status: updated.Status, description: updated.StatusDescription}
		e.mu.Unlock()
		e.logger.Info("status updated", "status", updated.Status, "description", updated.StatusDescription)
		return
	}

	// Feature turned off mid-session: restore the snapshot right away.
	// The snapshot is dropped only once the restore lands, so a
	// transient failure retries on the next refresh or at stop.
	e.mu.Lock()
	preSleep := e.preSleep
	e.mu.Unlock()

	if preSleep == nil {
		return
	}

	user, err := e.client.GetCurrentUser(ctx)
	if err != nil {
		e.logger.Warn("failed to restore status", "error", err)
		return
	}
	e.logger.Info("custom status cleared, restoring pre-sleep status")
	if _, err := e.client.UpdateStatus(ctx, user.ID, preSleep.status, preSleep.description); err != nil {
		e.logger.Warn("failed to restore status", "error", err)
		return
	}

	e.mu.Lock()
	e.preSleep = nil
	e.lastSet = nil
	e.mu.Unlock()
}

// restoreStatus is the stop-time path: restore the snapshot only if the
// live status still equals what this engine last set. A mismatch means
// the user took manual control in-session, and their choice wins.
func (e *Engine) restoreStatus(ctx context.Context, preSleep *statusSnapshot, lastSet *statusSnapshot) {
	if preSleep == nil || !e.auth.ReadyForAPI(ctx) {
		return
	}

	user, err := e.client.GetCurrentUser(ctx)
	if err != nil {
		e.logger.Warn("failed to restore status", "error", err)
		return
	}

	if lastSet == nil || user.Status != lastSet.status || user.StatusDescription != lastSet.description {
		e.logger.Info("status was changed manually, skipping restoration")
		return
	}

	e.logger.Info("restoring pre-sleep status", "status", preSleep.status)
	if _, err := e.client.UpdateStatus(ctx, user.ID, preSleep.status, preSleep.description); err != nil {
		e.logger.Warn("failed to restore status", "error", err)
	}
}

func (e *Engine) senderHandled(senderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.handledSenders[senderID]
	return ok
}

func (e *Engine) notificationHandled(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.handledNotifications[id]
	return ok
}

func (e *Engine) markHandled(senderID string, notificationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handledSenders[senderID] = struct{}{}
	if notificationID != "" {
		e.handledNotifications[notificationID] = struct{}{}
	}
}

func (e *Engine) hideNotification(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if err := e.client.DeleteNotification(ctx, id); err != nil {
		e.logger.Debug("failed to hide notification", "id", id, "error", err)
	}
}
