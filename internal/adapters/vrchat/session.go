package vrchat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vrsleep/vrsleep/internal/domain"
	"github.com/vrsleep/vrsleep/internal/ports"
)

// SessionManager owns the process-wide session: it runs the
// login/2FA/logout protocol, maintains the cookie jar across requests,
// and persists the session once a user id and cookies both exist.
type SessionManager struct {
	tr     *transport
	repo   ports.SessionRepository
	logger *slog.Logger

	mu      sync.Mutex
	session *domain.Session
	loaded  bool
}

var _ ports.Authenticator = (*SessionManager)(nil)

func NewSessionManager(cfg Config, httpClient *http.Client, repo ports.SessionRepository, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		tr:     newTransport(cfg, httpClient),
		repo:   repo,
		logger: logger,
	}
}

// userPayload is the vendor profile shape, reduced to the fields this
// agent consumes.
type userPayload struct {
	ID                    string   `json:"id"`
	DisplayName           string   `json:"displayName"`
	Status                string   `json:"status"`
	StatusDescription     string   `json:"statusDescription"`
	Location              string   `json:"location"`
	RequiresTwoFactorAuth []string `json:"requiresTwoFactorAuth"`
	Presence              struct {
		World    string `json:"world"`
		Instance string `json:"instance"`
	} `json:"presence"`
}

func (p userPayload) toDomain() domain.User {
	return domain.User{
		ID:                p.ID,
		DisplayName:       p.DisplayName,
		Status:            p.Status,
		StatusDescription: p.StatusDescription,
		Location:          p.Location,
		Presence: domain.Presence{
			World:    p.Presence.World,
			Instance: p.Presence.Instance,
		},
	}
}

// Login fetches the config endpoint to seed a session cookie, then
// probes the profile endpoint with Basic auth. It either completes the
// session (persisting it) or stops at the two-factor step without
// persisting anything.
func (m *SessionManager) Login(ctx context.Context, username string, password string) (domain.LoginResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.fetchConfig(ctx)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to connect to vrchat api: %w", err)
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	headers := map[string]string{
		"Authorization": "Basic " + credentials,
		"Cookie":        session.CookieHeader(),
	}

	resp, raw, err := m.tr.doJSON(ctx, http.MethodGet, "/auth/user", headers, nil)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("login: %w", err)
	}
	session.MergeSetCookies(resp.Header.Values("Set-Cookie"))

	var payload userPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.LoginResult{}, fmt.Errorf("decode login response: %w", err)
	}

	session.UserID = payload.ID
	m.session = &session
	m.loaded = true

	if len(payload.RequiresTwoFactorAuth) > 0 {
		m.logger.Info("login requires second factor", "methods", payload.RequiresTwoFactorAuth)
		return domain.LoginResult{TwoFactorMethods: payload.RequiresTwoFactorAuth}, nil
	}

	if payload.ID == "" {
		return domain.LoginResult{}, errors.New("login response missing user id")
	}

	user := payload.toDomain()
	session.User = &user
	m.session = &session

	if err := m.repo.Save(ctx, session); err != nil {
		return domain.LoginResult{}, fmt.Errorf("persist session: %w", err)
	}

	m.logger.Info("logged in", "userId", payload.ID)
	return domain.LoginResult{User: &user}, nil
}

// VerifyTwoFactor completes a pending login by posting the code to the
// endpoint for the given factor kind, then re-fetches the profile and
// persists the session once it carries a user id.
func (m *SessionManager) VerifyTwoFactor(ctx context.Context, kind domain.TwoFactorKind, code string) (domain.User, error) {
	if !kind.Valid() {
		return domain.User{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedTwoFactorKind, kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.currentLocked(ctx)
	if err != nil || !session.ReadyForAPI() {
		return domain.User{}, domain.ErrNoPendingSession
	}

	path := fmt.Sprintf("/auth/twofactorauth/%s/verify", kind)
	headers := map[string]string{"Cookie": session.CookieHeader()}
	body := map[string]string{"code": code}

	resp, _, err := m.tr.doJSON(ctx, http.MethodPost, path, headers, body)
	if err != nil {
		return domain.User{}, fmt.Errorf("verify two-factor code: %w", err)
	}
	session.MergeSetCookies(resp.Header.Values("Set-Cookie"))
	m.session = &session

	_, raw, err := m.tr.doJSON(ctx, http.MethodGet, "/auth/user", map[string]string{"Cookie": session.CookieHeader()}, nil)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch profile after verification: %w", err)
	}

	var payload userPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.User{}, fmt.Errorf("decode profile: %w", err)
	}
	if payload.ID == "" {
		return domain.User{}, errors.New("profile missing user id after verification")
	}

	user := payload.toDomain()
	session.UserID = payload.ID
	session.User = &user
	m.session = &session

	if err := m.repo.Save(ctx, session); err != nil {
		return domain.User{}, fmt.Errorf("persist session: %w", err)
	}

	m.logger.Info("two-factor verification complete", "userId", payload.ID)
	return user, nil
}

// Logout clears the in-memory session and deletes the persisted file.
// Idempotent.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = nil
	m.loaded = true

	if err := m.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	m.logger.Info("logged out")
	return nil
}

// Status is a pure read of the current session state.
func (m *SessionManager) Status(ctx context.Context) domain.AuthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.currentLocked(ctx)
	if err != nil {
		return domain.AuthStatus{}
	}
	return domain.AuthStatus{
		Authenticated: session.ReadyForAPI(),
		UserID:        session.UserID,
		User:          session.User,
	}
}

// ReadyForAPI reports whether a usable cookie jar exists, used to avoid
// firing requests that would certainly fail.
func (m *SessionManager) ReadyForAPI(ctx context.Context) bool {
	return m.Status(ctx).Authenticated
}

// AuthHeaders builds the standard header set for authenticated API
// calls. Returns domain.ErrNotAuthenticated when no session is usable.
func (m *SessionManager) AuthHeaders(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.currentLocked(ctx)
	if err != nil || !session.ReadyForAPI() {
		return nil, domain.ErrNotAuthenticated
	}
	return map[string]string{
		"Content-Type": "application/json",
		"Cookie":       session.CookieHeader(),
	}, nil
}

// fetchConfig performs the unauthenticated config call and returns a
// fresh session seeded with whatever cookies it set.
func (m *SessionManager) fetchConfig(ctx context.Context) (domain.Session, error) {
	resp, _, err := m.tr.doJSON(ctx, http.MethodGet, "/config", nil, nil)
	if err != nil {
		return domain.Session{}, err
	}

	session := domain.NewSession()
	session.MergeSetCookies(resp.Header.Values("Set-Cookie"))
	return session, nil
}

// currentLocked returns the in-memory session, loading it from the
// repository on first use. Callers must hold m.mu.
func (m *SessionManager) currentLocked(ctx context.Context) (domain.Session, error) {
	if !m.loaded {
		session, err := m.repo.Load(ctx)
		m.loaded = true
		if err == nil {
			m.session = &session
		} else if !errors.Is(err, domain.ErrNoSession) {
			m.logger.Warn("session load failed, treating as logged out", "error", err)
		}
	}
	if m.session == nil {
		return domain.Session{}, domain.ErrNoSession
	}
	return *m.session, nil
}
