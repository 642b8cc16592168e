// Package httpapi exposes the core's command surface to the UI
// collaborator over local HTTP. It is a thin bridge: every route maps
// one-to-one onto an application operation.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vrsleep/vrsleep/internal/application"
	"github.com/vrsleep/vrsleep/internal/domain"
	"github.com/vrsleep/vrsleep/internal/ports"
)

type Server struct {
	auth      ports.Authenticator
	engine    *application.Engine
	messages  *application.MessageService
	whitelist ports.WhitelistRepository
	settings  ports.SettingsRepository
	client    ports.PlatformClient
	logger    *slog.Logger
}

func NewServer(auth ports.Authenticator, engine *application.Engine, messages *application.MessageService, whitelist ports.WhitelistRepository, settings ports.SettingsRepository, client ports.PlatformClient, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		auth:      auth,
		engine:    engine,
		messages:  messages,
		whitelist: whitelist,
		settings:  settings,
		client:    client,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/verify", s.handleVerify)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /auth/status", s.handleAuthStatus)
	mux.HandleFunc("GET /auth/user", s.handleAuthUser)

	mux.HandleFunc("POST /sleep/start", s.handleSleepStart)
	mux.HandleFunc("POST /sleep/stop", s.handleSleepStop)
	mux.HandleFunc("GET /sleep/status", s.handleSleepStatus)

	mux.HandleFunc("GET /whitelist", s.handleWhitelistGet)
	mux.HandleFunc("PUT /whitelist", s.handleWhitelistSet)

	mux.HandleFunc("GET /settings", s.handleSettingsGet)
	mux.HandleFunc("PATCH /settings", s.handleSettingsSet)

	mux.HandleFunc("GET /messages/cooldowns", s.handleCooldowns)
	mux.HandleFunc("GET /messages/{type}", s.handleAllSlots)
	mux.HandleFunc("GET /messages/{type}/{slot}", s.handleGetSlot)
	mux.HandleFunc("PUT /messages/{type}/{slot}", s.handleUpdateSlot)

	mux.HandleFunc("GET /friends", s.handleFriends)

	return mux
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status  string        `json:"status"`
	Methods []string      `json:"methods,omitempty"`
	User    *userResponse `json:"user,omitempty"`
}

type verifyRequest struct {
	Kind string `json:"kind"`
	Code string `json:"code"`
}

type authStatusResponse struct {
	Authenticated bool          `json:"authenticated"`
	UserID        string        `json:"userId"`
	User          *userResponse `json:"user,omitempty"`
}

type userResponse struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Status            string `json:"status"`
	StatusDescription string `json:"statusDescription"`
}

type sleepResponse struct {
	SleepMode bool `json:"sleepMode"`
}

type updateSlotRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		badRequest(w, "username and password required")
		return
	}

	result, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if result.PendingTwoFactor() {
		writeJSON(w, http.StatusOK, loginResponse{Status: "2fa", Methods: result.TwoFactorMethods})
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Status: "ok", User: toUserResponse(result.User)})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Kind == "" || req.Code == "" {
		badRequest(w, "verification kind and code required")
		return
	}

	user, err := s.auth.VerifyTwoFactor(r.Context(), domain.TwoFactorKind(req.Kind), req.Code)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(&user)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	status := s.auth.Status(r.Context())
	writeJSON(w, http.StatusOK, authStatusResponse{
		Authenticated: status.Authenticated,
		UserID:        status.UserID,
		User:          toUserResponse(status.User),
	})
}

func (s *Server) handleAuthUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.client.GetCurrentUser(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(&user)})
}

func (s *Server) handleSleepStart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sleepResponse{SleepMode: s.engine.Start(r.Context())})
}

func (s *Server) handleSleepStop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sleepResponse{SleepMode: s.engine.Stop(r.Context())})
}

func (s *Server) handleSleepStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sleepResponse{SleepMode: s.engine.Awake()})
}

func (s *Server) handleWhitelistGet(w http.ResponseWriter, r *http.Request) {
	list, err := s.whitelist.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleWhitelistSet(w http.ResponseWriter, r *http.Request) {
	var list []string
	if err := json.NewDecoder(r.Body).Decode(&list); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	saved, err := s.whitelist.Set(r.Context(), domain.Whitelist(list))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSettingsSet(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	merged, err := s.settings.Set(r.Context(), patch)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Settings changes take effect on the live status immediately when
	// the engine is awake.
	if s.engine.Awake() {
		s.engine.RefreshStatus(r.Context())
	}
	writeJSON(w, http.StatusOK, merged)
}

func (s *Server) handleCooldowns(w http.ResponseWriter, r *http.Request) {
	cooldowns, err := s.messages.Cooldowns(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cooldowns)
}

func (s *Server) handleAllSlots(w http.ResponseWriter, r *http.Request) {
	t := domain.MessageType(r.PathValue("type"))
	slots, err := s.messages.GetAllSlots(r.Context(), t)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": slots})
}

func (s *Server) handleGetSlot(w http.ResponseWriter, r *http.Request) {
	t, slot, ok := slotRef(w, r)
	if !ok {
		return
	}

	data, err := s.messages.GetSlot(r.Context(), t, slot)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleUpdateSlot(w http.ResponseWriter, r *http.Request) {
	t, slot, ok := slotRef(w, r)
	if !ok {
		return
	}

	var req updateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	update, err := s.messages.UpdateSlot(r.Context(), t, slot, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(update.All) > 0 {
		writeJSON(w, http.StatusOK, map[string]any{"messages": update.All})
		return
	}
	writeJSON(w, http.StatusOK, update.Slot)
}

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.client.GetFriends(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"friends": friends})
}

func slotRef(w http.ResponseWriter, r *http.Request) (domain.MessageType, int, bool) {
	t := domain.MessageType(r.PathValue("type"))
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil {
		badRequest(w, "slot must be an integer")
		return "", 0, false
	}
	return t, slot, true
}

func toUserResponse(user *domain.User) *userResponse {
	if user == nil {
		return nil
	}
	return &userResponse{
		ID:                user.ID,
		DisplayName:       user.DisplayName,
		Status:            user.Status,
		StatusDescription: user.StatusDescription,
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrNoPendingSession):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidMessageType), errors.Is(err, domain.ErrInvalidMessageSlot),
		errors.Is(err, domain.ErrUnsupportedTwoFactorKind):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}
