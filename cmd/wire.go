package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/vrsleep/vrsleep/internal/adapters/secrets"
	"github.com/vrsleep/vrsleep/internal/adapters/store/jsonfile"
	sessionstore "github.com/vrsleep/vrsleep/internal/adapters/store/session"
	"github.com/vrsleep/vrsleep/internal/adapters/vrchat"
	"github.com/vrsleep/vrsleep/internal/application"
	"github.com/vrsleep/vrsleep/internal/ports"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".vrsleep"

	pollIntervalKey = "poll.interval_ms"
	baseURLKey      = "api.base_url"
	userAgentKey    = "api.user_agent"
	apiKeyKey       = "api.key"
	listenAddrKey   = "http.listen"
	logLevelKey     = "log.level"

	defaultListenAddr = "127.0.0.1:8425"
)

type app struct {
	dataDir    string
	listenAddr string

	logger      *slog.Logger
	secretStore ports.SecretStore
	auth        ports.Authenticator
	client      ports.PlatformClient
	whitelist   ports.WhitelistRepository
	settings    *jsonfile.SettingsStore
	slots       ports.MessageSlotRepository
	engine      *application.Engine
	messages    *application.MessageService
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	dataDir := filepath.Join(homeDir, configDir)

	cfg := viper.New()
	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(dataDir)
	cfg.SetDefault(pollIntervalKey, int(application.DefaultPollInterval/time.Millisecond))
	cfg.SetDefault(baseURLKey, vrchat.DefaultBaseURL)
	cfg.SetDefault(userAgentKey, vrchat.DefaultUserAgent)
	cfg.SetDefault(listenAddrKey, defaultListenAddr)
	cfg.SetDefault(logLevelKey, "info")

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	logger := newLogger(cfg.GetString(logLevelKey))

	secretStore, err := secrets.NewDefaultChain(filepath.Join(dataDir, "secrets"))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	vrcConfig := vrchat.Config{
		BaseURL:   envOrDefault("VRC_BASE_URL", cfg.GetString(baseURLKey)),
		UserAgent: envOrDefault("VRC_USER_AGENT", cfg.GetString(userAgentKey)),
		APIKey:    envOrDefault("VRC_API_KEY", cfg.GetString(apiKeyKey)),
	}

	sessionRepo := sessionstore.NewStore(dataDir, secretStore)
	auth := vrchat.NewSessionManager(vrcConfig, http.DefaultClient, sessionRepo, logger)
	client := vrchat.NewClient(vrcConfig, http.DefaultClient, auth)

	whitelist := jsonfile.NewWhitelistStore(dataDir)
	settings := jsonfile.NewSettingsStore(dataDir)
	slots := jsonfile.NewSlotStore(dataDir)

	engine := application.NewEngine(client, auth, whitelist, settings, logger, application.EngineConfig{
		PollInterval: pollInterval(cfg),
	})
	messages := application.NewMessageService(client, auth, slots, ports.SystemClock{})

	return &app{
		dataDir:     dataDir,
		listenAddr:  envOrDefault("VRSLEEP_LISTEN", cfg.GetString(listenAddrKey)),
		logger:      logger,
		secretStore: secretStore,
		auth:        auth,
		client:      client,
		whitelist:   whitelist,
		settings:    settings,
		slots:       slots,
		engine:      engine,
		messages:    messages,
	}, nil
}

func pollInterval(cfg *viper.Viper) time.Duration {
	millis := cfg.GetInt(pollIntervalKey)
	if raw := os.Getenv("VRSLEEP_POLL_MS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			millis = parsed
		}
	}
	return time.Duration(millis) * time.Millisecond
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
