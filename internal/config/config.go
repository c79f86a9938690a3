// Package config defines the configuration contract and handles loading and
// validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// Canonical environment variable keys.
	KeyAdminID           = "ADMIN_ID"
	KeyMongoURI          = "MONGO_URI"
	KeyMongoDB           = "MONGO_DB"
	KeySessionSecret     = "SESSION_SECRET"
	KeyNotifySecret      = "NOTIFY_SECRET"
	KeyOAuthClientID     = "OAUTH_CLIENT_ID"
	KeyOAuthClientSecret = "OAUTH_CLIENT_SECRET"
	KeyOAuthRedirectURI  = "OAUTH_REDIRECT_URI"
	KeyOAuthAuthorizeURL = "OAUTH_AUTHORIZE_URL"
	KeyOAuthTokenURL     = "OAUTH_TOKEN_URL"
	KeyOAuthIdentityURL  = "OAUTH_IDENTITY_URL"
	KeyAppEnv            = "APP_ENV"
	KeyLogLevel          = "LOG_LEVEL"
	KeyLogFile           = "LOG_FILE"
	KeyHTTPPort          = "HTTP_PORT"
	KeyHealthPort        = "HEALTH_PORT"
	KeyTelegramToken     = "TELEGRAM_TOKEN"
	KeyTelegramAdminChat = "TELEGRAM_ADMIN_CHAT"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Defaults for optional settings.
	DefaultAppEnv     = EnvProduction
	DefaultLogLevel   = "info"
	DefaultHTTPPort   = 3000
	DefaultHealthPort = 8080

	// Default OAuth2 provider endpoints (Discord, scope "identify").
	DefaultOAuthAuthorizeURL = "https://discord.com/oauth2/authorize"
	DefaultOAuthTokenURL     = "https://discord.com/api/oauth2/token"
	DefaultOAuthIdentityURL  = "https://discord.com/api/users/@me"
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the panel must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the panel.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyAdminID,
		Example:     "123456789012345678",
		Required:    true,
		Description: "External identity id of the single panel admin.",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Required:    true,
		Description: "MongoDB connection string for the bot record store.",
	},
	{
		Key:         KeyMongoDB,
		Example:     "license_panel",
		Required:    true,
		Description: "MongoDB database name.",
	},
	{
		Key:         KeySessionSecret,
		Example:     "long-random-string",
		Required:    true,
		Description: "HMAC key protecting session cookie integrity.",
	},
	{
		Key:         KeyNotifySecret,
		Example:     "shared-callback-secret",
		Required:    true,
		Description: "Shared secret sent to bot callback endpoints on stop/restart.",
	},
	{
		Key:         KeyOAuthClientID,
		Example:     "oauth-app-id",
		Required:    true,
		Description: "OAuth2 client id for the operator login flow.",
	},
	{
		Key:         KeyOAuthClientSecret,
		Example:     "oauth-app-secret",
		Required:    true,
		Description: "OAuth2 client secret.",
	},
	{
		Key:         KeyOAuthRedirectURI,
		Example:     "https://panel.example.com/auth/callback",
		Required:    true,
		Description: "Registered OAuth2 redirect URI.",
	},
	{
		Key:         KeyOAuthAuthorizeURL,
		Example:     DefaultOAuthAuthorizeURL,
		Default:     DefaultOAuthAuthorizeURL,
		Description: "Provider authorize endpoint.",
	},
	{
		Key:         KeyOAuthTokenURL,
		Example:     DefaultOAuthTokenURL,
		Default:     DefaultOAuthTokenURL,
		Description: "Provider token exchange endpoint.",
	},
	{
		Key:         KeyOAuthIdentityURL,
		Example:     DefaultOAuthIdentityURL,
		Default:     DefaultOAuthIdentityURL,
		Description: "Provider identity endpoint queried with the bearer token.",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyLogFile,
		Example:     "/var/log/license-panel/panel.log",
		Description: "Optional rotating log file; stdout only when unset.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "API listen port.",
	},
	{
		Key:         KeyHealthPort,
		Example:     strconv.Itoa(DefaultHealthPort),
		Default:     strconv.Itoa(DefaultHealthPort),
		Description: "HTTP health/diagnostics port.",
	},
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Description: "Optional Telegram bot token for operator alerts.",
	},
	{
		Key:         KeyTelegramAdminChat,
		Example:     "123456789",
		Description: "Telegram chat id receiving operator alerts.",
		Notes:       "Alerts are enabled only when both Telegram keys are set.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	AdminID           string
	MongoURI          string
	MongoDB           string
	SessionSecret     string
	NotifySecret      string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRedirectURI  string
	OAuthAuthorizeURL string
	OAuthTokenURL     string
	OAuthIdentityURL  string
	AppEnv            string
	LogLevel          string
	LogFile           string
	HTTPPort          int
	HealthPort        int
	TelegramToken     string
	TelegramAdminChat int64
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:            firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		AdminID:           strings.TrimSpace(os.Getenv(KeyAdminID)),
		MongoURI:          strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:           strings.TrimSpace(os.Getenv(KeyMongoDB)),
		SessionSecret:     strings.TrimSpace(os.Getenv(KeySessionSecret)),
		NotifySecret:      strings.TrimSpace(os.Getenv(KeyNotifySecret)),
		OAuthClientID:     strings.TrimSpace(os.Getenv(KeyOAuthClientID)),
		OAuthClientSecret: strings.TrimSpace(os.Getenv(KeyOAuthClientSecret)),
		OAuthRedirectURI:  strings.TrimSpace(os.Getenv(KeyOAuthRedirectURI)),
		OAuthAuthorizeURL: firstNonEmpty(strings.TrimSpace(os.Getenv(KeyOAuthAuthorizeURL)), DefaultOAuthAuthorizeURL),
		OAuthTokenURL:     firstNonEmpty(strings.TrimSpace(os.Getenv(KeyOAuthTokenURL)), DefaultOAuthTokenURL),
		OAuthIdentityURL:  firstNonEmpty(strings.TrimSpace(os.Getenv(KeyOAuthIdentityURL)), DefaultOAuthIdentityURL),
		LogLevel:          firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		LogFile:           strings.TrimSpace(os.Getenv(KeyLogFile)),
		HTTPPort:          DefaultHTTPPort,
		HealthPort:        DefaultHealthPort,
		TelegramToken:     strings.TrimSpace(os.Getenv(KeyTelegramToken)),
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)
	for _, spec := range Contract {
		if !spec.Required {
			continue
		}
		if strings.TrimSpace(os.Getenv(spec.Key)) == "" {
			missing = append(missing, spec.Key)
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	if !strings.HasPrefix(cfg.MongoURI, "mongodb://") && !strings.HasPrefix(cfg.MongoURI, "mongodb+srv://") {
		return Config{}, fmt.Errorf("invalid %s: must start with mongodb:// or mongodb+srv://", KeyMongoURI)
	}

	if cfg.HTTPPort, err = resolvePort(KeyHTTPPort, DefaultHTTPPort); err != nil {
		return Config{}, err
	}
	if cfg.HealthPort, err = resolvePort(KeyHealthPort, DefaultHealthPort); err != nil {
		return Config{}, err
	}

	chatRaw := strings.TrimSpace(os.Getenv(KeyTelegramAdminChat))
	if chatRaw != "" {
		chatID, parseErr := strconv.ParseInt(chatRaw, 10, 64)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyTelegramAdminChat, parseErr)
		}
		cfg.TelegramAdminChat = chatID
	}

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// AlertsEnabled reports whether the optional Telegram operator alert channel is
// fully configured.
func (c Config) AlertsEnabled() bool {
	return c.TelegramToken != "" && c.TelegramAdminChat != 0
}

// FormatRedacted renders a startup summary with secrets masked, suitable for
// the -config-only check and boot logs.
func FormatRedacted(c Config) string {
	lines := []string{
		"admin_id: " + c.AdminID,
		"mongo_uri: " + redactMongoURI(c.MongoURI),
		"mongo_db: " + c.MongoDB,
		"session_secret: " + maskSecret(c.SessionSecret),
		"notify_secret: " + maskSecret(c.NotifySecret),
		"oauth_client_id: " + c.OAuthClientID,
		"oauth_client_secret: " + maskSecret(c.OAuthClientSecret),
		"oauth_redirect_uri: " + c.OAuthRedirectURI,
		"app_env: " + c.AppEnv,
		"log_level: " + c.LogLevel,
		"http_port: " + strconv.Itoa(c.HTTPPort),
		"health_port: " + strconv.Itoa(c.HealthPort),
	}

	if c.LogFile != "" {
		lines = append(lines, "log_file: "+c.LogFile)
	}
	if c.AlertsEnabled() {
		lines = append(lines,
			"telegram_token: "+maskSecret(c.TelegramToken),
			"telegram_admin_chat: "+strconv.FormatInt(c.TelegramAdminChat, 10),
		)
	}

	return strings.Join(lines, "\n")
}

func resolvePort(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if port <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return port, nil
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "...redacted"
	}
	return value[:4] + "...redacted"
}

func redactMongoURI(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "...redacted"
	}

	parsed.User = nil
	return parsed.String()
}
