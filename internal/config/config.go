// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the SQLite ledger path, chat-provider credentials, monitor polling
// policy, short-link policy, and observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// YouTubeConfig holds the OAuth client used to read and write live chat.
type YouTubeConfig struct {
	ClientID     string // YOUTUBE_CLIENT_ID
	ClientSecret string // YOUTUBE_CLIENT_SECRET
	RedirectURI  string // YOUTUBE_REDIRECT_URI
	RefreshToken string // YOUTUBE_REFRESH_TOKEN
}

// MonitorConfig controls live chat polling.
type MonitorConfig struct {
	PollInterval  time.Duration // MONITOR_POLL_INTERVAL
	MaxRetries    int           // MONITOR_MAX_RETRIES (transient errors per session)
	RetryBackoff  time.Duration // MONITOR_RETRY_BACKOFF (base, doubled per attempt)
	ProviderRPS   float64       // PROVIDER_RPS shared across all sessions
	ProviderBurst int           // PROVIDER_BURST
}

// LinkConfig controls short-link generation.
type LinkConfig struct {
	CodeLength      int           // LINK_CODE_LENGTH
	CodeAttempts    int           // LINK_CODE_ATTEMPTS (collision retries)
	TTL             time.Duration // LINK_TTL; 0 disables expiry
	FrontendBaseURL string        // FRONTEND_BASE_URL
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test
	ShutdownTimeout   time.Duration

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	SwaggerEnabled bool
	DebugEndpoints bool
	APIBasePath    string

	// Storage
	DBPath string

	// Chat provider: "youtube" or "memory" (local development)
	ChatProvider string
	YouTube      YouTubeConfig
	Monitor      MonitorConfig

	// Superchat formatting / ledger
	Currency           string        // SUPERCHAT_CURRENCY, shown in the chat line
	MaxMessageRunes    int           // SUPERCHAT_MAX_MESSAGE_RUNES
	LedgerWriteRetries int           // LEDGER_WRITE_RETRIES
	LedgerFlushEvery   time.Duration // LEDGER_FLUSH_INTERVAL

	Links LinkConfig

	// Event stream
	SSEKeepAlive    time.Duration // SSE_KEEPALIVE
	SSEClientBuffer int           // SSE_CLIENT_BUFFER

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration

	// Observability
	OTEL OTELConfig
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "3001"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 15*time.Second),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		DebugEndpoints: getbool("DEBUG_ENDPOINTS", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/")),

		DBPath: getenv("DB_PATH", "superchat.db"),

		ChatProvider: strings.ToLower(getenv("CHAT_PROVIDER", "youtube")),
		YouTube: YouTubeConfig{
			ClientID:     getenv("YOUTUBE_CLIENT_ID", ""),
			ClientSecret: getenv("YOUTUBE_CLIENT_SECRET", ""),
			RedirectURI:  getenv("YOUTUBE_REDIRECT_URI", ""),
			RefreshToken: getenv("YOUTUBE_REFRESH_TOKEN", ""),
		},
		Monitor: MonitorConfig{
			PollInterval:  getdur("MONITOR_POLL_INTERVAL", 5*time.Second),
			MaxRetries:    getint("MONITOR_MAX_RETRIES", 5),
			RetryBackoff:  getdur("MONITOR_RETRY_BACKOFF", time.Second),
			ProviderRPS:   getfloat("PROVIDER_RPS", 5.0),
			ProviderBurst: getint("PROVIDER_BURST", 10),
		},

		Currency:           strings.ToUpper(getenv("SUPERCHAT_CURRENCY", "ETH")),
		MaxMessageRunes:    getint("SUPERCHAT_MAX_MESSAGE_RUNES", 200),
		LedgerWriteRetries: getint("LEDGER_WRITE_RETRIES", 3),
		LedgerFlushEvery:   getdur("LEDGER_FLUSH_INTERVAL", 10*time.Second),

		Links: LinkConfig{
			CodeLength:      getint("LINK_CODE_LENGTH", 8),
			CodeAttempts:    getint("LINK_CODE_ATTEMPTS", 5),
			TTL:             getdur("LINK_TTL", 0),
			FrontendBaseURL: strings.TrimRight(getenv("FRONTEND_BASE_URL", "http://localhost:5173"), "/"),
		},

		SSEKeepAlive:    getdur("SSE_KEEPALIVE", 15*time.Second),
		SSEClientBuffer: getint("SSE_CLIENT_BUFFER", 16),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "superchat-bridge"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting, if any.
func (cfg Config) Validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	switch cfg.ChatProvider {
	case "youtube":
		if cfg.YouTube.ClientID == "" || cfg.YouTube.ClientSecret == "" || cfg.YouTube.RefreshToken == "" {
			return errors.New("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN are required when CHAT_PROVIDER=youtube")
		}
	case "memory":
	default:
		return errors.New("CHAT_PROVIDER must be one of: youtube, memory")
	}
	if cfg.Monitor.PollInterval <= 0 {
		return errors.New("MONITOR_POLL_INTERVAL must be > 0")
	}
	if cfg.Monitor.MaxRetries < 0 {
		return errors.New("MONITOR_MAX_RETRIES must be >= 0")
	}
	if cfg.Monitor.RetryBackoff < 0 {
		return errors.New("MONITOR_RETRY_BACKOFF must be >= 0")
	}
	if cfg.Monitor.ProviderRPS <= 0 {
		return errors.New("PROVIDER_RPS must be > 0")
	}
	if cfg.Monitor.ProviderBurst < 1 {
		return errors.New("PROVIDER_BURST must be >= 1")
	}
	if cfg.Currency == "" || len(cfg.Currency) > 8 {
		return errors.New("SUPERCHAT_CURRENCY must be 1-8 characters")
	}
	if cfg.MaxMessageRunes < 32 {
		return errors.New("SUPERCHAT_MAX_MESSAGE_RUNES must be >= 32")
	}
	if cfg.LedgerWriteRetries < 0 {
		return errors.New("LEDGER_WRITE_RETRIES must be >= 0")
	}
	if cfg.LedgerFlushEvery <= 0 {
		return errors.New("LEDGER_FLUSH_INTERVAL must be > 0")
	}
	if cfg.Links.CodeLength < 6 || cfg.Links.CodeLength > 32 {
		return errors.New("LINK_CODE_LENGTH must be between 6 and 32")
	}
	if cfg.Links.CodeAttempts < 1 {
		return errors.New("LINK_CODE_ATTEMPTS must be >= 1")
	}
	if cfg.Links.TTL < 0 {
		return errors.New("LINK_TTL must be >= 0")
	}
	if cfg.SSEKeepAlive <= 0 {
		return errors.New("SSE_KEEPALIVE must be > 0")
	}
	if cfg.SSEClientBuffer < 1 {
		return errors.New("SSE_CLIENT_BUFFER must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
