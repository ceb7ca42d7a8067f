package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration: defaults, then the YAML file,
// then environment overrides.
type Config struct {
	ServiceID string
	LogLevel  slog.Level

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	MaxDBConns  int32
	RedisURL    string

	KafkaBrokers               []string
	KafkaTopicDepositConfirmed string
	KafkaTopicClaimRedeemed    string

	JWTPublicKeyPEM   string
	JWTKeyID          string
	AllowEphemeralJWT bool

	PublicBaseURL        string
	ScanLockoutThreshold int
	ScanLockoutWindow    time.Duration
	CredentialAttempts   int
	NotifyTimeout        time.Duration

	VendorSecretCacheSize int
	VendorSecretCacheTTL  time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors configs/default.yaml.
type configFile struct {
	Service struct {
		ID            string `yaml:"id"`
		HTTPPort      int    `yaml:"http_port"`
		GRPCPort      int    `yaml:"grpc_port"`
		PublicBaseURL string `yaml:"public_base_url"`
		LogLevel      string `yaml:"log_level"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	Topics struct {
		DepositConfirmed string `yaml:"deposit_confirmed"`
		ClaimRedeemed    string `yaml:"claim_redeemed"`
	} `yaml:"topics"`
	Redemption struct {
		ScanLockoutThreshold int `yaml:"scan_lockout_threshold"`
		ScanLockoutMinutes   int `yaml:"scan_lockout_minutes"`
		CredentialAttempts   int `yaml:"credential_attempts"`
	} `yaml:"redemption"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                  "claim-redemption-service",
		LogLevel:                   slog.LevelInfo,
		HTTPPort:                   8080,
		GRPCPort:                   9090,
		MaxDBConns:                 20,
		KafkaTopicDepositConfirmed: "claims.deposit-confirmed.v1",
		KafkaTopicClaimRedeemed:    "claims.redeemed.v1",
		JWTKeyID:                   "claims-key-1",
		AllowEphemeralJWT:          false,
		PublicBaseURL:              "http://localhost:8080",
		ScanLockoutThreshold:       10,
		ScanLockoutWindow:          15 * time.Minute,
		CredentialAttempts:         3,
		NotifyTimeout:              10 * time.Second,
		VendorSecretCacheSize:      1024,
		VendorSecretCacheTTL:       time.Minute,
		OutboxPollInterval:         2 * time.Second,
		OutboxBatchSize:            100,
		OutboxClaimTTL:             30 * time.Second,
		OutboxMaxRetries:           5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		applyFile(&cfg, f)
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopicDepositConfirmed = envOrDefault("KAFKA_TOPIC_DEPOSIT_CONFIRMED", cfg.KafkaTopicDepositConfirmed)
	cfg.KafkaTopicClaimRedeemed = envOrDefault("KAFKA_TOPIC_CLAIM_REDEEMED", cfg.KafkaTopicClaimRedeemed)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.JWTKeyID = envOrDefault("JWT_KEY_ID", cfg.JWTKeyID)
	cfg.AllowEphemeralJWT = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralJWT)
	cfg.PublicBaseURL = strings.TrimRight(envOrDefault("PUBLIC_BASE_URL", cfg.PublicBaseURL), "/")
	cfg.LogLevel = parseLevel(os.Getenv("LOG_LEVEL"), cfg.LogLevel)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.ScanLockoutThreshold = envInt("SCAN_LOCKOUT_THRESHOLD", cfg.ScanLockoutThreshold)
	cfg.ScanLockoutWindow = time.Duration(envInt("SCAN_LOCKOUT_MINUTES", int(cfg.ScanLockoutWindow.Minutes()))) * time.Minute
	cfg.CredentialAttempts = envInt("CREDENTIAL_ATTEMPTS", cfg.CredentialAttempts)
	cfg.NotifyTimeout = time.Duration(envInt("NOTIFY_TIMEOUT_SECONDS", int(cfg.NotifyTimeout.Seconds()))) * time.Second
	cfg.VendorSecretCacheSize = envInt("VENDOR_SECRET_CACHE_SIZE", cfg.VendorSecretCacheSize)
	cfg.VendorSecretCacheTTL = time.Duration(envInt("VENDOR_SECRET_CACHE_SECONDS", int(cfg.VendorSecretCacheTTL.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.JWTPublicKeyPEM == "" && !cfg.AllowEphemeralJWT {
		return Config{}, fmt.Errorf("missing JWT_PUBLIC_KEY_PEM")
	}
	if cfg.ScanLockoutThreshold <= 0 {
		return Config{}, fmt.Errorf("SCAN_LOCKOUT_THRESHOLD must be positive")
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Service.PublicBaseURL != "" {
		cfg.PublicBaseURL = f.Service.PublicBaseURL
	}
	cfg.LogLevel = parseLevel(f.Service.LogLevel, cfg.LogLevel)
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
	}
	if f.Topics.DepositConfirmed != "" {
		cfg.KafkaTopicDepositConfirmed = f.Topics.DepositConfirmed
	}
	if f.Topics.ClaimRedeemed != "" {
		cfg.KafkaTopicClaimRedeemed = f.Topics.ClaimRedeemed
	}
	if f.Redemption.ScanLockoutThreshold > 0 {
		cfg.ScanLockoutThreshold = f.Redemption.ScanLockoutThreshold
	}
	if f.Redemption.ScanLockoutMinutes > 0 {
		cfg.ScanLockoutWindow = time.Duration(f.Redemption.ScanLockoutMinutes) * time.Minute
	}
	if f.Redemption.CredentialAttempts > 0 {
		cfg.CredentialAttempts = f.Redemption.CredentialAttempts
	}
}

func parseLevel(raw string, fallback slog.Level) slog.Level {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return fallback
	}
	return level
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		switch strings.ToLower(raw) {
		case "yes":
			return true
		case "no":
			return false
		}
		return fallback
	}
	return v
}

// envCSV parses comma-separated values and drops empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
