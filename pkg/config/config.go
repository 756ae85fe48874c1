package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath     = "config.yaml"
	defaultSessionLength  = 3 * time.Hour
	defaultUserID         = "kaltura-uploader"
	defaultSecretName     = "kaltura-admin-secret"
	defaultLicense        = "allrightsreserved"
	defaultUploadLabel    = "Attachment"
	defaultMaxBytes       = 2 << 30
	defaultServerAddr     = ":8080"
	defaultCacheDir       = "./.cache"
	defaultRequestTimeout = 10 * time.Minute
	defaultMaxRetries     = 3
	defaultInitialDelay   = 500 * time.Millisecond
	defaultMaxDelay       = 5 * time.Second
)

type Config struct {
	ServiceURL   string
	PartnerID    int
	AdminSecret  string
	UserID       string
	PlayerUIConf int
	GCPProject   string
	GCSBucket    string

	Kaltura    KalturaConfig    `yaml:"kaltura"`
	Repository RepositoryConfig `yaml:"repository"`
	Server     ServerConfig     `yaml:"server"`
	Retry      RetryConfig      `yaml:"retry"`
	Storage    StorageConfig    `yaml:"storage"`
}

type KalturaConfig struct {
	ServiceURL     string        `yaml:"service_url"`
	PartnerID      int           `yaml:"partner_id"`
	PlayerUIConf   int           `yaml:"player_uiconf"`
	UserID         string        `yaml:"user_id"`
	SecretName     string        `yaml:"secret_name"`
	SessionLength  time.Duration `yaml:"session_length"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	KeepOrphans    bool          `yaml:"keep_orphans"`
}

type RepositoryConfig struct {
	DefaultLicense string `yaml:"default_license"`
	UploadLabel    string `yaml:"upload_label"`
	MaxBytes       int64  `yaml:"max_bytes"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

type StorageConfig struct {
	CacheDir string `yaml:"cache_dir"`
}

func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		ServiceURL:  os.Getenv("KALTURA_SERVICE_URL"),
		AdminSecret: os.Getenv("KALTURA_ADMIN_SECRET"),
		UserID:      os.Getenv("KALTURA_USER_ID"),
		GCPProject:  os.Getenv("GOOGLE_CLOUD_PROJECT"),
		GCSBucket:   os.Getenv("GCS_BUCKET"),
	}

	var err error
	if cfg.PartnerID, err = envInt("KALTURA_PARTNER_ID"); err != nil {
		return nil, err
	}
	if cfg.PlayerUIConf, err = envInt("KALTURA_PLAYER_UICONF"); err != nil {
		return nil, err
	}

	if err := loadYAMLConfig(cfg, defaultConfigPath); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if cfg.AdminSecret == "" && cfg.GCPProject != "" {
		secret, err := accessSecret(ctx, cfg.GCPProject, cfg.Kaltura.SecretName)
		if err != nil {
			slog.Warn("Failed to read admin secret from Secret Manager", "secret", cfg.Kaltura.SecretName, "error", err)
		} else {
			cfg.AdminSecret = secret
		}
	}

	return cfg, nil
}

// Validate reports the settings a remote upload cannot do without.
func (c *Config) Validate() error {
	var missing []string
	if c.ServiceURL == "" {
		missing = append(missing, "KALTURA_SERVICE_URL")
	}
	if c.PartnerID == 0 {
		missing = append(missing, "KALTURA_PARTNER_ID")
	}
	if c.AdminSecret == "" {
		missing = append(missing, "KALTURA_ADMIN_SECRET")
	}
	if c.PlayerUIConf == 0 {
		missing = append(missing, "KALTURA_PLAYER_UICONF")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func loadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("No config.yaml found, using environment and defaults")
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

func applyDefaults(cfg *Config) {
	applyKalturaDefaults(cfg)
	applyRepositoryDefaults(cfg)
	applyServerDefaults(cfg)
	applyRetryDefaults(cfg)
	applyStorageDefaults(cfg)
}

// Environment values win over config.yaml for connection settings.
func applyKalturaDefaults(cfg *Config) {
	if cfg.ServiceURL == "" {
		cfg.ServiceURL = cfg.Kaltura.ServiceURL
	}
	if cfg.PartnerID == 0 {
		cfg.PartnerID = cfg.Kaltura.PartnerID
	}
	if cfg.PlayerUIConf == 0 {
		cfg.PlayerUIConf = cfg.Kaltura.PlayerUIConf
	}
	if cfg.UserID == "" {
		cfg.UserID = cfg.Kaltura.UserID
	}
	if cfg.UserID == "" {
		cfg.UserID = defaultUserID
	}
	if cfg.Kaltura.SecretName == "" {
		cfg.Kaltura.SecretName = defaultSecretName
	}
	if cfg.Kaltura.SessionLength == 0 {
		cfg.Kaltura.SessionLength = defaultSessionLength
	}
	if cfg.Kaltura.RequestTimeout == 0 {
		cfg.Kaltura.RequestTimeout = defaultRequestTimeout
	}
}

func applyRepositoryDefaults(cfg *Config) {
	if cfg.Repository.DefaultLicense == "" {
		cfg.Repository.DefaultLicense = defaultLicense
	}
	if cfg.Repository.UploadLabel == "" {
		cfg.Repository.UploadLabel = defaultUploadLabel
	}
	if cfg.Repository.MaxBytes == 0 {
		cfg.Repository.MaxBytes = defaultMaxBytes
	}
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
}

func applyRetryDefaults(cfg *Config) {
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = defaultMaxRetries
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = defaultInitialDelay
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = defaultMaxDelay
	}
}

func applyStorageDefaults(cfg *Config) {
	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = defaultCacheDir
	}
}

func accessSecret(ctx context.Context, project, name string) (string, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create secret manager client: %w", err)
	}
	defer func() { _ = client.Close() }()

	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, name),
	})
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}

	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}

func envInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
