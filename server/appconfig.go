package server

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// AppConfig is the deployment configuration loaded from files and environment.
type AppConfig struct {
	Env      string         `koanf:"env"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Tokens   TokenConfig    `koanf:"tokens"`
	Lockout  LockoutConfig  `koanf:"lockout"`
	Refresh  RefreshConfig  `koanf:"refresh"`
	Audit    AuditConfig    `koanf:"audit"`
}

type ServerConfig struct {
	Addr     string `koanf:"addr"`
	Issuer   string `koanf:"issuer"`
	Audience string `koanf:"audience"`
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

type TokenConfig struct {
	SigningKey       string        `koanf:"signing_key"`
	SigningKeyID     string        `koanf:"signing_key_id"`
	SigningMethod    string        `koanf:"signing_method"`
	AccessTokenTTL   time.Duration `koanf:"access_ttl"`
	IdentityTokenTTL time.Duration `koanf:"identity_ttl"`
	RefreshTokenTTL  time.Duration `koanf:"refresh_ttl"`
}

type LockoutConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	Window      time.Duration `koanf:"window"`
}

type RefreshConfig struct {
	// Store is "buntdb" (single node) or "valkey" (shared).
	Store      string `koanf:"store"`
	BuntPath   string `koanf:"bunt_path"`
	ValkeyAddr string `koanf:"valkey_addr"`
	Rotate     *bool  `koanf:"rotate"`
}

type AuditConfig struct {
	Buffer int `koanf:"buffer"`
}

var (
	cfgOnce sync.Once
	cfgInst *AppConfig
)

// GetAppConfig loads and returns the singleton AppConfig. Loading order:
// 1) config/config.yaml (optional)
// 2) config/config.<APP_ENV>.yaml (optional), APP_ENV defaults to "local"
// 3) Environment variables with prefix GUARDIAO_ mapped using __ as nested
// separator, e.g. GUARDIAO_DATABASE__DSN, GUARDIAO_TOKENS__SIGNING_KEY.
func GetAppConfig() *AppConfig {
	cfgOnce.Do(func() {
		cfgInst = loadAppConfig()
	})
	return cfgInst
}

func loadAppConfig() *AppConfig {
	k := koanf.New(".")
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}
	// File loading is opt-in to keep tests isolated.
	loadFiles := strings.EqualFold(os.Getenv("APP_CONFIG_FILES"), "1") || strings.EqualFold(os.Getenv("APP_CONFIG_FILES"), "true")
	if loadFiles {
		base := filepath.Join(configDir, "config.yaml")
		if _, err := os.Stat(base); err == nil {
			if err := k.Load(file.Provider(base), yaml.Parser()); err != nil {
				log.Printf("config: failed loading base: %v", err)
			}
		}
	}
	envName := os.Getenv("APP_ENV")
	if envName == "" {
		envName = "local"
	}
	if loadFiles {
		envFile := filepath.Join(configDir, "config."+envName+".yaml")
		if _, err := os.Stat(envFile); err == nil {
			if err := k.Load(file.Provider(envFile), yaml.Parser()); err != nil {
				log.Printf("config: failed loading env file: %v", err)
			}
		}
	}
	// GUARDIAO_SERVER__ADDR -> server.addr
	_ = k.Load(env.Provider("GUARDIAO_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "GUARDIAO_")), "__", ".")
	}), nil)

	var c AppConfig
	if err := k.Unmarshal("", &c); err != nil {
		log.Printf("config: unmarshal error: %v", err)
	}
	if c.Env == "" {
		c.Env = envName
	}
	return &c
}

// DSN returns the effective database DSN (config first, env fallback).
func (c *AppConfig) DSN() string {
	if c != nil && c.Database.DSN != "" {
		return strings.TrimSpace(c.Database.DSN)
	}
	dsn := strings.TrimSpace(os.Getenv("USER_DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("MIGRATE_DSN"))
	}
	return dsn
}

// ServerConfig materializes the server Config, applying defaults for every
// field the deployment left unset.
func (c *AppConfig) ServerConfig() *Config {
	cfg := NewConfig()
	if c == nil {
		return cfg
	}
	if c.Server.Issuer != "" {
		cfg.Issuer = c.Server.Issuer
	}
	if c.Server.Audience != "" {
		cfg.Audience = c.Server.Audience
	}
	if c.Tokens.SigningKey != "" {
		cfg.SigningKey = []byte(c.Tokens.SigningKey)
	}
	if c.Tokens.SigningKeyID != "" {
		cfg.SigningKeyID = c.Tokens.SigningKeyID
	}
	if c.Tokens.SigningMethod != "" {
		cfg.SigningMethod = c.Tokens.SigningMethod
	}
	if c.Tokens.AccessTokenTTL > 0 {
		cfg.AccessTokenTTL = c.Tokens.AccessTokenTTL
	}
	if c.Tokens.IdentityTokenTTL > 0 {
		cfg.IdentityTokenTTL = c.Tokens.IdentityTokenTTL
	}
	if c.Tokens.RefreshTokenTTL > 0 {
		cfg.RefreshTokenTTL = c.Tokens.RefreshTokenTTL
	}
	if c.Lockout.MaxAttempts > 0 {
		cfg.MaxFailedAttempts = c.Lockout.MaxAttempts
	}
	if c.Lockout.Window > 0 {
		cfg.LockoutWindow = c.Lockout.Window
	}
	if c.Refresh.Rotate != nil {
		cfg.RotateRefresh = *c.Refresh.Rotate
	}
	if c.Audit.Buffer > 0 {
		cfg.AuditBuffer = c.Audit.Buffer
	}
	return cfg
}

// Addr returns the listen address, defaulting to :9096.
func (c *AppConfig) Addr() string {
	if c != nil && c.Server.Addr != "" {
		return c.Server.Addr
	}
	return ":9096"
}
