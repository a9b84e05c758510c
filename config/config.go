package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	Username     string `toml:"username"`
	PasswordHash string `toml:"password_hash"` // bcrypt hash
	Address      string `toml:"address"`       // sender address for outbound mail
	DisplayName  string `toml:"display_name"`
}

type MailAPIConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ImageProxyURL  string `toml:"image_proxy_url"`
}

type IMAPConfig struct {
	Enabled  bool   `toml:"enabled"`
	Server   string `toml:"server"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Folder   string `toml:"folder"`
}

type VerificationConfig struct {
	WaitSeconds int `toml:"wait_seconds"`
}

type PowConfig struct {
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key"`
	MinDifficultyBits int    `toml:"min_difficulty_bits"`
}

type AttachmentsConfig struct {
	DBPath       string `toml:"db_path"`
	MaxFileBytes int64  `toml:"max_file_bytes"`
}

type SanitizerConfig struct {
	DefaultTheme string `toml:"default_theme"` // "light" or "dark"
}

type Config struct {
	Server       ServerConfig       `toml:"server"`
	Auth         AuthConfig         `toml:"auth"`
	MailAPI      MailAPIConfig      `toml:"mailapi"`
	IMAP         IMAPConfig         `toml:"imap"`
	Verification VerificationConfig `toml:"verification"`
	Pow          PowConfig          `toml:"pow"`
	Attachments  AttachmentsConfig  `toml:"attachments"`
	Sanitizer    SanitizerConfig    `toml:"sanitizer"`
}

func LoadConfig(filepath string) (*Config, error) {
	var config Config

	// Set default values
	config.Server.Port = 3000
	config.Server.LogLevel = "info"
	config.MailAPI.TimeoutSeconds = 30
	config.IMAP.Port = 993
	config.IMAP.Folder = "INBOX"
	config.Verification.WaitSeconds = 30
	config.Pow.MinDifficultyBits = 18
	config.Attachments.DBPath = "./data/staged.db"
	config.Attachments.MaxFileBytes = 25 << 20
	config.Sanitizer.DefaultTheme = "light"

	// Load config file
	_, err := toml.DecodeFile(filepath, &config)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the fields the service cannot run without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.Username == "" || c.Auth.PasswordHash == "" {
		return fmt.Errorf("auth.username and auth.password_hash are required")
	}
	if c.MailAPI.BaseURL == "" {
		return fmt.Errorf("mailapi.base_url is required")
	}
	if c.Pow.BaseURL == "" {
		return fmt.Errorf("pow.base_url is required")
	}
	if c.IMAP.Enabled && c.IMAP.Server == "" {
		return fmt.Errorf("imap.server is required when imap.enabled is set")
	}
	if c.Verification.WaitSeconds <= 0 {
		return fmt.Errorf("verification.wait_seconds must be positive")
	}
	return nil
}
