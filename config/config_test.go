package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `
[auth]
jwt_secret = "secret"
username = "alice"
password_hash = "$2a$10$abcdefghijklmnopqrstuv"
address = "alice@example.com"

[mailapi]
base_url = "https://mail.example.com"
api_key = "key"

[pow]
base_url = "https://pow.example.com"
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port=%d, want default 3000", cfg.Server.Port)
	}
	if cfg.Verification.WaitSeconds != 30 {
		t.Errorf("wait=%d, want default 30", cfg.Verification.WaitSeconds)
	}
	if cfg.Pow.MinDifficultyBits != 18 {
		t.Errorf("bits=%d, want default 18", cfg.Pow.MinDifficultyBits)
	}
	if cfg.Attachments.MaxFileBytes != 25<<20 {
		t.Errorf("max bytes=%d, want default 25MiB", cfg.Attachments.MaxFileBytes)
	}
	if cfg.Sanitizer.DefaultTheme != "light" {
		t.Errorf("theme=%q, want light", cfg.Sanitizer.DefaultTheme)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig+`
[server]
port = 8080
log_level = "debug"

[verification]
wait_seconds = 45
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.LogLevel != "debug" {
		t.Errorf("server overrides lost: %+v", cfg.Server)
	}
	if cfg.Verification.WaitSeconds != 45 {
		t.Errorf("wait=%d, want 45", cfg.Verification.WaitSeconds)
	}
}

func TestLoadConfig_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"no jwt secret", strings.Replace(validConfig, `jwt_secret = "secret"`, "", 1), "jwt_secret"},
		{"no credentials", strings.Replace(validConfig, `username = "alice"`, "", 1), "username"},
		{"no mail api", strings.Replace(validConfig, `base_url = "https://mail.example.com"`, "", 1), "mailapi"},
		{"no pow service", strings.Replace(validConfig, `base_url = "https://pow.example.com"`, "", 1), "pow"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadConfig_IMAPRequiresServer(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, validConfig+`
[imap]
enabled = true
`))
	if err == nil || !strings.Contains(err.Error(), "imap.server") {
		t.Errorf("got %v, want imap.server error", err)
	}
}

func TestLoadConfig_FileMissing(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
