package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Chat.Mode != ModeRouter {
		t.Errorf("Expected router mode, got %q", cfg.Chat.Mode)
	}
	if cfg.Completion.Timeout != 30*time.Second {
		t.Errorf("Expected 30s completion timeout, got %v", cfg.Completion.Timeout)
	}
	if cfg.Events.Subject != "telecom.chat" {
		t.Errorf("Unexpected events subject %q", cfg.Events.Subject)
	}
}

func TestLoadConfig_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", "/tmp/chat.db")
	t.Setenv("CHAT_MODE", " Hybrid ")
	t.Setenv("DEEPSEEK_API_KEY", "secret")
	t.Setenv("ADMIN_PHONES", "0700000001, ,0700000002")
	t.Setenv("RATE_LIMIT_RATE", "5")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Chat.Mode != ModeHybrid {
		t.Errorf("Expected hybrid mode, got %q", cfg.Chat.Mode)
	}
	if cfg.Completion.APIKey != "secret" {
		t.Errorf("Expected API key from DEEPSEEK_API_KEY, got %q", cfg.Completion.APIKey)
	}
	if cfg.DSN() != "/tmp/chat.db" {
		t.Errorf("Unexpected DSN %q", cfg.DSN())
	}
	if cfg.RateLimit.Rate != 5 {
		t.Errorf("Expected rate 5, got %d", cfg.RateLimit.Rate)
	}

	admins := cfg.AdminPhones()
	if len(admins) != 2 || !admins["0700000001"] || !admins["0700000002"] {
		t.Errorf("Unexpected admin phones %v", admins)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: "8080"},
			Database:   DatabaseConfig{Driver: "sqlite3", Path: "chat.db"},
			Chat:       ChatConfig{Mode: ModeRouter},
			Completion: CompletionConfig{Provider: "openai", Timeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "invalid database driver"},
		{"postgres without name", func(c *Config) { c.Database.Driver = "postgres" }, "DB_NAME"},
		{"completion without key", func(c *Config) { c.Chat.Mode = ModeCompletion }, "COMPLETION_API_KEY"},
		{"bad provider", func(c *Config) {
			c.Chat.Mode = ModeCompletion
			c.Completion.APIKey = "k"
			c.Completion.Provider = "other"
		}, "invalid completion provider"},
		{"bad mode", func(c *Config) { c.Chat.Mode = "chatty" }, "invalid chat mode"},
		{"bad events provider", func(c *Config) {
			c.Events.Enabled = true
			c.Events.Provider = "kafka"
		}, "invalid events provider"},
		{"bad rate", func(c *Config) { c.RateLimit.Enabled = true }, "rate limit rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDSN_Postgres(t *testing.T) {
	c := &Config{Database: DatabaseConfig{
		Driver: "postgres", User: "chat", Password: "p@ss", Host: "db", Port: "5432", Name: "telecom", SSLMode: "disable",
	}}
	want := "postgres://chat:p%40ss@db:5432/telecom?sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("Chdir restore: %v", err)
		}
	})
}
