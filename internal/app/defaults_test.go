package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name       string
		configEnv  string
		homeEnv    string
		wantConfig string
		wantBase   string
	}{
		{
			name:       "env vars win",
			configEnv:  "/custom/config.toml",
			homeEnv:    "/custom/stash",
			wantConfig: "/custom/config.toml",
			wantBase:   "/custom/stash",
		},
		{
			name:       "home dir fallback",
			wantConfig: filepath.Join(home, ".config", "stash.toml"),
			wantBase:   filepath.Join(home, ".local", "share", "stash"),
		},
		{
			name:       "only STASH_HOME set",
			homeEnv:    "/srv/stash",
			wantConfig: filepath.Join(home, ".config", "stash.toml"),
			wantBase:   "/srv/stash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STASH_CONFIG_PATH", tt.configEnv)
			t.Setenv("STASH_HOME", tt.homeEnv)

			defaults, err := GetDefaults()
			if err != nil {
				t.Fatalf("GetDefaults() error = %v", err)
			}
			if got := defaults["config_path"]; got != tt.wantConfig {
				t.Errorf("config_path = %q, want %q", got, tt.wantConfig)
			}
			if got := defaults["base_dir"]; got != tt.wantBase {
				t.Errorf("base_dir = %q, want %q", got, tt.wantBase)
			}
			if got, want := defaults["log_dir"], filepath.Join(tt.wantBase, "log"); got != want {
				t.Errorf("log_dir = %q, want %q", got, want)
			}
		})
	}
}

func TestEnvOrHome(t *testing.T) {
	t.Setenv("STASH_TEST_DIR", "")
	t.Setenv("HOME", "/home/someone")

	got, err := envOrHome("STASH_TEST_DIR", "a", "b")
	if err != nil {
		t.Fatalf("envOrHome() error = %v", err)
	}
	if want := filepath.Join("/home/someone", "a", "b"); got != want {
		t.Errorf("envOrHome() = %q, want %q", got, want)
	}

	t.Setenv("STASH_TEST_DIR", "/override")
	if got, _ := envOrHome("STASH_TEST_DIR", "a"); got != "/override" {
		t.Errorf("envOrHome() = %q, want /override", got)
	}
}
