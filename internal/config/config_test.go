package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen != ":8080" {
		t.Errorf("listen = %q, want :8080", cfg.Server.Listen)
	}
	if cfg.Database.Path != "hearth.db" {
		t.Errorf("db path = %q, want hearth.db", cfg.Database.Path)
	}
	if cfg.SweepInterval() != time.Hour {
		t.Errorf("sweep interval = %s, want 1h", cfg.SweepInterval())
	}
	if cfg.Calendar.HalfWindowDays != 7 {
		t.Errorf("half window = %d, want 7", cfg.Calendar.HalfWindowDays)
	}
	if cfg.Mirror.BaseURL != "" {
		t.Errorf("mirror url = %q, want empty", cfg.Mirror.BaseURL)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hearth.toml")
	content := `
[server]
listen = ":9090"

[database]
path = "/var/lib/hearth/hearth.db"

[log]
level = "debug"
format = "json"

[sweep]
interval = "15m"

[mirror]
base_url = "https://tasks.example.com"
token = "secret"

[calendar]
base_url = "https://cal.example.com"
half_window_days = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen != ":9090" {
		t.Errorf("listen = %q, want :9090", cfg.Server.Listen)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.SweepInterval() != 15*time.Minute {
		t.Errorf("sweep interval = %s, want 15m", cfg.SweepInterval())
	}
	if cfg.Mirror.BaseURL != "https://tasks.example.com" || cfg.Mirror.Token != "secret" {
		t.Errorf("mirror = %+v", cfg.Mirror)
	}
	if cfg.Calendar.HalfWindowDays != 3 {
		t.Errorf("half window = %d, want 3", cfg.Calendar.HalfWindowDays)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen != ":8080" {
		t.Errorf("listen = %q, want default", cfg.Server.Listen)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HEARTH_LISTEN", ":7070")
	t.Setenv("HEARTH_DB_PATH", "/tmp/test.db")
	t.Setenv("HEARTH_SWEEP_INTERVAL", "30m")
	t.Setenv("HEARTH_CALENDAR_HALF_WINDOW", "2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen != ":7070" {
		t.Errorf("listen = %q, want :7070", cfg.Server.Listen)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("db path = %q, want /tmp/test.db", cfg.Database.Path)
	}
	if cfg.SweepInterval() != 30*time.Minute {
		t.Errorf("sweep interval = %s, want 30m", cfg.SweepInterval())
	}
	if cfg.Calendar.HalfWindowDays != 2 {
		t.Errorf("half window = %d, want 2", cfg.Calendar.HalfWindowDays)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hearth.toml")
	if err := os.WriteFile(path, []byte("[server]\nlisten = \":9090\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HEARTH_LISTEN", ":6060")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen != ":6060" {
		t.Errorf("listen = %q, env should win over file", cfg.Server.Listen)
	}
}

func TestBadSweepInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hearth.toml")
	if err := os.WriteFile(path, []byte("[sweep]\ninterval = \"-5m\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative sweep interval")
	}
}

func TestMalformedEnvRejected(t *testing.T) {
	t.Run("sweep interval", func(t *testing.T) {
		t.Setenv("HEARTH_SWEEP_INTERVAL", "every hour")

		if _, err := Load(""); err == nil {
			t.Fatal("expected error for malformed HEARTH_SWEEP_INTERVAL")
		}
	})

	t.Run("calendar half window", func(t *testing.T) {
		t.Setenv("HEARTH_CALENDAR_HALF_WINDOW", "seven")

		if _, err := Load(""); err == nil {
			t.Fatal("expected error for malformed HEARTH_CALENDAR_HALF_WINDOW")
		}
	})
}
