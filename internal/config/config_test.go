package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: astrotoken\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.PerPage != 50 {
		t.Fatalf("per_page default = %d", cfg.Provider.PerPage)
	}
	if cfg.Cache.TTL != 60*time.Second || cfg.Cache.Backend != "memory" {
		t.Fatalf("cache defaults = %+v", cfg.Cache)
	}
	if cfg.Watchlist.Backend != "file" || cfg.Watchlist.Path == "" {
		t.Fatalf("watchlist defaults = %+v", cfg.Watchlist)
	}
	if cfg.Display.Locale != "en-US" || cfg.Metrics.Path != "/metrics" {
		t.Fatalf("display/metrics defaults = %+v %+v", cfg.Display, cfg.Metrics)
	}
}

func TestLoadOverrides(t *testing.T) {
	body := `
provider:
  per_page: 20
  request_timeout: 3s
cache:
  backend: redis
  ttl: 2m
  redis:
    addr: cache:6379
watchlist:
  backend: sqlite
  path: /var/lib/astrotoken/state.db
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.PerPage != 20 || cfg.Provider.RequestTimeout != 3*time.Second {
		t.Fatalf("provider = %+v", cfg.Provider)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.TTL != 2*time.Minute || cfg.Cache.Redis.Addr != "cache:6379" {
		t.Fatalf("cache = %+v", cfg.Cache)
	}
	if cfg.Watchlist.Backend != "sqlite" {
		t.Fatalf("watchlist = %+v", cfg.Watchlist)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ASTROTOKEN_PROVIDER_PER_PAGE", "10")
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.PerPage != 10 {
		t.Fatalf("env override ignored: per_page = %d", cfg.Provider.PerPage)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"per page", "provider:\n  per_page: 0\n", "provider.per_page"},
		{"cache backend", "cache:\n  backend: memcached\n", "cache.backend"},
		{"watchlist backend", "watchlist:\n  backend: s3\n", "watchlist.backend"},
		{"postgres dsn", "watchlist:\n  backend: postgres\n", "watchlist.database.dsn"},
		{"telegram", "alerting:\n  telegram:\n    enabled: true\n", "bot_token"},
		{"metrics path", "metrics:\n  path: metrics\n", "metrics.path"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}
