package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Ranking.CommentWeight != 2.0 {
		t.Errorf("CommentWeight = %v, want 2.0", cfg.Ranking.CommentWeight)
	}
	if cfg.Ranking.ReactionWeight != 0.5 {
		t.Errorf("ReactionWeight = %v, want 0.5", cfg.Ranking.ReactionWeight)
	}
	if cfg.Ranking.GravityHours != 12.0 {
		t.Errorf("GravityHours = %v, want 12.0", cfg.Ranking.GravityHours)
	}
	if cfg.Ranking.DecayExponent != 1.8 {
		t.Errorf("DecayExponent = %v, want 1.8", cfg.Ranking.DecayExponent)
	}
	if cfg.Cache.MediumTTL != 300*time.Second {
		t.Errorf("MediumTTL = %v, want 300s", cfg.Cache.MediumTTL)
	}
	if cfg.Refresh.Interval != 5*time.Minute {
		t.Errorf("Refresh.Interval = %v, want 5m", cfg.Refresh.Interval)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RANKING_COMMENT_WEIGHT", "3.5")
	t.Setenv("RANKING_MAX_LIMIT", "250")
	t.Setenv("CACHE_MEDIUM_TTL", "90s")
	t.Setenv("REFRESH_ENABLE_NOTIFICATIONS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Ranking.CommentWeight != 3.5 {
		t.Errorf("CommentWeight = %v, want 3.5", cfg.Ranking.CommentWeight)
	}
	if cfg.Ranking.MaxLimit != 250 {
		t.Errorf("MaxLimit = %d, want 250", cfg.Ranking.MaxLimit)
	}
	if cfg.Cache.MediumTTL != 90*time.Second {
		t.Errorf("MediumTTL = %v, want 90s", cfg.Cache.MediumTTL)
	}
	if cfg.Refresh.EnableNotifications {
		t.Error("EnableNotifications = true, want false")
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("RANKING_GRAVITY_HOURS", "not-a-number")
	t.Setenv("REFRESH_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Ranking.GravityHours != 12.0 {
		t.Errorf("GravityHours = %v, want default 12.0", cfg.Ranking.GravityHours)
	}
	if cfg.Refresh.Interval != 5*time.Minute {
		t.Errorf("Refresh.Interval = %v, want default 5m", cfg.Refresh.Interval)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero comment weight",
			mutate:  func(c *Config) { c.Ranking.CommentWeight = 0 },
			wantErr: "RANKING_COMMENT_WEIGHT",
		},
		{
			name:    "negative decay exponent",
			mutate:  func(c *Config) { c.Ranking.DecayExponent = -1 },
			wantErr: "RANKING_DECAY_EXPONENT",
		},
		{
			name:    "zero gravity",
			mutate:  func(c *Config) { c.Ranking.GravityHours = 0 },
			wantErr: "RANKING_GRAVITY_HOURS",
		},
		{
			name:    "max limit below default limit",
			mutate:  func(c *Config) { c.Ranking.MaxLimit = c.Ranking.DefaultLimit - 1 },
			wantErr: "RANKING_MAX_LIMIT",
		},
		{
			name:    "zero list TTL",
			mutate:  func(c *Config) { c.Cache.MediumTTL = 0 },
			wantErr: "CACHE_MEDIUM_TTL",
		},
		{
			name:    "zero refresh interval",
			mutate:  func(c *Config) { c.Refresh.Interval = 0 },
			wantErr: "REFRESH_INTERVAL",
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: "DB_HOST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
