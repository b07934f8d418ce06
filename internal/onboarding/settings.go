package onboarding

import (
	"context"
	"strconv"
	"strings"

	"onboarding-workers/internal/common/config"
	"onboarding-workers/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// Settings is the dynamic configuration a single operation decides with.
// It is resolved once and passed by value so one decision never sees two
// different flag values.
type Settings struct {
	AdminApprovalRequired map[string]bool
	SingleAdminStep       bool
}

// adminApprovalRequired defaults to true when a country has no entry.
func (s Settings) adminApprovalRequired(country string) bool {
	v, ok := s.AdminApprovalRequired[strings.ToUpper(country)]
	if !ok {
		return true
	}
	return v
}

// SettingsSource resolves a Settings snapshot.
type SettingsSource interface {
	Snapshot(ctx context.Context) Settings
}

// SettingsProvider overlays runtime overrides stored in a Redis hash on top
// of the configured defaults. Hash fields:
//
//	admin_approval_required:<COUNTRY>  "true" | "false"
//	admin_approval_steps               "1" | "2"
type SettingsProvider struct {
	defaults config.OnboardingConfig
	redis    *redis.Client
	key      string
	logger   logger.Logger
}

func NewSettingsProvider(cfg config.OnboardingConfig, rdb *redis.Client, log logger.Logger) *SettingsProvider {
	return &SettingsProvider{
		defaults: cfg,
		redis:    rdb,
		key:      cfg.SettingsKey,
		logger:   log.WithFields(map[string]interface{}{"component": "settings"}),
	}
}

func (p *SettingsProvider) Snapshot(ctx context.Context) Settings {
	s := Settings{
		AdminApprovalRequired: make(map[string]bool, len(p.defaults.AdminApprovalRequired)),
		SingleAdminStep:       p.defaults.AdminApprovalSteps == 1,
	}
	for country, required := range p.defaults.AdminApprovalRequired {
		s.AdminApprovalRequired[strings.ToUpper(country)] = required
	}

	if p.redis == nil || p.key == "" {
		return s
	}

	overrides, err := p.redis.HGetAll(ctx, p.key).Result()
	if err != nil {
		p.logger.Warn("settings overrides unavailable, using defaults", map[string]interface{}{
			"key":   p.key,
			"error": err.Error(),
		})
		return s
	}

	for field, raw := range overrides {
		switch {
		case strings.HasPrefix(field, "admin_approval_required:"):
			country := strings.ToUpper(strings.TrimPrefix(field, "admin_approval_required:"))
			if v, err := strconv.ParseBool(raw); err == nil {
				s.AdminApprovalRequired[country] = v
			}
		case field == "admin_approval_steps":
			if n, err := strconv.Atoi(raw); err == nil && (n == 1 || n == 2) {
				s.SingleAdminStep = n == 1
			}
		default:
			p.logger.Debug("ignoring unknown settings override", map[string]interface{}{"field": field})
		}
	}
	return s
}

// StaticSettings always returns the same snapshot.
type StaticSettings Settings

func (s StaticSettings) Snapshot(context.Context) Settings {
	return Settings(s)
}
