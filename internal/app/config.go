package app

import (
	"strings"
	"time"

	"github.com/thrivewell/wellness-backend/internal/pkg/envutil"
)

type Config struct {
	JWTSecretKey  string
	SessionTTL    time.Duration
	WebhookSecret string

	StaffNotifyEmail string
	RoutingRulesPath string
	AllowOrigins     []string

	CacheEnabled bool
	MailEnabled  bool
}

func LoadConfig() Config {
	return Config{
		JWTSecretKey:     envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		SessionTTL:       envutil.Duration("SESSION_TTL", 24*time.Hour),
		WebhookSecret:    envutil.String("PACKET_WEBHOOK_SECRET", ""),
		StaffNotifyEmail: envutil.String("STAFF_NOTIFY_EMAIL", ""),
		RoutingRulesPath: envutil.String("ROUTING_RULES_PATH", ""),
		AllowOrigins:     splitOrigins(envutil.String("CORS_ALLOW_ORIGINS", "")),
		CacheEnabled:     envutil.Bool("PROGRESS_CACHE_ENABLED", true),
		MailEnabled:      envutil.Bool("MAIL_ENABLED", true),
	}
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
