// Package auth handles Google OAuth login via goth and session-based request
// authentication for the JSON API.
package auth

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"github.com/inkwellhq/inkwell/internal/config"
)

// InitProviders initializes Goth OAuth providers.
func InitProviders(cfg *config.Config) {
	// Gothic keeps its own gorilla/sessions store separate from
	// gin-contrib/sessions; align its cookie settings with ours. The default
	// Secure=true breaks localhost over plain HTTP.
	gothStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	gothStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = gothStore

	if cfg.GoogleClientID == "" {
		slog.Warn("GOOGLE_CLIENT_ID not set; OAuth login disabled until credentials are configured")
		return
	}

	goth.UseProviders(
		google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleCallbackURL,
			"email",
			"profile",
		),
	)

	slog.Info("Goth providers initialized", "providers", "google")
}
