package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"
	"gorm.io/gorm"

	"github.com/inkwellhq/inkwell/internal/models"
)

// HandleLogin initiates the Google OAuth flow.
func HandleLogin(c *gin.Context) {
	// Gothic requires the "provider" query parameter.
	q := c.Request.URL.Query()
	q.Add("provider", "google")
	c.Request.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// HandleCallback completes the OAuth flow, upserts the user and their
// provider identity, and stores the database user id in the session.
func HandleCallback(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		q.Add("provider", "google")
		c.Request.URL.RawQuery = q.Encode()

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			slog.Warn("OAuth callback failed", "error", err.Error())
			c.Redirect(http.StatusFound, "/login?error=auth_failed")
			return
		}

		user, err := upsertUser(db, gothUser.Email, gothUser.Name)
		if err != nil {
			slog.Error("Failed to upsert user", "email", gothUser.Email, "error", err.Error())
			c.Redirect(http.StatusFound, "/login?error=auth_failed")
			return
		}
		if err := upsertIdentity(db, user.ID, gothUser.UserID, gothUser.AccessToken, gothUser.RefreshToken, gothUser.ExpiresAt); err != nil {
			// Token storage failure does not block login; the identity will
			// refresh on the next callback.
			slog.Warn("Failed to store auth identity", "user_id", user.ID, "error", err.Error())
		}

		session := sessions.Default(c)
		session.Set("user_id", user.ID)
		session.Set("user_email", user.Email)
		session.Set("user_name", user.Name)

		if err := session.Save(); err != nil {
			slog.Error("Session save failed", "error", err.Error())
			c.Redirect(http.StatusFound, "/login?error=session_failed")
			return
		}

		slog.Info("User authenticated", "user_id", user.ID, "email", user.Email)
		c.Redirect(http.StatusFound, "/")
	}
}

// HandleLogout clears the session.
func HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()

	if err := session.Save(); err != nil {
		slog.Warn("Session clear failed", "error", err.Error())
	}

	c.Redirect(http.StatusFound, "/login")
}

func upsertUser(db *gorm.DB, email, name string) (*models.User, error) {
	now := time.Now()

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{Email: email, Name: name, LastLoginAt: &now}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	if err := db.Model(&user).Updates(map[string]interface{}{
		"name":          name,
		"last_login_at": now,
	}).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// upsertIdentity stores or refreshes the google identity. Tokens are
// encrypted at rest by the model hooks.
func upsertIdentity(db *gorm.DB, userID uint, providerUserID, accessToken, refreshToken string, expiry time.Time) error {
	var tokenExpiry *time.Time
	if !expiry.IsZero() {
		tokenExpiry = &expiry
	}

	var identity models.AuthIdentity
	err := db.Where("provider = ? AND provider_user_id = ?", "google", providerUserID).
		First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		identity = models.AuthIdentity{
			UserID:         userID,
			Provider:       "google",
			ProviderUserID: providerUserID,
			AccessToken:    accessToken,
			RefreshToken:   refreshToken,
			TokenExpiry:    tokenExpiry,
		}
		return db.Create(&identity).Error
	}
	if err != nil {
		return err
	}

	identity.UserID = userID
	identity.AccessToken = accessToken
	identity.RefreshToken = refreshToken
	identity.TokenExpiry = tokenExpiry
	return db.Save(&identity).Error
}
