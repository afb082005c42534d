package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/inkwellhq/inkwell/internal/crypto"
)

var encryptor *crypto.TokenEncryptor

// InitEncryption sets the package-level token encryptor. Call before any
// AuthIdentity database operation; left unset, tokens are stored as given
// (tests run without encryption).
func InitEncryption(encryptionKey string) error {
	var err error
	encryptor, err = crypto.NewTokenEncryptor(encryptionKey)
	return err
}

// AuthIdentity links a user to one OAuth provider account. Tokens are
// encrypted at rest via the gorm hooks below.
type AuthIdentity struct {
	gorm.Model
	UserID         uint   `gorm:"not null;index"`
	User           User   `gorm:"constraint:OnDelete:CASCADE;"`
	Provider       string `gorm:"not null"` // e.g. "google"
	ProviderUserID string `gorm:"not null;uniqueIndex:idx_auth_identities_provider_user,where:deleted_at IS NULL"`
	AccessToken    string `gorm:"type:text"` // stored encrypted
	RefreshToken   string `gorm:"type:text"` // stored encrypted
	TokenExpiry    *time.Time
}

// BeforeSave encrypts non-empty tokens. GCM output differs per call, so a
// re-save always rewrites the ciphertext.
func (a *AuthIdentity) BeforeSave(tx *gorm.DB) error {
	if encryptor == nil {
		return nil
	}

	if a.AccessToken != "" {
		sealed, err := encryptor.Encrypt(a.AccessToken)
		if err != nil {
			return err
		}
		a.AccessToken = sealed
	}
	if a.RefreshToken != "" {
		sealed, err := encryptor.Encrypt(a.RefreshToken)
		if err != nil {
			return err
		}
		a.RefreshToken = sealed
	}
	return nil
}

// AfterFind decrypts tokens loaded from the database.
func (a *AuthIdentity) AfterFind(tx *gorm.DB) error {
	if encryptor == nil {
		return nil
	}

	if a.AccessToken != "" {
		plain, err := encryptor.Decrypt(a.AccessToken)
		if err != nil {
			return err
		}
		a.AccessToken = plain
	}
	if a.RefreshToken != "" {
		plain, err := encryptor.Decrypt(a.RefreshToken)
		if err != nil {
			return err
		}
		a.RefreshToken = plain
	}
	return nil
}
