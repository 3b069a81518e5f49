package domain

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// User is a registered account.
type User struct {
	ID                   string
	Email                string
	Name                 string
	PasswordHash         string
	Hearts               []string
	ResetPasswordToken   string
	ResetPasswordExpires *time.Time
}

// NormalizeEmail lower-cases and trims an address the same way it is persisted.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Gravatar returns the avatar URL for the user's email.
func (u User) Gravatar() string {
	sum := md5.Sum([]byte(NormalizeEmail(u.Email)))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=200"
}

// HasHeart reports whether storeID is in the user's hearts.
func (u User) HasHeart(storeID string) bool {
	for _, id := range u.Hearts {
		if id == storeID {
			return true
		}
	}
	return false
}

// ResetTokenValid reports whether token matches and has not expired at now.
func (u User) ResetTokenValid(token string, now time.Time) bool {
	if token == "" || u.ResetPasswordToken != token || u.ResetPasswordExpires == nil {
		return false
	}
	return now.Before(*u.ResetPasswordExpires)
}
