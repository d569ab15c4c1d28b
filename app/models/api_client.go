package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// APIClient is a caller allowed to request payouts. Keys are stored hashed;
// the raw key is shown once at creation time.
type APIClient struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Name       string     `gorm:"type:varchar(150);not null" json:"name"`
	APIKeyHash string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	Active     bool       `gorm:"default:true;index" json:"active"`
	LastUsedAt *time.Time `gorm:"type:timestamp;default:null" json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// HashAPIKey returns the SHA-256 hash for the provided API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
