package model

import (
	"time"
)

// JWTTokenBlacklist stores revoked token IDs (JTIs) until they expire
type JWTTokenBlacklist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	JTI       string    `gorm:"uniqueIndex;not null;type:varchar(36)" json:"jti"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	TokenType string    `gorm:"type:varchar(10);not null" json:"token_type"` // access, refresh
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Reason    string    `gorm:"type:varchar(50)" json:"reason"` // logout, password_change

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
