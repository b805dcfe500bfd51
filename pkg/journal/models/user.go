package models

import "time"

// User represents a journal author
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	JoinedAt     time.Time `gorm:"autoCreateTime" json:"joined_at"`
	IsAdmin      bool      `gorm:"default:false" json:"is_admin"`

	// Relationships
	Entries []Entry `gorm:"foreignKey:UserID" json:"entries,omitempty"`
}
