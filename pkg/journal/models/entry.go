package models

import "time"

// Entry is a single journal post. Slug is assigned once at creation and
// never rewritten afterwards.
type Entry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Duration  int       `gorm:"not null" json:"duration"` // time spent, in minutes
	Content   string    `gorm:"type:text;not null" json:"content"`
	Resources string    `gorm:"type:text;not null" json:"resources"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
