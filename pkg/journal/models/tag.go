package models

// Tag is a label shared by every author. Names are not unique.
type Tag struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
}

// EntryTag is the join row meaning "entry has tag". At most one row
// exists per (entry, tag) pair.
type EntryTag struct {
	ID      uint `gorm:"primarykey" json:"id"`
	EntryID uint `gorm:"not null;uniqueIndex:idx_entry_tag" json:"entry_id"`
	TagID   uint `gorm:"not null;uniqueIndex:idx_entry_tag;index" json:"tag_id"`
}
