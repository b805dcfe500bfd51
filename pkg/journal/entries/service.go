package entries

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/mikepea/journal/pkg/journal/database"
	"github.com/mikepea/journal/pkg/journal/models"
)

var (
	ErrEntryNotFound = errors.New("entry not found")
	ErrInvalidEntry  = errors.New("invalid entry")
	// ErrEntryConflict means the allocated slug was taken by a concurrent
	// insert even after one retry.
	ErrEntryConflict = errors.New("entry creation conflict")
)

// slugAttempts bounds allocation: the first try plus one retry after a
// uniqueness violation.
const slugAttempts = 2

// NewEntry holds the validated fields of an entry to create. UserID is the
// authenticated author.
type NewEntry struct {
	Title     string
	Duration  int
	Content   string
	Resources string
	CreatedAt time.Time
	UserID    uint
}

// Normalize trims the text fields and rejects an entry without a title,
// content or resources, or without time spent.
func (in *NewEntry) Normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Resources = strings.TrimSpace(in.Resources)
	if in.Title == "" || in.Content == "" || in.Resources == "" {
		return errors.Wrap(ErrInvalidEntry, "title, content and resources must not be blank")
	}
	if in.Duration <= 0 {
		return errors.Wrap(ErrInvalidEntry, "duration must be positive")
	}
	return nil
}

// CreateEntry validates in, allocates a unique slug for its title and
// inserts the entry.
// Each insert runs in its own savepoint so a lost slug race can be retried
// on the same transaction.
func CreateEntry(tx *gorm.DB, in NewEntry) (*models.Entry, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	for attempt := 0; attempt < slugAttempts; attempt++ {
		slug, err := AllocateSlug(tx, in.Title)
		if err != nil {
			return nil, err
		}

		entry := models.Entry{
			Title:     in.Title,
			Duration:  in.Duration,
			Content:   in.Content,
			Resources: in.Resources,
			CreatedAt: createdAt,
			Slug:      slug,
			UserID:    in.UserID,
		}
		err = tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(&entry).Error
		})
		if err == nil {
			return &entry, nil
		}
		if !database.IsDuplicateKey(err) {
			return nil, errors.Wrap(err, "insert entry")
		}
	}

	return nil, ErrEntryConflict
}

// FindBySlug loads an entry and its author.
func FindBySlug(tx *gorm.DB, slug string) (*models.Entry, error) {
	var entry models.Entry
	err := tx.Preload("User").Where("slug = ?", slug).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find entry")
	}
	return &entry, nil
}

// DeleteEntry physically removes an entry and its tag associations.
func DeleteEntry(tx *gorm.DB, entryID uint) error {
	if err := tx.Where("entry_id = ?", entryID).Delete(&models.EntryTag{}).Error; err != nil {
		return errors.Wrap(err, "delete entry tags")
	}
	res := tx.Delete(&models.Entry{}, entryID)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete entry")
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// TagsForEntry returns the tags associated with an entry, ordered by name.
func TagsForEntry(tx *gorm.DB, entryID uint) ([]models.Tag, error) {
	var tags []models.Tag
	err := tx.Model(&models.Tag{}).
		Joins("INNER JOIN entry_tags ON entry_tags.tag_id = tags.id").
		Where("entry_tags.entry_id = ?", entryID).
		Order("tags.name").
		Find(&tags).Error
	if err != nil {
		return nil, errors.Wrap(err, "fetch entry tags")
	}
	return tags, nil
}
