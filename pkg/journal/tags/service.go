package tags

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/mikepea/journal/pkg/journal/models"
)

var ErrBlankName = errors.New("tag name must not be blank")

// CreateTag inserts a tag. Names are not unique.
func CreateTag(tx *gorm.DB, name string) (*models.Tag, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, ErrBlankName
	}
	tag := models.Tag{Name: name}
	if err := tx.Create(&tag).Error; err != nil {
		return nil, errors.Wrap(err, "insert tag")
	}
	return &tag, nil
}

// FindOrCreateByName returns the first tag called name, creating it when
// none exists.
func FindOrCreateByName(tx *gorm.DB, name string) (*models.Tag, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, ErrBlankName
	}
	var tag models.Tag
	err := tx.Where("name = ?", name).Order("id").First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "find tag")
	}
	return CreateTag(tx, name)
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}
