package tags

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mikepea/journal/pkg/journal/entries"
	"github.com/mikepea/journal/pkg/journal/models"
)

var (
	ErrEntryNotFound = entries.ErrEntryNotFound
	ErrTagNotFound   = errors.New("tag not found")
)

// Mode selects which way ReconcileTags moves an entry's tag set.
type Mode int

const (
	// Apply associates every selected tag that is not associated yet.
	Apply Mode = iota
	// Remove deletes the associations of every selected tag.
	Remove
)

func (m Mode) String() string {
	switch m {
	case Apply:
		return "apply"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

// ReconcileTags converges the entry's EntryTag rows towards the selection
// and returns how many rows were inserted (Apply) or deleted (Remove).
// An empty selection is a no-op; an unknown entry is ErrEntryNotFound.
func ReconcileTags(tx *gorm.DB, entryID uint, tagIDs []uint, mode Mode) (int64, error) {
	var count int64
	if err := tx.Model(&models.Entry{}).Where("id = ?", entryID).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "check entry")
	}
	if count == 0 {
		return 0, ErrEntryNotFound
	}

	selected := dedupe(tagIDs)
	if len(selected) == 0 {
		return 0, nil
	}

	switch mode {
	case Apply:
		return applyTags(tx, entryID, selected)
	case Remove:
		return removeTags(tx, entryID, selected)
	default:
		return 0, errors.Errorf("unknown reconcile mode %d", mode)
	}
}

func applyTags(tx *gorm.DB, entryID uint, desired []uint) (int64, error) {
	var known int64
	if err := tx.Model(&models.Tag{}).Where("id IN ?", desired).Count(&known).Error; err != nil {
		return 0, errors.Wrap(err, "check tags")
	}
	if known != int64(len(desired)) {
		return 0, ErrTagNotFound
	}

	current, err := associatedTagIDs(tx, entryID)
	if err != nil {
		return 0, err
	}

	missing := difference(desired, current)
	if len(missing) == 0 {
		return 0, nil
	}

	rows := make([]models.EntryTag, len(missing))
	for i, tagID := range missing {
		rows[i] = models.EntryTag{EntryID: entryID, TagID: tagID}
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "insert entry tags")
	}
	return res.RowsAffected, nil
}

func removeTags(tx *gorm.DB, entryID uint, selected []uint) (int64, error) {
	res := tx.Where("entry_id = ? AND tag_id IN ?", entryID, selected).Delete(&models.EntryTag{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "delete entry tags")
	}
	return res.RowsAffected, nil
}

// associatedTagIDs returns the ids of the tags currently on an entry.
func associatedTagIDs(tx *gorm.DB, entryID uint) ([]uint, error) {
	var ids []uint
	if err := tx.Model(&models.EntryTag{}).Where("entry_id = ?", entryID).Pluck("tag_id", &ids).Error; err != nil {
		return nil, errors.Wrap(err, "fetch entry tags")
	}
	return ids, nil
}

// difference returns the ids in want that are not in have, keeping order.
func difference(want, have []uint) []uint {
	present := make(map[uint]struct{}, len(have))
	for _, id := range have {
		present[id] = struct{}{}
	}
	var out []uint
	for _, id := range want {
		if _, ok := present[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
