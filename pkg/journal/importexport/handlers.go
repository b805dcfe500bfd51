package importexport

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mikepea/journal/pkg/journal/auth"
	"github.com/mikepea/journal/pkg/journal/entries"
	"github.com/mikepea/journal/pkg/journal/models"
	"github.com/mikepea/journal/pkg/journal/tags"
)

// Handler handles import/export requests
type Handler struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewHandler creates a new import/export handler
func NewHandler(db *gorm.DB, log *zap.Logger) *Handler {
	return &Handler{db: db, log: log}
}

// ExportEntry is the portable form of an entry. Tags are carried by name
// because tag ids are local to one database.
type ExportEntry struct {
	Title     string   `json:"title"`
	Duration  int      `json:"duration"`
	Content   string   `json:"content"`
	Resources string   `json:"resources"`
	CreatedAt string   `json:"created_at"`
	Slug      string   `json:"slug,omitempty"`
	Tags      []string `json:"tags"`
}

// ImportRequest represents an import request
type ImportRequest struct {
	Entries []ExportEntry `json:"entries" binding:"required"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

func toExport(entry models.Entry, entryTags []models.Tag) ExportEntry {
	names := make([]string, len(entryTags))
	for i, t := range entryTags {
		names[i] = t.Name
	}
	return ExportEntry{
		Title:     entry.Title,
		Duration:  entry.Duration,
		Content:   entry.Content,
		Resources: entry.Resources,
		CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
		Slug:      entry.Slug,
		Tags:      names,
	}
}

// parseCreatedAt accepts RFC 3339 timestamps as written by Export and the
// MM/DD/YYYY dates the entry form uses. Empty means now.
func parseCreatedAt(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(entries.DateLayout, value)
	if err != nil {
		return time.Time{}, errors.New("invalid created_at")
	}
	return t, nil
}

// importEntry creates one entry and applies its tags, resolving tag names
// to existing tags or creating them.
func importEntry(tx *gorm.DB, userID uint, in ExportEntry) (*models.Entry, error) {
	createdAt, err := parseCreatedAt(in.CreatedAt)
	if err != nil {
		return nil, err
	}

	// CreateEntry applies the same field rules as the entries API
	entry, err := entries.CreateEntry(tx, entries.NewEntry{
		Title:     in.Title,
		Duration:  in.Duration,
		Content:   in.Content,
		Resources: in.Resources,
		CreatedAt: createdAt,
		UserID:    userID,
	})
	if err != nil {
		return nil, err
	}

	var tagIDs []uint
	for _, name := range in.Tags {
		if strings.TrimSpace(name) == "" {
			continue
		}
		tag, err := tags.FindOrCreateByName(tx, name)
		if err != nil {
			return nil, err
		}
		tagIDs = append(tagIDs, tag.ID)
	}
	if _, err := tags.ReconcileTags(tx, entry.ID, tagIDs, tags.Apply); err != nil {
		return nil, err
	}
	return entry, nil
}

// Import creates entries for the caller from the exported JSON format
// @Summary Import entries
// @Tags importexport
// @Accept json
// @Produce json
// @Param request body ImportRequest true "Entries to import"
// @Success 200 {object} ImportResult
// @Security BearerAuth
// @Router /import [post]
func (h *Handler) Import(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := h.db.WithContext(c.Request.Context())
	result := ImportResult{
		Errors: []string{},
	}

	for i, in := range req.Entries {
		// Each entry commits or rolls back on its own
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := importEntry(tx, userID, in)
			return err
		})
		if err != nil {
			h.log.Warn("import entry skipped", zap.Int("index", i), zap.Error(err))
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: %s", i, err.Error()))
			result.Skipped++
			continue
		}
		result.Imported++
	}

	h.log.Info("import finished",
		zap.Uint("user_id", userID),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	c.JSON(http.StatusOK, result)
}

// Export returns the caller's entries with their tag names
// @Summary Export entries
// @Tags importexport
// @Produce json
// @Success 200 {array} ExportEntry
// @Security BearerAuth
// @Router /export [get]
func (h *Handler) Export(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	db := h.db.WithContext(c.Request.Context())

	var list []models.Entry
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error; err != nil {
		h.log.Error("export entries", zap.Uint("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch entries"})
		return
	}

	exported := make([]ExportEntry, len(list))
	for i, entry := range list {
		entryTags, err := entries.TagsForEntry(db, entry.ID)
		if err != nil {
			h.log.Error("export entry tags", zap.Uint("entry_id", entry.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
			return
		}
		exported[i] = toExport(entry, entryTags)
	}

	// Set content disposition for download
	if c.Query("download") == "true" {
		c.Header("Content-Disposition", "attachment; filename=journal-export.json")
	}

	c.JSON(http.StatusOK, exported)
}

// ExportSingle exports one entry by slug
// @Summary Export an entry
// @Tags importexport
// @Produce json
// @Param slug path string true "Entry slug"
// @Success 200 {object} ExportEntry
// @Failure 404 {object} map[string]string "Entry not found"
// @Security BearerAuth
// @Router /export/{slug} [get]
func (h *Handler) ExportSingle(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	entry, err := entries.FindBySlug(db, c.Param("slug"))
	if errors.Is(err, entries.ErrEntryNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
		return
	}
	if err != nil {
		h.log.Error("export entry", zap.String("slug", c.Param("slug")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch entry"})
		return
	}

	entryTags, err := entries.TagsForEntry(db, entry.ID)
	if err != nil {
		h.log.Error("export entry tags", zap.Uint("entry_id", entry.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	c.JSON(http.StatusOK, toExport(*entry, entryTags))
}

// RegisterRoutes registers import/export routes. The group must already
// require authentication.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", h.Import)
	rg.GET("/export", h.Export)
	rg.GET("/export/:slug", h.ExportSingle)
}
