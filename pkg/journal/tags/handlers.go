package tags

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mikepea/journal/pkg/journal/auth"
	"github.com/mikepea/journal/pkg/journal/entries"
	"github.com/mikepea/journal/pkg/journal/models"
)

// Handler handles tag-related requests
type Handler struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB, log *zap.Logger) *Handler {
	return &Handler{db: db, log: log}
}

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	EntryCount int    `json:"entry_count"`
}

// CreateTagRequest represents the request to create a tag
type CreateTagRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// TagSelectionRequest carries the tag ids selected in an apply or remove form
type TagSelectionRequest struct {
	TagIDs []uint `json:"tag_ids"`
}

// ReconcileResponse reports the outcome of an apply or remove request
type ReconcileResponse struct {
	Changed int64         `json:"changed"`
	Tags    []TagResponse `json:"tags"`
}

func tagsToResponse(tags []models.Tag) []TagResponse {
	responses := make([]TagResponse, len(tags))
	for i, t := range tags {
		responses[i] = TagResponse{ID: t.ID, Name: t.Name}
	}
	return responses
}

// List returns all tags with the number of entries using each
// @Summary List tags
// @Tags tags
// @Produce json
// @Success 200 {array} TagResponse
// @Router /tags [get]
func (h *Handler) List(c *gin.Context) {
	var results []TagResponse
	err := h.db.WithContext(c.Request.Context()).Table("tags").
		Select("tags.id, tags.name, COUNT(entry_tags.id) as entry_count").
		Joins("LEFT JOIN entry_tags ON entry_tags.tag_id = tags.id").
		Group("tags.id, tags.name").
		Order("tags.name").
		Scan(&results).Error
	if err != nil {
		h.log.Error("list tags", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}
	if results == nil {
		results = []TagResponse{}
	}

	c.JSON(http.StatusOK, results)
}

// Create creates a new tag
// @Summary Create a tag
// @Tags tags
// @Accept json
// @Produce json
// @Param request body CreateTagRequest true "Tag name"
// @Success 201 {object} TagResponse
// @Security BearerAuth
// @Router /tags [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tag, err := CreateTag(h.db.WithContext(c.Request.Context()), req.Name)
	if errors.Is(err, ErrBlankName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Error("create tag", zap.String("name", req.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tag"})
		return
	}

	c.JSON(http.StatusCreated, TagResponse{ID: tag.ID, Name: tag.Name})
}

// ListEntries returns the entries carrying a tag
// @Summary List entries with a tag
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {array} entries.EntryResponse
// @Failure 404 {object} map[string]string "Tag not found"
// @Router /tags/{id}/entries [get]
func (h *Handler) ListEntries(c *gin.Context) {
	tagID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID"})
		return
	}
	db := h.db.WithContext(c.Request.Context())

	var tag models.Tag
	if err := db.First(&tag, tagID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	var results []models.Entry
	query := db.Preload("User").
		Joins("INNER JOIN entry_tags ON entry_tags.entry_id = entries.id").
		Where("entry_tags.tag_id = ?", tag.ID).
		Order("entries.created_at DESC")
	if err := entries.Paginate(c, query).Find(&results).Error; err != nil {
		h.log.Error("list tagged entries", zap.Uint("tag_id", tag.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch entries"})
		return
	}

	c.JSON(http.StatusOK, entries.EntriesToResponse(results))
}

// GetEntryTags returns the tags currently on an entry
// @Summary Get an entry's tags
// @Tags tags
// @Produce json
// @Param slug path string true "Entry slug"
// @Success 200 {array} TagResponse
// @Failure 404 {object} map[string]string "Entry not found"
// @Router /entries/{slug}/tags [get]
func (h *Handler) GetEntryTags(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	entry, err := entries.FindBySlug(db, c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	tags, err := entries.TagsForEntry(db, entry.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tagsToResponse(tags))
}

// ApplyTags associates the selected tags with an entry
// @Summary Apply tags to an entry
// @Tags tags
// @Accept json
// @Produce json
// @Param slug path string true "Entry slug"
// @Param request body TagSelectionRequest true "Selected tag ids"
// @Success 200 {object} ReconcileResponse
// @Security BearerAuth
// @Router /entries/{slug}/tags [post]
func (h *Handler) ApplyTags(c *gin.Context) {
	h.reconcile(c, Apply)
}

// RemoveTags removes the selected tags from an entry
// @Summary Remove tags from an entry
// @Tags tags
// @Accept json
// @Produce json
// @Param slug path string true "Entry slug"
// @Param request body TagSelectionRequest true "Selected tag ids"
// @Success 200 {object} ReconcileResponse
// @Security BearerAuth
// @Router /entries/{slug}/tags/remove [post]
func (h *Handler) RemoveTags(c *gin.Context) {
	h.reconcile(c, Remove)
}

func (h *Handler) reconcile(c *gin.Context, mode Mode) {
	db := h.db.WithContext(c.Request.Context())

	entry, err := entries.FindBySlug(db, c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !auth.CanModify(c, entry.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the author can change this entry's tags"})
		return
	}

	var req TagSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var resp ReconcileResponse
	err = db.Transaction(func(tx *gorm.DB) error {
		changed, err := ReconcileTags(tx, entry.ID, req.TagIDs, mode)
		if err != nil {
			return err
		}
		tags, err := entries.TagsForEntry(tx, entry.ID)
		if err != nil {
			return err
		}
		resp = ReconcileResponse{Changed: changed, Tags: tagsToResponse(tags)}
		return nil
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Debug("tags reconciled",
		zap.String("slug", entry.Slug),
		zap.Stringer("mode", mode),
		zap.Int64("changed", resp.Changed))
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
	case errors.Is(err, ErrTagNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
	default:
		h.log.Error("tag request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tags"})
	}
}

// RegisterRoutes registers tag routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags", h.List)
	rg.GET("/tags/:id/entries", h.ListEntries)
	rg.GET("/entries/:slug/tags", h.GetEntryTags)

	rg.POST("/tags", auth.AuthMiddleware(), h.Create)
	rg.POST("/entries/:slug/tags", auth.AuthMiddleware(), h.ApplyTags)
	rg.POST("/entries/:slug/tags/remove", auth.AuthMiddleware(), h.RemoveTags)
}
