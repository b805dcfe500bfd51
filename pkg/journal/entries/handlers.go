package entries

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mikepea/journal/pkg/journal/auth"
	"github.com/mikepea/journal/pkg/journal/models"
)

// DateLayout is the MM/DD/YYYY format accepted for created_at.
const DateLayout = "01/02/2006"

// Handler handles entry-related requests
type Handler struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewHandler creates a new entries handler
func NewHandler(db *gorm.DB, log *zap.Logger) *Handler {
	return &Handler{db: db, log: log}
}

// EntryRequest represents the request to create or update an entry
type EntryRequest struct {
	Title     string `json:"title" binding:"required,max=255"`
	Duration  int    `json:"duration" binding:"required,gt=0"`
	Content   string `json:"content" binding:"required"`
	Resources string `json:"resources" binding:"required"`
	CreatedAt string `json:"created_at"`
}

// normalize applies the NewEntry field rules to the request and parses
// created_at. A blank created_at yields the zero time.
func (r *EntryRequest) normalize() (time.Time, error) {
	fields := NewEntry{
		Title:     r.Title,
		Duration:  r.Duration,
		Content:   r.Content,
		Resources: r.Resources,
	}
	if err := fields.Normalize(); err != nil {
		return time.Time{}, err
	}
	r.Title, r.Content, r.Resources = fields.Title, fields.Content, fields.Resources

	if strings.TrimSpace(r.CreatedAt) == "" {
		return time.Time{}, nil
	}
	createdAt, err := time.ParseInLocation(DateLayout, strings.TrimSpace(r.CreatedAt), time.Local)
	if err != nil {
		return time.Time{}, errors.New("created_at must use the MM/DD/YYYY format")
	}
	return createdAt, nil
}

// TagSummary is a tag attached to an entry
type TagSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// EntryResponse represents an entry in API responses
type EntryResponse struct {
	ID        uint         `json:"id"`
	Title     string       `json:"title"`
	Slug      string       `json:"slug"`
	Duration  int          `json:"duration"`
	Content   string       `json:"content"`
	Resources string       `json:"resources"`
	UserID    uint         `json:"user_id"`
	Author    string       `json:"author,omitempty"`
	CreatedAt string       `json:"created_at"`
	Tags      []TagSummary `json:"tags,omitempty"`
}

// EntryToResponse converts an entry (with its author preloaded, if any) to
// its API representation.
func EntryToResponse(entry models.Entry, tags []models.Tag) EntryResponse {
	resp := EntryResponse{
		ID:        entry.ID,
		Title:     entry.Title,
		Slug:      entry.Slug,
		Duration:  entry.Duration,
		Content:   entry.Content,
		Resources: entry.Resources,
		UserID:    entry.UserID,
		Author:    entry.User.Username,
		CreatedAt: entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, t := range tags {
		resp.Tags = append(resp.Tags, TagSummary{ID: t.ID, Name: t.Name})
	}
	return resp
}

// EntriesToResponse converts a list of entries without their tags
func EntriesToResponse(entries []models.Entry) []EntryResponse {
	responses := make([]EntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = EntryToResponse(entry, nil)
	}
	return responses
}

// Paginate applies the limit and offset query parameters: limit defaults to
// 50 and is capped at 100.
func Paginate(c *gin.Context, query *gorm.DB) *gorm.DB {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return query.Limit(limit).Offset(offset)
}

// List returns entries, newest first
// @Summary List entries
// @Tags entries
// @Produce json
// @Param limit query int false "Max results (default 50, max 100)"
// @Param offset query int false "Offset for pagination"
// @Success 200 {array} EntryResponse
// @Router /entries [get]
func (h *Handler) List(c *gin.Context) {
	var entries []models.Entry
	query := h.db.WithContext(c.Request.Context()).Preload("User").Order("created_at DESC")
	if err := Paginate(c, query).Find(&entries).Error; err != nil {
		h.log.Error("list entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch entries"})
		return
	}

	c.JSON(http.StatusOK, EntriesToResponse(entries))
}

// ListByUser returns the entries written by one author
// @Summary List an author's entries
// @Tags entries
// @Produce json
// @Param username path string true "Username"
// @Success 200 {array} EntryResponse
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{username}/entries [get]
func (h *Handler) ListByUser(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	var user models.User
	if err := db.Where("username = ?", c.Param("username")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var entries []models.Entry
	query := db.Preload("User").Where("user_id = ?", user.ID).Order("created_at DESC")
	if err := Paginate(c, query).Find(&entries).Error; err != nil {
		h.log.Error("list user entries", zap.String("username", user.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch entries"})
		return
	}

	c.JSON(http.StatusOK, EntriesToResponse(entries))
}

// GetBySlug returns an entry with its tags
// @Summary Get an entry by slug
// @Tags entries
// @Produce json
// @Param slug path string true "Entry slug"
// @Success 200 {object} EntryResponse
// @Failure 404 {object} map[string]string "Entry not found"
// @Router /entries/{slug} [get]
func (h *Handler) GetBySlug(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	entry, err := FindBySlug(db, c.Param("slug"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	tags, err := TagsForEntry(db, entry.ID)
	if err != nil {
		h.log.Error("fetch entry tags", zap.String("slug", entry.Slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	c.JSON(http.StatusOK, EntryToResponse(*entry, tags))
}

// Create creates a new entry authored by the current user
// @Summary Create an entry
// @Tags entries
// @Accept json
// @Produce json
// @Param request body EntryRequest true "Entry details"
// @Success 201 {object} EntryResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Slug conflict"
// @Security BearerAuth
// @Router /entries [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	createdAt, err := req.normalize()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var entry *models.Entry
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = CreateEntry(tx, NewEntry{
			Title:     req.Title,
			Duration:  req.Duration,
			Content:   req.Content,
			Resources: req.Resources,
			CreatedAt: createdAt,
			UserID:    userID,
		})
		return err
	})
	if errors.Is(err, ErrEntryConflict) {
		h.log.Warn("slug allocation lost a race twice", zap.String("title", req.Title))
		c.JSON(http.StatusConflict, gin.H{"error": "Entry could not be created, please retry"})
		return
	}
	if err != nil {
		h.log.Error("create entry", zap.Uint("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create entry"})
		return
	}

	h.log.Debug("entry created", zap.Uint("entry_id", entry.ID), zap.String("slug", entry.Slug))
	if username, ok := auth.GetUsername(c); ok {
		entry.User.Username = username
	}
	c.JSON(http.StatusCreated, EntryToResponse(*entry, nil))
}

// Update updates an entry's fields; the slug stays as allocated
// @Summary Update an entry
// @Tags entries
// @Accept json
// @Produce json
// @Param slug path string true "Entry slug"
// @Param request body EntryRequest true "Updated entry details"
// @Success 200 {object} EntryResponse
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Entry not found"
// @Security BearerAuth
// @Router /entries/{slug} [put]
func (h *Handler) Update(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	entry, err := FindBySlug(db, c.Param("slug"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}
	if !auth.CanModify(c, entry.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the author can edit this entry"})
		return
	}

	var req EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	createdAt, err := req.normalize()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if createdAt.IsZero() {
		createdAt = entry.CreatedAt
	}

	updates := map[string]interface{}{
		"title":      req.Title,
		"duration":   req.Duration,
		"content":    req.Content,
		"resources":  req.Resources,
		"created_at": createdAt,
	}
	if err := db.Model(&models.Entry{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
		h.log.Error("update entry", zap.String("slug", entry.Slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update entry"})
		return
	}
	entry.Title = req.Title
	entry.Duration = req.Duration
	entry.Content = req.Content
	entry.Resources = req.Resources
	entry.CreatedAt = createdAt

	tags, err := TagsForEntry(db, entry.ID)
	if err != nil {
		h.log.Error("fetch entry tags", zap.String("slug", entry.Slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	c.JSON(http.StatusOK, EntryToResponse(*entry, tags))
}

// Delete removes an entry and its tag associations
// @Summary Delete an entry
// @Tags entries
// @Produce json
// @Param slug path string true "Entry slug"
// @Success 200 {object} map[string]string "Entry deleted"
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Entry not found"
// @Security BearerAuth
// @Router /entries/{slug} [delete]
func (h *Handler) Delete(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	entry, err := FindBySlug(db, c.Param("slug"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}
	if !auth.CanModify(c, entry.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the author can delete this entry"})
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return DeleteEntry(tx, entry.ID)
	})
	if err != nil && !errors.Is(err, ErrEntryNotFound) {
		h.log.Error("delete entry", zap.String("slug", entry.Slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete entry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted!"})
}

func (h *Handler) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, ErrEntryNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
		return
	}
	h.log.Error("find entry", zap.String("slug", c.Param("slug")), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch entry"})
}

// RegisterRoutes registers entry routes. Reads are public; writes require
// a logged-in user.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/entries", h.List)
	rg.GET("/entries/:slug", h.GetBySlug)
	rg.GET("/users/:username/entries", h.ListByUser)

	rg.POST("/entries", auth.AuthMiddleware(), h.Create)
	rg.PUT("/entries/:slug", auth.AuthMiddleware(), h.Update)
	rg.DELETE("/entries/:slug", auth.AuthMiddleware(), h.Delete)
}
