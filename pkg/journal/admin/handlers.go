package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mikepea/journal/pkg/journal/auth"
	"github.com/mikepea/journal/pkg/journal/models"
)

// Handler handles admin requests
type Handler struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB, log *zap.Logger) *Handler {
	return &Handler{db: db, log: log}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	IsAdmin       bool   `json:"is_admin"`
	JoinedAt      string `json:"joined_at"`
	EntryCount    int64  `json:"entry_count"`
	TotalDuration int64  `json:"total_duration"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalUsers        int64 `json:"total_users"`
	TotalEntries      int64 `json:"total_entries"`
	TotalTags         int64 `json:"total_tags"`
	TotalAssociations int64 `json:"total_associations"`
	TotalDuration     int64 `json:"total_duration"`
	AdminUsers        int64 `json:"admin_users"`
}

func (h *Handler) userResponse(db *gorm.DB, user models.User) UserResponse {
	resp := UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
		JoinedAt: user.JoinedAt.UTC().Format(time.RFC3339),
	}
	db.Model(&models.Entry{}).Where("user_id = ?", user.ID).Count(&resp.EntryCount)
	db.Model(&models.Entry{}).Where("user_id = ?", user.ID).
		Select("COALESCE(SUM(duration), 0)").Scan(&resp.TotalDuration)
	return resp
}

// ListUsers returns all users (admin only)
// @Summary List users
// @Tags admin
// @Produce json
// @Param q query string false "Search username or email"
// @Success 200 {array} UserResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	var users []models.User

	query := db.Order("joined_at DESC")

	// Optional search by username or email
	if search := c.Query("q"); search != "" {
		query = query.Where("username LIKE ? OR email LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Find(&users).Error; err != nil {
		h.log.Error("list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = h.userResponse(db, user)
	}

	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user by ID (admin only)
// @Summary Get a user
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	db := h.db.WithContext(c.Request.Context())

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, h.userResponse(db, user))
}

// DeleteUser removes a user together with their entries and the entries'
// tag associations (admin only)
// @Summary Delete a user
// @Tags admin
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Cannot delete yourself"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	// Prevent admin from deleting themselves
	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete yourself"})
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&models.Entry{}).Select("id").Where("user_id = ?", user.ID)
		if err := tx.Where("entry_id IN (?)", owned).Delete(&models.EntryTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Entry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		h.log.Error("delete user", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	h.log.Info("user deleted", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// GetStats returns system-wide statistics (admin only)
// @Summary System statistics
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	var stats StatsResponse

	db.Model(&models.User{}).Count(&stats.TotalUsers)
	db.Model(&models.Entry{}).Count(&stats.TotalEntries)
	db.Model(&models.Tag{}).Count(&stats.TotalTags)
	db.Model(&models.EntryTag{}).Count(&stats.TotalAssociations)
	db.Model(&models.User{}).Where("is_admin = ?", true).Count(&stats.AdminUsers)

	// Minutes logged across all entries
	db.Model(&models.Entry{}).Select("COALESCE(SUM(duration), 0)").Scan(&stats.TotalDuration)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/users", h.ListUsers)
	rg.GET("/users/:id", h.GetUser)
	rg.DELETE("/users/:id", h.DeleteUser)
}
