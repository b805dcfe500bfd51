package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mikepea/journal/pkg/journal/auth"
	"github.com/mikepea/journal/pkg/journal/config"
	"github.com/mikepea/journal/pkg/journal/database"
	"github.com/mikepea/journal/pkg/journal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(database.DriverSQLite, ":memory:", logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func seedConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Admin.Username = "test_user"
	cfg.Admin.Email = "example@mail.com"
	cfg.Admin.Password = "testpassword"
	return cfg
}

func TestEnsureAdminExistsCreatesSeedAdmin(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, ensureAdminExists(db, seedConfig(), zap.NewNop()))
	// Second start finds the admin and does nothing
	require.NoError(t, ensureAdminExists(db, seedConfig(), zap.NewNop()))

	var admins []models.User
	require.NoError(t, db.Where("is_admin = ?", true).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, "test_user", admins[0].Username)
	assert.True(t, auth.CheckPassword("testpassword", admins[0].PasswordHash))
}

func TestEnsureAdminExistsSeedNameTaken(t *testing.T) {
	db := setupTestDB(t)
	_, err := auth.CreateUser(db, auth.NewUser{
		Username: "test_user",
		Email:    "someone@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	assert.NoError(t, ensureAdminExists(db, seedConfig(), zap.NewNop()))

	var admins int64
	db.Model(&models.User{}).Where("is_admin = ?", true).Count(&admins)
	assert.Zero(t, admins)
}
