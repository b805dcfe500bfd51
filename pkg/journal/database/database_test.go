package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mikepea/journal/pkg/journal/models"
)

func TestOpenSQLiteTranslatesDuplicateKey(t *testing.T) {
	db, err := Open(DriverSQLite, ":memory:", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	user := models.User{Username: "tester", Email: "test@example.com", PasswordHash: "hash"}
	require.NoError(t, db.Create(&user).Error)

	dup := models.User{Username: "tester", Email: "other@example.com", PasswordHash: "hash"}
	err = db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err), "expected duplicate key error, got %v", err)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever", logger.Silent)
	assert.Error(t, err)
}
