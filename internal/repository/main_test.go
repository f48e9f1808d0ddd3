package repository

import (
	"context"
	"testing"
	"time"

	"campusnet/internal/database"
	"campusnet/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, repo UserRepository, username string) *models.User {
	t.Helper()
	u := &models.User{
		Name:     username + " name",
		Username: username,
		Email:    username + "@campus.edu",
		Password: "hash",
		Kind:     models.UserKindUser,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func createPost(t *testing.T, repo PostRepository, userID, description string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{UserID: userID, Description: description, CreatedAt: at}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}
