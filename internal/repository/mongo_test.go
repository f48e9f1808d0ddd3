package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"campusnet/internal/database"
	"campusnet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// setupMongo connects to MONGO_TEST_URI (a replica set, for follow transactions)
// and returns a throwaway database.
func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	db := client.Database("campusnet_test_" + models.NewID()[:8])
	require.NoError(t, database.EnsureIndexes(ctx, db))

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestMongoUserRepository(t *testing.T) {
	db := setupMongo(t)
	repo := NewMongoUserRepository(db)
	ctx := context.Background()

	a := createUser(t, repo, "a")
	b := createUser(t, repo, "b")

	dup := &models.User{Name: "x", Username: "a", Email: "new@campus.edu", Password: "h", Kind: models.UserKindUser}
	assert.True(t, models.HasCode(repo.Create(ctx, dup), models.CodeConflict))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Password)

	following, err := repo.ToggleFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, following)

	gotA, _ := repo.GetByID(ctx, a.ID)
	gotB, _ := repo.GetByID(ctx, b.ID)
	assert.Equal(t, []string{b.ID}, gotA.Following)
	assert.Equal(t, []string{a.ID}, gotB.Followers)

	following, err = repo.ToggleFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, following)

	_, err = repo.ToggleFollow(ctx, a.ID, "ghost")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	users, err := repo.Search(ctx, "A", 20)
	require.NoError(t, err)
	assert.NotEmpty(t, users)
}

func TestMongoPostRepository(t *testing.T) {
	db := setupMongo(t)
	users := NewMongoUserRepository(db)
	posts := NewMongoPostRepository(db)
	ctx := context.Background()

	a := createUser(t, users, "a")
	b := createUser(t, users, "b")
	p := createPost(t, posts, a.ID, "hello", time.Now())

	liked, err := posts.ToggleLike(ctx, p.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	liked, err = posts.ToggleLike(ctx, p.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = posts.ToggleBookmark(ctx, "missing", b.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = posts.ToggleBookmark(ctx, p.ID, b.ID)
	require.NoError(t, err)
	marked, err := posts.ListBookmarkedBy(ctx, b.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, marked, 1)

	require.NoError(t, posts.AddComment(ctx, p.ID, &models.Comment{UserID: b.ID, Text: "hi"}))
	got, err := posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)

	deleted, err := posts.DeleteOwned(ctx, p.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	deleted, err = posts.DeleteOwned(ctx, p.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}
