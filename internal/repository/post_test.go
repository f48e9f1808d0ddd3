package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"campusnet/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	u := createUser(t, users, "ada")
	p := &models.Post{UserID: u.ID, Description: "hello", Media: []string{"/uploads/a.png"}}
	require.NoError(t, posts.Create(ctx, p))

	got, err := posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Description)
	assert.Equal(t, []string{"/uploads/a.png"}, got.Media)
	assert.Equal(t, []string{}, got.Likes)
	assert.Equal(t, []string{}, got.Bookmarks)
	assert.Equal(t, []models.Comment{}, got.Comments)
	assert.Nil(t, got.SharedFrom)

	_, err = posts.GetByID(ctx, "missing")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_ToggleLikeAndBookmark(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	author := createUser(t, users, "author")
	reader := createUser(t, users, "reader")
	p := createPost(t, posts, author.ID, "hello", time.Now())

	liked, err := posts.ToggleLike(ctx, p.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	got, err := posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{reader.ID}, got.Likes)

	liked, err = posts.ToggleLike(ctx, p.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	got, err = posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Likes)

	marked, err := posts.ToggleBookmark(ctx, p.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, marked)

	got, err = posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{reader.ID}, got.Bookmarks)
	assert.Empty(t, got.Likes)

	_, err = posts.ToggleLike(ctx, "missing", reader.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	_, err = posts.ToggleBookmark(ctx, "missing", reader.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_AddComment(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	u := createUser(t, users, "ada")
	p := createPost(t, posts, u.ID, "hello", time.Now())

	require.NoError(t, posts.AddComment(ctx, p.ID, &models.Comment{UserID: u.ID, Text: "first"}))
	require.NoError(t, posts.AddComment(ctx, p.ID, &models.Comment{UserID: u.ID, Text: "second", CreatedAt: time.Now().Add(time.Second)}))

	got, err := posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "first", got.Comments[0].Text)
	assert.Equal(t, "second", got.Comments[1].Text)
	assert.NotEmpty(t, got.Comments[0].ID)

	err = posts.AddComment(ctx, "missing", &models.Comment{UserID: u.ID, Text: "x"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_DeleteOwned(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	owner := createUser(t, users, "owner")
	other := createUser(t, users, "other")
	p := createPost(t, posts, owner.ID, "hello", time.Now())
	_, err := posts.ToggleLike(ctx, p.ID, other.ID)
	require.NoError(t, err)

	deleted, err := posts.DeleteOwned(ctx, p.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	_, err = posts.GetByID(ctx, p.ID)
	require.NoError(t, err)

	deleted, err = posts.DeleteOwned(ctx, p.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = posts.GetByID(ctx, p.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	var likes int64
	require.NoError(t, db.Model(&models.PostLike{}).Where("post_id = ?", p.ID).Count(&likes).Error)
	assert.Zero(t, likes)

	deleted, err = posts.DeleteOwned(ctx, "missing", owner.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestPostRepository_Lists(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	a := createUser(t, users, "a")
	b := createUser(t, users, "b")
	c := createUser(t, users, "c")

	base := time.Now().Add(-time.Hour)
	p1 := createPost(t, posts, a.ID, "a-old", base)
	p2 := createPost(t, posts, b.ID, "b-mid", base.Add(time.Minute))
	p3 := createPost(t, posts, a.ID, "a-new", base.Add(2*time.Minute))
	createPost(t, posts, c.ID, "c-only", base.Add(3*time.Minute))

	list, err := posts.ListByAuthors(ctx, []string{a.ID, b.ID}, 20, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{p3.ID, p2.ID, p1.ID}, []string{list[0].ID, list[1].ID, list[2].ID})

	page, err := posts.ListByAuthors(ctx, []string{a.ID, b.ID}, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, p2.ID, page[0].ID)

	all, err := posts.ListByAuthors(ctx, []string{a.ID, b.ID}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	rest, err := posts.ListByAuthors(ctx, []string{a.ID, b.ID}, 0, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, p1.ID, rest[0].ID)

	empty, err := posts.ListByAuthors(ctx, nil, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = posts.ToggleBookmark(ctx, p1.ID, c.ID)
	require.NoError(t, err)
	_, err = posts.ToggleBookmark(ctx, p3.ID, c.ID)
	require.NoError(t, err)

	marked, err := posts.ListBookmarkedBy(ctx, c.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, marked, 2)
	assert.Equal(t, p3.ID, marked[0].ID)
	assert.Equal(t, a.ID, marked[0].UserID)
	assert.Equal(t, []string{c.ID}, marked[0].Bookmarks)

	unpaged, err := posts.ListBookmarkedBy(ctx, c.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, unpaged, 2)

	none, err := posts.ListBookmarkedBy(ctx, a.ID, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPostRepository_Postgres_CreateFailureIsInternal(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "posts"`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Post{UserID: "u1", Description: "hi"})
	assert.True(t, models.HasCode(err, models.CodeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Postgres_ToggleLikeMissingPost(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "posts"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	_, err := repo.ToggleLike(context.Background(), "p1", "u1")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
