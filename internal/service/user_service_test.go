package service

import (
	"context"
	"testing"

	"campusnet/internal/cache"
	"campusnet/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	prev := cache.GetClient()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(prev)
		_ = rdb.Close()
		mr.Close()
	})
	return mr
}

func TestSearchUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	env.register(t, "bob")
	_, err := env.auth.Register(ctx, RegisterInput{
		Email: "robots@x.com", Password: "pw123", Name: "Robotics", Username: "robots",
		Kind: models.UserKindClub, ClubName: "Campus Robotics",
	})
	require.NoError(t, err)

	found, err := env.user.Search(ctx, "   ")
	require.NoError(t, err)
	assert.NotNil(t, found)
	assert.Empty(t, found)

	found, err = env.user.Search(ctx, "ALI")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "alice", found[0].Username)
	assert.Empty(t, found[0].Password)

	found, err = env.user.Search(ctx, "campus rob")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "robots", found[0].Username)
}

func TestSearchUsersCapsResults(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < maxSearchResults+5; i++ {
		env.register(t, "student"+string(rune('a'+i)))
	}

	found, err := env.user.Search(context.Background(), "student")
	require.NoError(t, err)
	assert.Len(t, found, maxSearchResults)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "alice")

	me, err := env.user.Me(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
	assert.Empty(t, me.Password)

	_, err = env.user.Me(context.Background(), models.NewID())
	assertAppError(t, err, models.CodeNotFound)
}

func TestProfileIncludesPosts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "alice")
	p, err := env.post.CreatePost(ctx, CreatePostInput{UserID: a.ID, Description: "about me"})
	require.NoError(t, err)

	profile, err := env.user.Profile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, profile.User.ID)
	assert.Equal(t, []string{p.ID}, postIDs(profile.Posts))
	require.NotNil(t, profile.Posts[0].Author)
	assert.Equal(t, "alice", profile.Posts[0].Author.Username)

	_, err = env.user.Profile(ctx, models.NewID())
	assertAppError(t, err, models.CodeNotFound)
}

func TestProfileCacheInvalidatedByFollow(t *testing.T) {
	mr := setupMiniredis(t)
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "alice")
	b := env.register(t, "bob")

	profile, err := env.user.Profile(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, profile.User.Followers)
	assert.True(t, mr.Exists(cache.ProfileKey(b.ID)))

	_, err = env.follow.ToggleFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.ProfileKey(b.ID)))

	profile, err = env.user.Profile(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, profile.User.Followers)
}
