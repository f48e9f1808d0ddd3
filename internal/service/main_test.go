package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"campusnet/internal/database"
	"campusnet/internal/models"
	"campusnet/internal/notifications"
	"campusnet/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEnv struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	notifier *recordingNotifier
	auth     *AuthService
	follow   *FollowService
	post     *PostService
	user     *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	env := &testEnv{
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		notifier: &recordingNotifier{},
	}
	env.auth = NewAuthService(env.users, AuthConfig{Secret: "test-secret", BcryptCost: bcrypt.MinCost})
	env.follow = NewFollowService(env.users, env.notifier)
	env.post = NewPostService(env.posts, env.users, env.notifier)
	env.user = NewUserService(env.users, env.posts)
	return env
}

func (e *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), RegisterInput{
		Email:    username + "@x.com",
		Password: "pw123",
		Name:     username,
		Username: username,
	})
	require.NoError(t, err)
	return u
}

type recordedEvent struct {
	Recipient string
	Event     notifications.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Notify(_ context.Context, recipientID string, event notifications.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{Recipient: recipientID, Event: event})
}

func (n *recordingNotifier) Events() []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedEvent(nil), n.events...)
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func postIDs(posts []models.Post) []string {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}
