package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"campusnet/internal/models"
	"campusnet/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users and their follow edges.
// Reads never return the password hash except GetByEmailWithPassword.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
	GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	// ToggleFollow flips the follower -> followee edge and reports whether it now exists.
	ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	Ping(ctx context.Context) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	ctx, done := observability.TrackStore(ctx, backendGorm, "users.create")
	defer done()

	if user.ID == "" {
		user.ID = models.NewID()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	user.Followers = []string{}
	user.Following = []string{}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, done := observability.TrackStore(ctx, backendGorm, "users.get")
	defer done()

	var user models.User
	if err := r.db.WithContext(ctx).Omit("password").First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User not found")
		}
		return nil, models.NewInternalError(err)
	}

	users := []models.User{user}
	if err := r.hydrateEdges(ctx, users); err != nil {
		return nil, err
	}
	return &users[0], nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Omit("password").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	ctx, done := observability.TrackStore(ctx, backendGorm, "users.search")
	defer done()

	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}

	pattern := likePattern(query)
	var users []models.User
	err := r.db.WithContext(ctx).
		Omit("password").
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\' OR LOWER(club_name) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := r.hydrateEdges(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	ctx, done := observability.TrackStore(ctx, backendGorm, "follows.toggle")
	defer done()

	var following bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", followeeID).Count(&count).Error; err != nil {
			return models.NewInternalError(err)
		}
		if count == 0 {
			return models.NewNotFoundError("User not found")
		}

		res := tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Delete(&models.Follow{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected > 0 {
			following = false
			return nil
		}

		edge := models.Follow{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
			return models.NewInternalError(err)
		}
		following = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return following, nil
}

func (r *userRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return emptyIfNil(ids), nil
}

func (r *userRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// hydrateEdges fills Followers and Following from the follows table.
func (r *userRepository) hydrateEdges(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, len(users))
	index := make(map[string]int, len(users))
	for i := range users {
		ids[i] = users[i].ID
		index[users[i].ID] = i
		users[i].Followers = []string{}
		users[i].Following = []string{}
	}

	var edges []models.Follow
	err := r.db.WithContext(ctx).
		Where("follower_id IN ? OR followee_id IN ?", ids, ids).
		Order("created_at ASC").
		Find(&edges).Error
	if err != nil {
		return models.NewInternalError(err)
	}

	for _, e := range edges {
		if i, ok := index[e.FolloweeID]; ok {
			users[i].Followers = append(users[i].Followers, e.FollowerID)
		}
		if i, ok := index[e.FollowerID]; ok {
			users[i].Following = append(users[i].Following, e.FolloweeID)
		}
	}
	return nil
}
