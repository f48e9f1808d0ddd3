package repository

import (
	"context"
	"errors"
	"time"

	"campusnet/internal/models"
	"campusnet/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations.
// Every list is ordered newest first.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// DeleteOwned removes the post only when userID authored it; false means nothing matched.
	DeleteOwned(ctx context.Context, id, userID string) (bool, error)
	// ToggleLike flips userID's membership in the liker set and reports whether it is now a member.
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)
	// ToggleBookmark flips userID's membership in the bookmarker set and reports whether it is now a member.
	ToggleBookmark(ctx context.Context, postID, userID string) (bool, error)
	AddComment(ctx context.Context, postID string, comment *models.Comment) error
	ListByAuthors(ctx context.Context, authorIDs []string, limit, offset int) ([]models.Post, error)
	ListBookmarkedBy(ctx context.Context, userID string, limit, offset int) ([]models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, done := observability.TrackStore(ctx, backendGorm, "posts.create")
	defer done()

	if post.ID == "" {
		post.ID = models.NewID()
	}
	post.Normalize()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	ctx, done := observability.TrackStore(ctx, backendGorm, "posts.get")
	defer done()

	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post not found")
		}
		return nil, models.NewInternalError(err)
	}

	posts := []models.Post{post}
	if err := r.hydrate(ctx, r.db, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (r *postRepository) DeleteOwned(ctx context.Context, id, userID string) (bool, error) {
	ctx, done := observability.TrackStore(ctx, backendGorm, "posts.delete")
	defer done()

	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Ownership and existence are one filter so they cannot be told apart.
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true

		for _, model := range []any{&models.PostLike{}, &models.PostBookmark{}, &models.Comment{}} {
			if err := tx.Where("post_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return deleted, nil
}

func (r *postRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	ctx, done := observability.TrackStore(ctx, backendGorm, "posts.toggle_like")
	defer done()
	return r.toggleMember(ctx, postID, &models.PostLike{PostID: postID, UserID: userID})
}

func (r *postRepository) ToggleBookmark(ctx context.Context, postID, userID string) (bool, error) {
	ctx, done := observability.TrackStore(ctx, backendGorm, "posts.toggle_bookmark")
	defer done()
	return r.toggleMember(ctx, postID, &models.PostBookmark{PostID: postID, UserID: userID})
}

// toggleMember deletes the membership row, inserting it only when nothing was deleted.
// row must be a *models.PostLike or *models.PostBookmark with both keys set.
func (r *postRepository) toggleMember(ctx context.Context, postID string, row any) (bool, error) {
	var member bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePost(tx, postID); err != nil {
			return err
		}

		res := tx.Delete(row)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected > 0 {
			member = false
			return nil
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
			return models.NewInternalError(err)
		}
		member = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return member, nil
}

func (r *postRepository) AddComment(ctx context.Context, postID string, comment *models.Comment) error {
	ctx, done := observability.TrackStore(ctx, backendGorm, "posts.comment")
	defer done()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePost(tx, postID); err != nil {
			return err
		}
		if comment.ID == "" {
			comment.ID = models.NewID()
		}
		if comment.CreatedAt.IsZero() {
			comment.CreatedAt = time.Now()
		}
		comment.PostID = postID
		if err := tx.Create(comment).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *postRepository) ListByAuthors(ctx context.Context, authorIDs []string, limit, offset int) ([]models.Post, error) {
	ctx, done := observability.TrackStore(ctx, backendGorm, "posts.list_by_authors")
	defer done()

	if len(authorIDs) == 0 {
		return []models.Post{}, nil
	}

	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", authorIDs).
		Order("created_at DESC").
		Order("id DESC").
		Scopes(paginate(limit, offset)).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.hydrate(ctx, r.db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) ListBookmarkedBy(ctx context.Context, userID string, limit, offset int) ([]models.Post, error) {
	ctx, done := observability.TrackStore(ctx, backendGorm, "posts.list_bookmarked")
	defer done()

	var posts []models.Post
	err := r.db.WithContext(ctx).
		Select("posts.*").
		Joins("JOIN post_bookmarks ON post_bookmarks.post_id = posts.id").
		Where("post_bookmarks.user_id = ?", userID).
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Scopes(paginate(limit, offset)).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.hydrate(ctx, r.db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func requirePost(tx *gorm.DB, postID string) error {
	var count int64
	if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return models.NewInternalError(err)
	}
	if count == 0 {
		return models.NewNotFoundError("Post not found")
	}
	return nil
}

// hydrate fills the like, bookmark, and comment projections of posts.
func (r *postRepository) hydrate(ctx context.Context, db *gorm.DB, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, len(posts))
	index := make(map[string]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].Likes = []string{}
		posts[i].Bookmarks = []string{}
		posts[i].Comments = []models.Comment{}
		posts[i].Normalize()
	}

	var likes []models.PostLike
	if err := db.WithContext(ctx).Where("post_id IN ?", ids).Order("created_at ASC").Find(&likes).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, l := range likes {
		p := &posts[index[l.PostID]]
		p.Likes = append(p.Likes, l.UserID)
	}

	var bookmarks []models.PostBookmark
	if err := db.WithContext(ctx).Where("post_id IN ?", ids).Order("created_at ASC").Find(&bookmarks).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, b := range bookmarks {
		p := &posts[index[b.PostID]]
		p.Bookmarks = append(p.Bookmarks, b.UserID)
	}

	var comments []models.Comment
	if err := db.WithContext(ctx).Where("post_id IN ?", ids).Order("created_at ASC").Find(&comments).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, c := range comments {
		p := &posts[index[c.PostID]]
		p.Comments = append(p.Comments, c)
	}
	return nil
}
