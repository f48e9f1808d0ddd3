package service

import (
	"context"
	"strings"

	"campusnet/internal/models"
	"campusnet/internal/notifications"
	"campusnet/internal/observability"
	"campusnet/internal/repository"
)

const (
	maxDescriptionLen = 5000
	maxCommentLen     = 2000
	maxMediaPerPost   = 4
)

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	notifier ActivityNotifier
}

type CreatePostInput struct {
	UserID      string
	Description string
	Media       []string
}

type DeletePostInput struct {
	UserID string
	PostID string
}

type CommentInput struct {
	UserID string
	PostID string
	Text   string
}

type SharePostInput struct {
	UserID      string
	PostID      string
	Description string
}

// FeedInput selects a page of a feed for the requesting user.
type FeedInput struct {
	UserID string
	Limit  int
	Offset int
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, notifier ActivityNotifier) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		notifier: orNoop(notifier),
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, models.NewValidationError("Please provide a description")
	}
	if len(description) > maxDescriptionLen {
		return nil, models.NewValidationError("Description too long (max 5000 characters)")
	}

	media := make([]string, 0, len(in.Media))
	for _, m := range in.Media {
		if m = strings.TrimSpace(m); m != "" {
			media = append(media, m)
		}
	}
	if len(media) > maxMediaPerPost {
		return nil, models.NewValidationError("A post can carry at most 4 media items")
	}

	post := &models.Post{
		UserID:      in.UserID,
		Description: description,
		Media:       media,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.RecordSocialAction("post")
	return s.withAuthor(ctx, post)
}

// DeletePost removes a post owned by the requester. A post that does not exist
// and a post owned by someone else produce the same error.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	deleted, err := s.postRepo.DeleteOwned(ctx, in.PostID, in.UserID)
	if err != nil {
		return err
	}
	if !deleted {
		return models.NewNotFoundError("Post not found or not authorized")
	}
	return nil
}

func (s *PostService) ToggleLike(ctx context.Context, userID, postID string) (*models.Post, bool, error) {
	liked, err := s.postRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, false, err
	}
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	if liked {
		observability.RecordSocialAction("like")
		notify(ctx, s.notifier, post.UserID, notifications.Event{Type: notifications.EventLike, ActorID: userID, PostID: postID})
	} else {
		observability.RecordSocialAction("unlike")
	}
	return post, liked, nil
}

func (s *PostService) ToggleBookmark(ctx context.Context, userID, postID string) (*models.Post, bool, error) {
	bookmarked, err := s.postRepo.ToggleBookmark(ctx, postID, userID)
	if err != nil {
		return nil, false, err
	}
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	if bookmarked {
		observability.RecordSocialAction("bookmark")
	} else {
		observability.RecordSocialAction("unbookmark")
	}
	return post, bookmarked, nil
}

func (s *PostService) AddComment(ctx context.Context, in CommentInput) (*models.Post, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("Comment text is required")
	}
	if len(text) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}

	if err := s.postRepo.AddComment(ctx, in.PostID, &models.Comment{UserID: in.UserID, Text: text}); err != nil {
		return nil, err
	}
	post, err := s.GetPost(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	observability.RecordSocialAction("comment")
	notify(ctx, s.notifier, post.UserID, notifications.Event{Type: notifications.EventComment, ActorID: in.UserID, PostID: in.PostID})
	return post, nil
}

// SharePost creates a new post owned by the requester that points back at the
// original. The original is never modified.
func (s *PostService) SharePost(ctx context.Context, in SharePostInput) (*models.Post, error) {
	original, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = original.Description
	}
	if len(description) > maxDescriptionLen {
		return nil, models.NewValidationError("Description too long (max 5000 characters)")
	}

	originalID := original.ID
	shared := &models.Post{
		UserID:      in.UserID,
		Description: description,
		Media:       append([]string(nil), original.Media...),
		SharedFrom:  &originalID,
	}
	if err := s.postRepo.Create(ctx, shared); err != nil {
		return nil, err
	}
	observability.RecordSocialAction("share")
	notify(ctx, s.notifier, original.UserID, notifications.Event{Type: notifications.EventShare, ActorID: in.UserID, PostID: original.ID})
	return s.withAuthor(ctx, shared)
}

// GlobalFeed returns posts by the requester and everyone the requester follows.
func (s *PostService) GlobalFeed(ctx context.Context, in FeedInput) ([]models.Post, error) {
	following, err := s.userRepo.FollowingIDs(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	authors := append([]string{in.UserID}, following...)
	return s.listByAuthors(ctx, authors, in.Limit, in.Offset)
}

// FollowingFeed returns posts by accounts the requester follows, never the requester's own.
func (s *PostService) FollowingFeed(ctx context.Context, in FeedInput) ([]models.Post, error) {
	following, err := s.userRepo.FollowingIDs(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	authors := make([]string, 0, len(following))
	for _, id := range following {
		if id != in.UserID {
			authors = append(authors, id)
		}
	}
	return s.listByAuthors(ctx, authors, in.Limit, in.Offset)
}

func (s *PostService) BookmarkedFeed(ctx context.Context, in FeedInput) ([]models.Post, error) {
	posts, err := s.postRepo.ListBookmarkedBy(ctx, in.UserID, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	return s.attachAuthors(ctx, posts)
}

// AuthorFeed returns the posts of authorID; an unknown author is NOT_FOUND.
func (s *PostService) AuthorFeed(ctx context.Context, authorID string, limit, offset int) ([]models.Post, error) {
	if _, err := s.userRepo.GetByID(ctx, authorID); err != nil {
		return nil, err
	}
	return s.listByAuthors(ctx, []string{authorID}, limit, offset)
}

func (s *PostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.withAuthor(ctx, post)
}

func (s *PostService) listByAuthors(ctx context.Context, authors []string, limit, offset int) ([]models.Post, error) {
	if len(authors) == 0 {
		return []models.Post{}, nil
	}
	posts, err := s.postRepo.ListByAuthors(ctx, authors, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.attachAuthors(ctx, posts)
}

func (s *PostService) withAuthor(ctx context.Context, post *models.Post) (*models.Post, error) {
	posts, err := s.attachAuthors(ctx, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// attachAuthors embeds the author projection into each post.
func (s *PostService) attachAuthors(ctx context.Context, posts []models.Post) ([]models.Post, error) {
	if len(posts) == 0 {
		return []models.Post{}, nil
	}

	seen := make(map[string]struct{}, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.UserID]; !ok {
			seen[p.UserID] = struct{}{}
			ids = append(ids, p.UserID)
		}
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	authors := make(map[string]*models.PostAuthor, len(users))
	for i := range users {
		authors[users[i].ID] = users[i].Author()
	}

	for i := range posts {
		posts[i].Author = authors[posts[i].UserID]
		posts[i].Normalize()
	}
	return posts, nil
}
