package service

import (
	"context"
	"strings"

	"campusnet/internal/cache"
	"campusnet/internal/models"
	"campusnet/internal/repository"
)

const maxSearchResults = 20

type UserService struct {
	userRepo repository.UserRepository
	postRepo repository.PostRepository
	posts    *PostService
}

// ProfileResult is a public user projection with that user's newest posts.
type ProfileResult struct {
	User  *models.User  `json:"user"`
	Posts []models.Post `json:"posts"`
}

func NewUserService(userRepo repository.UserRepository, postRepo repository.PostRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
		postRepo: postRepo,
		posts:    NewPostService(postRepo, userRepo, nil),
	}
}

func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// GetUserByID returns the public projection of a user, served from cache when possible.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.ProfileKey(id), &user, cache.ProfileTTL, func() error {
		u, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Search matches query against username, name and club name. A blank query yields no results.
func (s *UserService) Search(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}
	return s.userRepo.Search(ctx, query, maxSearchResults)
}

func (s *UserService) Profile(ctx context.Context, id string) (*ProfileResult, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.listByAuthors(ctx, []string{id}, 0, 0)
	if err != nil {
		return nil, err
	}
	return &ProfileResult{User: user, Posts: posts}, nil
}
