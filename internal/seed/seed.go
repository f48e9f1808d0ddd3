// Package seed populates a store with demo accounts and activity for local development.
// Every record goes through the services so the data obeys the same rules as API traffic.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"campusnet/internal/models"
	"campusnet/internal/repository"
	"campusnet/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "password123"

const (
	maxFollowsPerAccount = 8
	maxLikesPerPost      = 6
	maxBookmarksPerPost  = 3
	maxCommentsPerPost   = 4
	shareEvery           = 7
)

var usernameCleaner = regexp.MustCompile(`[^a-z0-9_.]`)

// Options controls how much data a seeding run creates.
type Options struct {
	Users      int
	Clubs      int
	Posts      int
	Seed       int64
	BcryptCost int
}

// Summary counts what a run created.
type Summary struct {
	Users     int
	Clubs     int
	Follows   int
	Posts     int
	Likes     int
	Bookmarks int
	Comments  int
	Shares    int
}

func (s Summary) String() string {
	return fmt.Sprintf("users=%d clubs=%d follows=%d posts=%d likes=%d bookmarks=%d comments=%d shares=%d",
		s.Users, s.Clubs, s.Follows, s.Posts, s.Likes, s.Bookmarks, s.Comments, s.Shares)
}

// Seeder drives the services with generated content.
type Seeder struct {
	auth   *service.AuthService
	follow *service.FollowService
	posts  *service.PostService
	opts   Options
	faker  *gofakeit.Faker
	rng    *rand.Rand
	logger *slog.Logger
}

// NewSeeder wires a seeder to the given repositories. A zero Seed picks one from the clock.
func NewSeeder(users repository.UserRepository, posts repository.PostRepository, opts Options, logger *slog.Logger) *Seeder {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		// Seeding never issues tokens.
		auth:   service.NewAuthService(users, service.AuthConfig{Secret: "seed", TTL: time.Hour, BcryptCost: opts.BcryptCost}),
		follow: service.NewFollowService(users, nil),
		posts:  service.NewPostService(posts, users, nil),
		opts:   opts,
		faker:  gofakeit.New(opts.Seed),
		rng:    rand.New(rand.NewSource(opts.Seed)),
		logger: logger,
	}
}

// Run creates accounts, then follow edges, then posts with engagement.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	accounts, err := s.seedAccounts(ctx, summary)
	if err != nil {
		return summary, err
	}
	s.logger.Info("seeded accounts", "users", summary.Users, "clubs", summary.Clubs)

	if err := s.seedFollows(ctx, accounts, summary); err != nil {
		return summary, err
	}
	s.logger.Info("seeded follows", "count", summary.Follows)

	if err := s.seedPosts(ctx, accounts, summary); err != nil {
		return summary, err
	}
	s.logger.Info("seeded posts", "posts", summary.Posts, "likes", summary.Likes,
		"bookmarks", summary.Bookmarks, "comments", summary.Comments, "shares", summary.Shares)

	return summary, nil
}

func (s *Seeder) seedAccounts(ctx context.Context, summary *Summary) ([]*models.User, error) {
	accounts := make([]*models.User, 0, s.opts.Users+s.opts.Clubs)

	for i := 0; i < s.opts.Users; i++ {
		first, last := s.faker.FirstName(), s.faker.LastName()
		user, err := s.auth.Register(ctx, service.RegisterInput{
			Email:    fmt.Sprintf("user%d@campus.test", i+1),
			Password: DefaultPassword,
			Name:     first + " " + last,
			Username: username(first+"."+last, i+1),
			Kind:     models.UserKindUser,
		})
		if err != nil {
			return accounts, fmt.Errorf("failed to register user %d: %w", i+1, err)
		}
		accounts = append(accounts, user)
		summary.Users++
	}

	for i := 0; i < s.opts.Clubs; i++ {
		club := s.faker.Company() + " Club"
		user, err := s.auth.Register(ctx, service.RegisterInput{
			Email:    fmt.Sprintf("club%d@campus.test", i+1),
			Password: DefaultPassword,
			Name:     club,
			Username: username(club, i+1),
			Kind:     models.UserKindClub,
			ClubName: club,
		})
		if err != nil {
			return accounts, fmt.Errorf("failed to register club %d: %w", i+1, err)
		}
		accounts = append(accounts, user)
		summary.Clubs++
	}

	return accounts, nil
}

func (s *Seeder) seedFollows(ctx context.Context, accounts []*models.User, summary *Summary) error {
	if len(accounts) < 2 {
		return nil
	}
	for i, account := range accounts {
		n := s.rng.Intn(min(maxFollowsPerAccount, len(accounts)-1) + 1)
		for _, j := range s.pick(len(accounts), n, i) {
			if _, err := s.follow.ToggleFollow(ctx, account.ID, accounts[j].ID); err != nil {
				return fmt.Errorf("failed to follow: %w", err)
			}
			summary.Follows++
		}
	}
	return nil
}

func (s *Seeder) seedPosts(ctx context.Context, accounts []*models.User, summary *Summary) error {
	if len(accounts) == 0 {
		return nil
	}
	for i := 0; i < s.opts.Posts; i++ {
		author := accounts[s.rng.Intn(len(accounts))]

		var media []string
		if s.rng.Intn(3) == 0 {
			media = append(media, fmt.Sprintf("https://picsum.photos/seed/%s/800/600", s.faker.UUID()))
		}
		post, err := s.posts.CreatePost(ctx, service.CreatePostInput{
			UserID:      author.ID,
			Description: s.faker.Sentence(6 + s.rng.Intn(12)),
			Media:       media,
		})
		if err != nil {
			return fmt.Errorf("failed to create post %d: %w", i+1, err)
		}
		summary.Posts++

		if err := s.engage(ctx, accounts, post.ID, summary); err != nil {
			return err
		}

		if (i+1)%shareEvery == 0 && len(accounts) > 1 {
			sharer := accounts[s.pick(len(accounts), 1, indexOf(accounts, author.ID))[0]]
			if _, err := s.posts.SharePost(ctx, service.SharePostInput{
				UserID:      sharer.ID,
				PostID:      post.ID,
				Description: s.faker.Sentence(5),
			}); err != nil {
				return fmt.Errorf("failed to share post: %w", err)
			}
			summary.Shares++
		}
	}
	return nil
}

func (s *Seeder) engage(ctx context.Context, accounts []*models.User, postID string, summary *Summary) error {
	for _, j := range s.pick(len(accounts), s.rng.Intn(min(maxLikesPerPost, len(accounts))+1), -1) {
		if _, _, err := s.posts.ToggleLike(ctx, accounts[j].ID, postID); err != nil {
			return fmt.Errorf("failed to like post: %w", err)
		}
		summary.Likes++
	}
	for _, j := range s.pick(len(accounts), s.rng.Intn(min(maxBookmarksPerPost, len(accounts))+1), -1) {
		if _, _, err := s.posts.ToggleBookmark(ctx, accounts[j].ID, postID); err != nil {
			return fmt.Errorf("failed to bookmark post: %w", err)
		}
		summary.Bookmarks++
	}
	for n := s.rng.Intn(maxCommentsPerPost + 1); n > 0; n-- {
		commenter := accounts[s.rng.Intn(len(accounts))]
		if _, err := s.posts.AddComment(ctx, service.CommentInput{
			UserID: commenter.ID,
			PostID: postID,
			Text:   s.faker.Sentence(3 + s.rng.Intn(8)),
		}); err != nil {
			return fmt.Errorf("failed to comment: %w", err)
		}
		summary.Comments++
	}
	return nil
}

// pick returns n distinct indexes in [0, size) excluding skip.
func (s *Seeder) pick(size, n, skip int) []int {
	out := make([]int, 0, n)
	for _, idx := range s.rng.Perm(size) {
		if len(out) == n {
			break
		}
		if idx != skip {
			out = append(out, idx)
		}
	}
	return out
}

func indexOf(accounts []*models.User, id string) int {
	for i, a := range accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// username derives a handle that passes the registration rules and stays unique through n.
func username(base string, n int) string {
	handle := usernameCleaner.ReplaceAllString(strings.ToLower(strings.ReplaceAll(base, " ", "_")), "")
	suffix := fmt.Sprintf("%d", n)
	if limit := 30 - len(suffix); len(handle) > limit {
		handle = handle[:limit]
	}
	if handle == "" {
		handle = "user"
	}
	return handle + suffix
}
