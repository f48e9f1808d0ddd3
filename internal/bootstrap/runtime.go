// Package bootstrap opens the stores and shared clients a process needs.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"campusnet/internal/cache"
	"campusnet/internal/config"
	"campusnet/internal/database"
	"campusnet/internal/middleware"
	"campusnet/internal/models"
	"campusnet/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Runtime bundles the repositories for the configured backend with the optional Redis client.
type Runtime struct {
	Driver string
	Users  repository.UserRepository
	Posts  repository.PostRepository
	Redis  *redis.Client

	db      *gorm.DB
	mongo   *mongo.Client
	mongoDB *mongo.Database
}

// InitRuntime connects to the store selected by DB_DRIVER and to Redis.
// Redis is optional: when unreachable Runtime.Redis is nil.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{Driver: cfg.DBDriver}

	switch cfg.DBDriver {
	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("mongo connection failed: %w", err)
		}
		rt.mongo = client
		rt.mongoDB = db
		rt.Users = repository.NewMongoUserRepository(db)
		rt.Posts = repository.NewMongoPostRepository(db)
	default:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		rt = FromDB(cfg.DBDriver, db, nil)
	}

	cache.InitRedis(cfg.RedisURL)
	rt.Redis = cache.GetClient()

	middleware.Logger.Info("runtime initialized",
		"driver", rt.Driver,
		"redis", rt.Redis != nil,
	)
	return rt, nil
}

// NewRuntime wraps already-open repositories. Close leaves them untouched.
func NewRuntime(driver string, users repository.UserRepository, posts repository.PostRepository, rdb *redis.Client) *Runtime {
	return &Runtime{Driver: driver, Users: users, Posts: posts, Redis: rdb}
}

// FromDB builds a runtime that owns an already-open relational connection.
func FromDB(driver string, db *gorm.DB, rdb *redis.Client) *Runtime {
	return &Runtime{
		Driver: driver,
		Users:  repository.NewUserRepository(db),
		Posts:  repository.NewPostRepository(db),
		Redis:  rdb,
		db:     db,
	}
}

// Reset removes every stored record. It is used by the seeder before repopulating.
func (r *Runtime) Reset(ctx context.Context) error {
	switch {
	case r.db != nil:
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, model := range []any{
				&models.Comment{}, &models.PostBookmark{}, &models.PostLike{},
				&models.Post{}, &models.Follow{}, &models.User{},
			} {
				if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
					return fmt.Errorf("failed to clear %T: %w", model, err)
				}
			}
			return nil
		})
	case r.mongoDB != nil:
		for _, name := range []string{database.UsersCollection, database.PostsCollection} {
			if _, err := r.mongoDB.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
				return fmt.Errorf("failed to clear %s: %w", name, err)
			}
		}
		return nil
	default:
		return errors.New("runtime has no owned store to reset")
	}
}

// Close releases the store connections and the Redis client.
func (r *Runtime) Close(ctx context.Context) error {
	var firstErr error
	if r.db != nil {
		if sqlDB, err := r.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				firstErr = cerr
			}
		}
	}
	if r.mongo != nil {
		if err := r.mongo.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
