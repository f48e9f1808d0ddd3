package repository

import (
	"context"
	"time"

	"campusnet/internal/database"
	"campusnet/internal/models"
	"campusnet/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

type mongoPostRepository struct {
	posts *mongo.Collection
}

// NewMongoPostRepository returns a PostRepository backed by the posts collection.
// Likes, bookmarks, and comments live inside each post document.
func NewMongoPostRepository(db *mongo.Database) PostRepository {
	return &mongoPostRepository{posts: db.Collection(database.PostsCollection)}
}

func (r *mongoPostRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, done := observability.TrackStore(ctx, backendMongo, "posts.create")
	defer done()

	if post.ID == "" {
		post.ID = models.NewID()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	post.Normalize()

	if _, err := r.posts.InsertOne(ctx, post); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *mongoPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	ctx, done := observability.TrackStore(ctx, backendMongo, "posts.get")
	defer done()

	var post models.Post
	if err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, notFoundOr(err, "Post not found")
	}
	post.Normalize()
	return &post, nil
}

func (r *mongoPostRepository) DeleteOwned(ctx context.Context, id, userID string) (bool, error) {
	ctx, done := observability.TrackStore(ctx, backendMongo, "posts.delete")
	defer done()

	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoPostRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	ctx, done := observability.TrackStore(ctx, backendMongo, "posts.toggle_like")
	defer done()
	return r.toggleMember(ctx, postID, "likes", userID)
}

func (r *mongoPostRepository) ToggleBookmark(ctx context.Context, postID, userID string) (bool, error) {
	ctx, done := observability.TrackStore(ctx, backendMongo, "posts.toggle_bookmark")
	defer done()
	return r.toggleMember(ctx, postID, "bookmarks", userID)
}

// toggleMember adds userID to field when absent, else removes it. Each branch is
// a single conditional update, so a concurrent toggle cannot leave a duplicate.
func (r *mongoPostRepository) toggleMember(ctx context.Context, postID, field, userID string) (bool, error) {
	res, err := r.posts.UpdateOne(ctx,
		bson.M{"_id": postID, field: bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{field: userID}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	res, err = r.posts.UpdateOne(ctx,
		bson.M{"_id": postID, field: userID},
		bson.M{"$pull": bson.M{field: userID}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return false, models.NewNotFoundError("Post not found")
	}
	return false, nil
}

func (r *mongoPostRepository) AddComment(ctx context.Context, postID string, comment *models.Comment) error {
	ctx, done := observability.TrackStore(ctx, backendMongo, "posts.comment")
	defer done()

	if comment.ID == "" {
		comment.ID = models.NewID()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	comment.PostID = postID

	res, err := r.posts.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$push": bson.M{"comments": comment}},
	)
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("Post not found")
	}
	return nil
}

func (r *mongoPostRepository) ListByAuthors(ctx context.Context, authorIDs []string, limit, offset int) ([]models.Post, error) {
	ctx, done := observability.TrackStore(ctx, backendMongo, "posts.list_by_authors")
	defer done()

	if len(authorIDs) == 0 {
		return []models.Post{}, nil
	}
	return r.find(ctx, bson.M{"user_id": bson.M{"$in": authorIDs}}, limit, offset)
}

func (r *mongoPostRepository) ListBookmarkedBy(ctx context.Context, userID string, limit, offset int) ([]models.Post, error) {
	ctx, done := observability.TrackStore(ctx, backendMongo, "posts.list_bookmarked")
	defer done()
	return r.find(ctx, bson.M{"bookmarks": userID}, limit, offset)
}

func (r *mongoPostRepository) find(ctx context.Context, filter bson.M, limit, offset int) ([]models.Post, error) {
	opts := options.Find().SetSort(newestFirst)
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range posts {
		posts[i].Normalize()
	}
	return posts, nil
}
