package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"campusnet/internal/database"
	"campusnet/internal/models"
	"campusnet/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var withoutPassword = bson.M{"password": 0}

type mongoUserRepository struct {
	db    *mongo.Database
	users *mongo.Collection
}

// NewMongoUserRepository returns a UserRepository backed by the users collection.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{db: db, users: db.Collection(database.UsersCollection)}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) error {
	ctx, done := observability.TrackStore(ctx, backendMongo, "users.create")
	defer done()

	if user.ID == "" {
		user.ID = models.NewID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Followers = emptyIfNil(user.Followers)
	user.Following = emptyIfNil(user.Following)

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, done := observability.TrackStore(ctx, backendMongo, "users.get")
	defer done()

	var user models.User
	err := r.users.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(withoutPassword)).Decode(&user)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	normalizeUser(&user)
	return &user, nil
}

func (r *mongoUserRepository) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	cur, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(withoutPassword))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return decodeUsers(ctx, cur)
}

func (r *mongoUserRepository) GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.users.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	normalizeUser(&user)
	return &user, nil
}

func (r *mongoUserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	n, err := r.users.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *mongoUserRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	ctx, done := observability.TrackStore(ctx, backendMongo, "users.search")
	defer done()

	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}

	pattern := bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"username": pattern},
		bson.M{"name": pattern},
		bson.M{"club_name": pattern},
	}}
	opts := options.Find().
		SetProjection(withoutPassword).
		SetSort(bson.D{{Key: "username", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := r.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return decodeUsers(ctx, cur)
}

// ToggleFollow updates both user documents in one transaction. Transactions
// require the server to run as a replica set.
func (r *mongoUserRepository) ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	ctx, done := observability.TrackStore(ctx, backendMongo, "follows.toggle")
	defer done()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return false, models.NewInternalError(err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		res, err := r.users.UpdateOne(sessCtx,
			bson.M{"_id": followeeID, "followers": bson.M{"$ne": followerID}},
			bson.M{"$addToSet": bson.M{"followers": followerID}},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 1 {
			if _, err := r.users.UpdateOne(sessCtx,
				bson.M{"_id": followerID},
				bson.M{"$addToSet": bson.M{"following": followeeID}},
			); err != nil {
				return nil, err
			}
			return true, nil
		}

		res, err = r.users.UpdateOne(sessCtx,
			bson.M{"_id": followeeID, "followers": followerID},
			bson.M{"$pull": bson.M{"followers": followerID}},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, models.NewNotFoundError("User not found")
		}
		if _, err := r.users.UpdateOne(sessCtx,
			bson.M{"_id": followerID},
			bson.M{"$pull": bson.M{"following": followeeID}},
		); err != nil {
			return nil, err
		}
		return false, nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return false, appErr
		}
		return false, models.NewInternalError(err)
	}
	return result.(bool), nil
}

func (r *mongoUserRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var doc struct {
		Following []string `bson:"following"`
	}
	err := r.users.FindOne(ctx, bson.M{"_id": userID}, options.FindOne().SetProjection(bson.M{"following": 1})).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []string{}, nil
		}
		return nil, models.NewInternalError(err)
	}
	return emptyIfNil(doc.Following), nil
}

func (r *mongoUserRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, nil)
}

func decodeUsers(ctx context.Context, cur *mongo.Cursor) ([]models.User, error) {
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range users {
		normalizeUser(&users[i])
	}
	return users, nil
}

func normalizeUser(u *models.User) {
	u.Followers = emptyIfNil(u.Followers)
	u.Following = emptyIfNil(u.Following)
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NewNotFoundError(message)
	}
	return models.NewInternalError(err)
}
