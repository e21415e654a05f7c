// Package mongo stores users and posts in MongoDB collections whose documents
// keep the field names of the original blog schema (name, email, password,
// avatar, posts / title, category, description, thumbnail, creator, createdAt,
// updatedAt), so existing data can be served without migration.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/inkpost/inkpost/internal/model"
	"github.com/inkpost/inkpost/internal/store"
)

const (
	usersCollection = "users"
	postsCollection = "posts"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	users  *mongo.Collection
	posts  *mongo.Collection
}

type userDoc struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Email    string             `bson:"email"`
	Password string             `bson:"password"`
	Avatar   *string            `bson:"avatar"`
	Posts    int                `bson:"posts"`
}

type postDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Category    string             `bson:"category"`
	Description string             `bson:"description"`
	Thumbnail   string             `bson:"thumbnail"`
	Creator     primitive.ObjectID `bson:"creator"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// Open connects to uri, verifies the connection and ensures indexes on dbName.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(dbName)
	s := &Store{
		client: client,
		db:     db,
		users:  db.Collection(usersCollection),
		posts:  db.Collection(postsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	if _, err := s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "creator", Value: 1}, {Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("create posts indexes: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes the whole database. Tests use it to clean up.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	doc := userDoc{
		Name:     user.Name,
		Email:    user.Email,
		Password: user.PasswordHash,
		Avatar:   stringPtr(user.Avatar),
		Posts:    user.Posts,
	}
	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateEmail
		}
		return err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	user.ID = oid.Hex()
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.User{}, store.ErrNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (model.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	return doc.toModel(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	users := []model.User{}
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		users = append(users, doc.toModel())
	}
	return users, cur.Err()
}

func (s *Store) UpdateUserProfile(ctx context.Context, id, name, email, passwordHash string) error {
	return s.updateUser(ctx, id, bson.M{"$set": bson.M{
		"name":     name,
		"email":    email,
		"password": passwordHash,
	}})
}

func (s *Store) SetUserAvatar(ctx context.Context, id, avatar string) error {
	return s.updateUser(ctx, id, bson.M{"$set": bson.M{"avatar": stringPtr(avatar)}})
}

func (s *Store) AdjustUserPostCount(ctx context.Context, id string, delta int) error {
	return s.updateUser(ctx, id, bson.M{"$inc": bson.M{"posts": delta}})
}

func (s *Store) updateUser(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	res, err := s.users.UpdateByID(ctx, oid, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) error {
	creator, err := primitive.ObjectIDFromHex(post.CreatorID)
	if err != nil {
		return fmt.Errorf("invalid creator id %q: %w", post.CreatorID, err)
	}
	// BSON datetimes carry millisecond precision.
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.CreatedAt = post.CreatedAt.Truncate(time.Millisecond)
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}
	post.UpdatedAt = post.UpdatedAt.Truncate(time.Millisecond)
	post.Category = model.NormalizeCategory(post.Category)

	res, err := s.posts.InsertOne(ctx, postDoc{
		Title:       post.Title,
		Category:    post.Category,
		Description: post.Description,
		Thumbnail:   post.Thumbnail,
		Creator:     creator,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	})
	if err != nil {
		return err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	post.ID = oid.Hex()
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (model.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Post{}, store.ErrNotFound
	}
	var doc postDoc
	if err := s.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	return doc.toModel(), nil
}

func (s *Store) ListPosts(ctx context.Context) ([]model.Post, error) {
	return s.findPosts(ctx, bson.M{}, "updatedAt")
}

func (s *Store) ListPostsByCategory(ctx context.Context, category string) ([]model.Post, error) {
	return s.findPosts(ctx, bson.M{"category": category}, "createdAt")
}

func (s *Store) ListPostsByCreator(ctx context.Context, creatorID string) ([]model.Post, error) {
	oid, err := primitive.ObjectIDFromHex(creatorID)
	if err != nil {
		return []model.Post{}, nil
	}
	return s.findPosts(ctx, bson.M{"creator": oid}, "createdAt")
}

func (s *Store) findPosts(ctx context.Context, filter bson.M, sortField string) ([]model.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: sortField, Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	posts := []model.Post{}
	for cur.Next(ctx) {
		var doc postDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		posts = append(posts, doc.toModel())
	}
	return posts, cur.Err()
}

func (s *Store) UpdatePost(ctx context.Context, post *model.Post) error {
	oid, err := primitive.ObjectIDFromHex(post.ID)
	if err != nil {
		return store.ErrNotFound
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = time.Now().UTC()
	}
	post.UpdatedAt = post.UpdatedAt.Truncate(time.Millisecond)
	res, err := s.posts.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"title":       post.Title,
		"category":    model.NormalizeCategory(post.Category),
		"description": post.Description,
		"thumbnail":   post.Thumbnail,
		"updatedAt":   post.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d userDoc) toModel() model.User {
	u := model.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Posts:        d.Posts,
	}
	if d.Avatar != nil {
		u.Avatar = *d.Avatar
	}
	return u
}

func (d postDoc) toModel() model.Post {
	return model.Post{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Category:    d.Category,
		Description: d.Description,
		Thumbnail:   d.Thumbnail,
		CreatorID:   d.Creator.Hex(),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
