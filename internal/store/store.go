package store

import (
	"context"
	"errors"

	"github.com/inkpost/inkpost/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

type Store interface {
	UserStore
	PostStore
	Ping(ctx context.Context) error
	Close() error
}

type UserStore interface {
	// CreateUser assigns user.ID. It returns ErrDuplicateEmail when the email is taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (model.User, error)
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUserProfile(ctx context.Context, id, name, email, passwordHash string) error
	SetUserAvatar(ctx context.Context, id, avatar string) error
	AdjustUserPostCount(ctx context.Context, id string, delta int) error
}

type PostStore interface {
	// CreatePost assigns post.ID and stamps CreatedAt/UpdatedAt when zero.
	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id string) (model.Post, error)
	// ListPosts returns every post, most recently updated first.
	ListPosts(ctx context.Context) ([]model.Post, error)
	// ListPostsByCategory and ListPostsByCreator return newest first by creation time.
	ListPostsByCategory(ctx context.Context, category string) ([]model.Post, error)
	ListPostsByCreator(ctx context.Context, creatorID string) ([]model.Post, error)
	// UpdatePost writes title, category, description, thumbnail and UpdatedAt.
	UpdatePost(ctx context.Context, post *model.Post) error
	DeletePost(ctx context.Context, id string) error
}
