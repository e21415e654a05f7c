// Package postgres is the PostgreSQL backend for store.Store, built on a pgx
// connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkpost/inkpost/internal/model"
	"github.com/inkpost/inkpost/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns < 10 {
		cfg.MaxConns = 10
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := applySchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// seq gives rows a stable insertion order for ties on the timestamp columns.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL NOT NULL,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	avatar TEXT,
	posts INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL NOT NULL,
	title TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'Uncategorized',
	description TEXT NOT NULL,
	thumbnail TEXT NOT NULL,
	creator_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_updated_at ON posts(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_category_created ON posts(category, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_creator_created ON posts(creator_id, created_at DESC);
`,
}

func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}

	var currentVersion int
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := pool.Exec(ctx, migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (id, name, email, password_hash, avatar, posts)
VALUES ($1, $2, $3, $4, $5, $6)
`, id, user.Name, user.Email, user.PasswordHash, nullIfEmpty(user.Avatar), user.Posts)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateEmail
		}
		return err
	}
	user.ID = id
	return nil
}

const userColumns = `id, name, email, password_hash, avatar, posts`

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserProfile(ctx context.Context, id, name, email, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET name = $1, email = $2, password_hash = $3 WHERE id = $4`,
		name, email, passwordHash, id)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateEmail
		}
		return err
	}
	return requireAffected(tag)
}

func (s *Store) SetUserAvatar(ctx context.Context, id, avatar string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET avatar = $1 WHERE id = $2`, nullIfEmpty(avatar), id)
	if err != nil {
		return err
	}
	return requireAffected(tag)
}

func (s *Store) AdjustUserPostCount(ctx context.Context, id string, delta int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET posts = posts + $1 WHERE id = $2`, delta, id)
	if err != nil {
		return err
	}
	return requireAffected(tag)
}

const postColumns = `id, title, category, description, thumbnail, creator_id, created_at, updated_at`

func (s *Store) CreatePost(ctx context.Context, post *model.Post) error {
	id := uuid.NewString()
	// TIMESTAMPTZ keeps microseconds.
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.CreatedAt = post.CreatedAt.Truncate(time.Microsecond)
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}
	post.UpdatedAt = post.UpdatedAt.Truncate(time.Microsecond)
	post.Category = model.NormalizeCategory(post.Category)

	_, err := s.pool.Exec(ctx, `
INSERT INTO posts (`+postColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, id, post.Title, post.Category, post.Description, post.Thumbnail, post.CreatorID, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return err
	}
	post.ID = id
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (model.Post, error) {
	return scanPost(s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
}

func (s *Store) ListPosts(ctx context.Context) ([]model.Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts ORDER BY updated_at DESC, seq DESC`)
}

func (s *Store) ListPostsByCategory(ctx context.Context, category string) ([]model.Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE category = $1 ORDER BY created_at DESC, seq DESC`, category)
}

func (s *Store) ListPostsByCreator(ctx context.Context, creatorID string) ([]model.Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE creator_id = $1 ORDER BY created_at DESC, seq DESC`, creatorID)
}

func (s *Store) UpdatePost(ctx context.Context, post *model.Post) error {
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = time.Now().UTC()
	}
	post.UpdatedAt = post.UpdatedAt.Truncate(time.Microsecond)
	tag, err := s.pool.Exec(ctx, `
UPDATE posts SET title = $1, category = $2, description = $3, thumbnail = $4, updated_at = $5
WHERE id = $6
`, post.Title, model.NormalizeCategory(post.Category), post.Description, post.Thumbnail, post.UpdatedAt, post.ID)
	if err != nil {
		return err
	}
	return requireAffected(tag)
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(tag)
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	var avatar *string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &avatar, &u.Posts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	if avatar != nil {
		u.Avatar = *avatar
	}
	return u, nil
}

func scanPost(row pgx.Row) (model.Post, error) {
	var p model.Post
	if err := row.Scan(&p.ID, &p.Title, &p.Category, &p.Description, &p.Thumbnail, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func requireAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
