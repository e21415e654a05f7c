package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkpost/inkpost/internal/model"
	"github.com/inkpost/inkpost/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	avatar TEXT,
	posts INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);

CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'Uncategorized',
	description TEXT NOT NULL,
	thumbnail TEXT NOT NULL,
	creator_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_updated_at ON posts(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_category ON posts(category);
CREATE INDEX IF NOT EXISTS idx_posts_creator_id ON posts(creator_id);
`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, name, email, password_hash, avatar, posts)
VALUES (?, ?, ?, ?, ?, ?)
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

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, email, password_hash, avatar, posts
FROM users
WHERE id = ?
`, id)
	return scanUser(row)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, email, password_hash, avatar, posts
FROM users
WHERE email = ?
LIMIT 1
`, email)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, email, password_hash, avatar, posts
FROM users
ORDER BY rowid ASC
`)
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
	res, err := s.db.ExecContext(ctx, `
UPDATE users SET name = ?, email = ?, password_hash = ? WHERE id = ?
`, name, email, passwordHash, id)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateEmail
		}
		return err
	}
	return requireAffected(res)
}

func (s *Store) SetUserAvatar(ctx context.Context, id, avatar string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET avatar = ? WHERE id = ?`, nullIfEmpty(avatar), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) AdjustUserPostCount(ctx context.Context, id string, delta int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET posts = posts + ? WHERE id = ?`, delta, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) error {
	id := uuid.NewString()
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}
	post.Category = model.NormalizeCategory(post.Category)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO posts (id, title, category, description, thumbnail, creator_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, id, post.Title, post.Category, post.Description, post.Thumbnail, post.CreatorID, post.CreatedAt.UnixNano(), post.UpdatedAt.UnixNano())
	if err != nil {
		return err
	}
	post.ID = id
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (model.Post, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, title, category, description, thumbnail, creator_id, created_at, updated_at
FROM posts
WHERE id = ?
LIMIT 1
`, id)
	return scanPost(row)
}

func (s *Store) ListPosts(ctx context.Context) ([]model.Post, error) {
	return s.queryPosts(ctx, `
SELECT id, title, category, description, thumbnail, creator_id, created_at, updated_at
FROM posts
ORDER BY updated_at DESC, rowid DESC
`)
}

func (s *Store) ListPostsByCategory(ctx context.Context, category string) ([]model.Post, error) {
	return s.queryPosts(ctx, `
SELECT id, title, category, description, thumbnail, creator_id, created_at, updated_at
FROM posts
WHERE category = ?
ORDER BY created_at DESC, rowid DESC
`, category)
}

func (s *Store) ListPostsByCreator(ctx context.Context, creatorID string) ([]model.Post, error) {
	return s.queryPosts(ctx, `
SELECT id, title, category, description, thumbnail, creator_id, created_at, updated_at
FROM posts
WHERE creator_id = ?
ORDER BY created_at DESC, rowid DESC
`, creatorID)
}

func (s *Store) UpdatePost(ctx context.Context, post *model.Post) error {
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE posts SET title = ?, category = ?, description = ?, thumbnail = ?, updated_at = ?
WHERE id = ?
`, post.Title, model.NormalizeCategory(post.Category), post.Description, post.Thumbnail, post.UpdatedAt.UnixNano(), post.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func scanUser(scanner interface{ Scan(dest ...any) error }) (model.User, error) {
	var u model.User
	var avatar sql.NullString
	if err := scanner.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &avatar, &u.Posts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	if avatar.Valid {
		u.Avatar = avatar.String
	}
	return u, nil
}

func scanPost(scanner interface{ Scan(dest ...any) error }) (model.Post, error) {
	var p model.Post
	var created, updated int64
	if err := scanner.Scan(&p.ID, &p.Title, &p.Category, &p.Description, &p.Thumbnail, &p.CreatorID, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return p, nil
}

func requireAffected(res sql.Result) error {
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
