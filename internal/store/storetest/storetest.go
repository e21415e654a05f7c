// Package storetest holds behaviour checks shared by every store.Store backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inkpost/inkpost/internal/model"
	"github.com/inkpost/inkpost/internal/store"
)

// Run executes the suite. newStore must return an empty store; it is called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("UserLifecycle", func(t *testing.T) { testUserLifecycle(t, newStore(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("PostLifecycle", func(t *testing.T) { testPostLifecycle(t, newStore(t)) })
	t.Run("PostListings", func(t *testing.T) { testPostListings(t, newStore(t)) })
	t.Run("MissingRecords", func(t *testing.T) { testMissingRecords(t, newStore(t)) })
}

func createUser(t *testing.T, st store.Store, name, email string) model.User {
	t.Helper()
	u := model.User{Name: name, Email: email, PasswordHash: "hash"}
	if err := st.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	if u.ID == "" {
		t.Fatalf("expected user id")
	}
	return u
}

func testUserLifecycle(t *testing.T, st store.Store) {
	ctx := context.Background()
	u := createUser(t, st, "Ada", "ada@example.com")

	got, err := st.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Name != "Ada" || got.Email != "ada@example.com" || got.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.Avatar != "" || got.Posts != 0 {
		t.Fatalf("expected empty avatar and zero posts, got %+v", got)
	}

	byEmail, err := st.FindUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Fatalf("expected id %s, got %s", u.ID, byEmail.ID)
	}

	if err := st.UpdateUserProfile(ctx, u.ID, "Ada L", "lovelace@example.com", "hash2"); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if err := st.SetUserAvatar(ctx, u.ID, "me.png"); err != nil {
		t.Fatalf("set avatar: %v", err)
	}
	if err := st.AdjustUserPostCount(ctx, u.ID, 2); err != nil {
		t.Fatalf("increment posts: %v", err)
	}
	if err := st.AdjustUserPostCount(ctx, u.ID, -1); err != nil {
		t.Fatalf("decrement posts: %v", err)
	}

	got, err = st.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get user after update: %v", err)
	}
	if got.Name != "Ada L" || got.Email != "lovelace@example.com" || got.PasswordHash != "hash2" {
		t.Fatalf("profile not updated: %+v", got)
	}
	if got.Avatar != "me.png" {
		t.Fatalf("expected avatar me.png, got %q", got.Avatar)
	}
	if got.Posts != 1 {
		t.Fatalf("expected posts 1, got %d", got.Posts)
	}

	createUser(t, st, "Grace", "grace@example.com")
	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func testDuplicateEmail(t *testing.T, st store.Store) {
	ctx := context.Background()
	createUser(t, st, "Ada", "ada@example.com")

	dup := model.User{Name: "Other", Email: "ada@example.com", PasswordHash: "x"}
	if err := st.CreateUser(ctx, &dup); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	other := createUser(t, st, "Grace", "grace@example.com")
	if err := st.UpdateUserProfile(ctx, other.ID, "Grace", "ada@example.com", "x"); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail on update, got %v", err)
	}

	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func testPostLifecycle(t *testing.T, st store.Store) {
	ctx := context.Background()
	u := createUser(t, st, "Ada", "ada@example.com")

	p := model.Post{
		Title:       "Engines",
		Description: "Notes on the analytical engine",
		Thumbnail:   "engine.png",
		CreatorID:   u.ID,
	}
	if err := st.CreatePost(ctx, &p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("expected post id")
	}
	if p.Category != model.DefaultCategory {
		t.Fatalf("expected default category, got %q", p.Category)
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}

	got, err := st.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.Title != p.Title || got.CreatorID != u.ID || got.Thumbnail != "engine.png" {
		t.Fatalf("unexpected post: %+v", got)
	}

	got.Title = "Engines, revised"
	got.Category = "Education"
	got.Thumbnail = "engine2.png"
	got.UpdatedAt = got.UpdatedAt.Add(time.Minute)
	if err := st.UpdatePost(ctx, &got); err != nil {
		t.Fatalf("update post: %v", err)
	}
	updated, err := st.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("get updated post: %v", err)
	}
	if updated.Title != "Engines, revised" || updated.Category != "Education" || updated.Thumbnail != "engine2.png" {
		t.Fatalf("post not updated: %+v", updated)
	}
	if updated.CreatorID != u.ID {
		t.Fatalf("creator changed: %s", updated.CreatorID)
	}
	if !updated.UpdatedAt.Equal(got.UpdatedAt) {
		t.Fatalf("updatedAt written back as %v, stored %v", got.UpdatedAt, updated.UpdatedAt)
	}

	if err := st.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if _, err := st.GetPost(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func testPostListings(t *testing.T, st store.Store) {
	ctx := context.Background()
	a := createUser(t, st, "Ada", "ada@example.com")
	b := createUser(t, st, "Grace", "grace@example.com")

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	mk := func(title, category, creator string, offset time.Duration) model.Post {
		p := model.Post{
			Title:       title,
			Category:    category,
			Description: "description for " + title,
			Thumbnail:   title + ".png",
			CreatorID:   creator,
			CreatedAt:   base.Add(offset),
		}
		if err := st.CreatePost(ctx, &p); err != nil {
			t.Fatalf("create post %s: %v", title, err)
		}
		return p
	}
	p1 := mk("first", "Art", a.ID, 0)
	p2 := mk("second", "Business", b.ID, time.Minute)
	p3 := mk("third", "Art", b.ID, 2*time.Minute)

	art, err := st.ListPostsByCategory(ctx, "Art")
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	assertIDs(t, "category Art", art, p3.ID, p1.ID)

	byB, err := st.ListPostsByCreator(ctx, b.ID)
	if err != nil {
		t.Fatalf("list by creator: %v", err)
	}
	assertIDs(t, "creator b", byB, p3.ID, p2.ID)

	none, err := st.ListPostsByCategory(ctx, "Weather")
	if err != nil {
		t.Fatalf("list empty category: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no Weather posts, got %d", len(none))
	}

	// Touching the oldest post moves it to the front of the recency listing.
	p1.UpdatedAt = base.Add(10 * time.Minute)
	if err := st.UpdatePost(ctx, &p1); err != nil {
		t.Fatalf("update post: %v", err)
	}
	all, err := st.ListPosts(ctx)
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	assertIDs(t, "all", all, p1.ID, p3.ID, p2.ID)
}

func testMissingRecords(t *testing.T, st store.Store) {
	ctx := context.Background()
	if _, err := st.GetUser(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get user: expected ErrNotFound, got %v", err)
	}
	if _, err := st.FindUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("find user: expected ErrNotFound, got %v", err)
	}
	if _, err := st.GetPost(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get post: expected ErrNotFound, got %v", err)
	}
	if err := st.DeletePost(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("delete post: expected ErrNotFound, got %v", err)
	}
	if err := st.AdjustUserPostCount(ctx, "missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("adjust posts: expected ErrNotFound, got %v", err)
	}
	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Fatalf("expected empty non-nil user list, got %#v", users)
	}
}

func assertIDs(t *testing.T, label string, posts []model.Post, want ...string) {
	t.Helper()
	if len(posts) != len(want) {
		t.Fatalf("%s: expected %d posts, got %d", label, len(want), len(posts))
	}
	for i, id := range want {
		if posts[i].ID != id {
			t.Fatalf("%s: position %d: expected %s, got %s (%s)", label, i, id, posts[i].ID, posts[i].Title)
		}
	}
}
