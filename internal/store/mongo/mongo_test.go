package mongo

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/inkpost/inkpost/internal/store"
	"github.com/inkpost/inkpost/internal/store/storetest"
)

// These tests need a live server: INKPOST_TEST_MONGO_URL=mongodb://localhost:27017
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("INKPOST_TEST_MONGO_URL")
	if uri == "" {
		t.Skip("INKPOST_TEST_MONGO_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbName := "inkpost_test_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	if len(dbName) > 60 {
		dbName = dbName[:60]
	}
	st, err := Open(ctx, uri, dbName)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	// Start from an empty database even if a previous run was interrupted.
	if err := st.Drop(ctx); err != nil {
		t.Fatalf("drop database: %v", err)
	}
	if err := st.ensureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Drop(context.Background())
		_ = st.Close()
	})
	return st
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	st := newTestStore(t)
	posts, err := st.ListPostsByCreator(context.Background(), "not-an-object-id")
	if err != nil {
		t.Fatalf("list by malformed creator: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected no posts, got %d", len(posts))
	}
	if err := st.SetUserAvatar(context.Background(), "zzz", "a.png"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
