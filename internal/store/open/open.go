// Package open picks a store backend from a DSN.
package open

import (
	"context"
	"fmt"
	"strings"

	"github.com/inkpost/inkpost/internal/store"
	"github.com/inkpost/inkpost/internal/store/mongo"
	"github.com/inkpost/inkpost/internal/store/postgres"
	"github.com/inkpost/inkpost/internal/store/sqlite"
)

const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Backend reports which store a DSN selects. Anything that is not a MongoDB or
// PostgreSQL URL is treated as a SQLite path or DSN.
func Backend(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "mongodb://"), strings.HasPrefix(lower, "mongodb+srv://"):
		return BackendMongo
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return BackendPostgres
	default:
		return BackendSQLite
	}
}

// Open connects to the backend selected by dsn. mongoDB names the database
// used when dsn is a MongoDB URL.
func Open(ctx context.Context, dsn, mongoDB string) (store.Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty database url")
	}
	switch Backend(dsn) {
	case BackendMongo:
		return mongo.Open(ctx, dsn, mongoDB)
	case BackendPostgres:
		return postgres.Open(ctx, dsn)
	default:
		return sqlite.Open(dsn)
	}
}
