// Package testutil opens a throwaway archive database for tests.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"puzzle-party/internal/config"
	"puzzle-party/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenTestStore creates a private schema on TEST_POSTGRES_DSN, applies every
// up migration in order and drops the schema when the test ends. The test is
// skipped when no DSN is configured.
func OpenTestStore(t *testing.T) *store.Store {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip archive db: %v", err)
	}
	ctx := context.Background()
	schema := pgx.Identifier{fmt.Sprintf("results_test_%d", time.Now().UnixNano())}.Sanitize()

	if err := execOnce(ctx, cfg.TestPostgresDSN, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_ = execOnce(context.Background(), cfg.TestPostgresDSN, "DROP SCHEMA "+schema+" CASCADE")
	})

	st, err := store.New(withSearchPath(cfg.TestPostgresDSN, strings.Trim(schema, `"`)))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.Close)

	files, err := upMigrations()
	if err != nil {
		t.Fatalf("find migrations: %v", err)
	}
	for _, f := range files {
		sql, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := st.Pool.Exec(ctx, string(sql)); err != nil {
			t.Fatalf("apply %s: %v", filepath.Base(f), err)
		}
	}
	return st
}

func execOnce(ctx context.Context, dsn, sql string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()
	_, err = pool.Exec(ctx, sql)
	return err
}

// upMigrations walks up from the working directory to the repo's migrations
// directory and returns its *.up.sql files sorted by name.
func upMigrations() ([]string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	for {
		files, err := filepath.Glob(filepath.Join(dir, "migrations", "*.up.sql"))
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			sort.Strings(files)
			return files, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("no migrations found above %s", dir)
		}
		dir = parent
	}
}

func withSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}
