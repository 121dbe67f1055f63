package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akravch/gitscout/internal/domain/model"
)

// setupTestDB creates a migrated file-backed database in a temp dir. A real
// file (not :memory:) keeps the reader and writer pools on the same WAL
// database, which is what transaction visibility tests exercise.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(db.Writer))

	return db
}

// testRepository returns a valid repository with overridable identity.
func testRepository(externalID int64, owner, language string, stars int64) model.Repository {
	return model.Repository{
		ExternalID:  externalID,
		Name:        "repo-" + owner,
		Description: "test repository",
		StarCount:   stars,
		ForkCount:   2,
		UpdatedAt:   time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC),
		Language:    language,
		OwnerLogin:  owner,
		SyncedAt:    time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC),
	}
}

// mustCommit stages the given repositories in one transaction and commits.
func mustCommit(t *testing.T, store *RepoRepo, repos ...model.Repository) {
	t.Helper()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	for _, repo := range repos {
		require.NoError(t, tx.Upsert(ctx, repo))
	}
	require.NoError(t, tx.Commit(ctx))
}

// flatten collects every repository across groups in order.
func flatten(groups []model.LanguageGroup) []model.Repository {
	var repos []model.Repository
	for _, g := range groups {
		repos = append(repos, g.Repositories...)
	}
	return repos
}
