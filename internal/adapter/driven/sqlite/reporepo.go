package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akravch/gitscout/internal/domain/model"
	"github.com/akravch/gitscout/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoStore = (*RepoRepo)(nil)

// RepoRepo is the SQLite implementation of the RepoStore port. Transactions
// run on the single-connection writer; Search and CountMatching run on the
// reader pool and therefore only ever observe committed data.
type RepoRepo struct {
	db *DB

	mu   sync.Mutex
	subs map[<-chan struct{}]chan struct{}
}

// NewRepoRepo creates a new RepoRepo backed by the given DB.
func NewRepoRepo(db *DB) *RepoRepo {
	return &RepoRepo{
		db:   db,
		subs: make(map[<-chan struct{}]chan struct{}),
	}
}

const repoColumns = `id, external_id, name, description, star_count, fork_count, updated_at, language, owner_login, synced_at`

// Begin opens a staged transaction scope on the writer connection.
func (r *RepoRepo) Begin(ctx context.Context) (driven.RepoTx, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %v", driven.ErrStorageFailure, err)
	}

	return &repoTx{tx: tx, store: r}, nil
}

// Search returns committed repositories whose owner login contains
// ownerQuery, grouped by language. A single ordered scan produces the
// groups: language ascending, star count descending within a group.
func (r *RepoRepo) Search(ctx context.Context, ownerQuery string) ([]model.LanguageGroup, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories
		WHERE ? = '' OR instr(lower(owner_login), lower(?)) > 0
		ORDER BY language ASC, star_count DESC, name ASC`

	rows, err := r.db.Reader.QueryContext(ctx, query, ownerQuery, ownerQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: search repositories: %v", driven.ErrStorageFailure, err)
	}
	defer rows.Close()

	var groups []model.LanguageGroup
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan repository: %v", driven.ErrStorageFailure, err)
		}

		if len(groups) == 0 || groups[len(groups)-1].Language != repo.Language {
			groups = append(groups, model.LanguageGroup{Language: repo.Language})
		}
		last := &groups[len(groups)-1]
		last.Repositories = append(last.Repositories, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate repositories: %v", driven.ErrStorageFailure, err)
	}

	return groups, nil
}

// CountMatching reports how many committed repositories match ownerQuery.
func (r *RepoRepo) CountMatching(ctx context.Context, ownerQuery string) (int, error) {
	const query = `SELECT COUNT(*) FROM repositories WHERE ? = '' OR instr(lower(owner_login), lower(?)) > 0`

	var count int
	if err := r.db.Reader.QueryRowContext(ctx, query, ownerQuery, ownerQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count repositories: %v", driven.ErrStorageFailure, err)
	}

	return count, nil
}

// Subscribe registers a change listener. The channel has capacity one; a
// pending undelivered signal is enough to trigger a reload, so commits never
// block on slow subscribers.
func (r *RepoRepo) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)

	r.mu.Lock()
	r.subs[ch] = ch
	r.mu.Unlock()

	return ch
}

// Unsubscribe removes a change listener registered with Subscribe.
func (r *RepoRepo) Unsubscribe(ch <-chan struct{}) {
	r.mu.Lock()
	delete(r.subs, ch)
	r.mu.Unlock()
}

// notify delivers a non-blocking change signal to every subscriber.
func (r *RepoRepo) notify() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range r.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// repoTx stages repository changes inside one SQLite transaction.
type repoTx struct {
	tx      *sql.Tx
	store   *RepoRepo
	done    bool
	changed bool
}

// GetByExternalID returns the repository as visible inside this transaction,
// staged changes included. Returns nil, nil if absent.
func (t *repoTx) GetByExternalID(ctx context.Context, externalID int64) (*model.Repository, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories WHERE external_id = ?`

	repo, err := scanRepository(t.tx.QueryRowContext(ctx, query, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get repository %d: %v", driven.ErrStorageFailure, externalID, err)
	}

	return repo, nil
}

// Upsert stages an insert or update keyed by external_id. ON CONFLICT keeps
// the existing row's local id, so observers bound to that identity see an
// update rather than a replace.
func (t *repoTx) Upsert(ctx context.Context, repo model.Repository) error {
	const query = `
		INSERT INTO repositories (
			external_id, name, description, star_count, fork_count,
			updated_at, language, owner_login, synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			star_count = excluded.star_count,
			fork_count = excluded.fork_count,
			updated_at = excluded.updated_at,
			language = excluded.language,
			owner_login = excluded.owner_login,
			synced_at = excluded.synced_at
	`

	var updatedAt any
	if !repo.UpdatedAt.IsZero() {
		updatedAt = repo.UpdatedAt.UTC().Format(time.RFC3339)
	}

	syncedAt := repo.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}

	_, err := t.tx.ExecContext(ctx, query,
		repo.ExternalID, repo.Name, repo.Description, repo.StarCount, repo.ForkCount,
		updatedAt, repo.Language, repo.OwnerLogin, syncedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert repository %d: %v", driven.ErrStorageFailure, repo.ExternalID, err)
	}

	t.changed = true
	return nil
}

// Commit makes the staged changes durable and, when anything was staged,
// notifies subscribers.
func (t *repoTx) Commit(_ context.Context) error {
	if t.done {
		return fmt.Errorf("%w: transaction already finished", driven.ErrStorageFailure)
	}
	t.done = true

	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", driven.ErrStorageFailure, err)
	}

	// Subscribers reload on a signal; an empty commit changed nothing.
	if t.changed {
		t.store.notify()
	}
	return nil
}

// Rollback discards the staged changes. Calling Rollback after the
// transaction already finished is a no-op, so failure paths can always
// defer to it.
func (t *repoTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true

	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("%w: rollback: %v", driven.ErrStorageFailure, err)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRepository(s scanner) (*model.Repository, error) {
	var repo model.Repository
	var updatedAt sql.NullString
	var syncedAt string

	err := s.Scan(
		&repo.ID, &repo.ExternalID, &repo.Name, &repo.Description,
		&repo.StarCount, &repo.ForkCount, &updatedAt, &repo.Language,
		&repo.OwnerLogin, &syncedAt,
	)
	if err != nil {
		return nil, err
	}

	if updatedAt.Valid {
		repo.UpdatedAt, err = parseTime(updatedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
	}

	repo.SyncedAt, err = parseTime(syncedAt)
	if err != nil {
		return nil, fmt.Errorf("parse synced_at: %w", err)
	}

	return &repo, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
