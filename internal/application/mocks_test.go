package application

import (
	"context"
	"sync"

	"github.com/akravch/gitscout/internal/domain/model"
	"github.com/akravch/gitscout/internal/domain/port/driven"
)

// mockRepoSearcher implements driven.RepositorySearcher with a pluggable
// function.
type mockRepoSearcher struct {
	searchFn func(ctx context.Context, login, token string, onPage driven.PageFunc) error

	mu         sync.Mutex
	calls      int
	lastLogin  string
	lastTokens []string
}

func (m *mockRepoSearcher) SearchRepositories(ctx context.Context, login, token string, onPage driven.PageFunc) error {
	m.mu.Lock()
	m.calls++
	m.lastLogin = login
	m.lastTokens = append(m.lastTokens, token)
	m.mu.Unlock()

	if m.searchFn == nil {
		return nil
	}
	return m.searchFn(ctx, login, token, onPage)
}

// mockUserSearcher implements driven.UserSearcher with a pluggable function.
type mockUserSearcher struct {
	searchFn func(ctx context.Context, query, token string) ([]model.User, error)
}

func (m *mockUserSearcher) SearchUsers(ctx context.Context, query, token string) ([]model.User, error) {
	return m.searchFn(ctx, query, token)
}

// mockTx implements driven.RepoTx. It records staged repositories in memory
// and tracks whether the transaction committed or rolled back.
type mockTx struct {
	mu         sync.Mutex
	staged     map[int64]model.Repository
	existing   map[int64]model.Repository
	commitErr  error
	upsertErr  error
	committed  bool
	rolledBack bool
}

func newMockTx() *mockTx {
	return &mockTx{
		staged:   make(map[int64]model.Repository),
		existing: make(map[int64]model.Repository),
	}
}

func (m *mockTx) GetByExternalID(_ context.Context, externalID int64) (*model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if repo, ok := m.staged[externalID]; ok {
		return &repo, nil
	}
	if repo, ok := m.existing[externalID]; ok {
		return &repo, nil
	}
	return nil, nil
}

func (m *mockTx) Upsert(_ context.Context, repo model.Repository) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.staged[repo.ExternalID] = repo
	return nil
}

func (m *mockTx) Commit(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

func (m *mockTx) stagedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.staged)
}

func (m *mockTx) wasCommitted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.committed
}

func (m *mockTx) wasRolledBack() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rolledBack
}

// mockStore implements driven.RepoStore around a queue of transactions.
type mockStore struct {
	mu       sync.Mutex
	txs      []*mockTx
	beginErr error
	count    int
	countErr error
}

func (m *mockStore) Begin(_ context.Context) (driven.RepoTx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.beginErr != nil {
		return nil, m.beginErr
	}
	tx := newMockTx()
	m.txs = append(m.txs, tx)
	return tx, nil
}

func (m *mockStore) Search(_ context.Context, _ string) ([]model.LanguageGroup, error) {
	return nil, nil
}

func (m *mockStore) CountMatching(_ context.Context, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, m.countErr
}

func (m *mockStore) Subscribe() <-chan struct{} {
	return make(chan struct{})
}

func (m *mockStore) Unsubscribe(_ <-chan struct{}) {}

func (m *mockStore) lastTx() *mockTx {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.txs) == 0 {
		return nil
	}
	return m.txs[len(m.txs)-1]
}

// mockAuth implements driven.AuthProvider.
type mockAuth struct {
	mu           sync.Mutex
	token        string
	reauthorized int
}

func (m *mockAuth) CurrentAccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *mockAuth) Reauthorize(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.reauthorized++
}

func (m *mockAuth) reauthorizations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reauthorized
}
