package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/akravch/gitscout/internal/domain/model"
	"github.com/akravch/gitscout/internal/domain/port/driven"
)

// ErrEmptyQuery rejects a blank submission before any state transition or
// network activity happens.
var ErrEmptyQuery = errors.New("search query must not be empty")

// StateChange is one orchestrator transition published to subscribers.
type StateChange struct {
	Query string
	State model.SearchState
}

// SearchService drives one repository search at a time: it paginates the
// owner's listing, reconciles each page into a staged store transaction, and
// commits on exhaustion. A newer Submit supersedes and cancels the previous
// session; a superseded session never publishes state and its staged
// transaction is discarded without touching committed data.
type SearchService struct {
	searcher driven.RepositorySearcher
	store    driven.RepoStore
	auth     driven.AuthProvider

	mu      sync.Mutex
	state   model.SearchState
	query   string
	session int // increments per Submit; stale sessions may not publish
	cancel  context.CancelFunc
	subs    map[<-chan StateChange]chan StateChange
}

// NewSearchService creates a SearchService in the idle state.
func NewSearchService(searcher driven.RepositorySearcher, store driven.RepoStore, auth driven.AuthProvider) *SearchService {
	return &SearchService{
		searcher: searcher,
		store:    store,
		auth:     auth,
		state:    model.SearchIdle,
		subs:     make(map[<-chan StateChange]chan StateChange),
	}
}

// Submit starts a search for the repositories of the given owner login. The
// work runs asynchronously; callers observe progress via Subscribe or State.
// An empty query fails synchronously with ErrEmptyQuery and changes nothing.
func (s *SearchService) Submit(ctx context.Context, query string) error {
	if query == "" {
		return ErrEmptyQuery
	}

	// The session outlives the submitting request, so only values carry
	// over; cancellation belongs to the session itself.
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.session++
	id := s.session
	s.query = query
	s.state = model.SearchInProgress
	s.publishLocked()
	s.mu.Unlock()

	go s.run(sessionCtx, id, query)

	return nil
}

// State returns the current query and search state.
func (s *SearchService) State() (string, model.SearchState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, s.state
}

// Subscribe registers a listener for state transitions. The channel is
// buffered; transitions beyond the buffer are dropped for slow listeners,
// which then catch up via State.
func (s *SearchService) Subscribe() <-chan StateChange {
	ch := make(chan StateChange, 8)

	s.mu.Lock()
	s.subs[ch] = ch
	s.mu.Unlock()

	return ch
}

// Unsubscribe removes a listener registered with Subscribe.
func (s *SearchService) Unsubscribe(ch <-chan StateChange) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

// run executes one search session: paginate, reconcile, commit.
func (s *SearchService) run(ctx context.Context, id int, query string) {
	token := s.auth.CurrentAccessToken()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		slog.Error("begin transaction failed", "query", query, "error", err)
		s.setState(id, model.SearchFailed)
		return
	}

	err = s.searcher.SearchRepositories(ctx, query, token, func(records []json.RawMessage) error {
		return Reconcile(ctx, records, tx)
	})
	if err == nil {
		if err = tx.Commit(ctx); err == nil {
			slog.Info("search committed", "query", query)
			s.setState(id, model.SearchSuccess)
			return
		}
		err = fmt.Errorf("commit search results: %w", err)
	}

	// The staged transaction never becomes visible past this point.
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(err, driven.ErrCancelled) {
		slog.Error("rollback failed", "query", query, "error", rbErr)
	}

	switch {
	case errors.Is(err, driven.ErrCancelled):
		// Superseded by a newer search; the newer session owns the state.
		// A cancellation that reaches a still-current session has no newer
		// session to publish for it, so it must terminate the state machine
		// itself.
		if s.isCurrent(id) {
			slog.Error("search cancelled without a successor", "query", query)
			s.setState(id, model.SearchFailed)
			return
		}
		slog.Debug("search superseded", "query", query)
	case errors.Is(err, driven.ErrNotFound):
		s.setState(id, model.SearchNotFound)
	case errors.Is(err, driven.ErrUnauthorized):
		s.auth.Reauthorize(ctx)
		s.fallback(ctx, id, query, err)
	default:
		s.fallback(ctx, id, query, err)
	}
}

// fallback serves stale local data when the store already holds rows
// matching the query, otherwise reports failure.
func (s *SearchService) fallback(ctx context.Context, id int, query string, cause error) {
	count, err := s.store.CountMatching(ctx, query)
	if err != nil {
		slog.Error("stale fallback count failed", "query", query, "error", err)
		count = 0
	}

	if count > 0 {
		slog.Warn("search failed, serving cached results",
			"query", query,
			"cached", count,
			"error", cause,
		)
		s.setState(id, model.SearchSuccess)
		return
	}

	slog.Error("search failed", "query", query, "error", cause)
	s.setState(id, model.SearchFailed)
}

// isCurrent reports whether the session id is still the latest submission.
func (s *SearchService) isCurrent(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return id == s.session
}

// setState publishes a terminal state unless the session was superseded.
func (s *SearchService) setState(id int, state model.SearchState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != s.session {
		return
	}

	s.state = state
	s.publishLocked()
}

// publishLocked sends the current state to all subscribers without blocking.
// Callers must hold s.mu.
func (s *SearchService) publishLocked() {
	change := StateChange{Query: s.query, State: s.state}
	for _, ch := range s.subs {
		select {
		case ch <- change:
		default:
		}
	}
}
