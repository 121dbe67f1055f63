package driven

import (
	"context"
	"encoding/json"

	"github.com/akravch/gitscout/internal/domain/model"
)

// PageFunc receives the raw records of one fetched page, in server order.
// Returning an error aborts the pagination sequence.
type PageFunc func(records []json.RawMessage) error

// RepositorySearcher drives the paginated repository listing for one owner
// login. At most one sequence is in flight per searcher; starting a new one
// cancels the previous sequence, which then terminates with ErrCancelled.
type RepositorySearcher interface {
	SearchRepositories(ctx context.Context, login, token string, onPage PageFunc) error
}

// UserSearcher performs a first-page-only user search. Results are transient
// and never persisted.
type UserSearcher interface {
	SearchUsers(ctx context.Context, query, token string) ([]model.User, error)
}
