package driven

import (
	"context"

	"github.com/akravch/gitscout/internal/domain/model"
)

// RepoTx is a staged unit of work against the repository store. Staged
// changes are invisible to readers until Commit; Rollback restores the
// pre-transaction observable state exactly. A RepoTx must be finished with
// exactly one of Commit or Rollback.
type RepoTx interface {
	// GetByExternalID returns the repository with the given GitHub
	// identifier as visible inside this transaction, or nil, nil if absent.
	GetByExternalID(ctx context.Context, externalID int64) (*model.Repository, error)

	// Upsert stages an insert or in-place update keyed by ExternalID. An
	// existing row keeps its local ID.
	Upsert(ctx context.Context, repo model.Repository) error

	// Commit makes staged changes durable atomically and notifies store
	// subscribers. On failure the durable state is unchanged.
	Commit(ctx context.Context) error

	// Rollback discards all staged changes. Safe to call after a failed
	// Commit.
	Rollback() error
}

// RepoStore defines the driven port for repository persistence.
type RepoStore interface {
	// Begin opens a transaction scope for one reconciliation sequence.
	Begin(ctx context.Context) (RepoTx, error)

	// Search returns committed repositories whose owner login contains
	// ownerQuery (case-insensitive), grouped by language. Groups are ordered
	// by language ascending; repositories within a group by star count
	// descending.
	Search(ctx context.Context, ownerQuery string) ([]model.LanguageGroup, error)

	// CountMatching reports how many committed repositories match ownerQuery.
	CountMatching(ctx context.Context, ownerQuery string) (int, error)

	// Subscribe returns a channel that receives a signal after every commit
	// that may have changed query results. The store never closes the
	// channel; callers must Unsubscribe when done.
	Subscribe() <-chan struct{}
	Unsubscribe(ch <-chan struct{})
}
