// Package application contains use-case orchestration services.
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akravch/gitscout/internal/domain/model"
	"github.com/akravch/gitscout/internal/domain/port/driven"
)

// rawRepository mirrors the repository JSON shape consumed during
// reconciliation. Only id is required; every other field may be absent.
type rawRepository struct {
	ID          *int64     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StarCount   int64      `json:"stargazers_count"`
	ForkCount   int64      `json:"forksCount"`
	UpdatedAt   *time.Time `json:"updated_at"`
	Language    *string    `json:"language"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// Reconcile decodes one page of raw repository records and stages them into
// tx, keyed by the stable GitHub id. An existing row keeps its local
// identity; its mutable fields are overwritten in place. The batch is atomic
// per page: a record that cannot be decoded or has no integer id aborts the
// whole page with ErrMalformedRecord and nothing further is staged.
//
// Reconcile has no durable effect until the caller commits tx.
func Reconcile(ctx context.Context, records []json.RawMessage, tx driven.RepoTx) error {
	now := time.Now().UTC()

	for _, record := range records {
		var raw rawRepository
		if err := json.Unmarshal(record, &raw); err != nil {
			return fmt.Errorf("%w: %v", driven.ErrMalformedRecord, err)
		}
		if raw.ID == nil {
			return fmt.Errorf("%w: missing id", driven.ErrMalformedRecord)
		}

		repo := model.Repository{
			ExternalID:  *raw.ID,
			Name:        raw.Name,
			Description: raw.Description,
			StarCount:   raw.StarCount,
			ForkCount:   raw.ForkCount,
			Language:    model.LanguageOther,
			OwnerLogin:  raw.Owner.Login,
			SyncedAt:    now,
		}
		if raw.UpdatedAt != nil {
			repo.UpdatedAt = *raw.UpdatedAt
		}
		if raw.Language != nil && *raw.Language != "" {
			repo.Language = *raw.Language
		}

		existing, err := tx.GetByExternalID(ctx, repo.ExternalID)
		if err != nil {
			return err
		}
		if existing != nil {
			repo.ID = existing.ID
		}

		if err := tx.Upsert(ctx, repo); err != nil {
			return err
		}
	}

	return nil
}
