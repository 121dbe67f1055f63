package application

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akravch/gitscout/internal/domain/model"
	"github.com/akravch/gitscout/internal/domain/port/driven"
)

func rawRecords(t *testing.T, docs ...string) []json.RawMessage {
	t.Helper()
	records := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		records = append(records, json.RawMessage(doc))
	}
	return records
}

func TestReconcile_StagesDecodedRecords(t *testing.T) {
	tx := newMockTx()

	err := Reconcile(context.Background(), rawRecords(t,
		`{"id":1,"name":"dotfiles","stargazers_count":12,"forksCount":3,"language":"Go","owner":{"login":"octocat"},"description":"configs"}`,
		`{"id":2,"name":"blog","language":"Ruby","owner":{"login":"octocat"}}`,
	), tx)

	require.NoError(t, err)
	assert.Equal(t, 2, tx.stagedCount())

	repo := tx.staged[1]
	assert.Equal(t, "dotfiles", repo.Name)
	assert.Equal(t, int64(12), repo.StarCount)
	assert.Equal(t, int64(3), repo.ForkCount)
	assert.Equal(t, "Go", repo.Language)
	assert.Equal(t, "octocat", repo.OwnerLogin)
	assert.Equal(t, "configs", repo.Description)
	assert.False(t, repo.SyncedAt.IsZero())
}

func TestReconcile_MissingLanguageBecomesOther(t *testing.T) {
	tx := newMockTx()

	err := Reconcile(context.Background(), rawRecords(t,
		`{"id":1,"name":"notes","language":null,"owner":{"login":"octocat"}}`,
		`{"id":2,"name":"scripts","owner":{"login":"octocat"}}`,
		`{"id":3,"name":"empty","language":"","owner":{"login":"octocat"}}`,
	), tx)

	require.NoError(t, err)
	assert.Equal(t, model.LanguageOther, tx.staged[1].Language)
	assert.Equal(t, model.LanguageOther, tx.staged[2].Language)
	assert.Equal(t, model.LanguageOther, tx.staged[3].Language)
}

func TestReconcile_MissingIDAbortsBatch(t *testing.T) {
	tx := newMockTx()

	err := Reconcile(context.Background(), rawRecords(t,
		`{"id":1,"name":"ok","owner":{"login":"octocat"}}`,
		`{"name":"no id","owner":{"login":"octocat"}}`,
		`{"id":3,"name":"never reached","owner":{"login":"octocat"}}`,
	), tx)

	require.ErrorIs(t, err, driven.ErrMalformedRecord)
	assert.Equal(t, 1, tx.stagedCount(), "records after the malformed one must not be staged")
}

func TestReconcile_UndecodableRecordAbortsBatch(t *testing.T) {
	tx := newMockTx()

	err := Reconcile(context.Background(), rawRecords(t, `{"id":"not a number"}`), tx)

	require.ErrorIs(t, err, driven.ErrMalformedRecord)
	assert.Equal(t, 0, tx.stagedCount())
}

func TestReconcile_PreservesLocalIdentity(t *testing.T) {
	tx := newMockTx()
	tx.existing[42] = model.Repository{ID: 7, ExternalID: 42, Name: "old", Language: "Go"}

	err := Reconcile(context.Background(), rawRecords(t,
		`{"id":42,"name":"renamed","language":"Rust","owner":{"login":"octocat"}}`,
	), tx)

	require.NoError(t, err)
	repo := tx.staged[42]
	assert.Equal(t, int64(7), repo.ID, "stored row keeps its internal id")
	assert.Equal(t, "renamed", repo.Name)
	assert.Equal(t, "Rust", repo.Language)
}

func TestReconcile_DuplicateIDLastWins(t *testing.T) {
	tx := newMockTx()

	err := Reconcile(context.Background(), rawRecords(t,
		`{"id":1,"name":"first","language":"Go","owner":{"login":"octocat"}}`,
		`{"id":1,"name":"second","language":"Ruby","owner":{"login":"octocat"}}`,
	), tx)

	require.NoError(t, err)
	assert.Equal(t, 1, tx.stagedCount())
	assert.Equal(t, "second", tx.staged[1].Name)
	assert.Equal(t, "Ruby", tx.staged[1].Language)
}

func TestReconcile_EmptyPage(t *testing.T) {
	tx := newMockTx()

	err := Reconcile(context.Background(), nil, tx)

	require.NoError(t, err)
	assert.Equal(t, 0, tx.stagedCount())
}
