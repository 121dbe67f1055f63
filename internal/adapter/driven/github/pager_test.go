package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	githubadapter "github.com/akravch/gitscout/internal/adapter/driven/github"
	"github.com/akravch/gitscout/internal/domain/port/driven"
)

func TestUnwrapArray(t *testing.T) {
	records, err := githubadapter.UnwrapArray([]byte(`[{"id":1},{"id":2}]`))

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"id":1}`, string(records[0]))
}

func TestUnwrapArray_NotAnArray(t *testing.T) {
	_, err := githubadapter.UnwrapArray([]byte(`{"message":"rate limited"}`))

	require.ErrorIs(t, err, driven.ErrResponseFormat)
}

func TestUnwrapItems(t *testing.T) {
	records, err := githubadapter.UnwrapItems([]byte(`{"total_count":1,"items":[{"login":"bob"}]}`))

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.JSONEq(t, `{"login":"bob"}`, string(records[0]))
}

func TestUnwrapItems_MissingEnvelope(t *testing.T) {
	_, err := githubadapter.UnwrapItems([]byte(`{"total_count":0}`))

	require.ErrorIs(t, err, driven.ErrResponseFormat)
}

func TestPaginate_FollowsNextLinks(t *testing.T) {
	var mu sync.Mutex
	var requested []string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = append(requested, r.URL.Path+"?page="+r.URL.Query().Get("page"))
		mu.Unlock()

		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos?page=2>; rel="next"`, r.Host))
			w.Write([]byte(`[{"id":1},{"id":2}]`))
		case "2":
			w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos?page=3>; rel="next"`, r.Host))
			w.Write([]byte(`[{"id":3}]`))
		default:
			w.Write([]byte(`[{"id":4}]`))
		}
	})

	fetcher, server := newFetcher(t, handler)
	pager := githubadapter.NewPager(fetcher, githubadapter.UnwrapArray)

	var pageSizes []int
	err := pager.Paginate(context.Background(), server.URL+"/repos", "", func(records []json.RawMessage) error {
		pageSizes = append(pageSizes, len(records))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 1}, pageSizes)
	assert.Equal(t, []string{"/repos?page=", "/repos?page=2", "/repos?page=3"}, requested)
}

func TestPaginate_DecodeFailureAborts(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(`{"not":"an array"}`))
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos?page=2>; rel="next"`, r.Host))
		w.Write([]byte(`[{"id":1}]`))
	})

	fetcher, server := newFetcher(t, handler)
	pager := githubadapter.NewPager(fetcher, githubadapter.UnwrapArray)

	var delivered int
	err := pager.Paginate(context.Background(), server.URL+"/repos", "", func(records []json.RawMessage) error {
		delivered++
		return nil
	})

	require.ErrorIs(t, err, driven.ErrResponseFormat)
	// The first page was already delivered; delivered pages are not unwound.
	assert.Equal(t, 1, delivered)
}

func TestPaginate_OnPageErrorAborts(t *testing.T) {
	var requests int

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos?page=2>; rel="next"`, r.Host))
		w.Write([]byte(`[{"id":1}]`))
	})

	fetcher, server := newFetcher(t, handler)
	pager := githubadapter.NewPager(fetcher, githubadapter.UnwrapArray)

	boom := fmt.Errorf("reconcile blew up")
	err := pager.Paginate(context.Background(), server.URL+"/repos", "", func(records []json.RawMessage) error {
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, requests)
}

func TestPaginate_SinglePageStopsDespiteNextLink(t *testing.T) {
	var requests int

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/search/users?page=2>; rel="next"`, r.Host))
		w.Write([]byte(`{"items":[{"login":"bob"}]}`))
	})

	fetcher, server := newFetcher(t, handler)
	pager := githubadapter.NewSinglePagePager(fetcher, githubadapter.UnwrapItems)

	var delivered int
	err := pager.Paginate(context.Background(), server.URL+"/search/users", "", func(records []json.RawMessage) error {
		delivered += len(records)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, requests)
	assert.Equal(t, 1, delivered)
}

func TestPaginate_NewSequenceCancelsPrevious(t *testing.T) {
	firstStarted := make(chan struct{})
	release := make(chan struct{})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("seq") == "first" {
			close(firstStarted)
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		w.Write([]byte(`[{"id":1}]`))
	})
	t.Cleanup(func() { close(release) })

	fetcher, server := newFetcher(t, handler)
	pager := githubadapter.NewPager(fetcher, githubadapter.UnwrapArray)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- pager.Paginate(context.Background(), server.URL+"/repos?seq=first", "",
			func(records []json.RawMessage) error { return nil })
	}()

	<-firstStarted

	err := pager.Paginate(context.Background(), server.URL+"/repos?seq=second", "",
		func(records []json.RawMessage) error { return nil })
	require.NoError(t, err)

	select {
	case err := <-firstDone:
		require.ErrorIs(t, err, driven.ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded sequence did not terminate")
	}
}

func TestPaginate_CancelledSequenceDoesNotDisplaceLive(t *testing.T) {
	liveStarted := make(chan struct{})
	release := make(chan struct{})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("seq") == "live" {
			close(liveStarted)
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		w.Write([]byte(`[{"id":1}]`))
	})

	fetcher, server := newFetcher(t, handler)
	pager := githubadapter.NewPager(fetcher, githubadapter.UnwrapArray)

	liveDone := make(chan error, 1)
	go func() {
		liveDone <- pager.Paginate(context.Background(), server.URL+"/repos?seq=live", "",
			func(records []json.RawMessage) error { return nil })
	}()

	<-liveStarted

	// A sequence arriving with an already-cancelled context is a stale
	// leftover; it must fail without touching the live sequence.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pager.Paginate(ctx, server.URL+"/repos?seq=stale", "",
		func(records []json.RawMessage) error { return nil })
	require.ErrorIs(t, err, driven.ErrCancelled)

	close(release)

	select {
	case err := <-liveDone:
		require.NoError(t, err, "live sequence must not be killed by a stale one")
	case <-time.After(2 * time.Second):
		t.Fatal("live sequence did not finish")
	}
}
