package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/akravch/gitscout/internal/domain/model"
	"github.com/akravch/gitscout/internal/domain/port/driven"
)

// Compile-time port satisfaction checks.
var (
	_ driven.RepositorySearcher = (*Searcher)(nil)
	_ driven.UserSearcher       = (*Searcher)(nil)
)

// Searcher exposes the two GitHub search entry points over a shared Fetcher.
// Repository and user searches each hold their own single-flight pager, so a
// user search does not cancel an in-flight repository sync.
type Searcher struct {
	baseURL   string
	repoPager *Pager
	userPager *Pager
}

// NewSearcher creates a Searcher against the given API base URL, typically
// https://api.github.com. Tests pass an httptest server URL.
func NewSearcher(fetcher *Fetcher, baseURL string) *Searcher {
	return &Searcher{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		repoPager: NewPager(fetcher, UnwrapArray),
		userPager: NewSinglePagePager(fetcher, UnwrapItems),
	}
}

// SearchRepositories walks every page of the owner's repository listing.
// /users/{login}/repos is used instead of the search API because the search
// API caps results at 1000 and large owners exceed that.
func (s *Searcher) SearchRepositories(ctx context.Context, login, token string, onPage driven.PageFunc) error {
	startURL := fmt.Sprintf("%s/users/%s/repos", s.baseURL, url.PathEscape(login))
	return s.repoPager.Paginate(ctx, startURL, token, onPage)
}

// SearchUsers fetches the first page of the user search. Further pages are
// deliberately not followed: the result feeds a transient selection list.
func (s *Searcher) SearchUsers(ctx context.Context, query, token string) ([]model.User, error) {
	startURL := fmt.Sprintf("%s/search/users?q=%s", s.baseURL, url.QueryEscape(query+" in:login"))

	var users []model.User
	err := s.userPager.Paginate(ctx, startURL, token, func(records []json.RawMessage) error {
		for _, record := range records {
			var raw struct {
				Login string `json:"login"`
			}
			if err := json.Unmarshal(record, &raw); err != nil {
				return fmt.Errorf("%w: %v", driven.ErrResponseFormat, err)
			}
			users = append(users, model.User{Login: raw.Login})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}
