package application

import (
	"context"
	"errors"

	"github.com/akravch/gitscout/internal/domain/model"
	"github.com/akravch/gitscout/internal/domain/port/driven"
)

// UserService performs transient user searches. Results live in memory for
// the duration of a selection and are never persisted.
type UserService struct {
	searcher driven.UserSearcher
	auth     driven.AuthProvider
}

// NewUserService creates a UserService.
func NewUserService(searcher driven.UserSearcher, auth driven.AuthProvider) *UserService {
	return &UserService{searcher: searcher, auth: auth}
}

// Search returns the first page of users whose login matches query. A 401
// from the API triggers reauthorization before the error is returned; a
// superseded search returns ErrCancelled for the caller to swallow.
func (s *UserService) Search(ctx context.Context, query string) ([]model.User, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	users, err := s.searcher.SearchUsers(ctx, query, s.auth.CurrentAccessToken())
	if err != nil {
		if errors.Is(err, driven.ErrUnauthorized) {
			s.auth.Reauthorize(ctx)
		}
		return nil, err
	}

	return users, nil
}
