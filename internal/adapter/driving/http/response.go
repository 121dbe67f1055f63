package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/akravch/gitscout/internal/domain/model"
)

// descriptionPolicy strips any markup from repository descriptions before
// they leave the API. Descriptions come from an external source and are
// rendered verbatim by clients.
var descriptionPolicy = bluemonday.StrictPolicy()

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and
// message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// SearchStateResponse reports the current search session.
type SearchStateResponse struct {
	Query string `json:"query"`
	State string `json:"state"`
}

// RepositoryResponse is the JSON representation of a stored repository.
type RepositoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StarCount   int64  `json:"star_count"`
	ForkCount   int64  `json:"fork_count"`
	UpdatedAt   string `json:"updated_at,omitempty"`
	Language    string `json:"language"`
	Owner       string `json:"owner"`
}

// LanguageGroupResponse is one language section of the grouped view.
type LanguageGroupResponse struct {
	Language     string               `json:"language"`
	Repositories []RepositoryResponse `json:"repositories"`
}

// UserResponse is the JSON representation of a user search hit.
type UserResponse struct {
	Login string `json:"login"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toGroupResponses converts grouped domain repositories to their JSON
// representation, sanitizing descriptions on the way out.
func toGroupResponses(groups []model.LanguageGroup) []LanguageGroupResponse {
	resp := make([]LanguageGroupResponse, 0, len(groups))
	for _, g := range groups {
		repos := make([]RepositoryResponse, 0, len(g.Repositories))
		for _, repo := range g.Repositories {
			repos = append(repos, toRepositoryResponse(repo))
		}
		resp = append(resp, LanguageGroupResponse{
			Language:     g.Language,
			Repositories: repos,
		})
	}
	return resp
}

// toRepositoryResponse converts a domain Repository to its JSON
// representation. The external GitHub id is the client-facing identifier.
func toRepositoryResponse(repo model.Repository) RepositoryResponse {
	var updatedAt string
	if !repo.UpdatedAt.IsZero() {
		updatedAt = repo.UpdatedAt.UTC().Format(time.RFC3339)
	}

	return RepositoryResponse{
		ID:          repo.ExternalID,
		Name:        repo.Name,
		Description: descriptionPolicy.Sanitize(repo.Description),
		StarCount:   repo.StarCount,
		ForkCount:   repo.ForkCount,
		UpdatedAt:   updatedAt,
		Language:    repo.Language,
		Owner:       repo.OwnerLogin,
	}
}
