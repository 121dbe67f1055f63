// Package httphandler exposes the search engine to presentation clients over
// a small JSON API. It is a thin shell: all search, reconciliation, and
// persistence logic lives behind the application services it calls.
package httphandler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/akravch/gitscout/internal/adapter/driven/oauth"
	"github.com/akravch/gitscout/internal/application"
	"github.com/akravch/gitscout/internal/domain/port/driven"
)

// minUserQueryLength is the minimum query length for the user search;
// shorter queries return an empty result instead of hammering the API.
const minUserQueryLength = 3

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	searchSvc *application.SearchService
	userSvc   *application.UserService
	store     driven.RepoStore
	auth      *oauth.Provider
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	searchSvc *application.SearchService,
	userSvc *application.UserService,
	store driven.RepoStore,
	auth *oauth.Provider,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		searchSvc: searchSvc,
		userSvc:   userSvc,
		store:     store,
		auth:      auth,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/search", h.SubmitSearch)
	mux.HandleFunc("GET /api/v1/search", h.SearchState)
	mux.HandleFunc("GET /api/v1/repositories", h.ListRepositories)
	mux.HandleFunc("GET /api/v1/users", h.SearchUsers)
	mux.HandleFunc("GET /api/v1/events", h.Events)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /oauth/callback", h.OAuthCallback)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// SubmitSearch starts an asynchronous repository search for the owner login
// in the q parameter. Responds 202; clients follow progress via GET
// /api/v1/search or the event stream.
func (h *Handler) SubmitSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	if err := h.searchSvc.Submit(r.Context(), query); err != nil {
		if errors.Is(err, application.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "query must not be empty")
			return
		}
		h.logger.Error("submit search failed", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	q, state := h.searchSvc.State()
	writeJSON(w, http.StatusAccepted, SearchStateResponse{Query: q, State: string(state)})
}

// SearchState returns the current search query and state.
func (h *Handler) SearchState(w http.ResponseWriter, r *http.Request) {
	q, state := h.searchSvc.State()
	writeJSON(w, http.StatusOK, SearchStateResponse{Query: q, State: string(state)})
}

// ListRepositories returns the committed grouped view for the owner filter.
func (h *Handler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")

	groups, err := h.store.Search(r.Context(), owner)
	if err != nil {
		h.logger.Error("repository query failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponses(groups))
}

// SearchUsers returns the first page of matching users. Queries shorter than
// three characters return an empty list; a superseded search does too, since
// cancellation is not an error to the client.
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if len(query) < minUserQueryLength {
		writeJSON(w, http.StatusOK, []UserResponse{})
		return
	}

	users, err := h.userSvc.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, driven.ErrCancelled) {
			writeJSON(w, http.StatusOK, []UserResponse{})
			return
		}
		h.logger.Error("user search failed", "query", query, "error", err)
		writeError(w, http.StatusBadGateway, "user search failed")
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, UserResponse{Login: u.Login})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Events streams store-change and search-state notifications as server-sent
// events so clients know when to reload their views.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	storeCh := h.store.Subscribe()
	defer h.store.Unsubscribe(storeCh)
	stateCh := h.searchSvc.Subscribe()
	defer h.searchSvc.Unsubscribe(stateCh)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-storeCh:
			fmt.Fprint(w, "event: repositories\ndata: changed\n\n")
			flusher.Flush()
		case change := <-stateCh:
			fmt.Fprintf(w, "event: search\ndata: %s\n\n", change.State)
			flusher.Flush()
		}
	}
}

// OAuthCallback completes the external browser flow by exchanging the
// authorization code for an access token.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code parameter")
		return
	}

	if err := h.auth.Exchange(r.Context(), code); err != nil {
		h.logger.Error("oauth exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, "authorization failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "authorized"})
}

// Health returns a simple liveness response.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
