package driven

import "context"

// AuthProvider supplies the current GitHub access token and triggers the
// external reauthorization flow when the API rejects a request. The browser
// flow itself lives outside the core.
type AuthProvider interface {
	// CurrentAccessToken returns the access token, or "" when none is held.
	CurrentAccessToken() string

	// Reauthorize invalidates the current token and signals the external
	// flow to obtain a new one.
	Reauthorize(ctx context.Context)
}
