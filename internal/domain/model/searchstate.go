package model

// SearchState is the lifecycle state of a repository search session.
// Transitions: idle -> in_progress -> {success, not_found, failed}, and back
// to in_progress on the next submission. An empty result is still success;
// clients distinguish it by result size.
type SearchState string

const (
	SearchIdle       SearchState = "idle"
	SearchInProgress SearchState = "in_progress"
	SearchSuccess    SearchState = "success"
	SearchNotFound   SearchState = "not_found"
	SearchFailed     SearchState = "failed"
)
