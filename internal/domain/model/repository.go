package model

import "time"

// LanguageOther groups repositories that report no primary language.
const LanguageOther = "Other"

// Repository is a GitHub repository synchronized into the local store.
// ExternalID is the stable GitHub identifier used for reconciliation; ID is
// the local row identity and survives in-place updates.
type Repository struct {
	ID          int64
	ExternalID  int64
	Name        string
	Description string
	StarCount   int64
	ForkCount   int64
	UpdatedAt   time.Time
	Language    string
	OwnerLogin  string
	SyncedAt    time.Time
}

// LanguageGroup is one section of the grouped repository view: all matching
// repositories sharing a language, ordered by star count descending.
type LanguageGroup struct {
	Language     string
	Repositories []Repository
}
