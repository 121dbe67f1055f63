package model

// User is a GitHub account produced by the user-search path. Users are held
// in memory for the duration of a selection and never persisted.
type User struct {
	Login string
}
