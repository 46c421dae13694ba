package domain

import "time"

// Project represents a tracked GitHub repository whose source files and
// commit history are indexed for semantic retrieval.
type Project struct {
	ID          string     `json:"id"          db:"id"`
	Name        string     `json:"name"        db:"name"`
	RepoURL     string     `json:"repo_url"    db:"repo_url"`
	AccessToken string     `json:"-"           db:"access_token"`
	CreatedAt   time.Time  `json:"created_at"  db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"  db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Deleted reports whether the project has been soft-deleted. Workers treat a
// deleted project as a cancellation signal, not an error.
func (p *Project) Deleted() bool {
	return p != nil && p.DeletedAt != nil
}
