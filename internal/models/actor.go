package models

import "time"

// Actor is a directory entry. The directory itself is managed by an external
// system; this service only reads it.
type Actor struct {
	ID                    string    `db:"id" json:"id"`
	Email                 string    `db:"email" json:"email"`
	FullName              string    `db:"full_name" json:"full_name"`
	Role                  Role      `db:"role" json:"role"`
	SupervisingDirectorID *string   `db:"supervising_director_id" json:"supervising_director_id,omitempty"`
	Active                bool      `db:"active" json:"active"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
