package domain

import "time"

// MinYear is the earliest release year accepted for a movie.
const MinYear = 1888

// Director is a person movies are attributed to.
type Director struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Country   *string   `json:"country,omitempty"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Movie represents the canonical movie entity in the database/service.
type Movie struct {
	ID        string
	Title     string
	Year      int
	Genre     string
	Director  Director
	CreatedAt time.Time
	UpdatedAt time.Time
}
