package domain

import (
	"strings"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is a user's rating of a store.
type Review struct {
	ID        string
	StoreID   string
	AuthorID  string
	Text      string
	Rating    int
	CreatedAt time.Time
}

// Validate checks the user supplied fields.
func (r Review) Validate() error {
	var msgs []string
	if strings.TrimSpace(r.Text) == "" {
		msgs = append(msgs, "Your review must have text!")
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		msgs = append(msgs, "Rating must be between 1 and 5.")
	}
	if len(msgs) > 0 {
		return NewValidationError(msgs...)
	}
	return nil
}
