package knowledge

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a solution id does not exist.
var ErrNotFound = errors.New("solution not found")

// Solution is a pre-authored fix for a known robot problem.
type Solution struct {
	ID          string    `json:"id" yaml:"-"`
	Title       string    `json:"title" yaml:"title"`
	Keywords    string    `json:"keywords" yaml:"keywords"`
	Description string    `json:"description" yaml:"description"`
	VideoURL    string    `json:"videoUrl,omitempty" yaml:"video_url,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"-"`
}

// Validate checks the fields the admin form requires.
func (s Solution) Validate() error {
	if s.Title == "" || s.Keywords == "" || s.Description == "" {
		return errors.New("title, keywords and description are required")
	}
	return nil
}
