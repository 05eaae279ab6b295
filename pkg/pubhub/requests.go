package pubhub

import "time"

// CreatePublicationRequest contains the caller-supplied fields for a new
// publication. Fields outside the kind's shape are ignored. Status defaults
// to published when nil.
type CreatePublicationRequest struct {
	AuthorID   int64
	Title      string
	IntroText  string
	IntroImage string
	Level      Level
	Tags       []string
	Status     *bool
	Mention    []int64
}

// UpdatePublicationRequest is a full replace of the editable fields.
type UpdatePublicationRequest struct {
	Title      string
	IntroText  string
	IntroImage string
	Level      Level
	Tags       []string
	Status     *bool
	Mention    []int64
}

// PublicationSummary is the enriched envelope returned by the listing path.
// Per-kind fields are omitted when empty, so a post renders only the base.
type PublicationSummary struct {
	ID         int64     `json:"id"`
	Author     UserRef   `json:"author"`
	Mention    []UserRef `json:"mention"`
	CreatedAt  time.Time `json:"created_at"`
	Status     bool      `json:"status"`
	Title      string    `json:"title,omitempty"`
	IntroText  string    `json:"intro_text,omitempty"`
	IntroImage string    `json:"intro_image,omitempty"`
	Level      Level     `json:"level,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	ReadTime   int       `json:"read_time"`
	Views      int64     `json:"views"`
	Rating     int64     `json:"rating"`
}

// PublicationDetail is the detail envelope: the enriched summary plus the
// full content list, each item serialized per its own kind.
type PublicationDetail struct {
	PublicationSummary
	Items []AttachedItem `json:"items"`
}

// RegisterRequest contains the fields for account registration.
type RegisterRequest struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileRequest is a full replace of the editable profile fields.
type ProfileRequest struct {
	Email     string
	FirstName string
	LastName  string
	Picture   string
}
