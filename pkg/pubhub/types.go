package pubhub

import (
	"time"
)

// PublicationKind is the discriminator for the publication variants.
type PublicationKind string

// Publication kind tags (typed).
const (
	KindPosts    PublicationKind = "posts"
	KindArticles PublicationKind = "articles"
	KindNews     PublicationKind = "news"
)

// PublicationKinds lists every allowed publication kind tag.
var PublicationKinds = []PublicationKind{KindPosts, KindArticles, KindNews}

// ParsePublicationKind resolves a kind tag against the allowed publication
// set. Item kind tags are rejected here, not silently mismatched.
func ParsePublicationKind(s string) (PublicationKind, error) {
	switch k := PublicationKind(s); k {
	case KindPosts, KindArticles, KindNews:
		return k, nil
	}
	return "", ErrInvalidKind
}

// ItemKind is the discriminator for the content item variants.
type ItemKind string

// Item kind tags (typed).
const (
	ItemText  ItemKind = "text"
	ItemFile  ItemKind = "file"
	ItemImage ItemKind = "image"
	ItemVideo ItemKind = "video"
)

// ParseItemKind resolves a kind tag against the allowed item set.
func ParseItemKind(s string) (ItemKind, error) {
	switch k := ItemKind(s); k {
	case ItemText, ItemFile, ItemImage, ItemVideo:
		return k, nil
	}
	return "", ErrInvalidKind
}

// Level is the difficulty level of an article.
type Level string

// Article levels (typed).
const (
	LevelEasy Level = "easy"
	LevelMid  Level = "mid"
	LevelHard Level = "hard"
)

// Publication is a top-level content unit owned by an author. The Kind tag
// selects which of the optional fields are meaningful: posts carry only the
// base fields, articles and news add title/intro/tags, and only articles
// carry a level.
type Publication struct {
	ID         int64           `json:"id"`
	Kind       PublicationKind `json:"-"`
	AuthorID   int64           `json:"-"`
	Title      string          `json:"title,omitempty"`
	IntroText  string          `json:"intro_text,omitempty"`
	IntroImage string          `json:"intro_image,omitempty"`
	Level      Level           `json:"level,omitempty"`
	Tags       []string        `json:"tags,omitempty"`
	Status     bool            `json:"status"`
	Mention    []int64         `json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Content is the association record linking a publication to an attached
// item. One publication has zero or more Content rows; one item is owned by
// exactly one Content row (the write path creates and deletes them together).
type Content struct {
	ID              int64
	PublicationKind PublicationKind
	PublicationID   int64
	ItemKind        ItemKind
	ItemID          int64
}

// Item is a concrete content payload created by a user. Payload holds the
// value of the kind's single payload field (content, file, image or url);
// the field name itself is part of the kind's shape, see registry.go.
type Item struct {
	ID        int64
	CreatorID int64
	Kind      ItemKind
	Payload   string
}

// ContentWithItem is a Content row joined with its item, as returned by the
// batched content fetch.
type ContentWithItem struct {
	Content
	Item Item
}

// Reaction is a like/dislike set-membership marker on a publication.
type Reaction string

// Reactions (typed).
const (
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

// User is an account record. Likes, dislikes and mentions reference users
// by ID.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Picture      string    `json:"picture,omitempty"`
	Created      time.Time `json:"-"`
}

// UserRef is the embedded user shape used inside publication envelopes.
type UserRef struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// Ref builds the envelope shape for a user.
func (u *User) Ref() UserRef {
	return UserRef{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
	}
}

// PasswordReset is an ephemeral single-use reset record, deleted after
// consumption.
type PasswordReset struct {
	Email     string
	Token     string
	CreatedAt time.Time
}

// TokenPair is an issued access/refresh token pair.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
