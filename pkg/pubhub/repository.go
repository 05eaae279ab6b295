package pubhub

import "context"

// Repository defines the persistence contract for publications, contents,
// items and users. The generic association boundary (which kind tags are
// valid where) is enforced above the repository, in the registry and the
// services; repositories only ever see already-validated tags.
type Repository interface {
	// Publication operations. Get resolves any status, GetPublished only
	// the published scope. List is recency-ordered and paginated.
	CreatePublication(ctx context.Context, p *Publication) error
	GetPublication(ctx context.Context, kind PublicationKind, id int64) (*Publication, error)
	GetPublishedPublication(ctx context.Context, kind PublicationKind, id int64) (*Publication, error)
	UpdatePublication(ctx context.Context, p *Publication) error
	// DeletePublication removes the publication together with its Content
	// rows and their items.
	DeletePublication(ctx context.Context, kind PublicationKind, id int64) error
	ListPublished(ctx context.Context, kind PublicationKind, limit, offset int) ([]*Publication, error)

	// SetReaction adds or removes one user from a publication's like or
	// dislike set and reports whether membership actually changed.
	SetReaction(ctx context.Context, kind PublicationKind, id, userID int64, reaction Reaction, add bool) (changed bool, err error)

	// Item and content operations. CreateItemWithContent persists the item
	// and its owning Content row as one failure-atomic step; likewise
	// DeleteItemWithContent removes both, and reports ErrContentNotFound
	// if the association is missing.
	CreateItemWithContent(ctx context.Context, item *Item, pubKind PublicationKind, pubID int64) (*Content, error)
	GetItem(ctx context.Context, kind ItemKind, id int64) (*Item, error)
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItemWithContent(ctx context.Context, kind ItemKind, id int64) error

	// ListContentsFor fetches the Content rows (joined with their items)
	// for a batch of publication ids in one round trip, optionally
	// filtered to a single item kind.
	ListContentsFor(ctx context.Context, pubKind PublicationKind, pubIDs []int64, itemKind *ItemKind) ([]*ContentWithItem, error)

	// User operations.
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*User, error)
	UpdateUser(ctx context.Context, u *User) error

	// Password reset records, single-use.
	CreatePasswordReset(ctx context.Context, pr *PasswordReset) error
	GetPasswordReset(ctx context.Context, token string) (*PasswordReset, error)
	DeletePasswordReset(ctx context.Context, token string) error
}
