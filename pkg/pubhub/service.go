package pubhub

import "context"

// PublicationService is the read/write capability for one publication kind.
// Instances are obtained from the Services factory keyed by kind tag.
type PublicationService interface {
	// List returns one page of enriched summaries from the published
	// scope. A non-numeric page token falls back to the first page; an
	// out-of-range page yields an empty result.
	List(ctx context.Context, pageToken string) ([]PublicationSummary, error)

	// Detail returns the enriched publication with its full content list,
	// or ErrPublicationNotFound outside the published scope. Every call
	// counts as a view.
	Detail(ctx context.Context, id int64) (*PublicationDetail, error)

	Create(ctx context.Context, req CreatePublicationRequest) (*Publication, error)
	Update(ctx context.Context, id, requester int64, req UpdatePublicationRequest) error
	Delete(ctx context.Context, id, requester int64) error

	// React commits a like/dislike membership change and, when membership
	// actually changed, forwards it to the rating handler.
	React(ctx context.Context, id, userID int64, reaction Reaction, add bool) error

	// AttachItem validates and creates an item and its Content association
	// as one step, gated on the publication's author.
	AttachItem(ctx context.Context, pubID, requester int64, kind ItemKind, payload string) (*Item, error)

	// AddPublicationCreation bumps the daily creation counter for this
	// kind; GetPublicationCreation reads today's value.
	AddPublicationCreation(ctx context.Context) error
	GetPublicationCreation(ctx context.Context) (int64, error)
}

// ItemService is the creator-gated edit capability for individual items.
type ItemService interface {
	Get(ctx context.Context, kind ItemKind, id, requester int64) (*Item, error)
	Update(ctx context.Context, kind ItemKind, id, requester int64, payload string) error
	Delete(ctx context.Context, kind ItemKind, id, requester int64) error
}
