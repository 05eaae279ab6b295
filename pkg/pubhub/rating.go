package pubhub

import (
	"context"
	"log/slog"
)

// RatingHandler mirrors like/dislike set-membership changes into the
// counter store. It is called explicitly by the reaction write path after
// the membership change commits; a failed counter update is logged and
// never rolls back the membership change. Counters are best-effort
// telemetry, not the source of truth.
type RatingHandler struct {
	counters CounterStore
	logger   *slog.Logger
}

// NewRatingHandler creates a rating handler over the given counter store.
func NewRatingHandler(counters CounterStore, logger *slog.Logger) *RatingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RatingHandler{counters: counters, logger: logger}
}

// MembershipChanged applies one membership change to the publication's
// rating counter: like-add and dislike-remove increment, like-remove and
// dislike-add decrement. The key is built from the same kind tag the
// publication service reads.
func (h *RatingHandler) MembershipChanged(ctx context.Context, kind PublicationKind, id int64, reaction Reaction, added bool) {
	key := ratingKey(kind, id)

	increment := added
	if reaction == ReactionDislike {
		increment = !added
	}

	var err error
	if increment {
		err = h.counters.Increment(ctx, key)
	} else {
		err = h.counters.Decrement(ctx, key)
	}
	if err != nil {
		h.logger.Error("rating counter update failed",
			"key", key,
			"reaction", reaction,
			"added", added,
			"error", err,
		)
	}
}
