package pubhub

import (
	"context"
	"fmt"
	"time"
)

// CounterStore is the thin contract over the external key/counter service.
// Increment and Decrement must be atomic per key under concurrent callers.
// Get reports absence via ok=false; callers treat absent as zero.
type CounterStore interface {
	Increment(ctx context.Context, key string) error
	Decrement(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (value int64, ok bool, err error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Counter key layout. The kind tag in the key is the same tag the rating
// handler uses, so reads and reaction writes always meet on one key.
//
//	{kind}:{id}:views    monotonic view counter
//	{kind}:{id}:rating   signed like/dislike balance
//	{date}:{kind}        daily creation counter

func viewsKey(kind PublicationKind, id int64) string {
	return fmt.Sprintf("%s:%d:views", kind, id)
}

func ratingKey(kind PublicationKind, id int64) string {
	return fmt.Sprintf("%s:%d:rating", kind, id)
}

func creationKey(kind PublicationKind, day time.Time) string {
	return fmt.Sprintf("%s:%s", day.Format("2006-01-02"), kind)
}
