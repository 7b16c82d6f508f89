package middleware

import (
	"context"

	"ratedesk/internal/app/queries"
	"ratedesk/internal/app/sequence"
)

// Sequenced queries carry the client key used for latest-wins ordering.
type Sequenced interface {
	SequenceKey() string
}

// Sequencing discards the result of a query when a newer one with the same key
// started while it was running.
func Sequencing(tracker *sequence.Tracker) QueryMiddleware {
	if tracker == nil {
		panic("middleware: sequence tracker required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			sq, ok := q.(Sequenced)
			if !ok {
				return nextFn(ctx, q)
			}
			ticket := tracker.Begin(sq.SequenceKey())
			res, err := nextFn(ctx, q)
			if serr := tracker.Finish(ticket); serr != nil {
				return nil, serr
			}
			return res, err
		})
	}
}
