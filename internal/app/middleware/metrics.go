package middleware

import (
	"context"
	"time"

	"ratedesk/internal/app/queries"
)

// Observer receives one observation per handled query.
type Observer interface {
	ObserveQuery(key string, err error, elapsed time.Duration)
}

func QueryMetrics(o Observer) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		if o == nil {
			return nextFn
		}
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, q)
			o.ObserveQuery(q.Key(), err, time.Since(start))
			return res, err
		})
	}
}
