package refdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"ratedesk/internal/domain/rates"
	"ratedesk/internal/domain/shared/daterange"
)

// StoreRateResolver answers base-rate lookups with a point query per night instead of the
// snapshot's bulk series. Values go through the same validation as bulk ingestion.
type StoreRateResolver struct {
	Store  Store
	Logger *slog.Logger
}

func (r StoreRateResolver) DailyRate(ctx context.Context, date time.Time, src rates.BaseSource) (decimal.Decimal, bool, error) {
	if r.Store == nil {
		return decimal.Zero, false, ErrStoreMissing
	}
	row, found, err := r.Store.DailyBaseRate(ctx, daterange.Day(date))
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("refdata: daily rate %s: %w", daterange.DateKey(date), err)
	}
	if !found {
		return decimal.Zero, false, nil
	}
	day, ok := IngestDailyRate(row, r.Logger)
	if !ok {
		return decimal.Zero, false, nil
	}
	v, ok := day.Value(src)
	return v, ok, nil
}

var _ rates.Resolver = StoreRateResolver{}
