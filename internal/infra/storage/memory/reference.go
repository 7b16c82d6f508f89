package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"ratedesk/internal/app/refdata"
	"ratedesk/internal/domain/shared/daterange"
)

var ErrFixturesEmpty = errors.New("memory: fixtures file is empty")

// ReferenceStore serves reference tables from memory. It is seeded from a JSON fixture
// file shaped like refdata.Tables, or directly in tests.
type ReferenceStore struct {
	mu     sync.RWMutex
	tables refdata.Tables
	byDate map[string]refdata.DailyBaseRateRow
	path   string
	// Err, when set, is returned by every read. Tests use it to simulate an outage.
	Err error
}

func NewReferenceStore(t refdata.Tables) *ReferenceStore {
	s := &ReferenceStore{}
	s.Replace(t)
	return s
}

// LoadReferenceFile reads a JSON fixture file into a new store.
func LoadReferenceFile(path string) (*ReferenceStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrFixturesEmpty
	}
	var t refdata.Tables
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	s := NewReferenceStore(t)
	s.path = path
	return s, nil
}

// Refresh re-reads the fixture file the store was loaded from. Stores built in memory have no
// file and keep their tables.
func (s *ReferenceStore) Refresh(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	fresh, err := LoadReferenceFile(s.path)
	if err != nil {
		return err
	}
	s.Replace(fresh.tables)
	return nil
}

func (s *ReferenceStore) Replace(t refdata.Tables) {
	byDate := make(map[string]refdata.DailyBaseRateRow, len(t.DailyBaseRates))
	for _, row := range t.DailyBaseRates {
		day, err := daterange.ParseDateKey(row.Date)
		if err != nil {
			continue
		}
		key := daterange.DateKey(day)
		if _, dup := byDate[key]; !dup {
			byDate[key] = row
		}
	}
	s.mu.Lock()
	s.tables = t
	s.byDate = byDate
	s.mu.Unlock()
}

func (s *ReferenceStore) Partners(ctx context.Context) ([]refdata.PartnerRow, error) {
	return read(s, func(t refdata.Tables) []refdata.PartnerRow { return t.Partners })
}

func (s *ReferenceStore) Plans(ctx context.Context) ([]refdata.PlanRow, error) {
	return read(s, func(t refdata.Tables) []refdata.PlanRow { return t.Plans })
}

func (s *ReferenceStore) Categories(ctx context.Context) ([]refdata.CategoryRow, error) {
	return read(s, func(t refdata.Tables) []refdata.CategoryRow { return t.Categories })
}

func (s *ReferenceStore) PartnerPlans(ctx context.Context) ([]refdata.PartnerPlanRow, error) {
	return read(s, func(t refdata.Tables) []refdata.PartnerPlanRow { return t.PartnerPlans })
}

func (s *ReferenceStore) DailyBaseRates(ctx context.Context) ([]refdata.DailyBaseRateRow, error) {
	return read(s, func(t refdata.Tables) []refdata.DailyBaseRateRow { return t.DailyBaseRates })
}

func (s *ReferenceStore) CategoryRules(ctx context.Context) ([]refdata.CategoryRuleRow, error) {
	return read(s, func(t refdata.Tables) []refdata.CategoryRuleRow { return t.CategoryRules })
}

func (s *ReferenceStore) PlanRules(ctx context.Context) ([]refdata.PlanRuleRow, error) {
	return read(s, func(t refdata.Tables) []refdata.PlanRuleRow { return t.PlanRules })
}

func (s *ReferenceStore) PartnerAdjustments(ctx context.Context) ([]refdata.PartnerAdjustmentRow, error) {
	return read(s, func(t refdata.Tables) []refdata.PartnerAdjustmentRow { return t.PartnerAdjustments })
}

func (s *ReferenceStore) DailyBaseRate(ctx context.Context, date time.Time) (refdata.DailyBaseRateRow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return refdata.DailyBaseRateRow{}, false, s.Err
	}
	row, ok := s.byDate[daterange.DateKey(date)]
	return row, ok, nil
}

// read copies one table under the read lock so callers never share the backing array.
func read[T any](s *ReferenceStore, pick func(refdata.Tables) []T) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	src := pick(s.tables)
	out := make([]T, len(src))
	copy(out, src)
	return out, nil
}

var (
	_ refdata.Store     = (*ReferenceStore)(nil)
	_ refdata.Refresher = (*ReferenceStore)(nil)
)
