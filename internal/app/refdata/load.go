package refdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

var ErrStoreMissing = errors.New("refdata: store is required")

// ReadTables fetches every reference table concurrently. The first failure cancels the rest.
func ReadTables(ctx context.Context, store Store) (Tables, error) {
	if store == nil {
		return Tables{}, ErrStoreMissing
	}
	var t Tables
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		t.Partners, err = store.Partners(ctx)
		return wrapTable("partners", err)
	})
	g.Go(func() (err error) {
		t.Plans, err = store.Plans(ctx)
		return wrapTable("plans", err)
	})
	g.Go(func() (err error) {
		t.Categories, err = store.Categories(ctx)
		return wrapTable("categories", err)
	})
	g.Go(func() (err error) {
		t.PartnerPlans, err = store.PartnerPlans(ctx)
		return wrapTable("partner_plans", err)
	})
	g.Go(func() (err error) {
		t.DailyBaseRates, err = store.DailyBaseRates(ctx)
		return wrapTable("daily_base_rates", err)
	})
	g.Go(func() (err error) {
		t.CategoryRules, err = store.CategoryRules(ctx)
		return wrapTable("category_rules", err)
	})
	g.Go(func() (err error) {
		t.PlanRules, err = store.PlanRules(ctx)
		return wrapTable("plan_rules", err)
	})
	g.Go(func() (err error) {
		t.PartnerAdjustments, err = store.PartnerAdjustments(ctx)
		return wrapTable("partner_adjustments", err)
	})
	if err := g.Wait(); err != nil {
		return Tables{}, err
	}
	return t, nil
}

// Load reads the store and builds a snapshot from it.
func Load(ctx context.Context, store Store, logger *slog.Logger) (*Snapshot, Report, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tables, err := ReadTables(ctx, store)
	if err != nil {
		return nil, Report{}, err
	}
	snap, report := Build(tables, logger)
	stats := snap.Stats()
	logger.Info("reference data loaded",
		"partners", stats.Partners,
		"plans", stats.Plans,
		"categories", stats.Categories,
		"daily_base_rates", stats.DailyBaseRates,
		"category_rules", stats.CategoryRules,
		"plan_rules", stats.PlanRules,
		"partner_adjustments", stats.Adjustments,
	)
	if !report.Clean() {
		logger.Warn("reference data ingested with dropped rows",
			"skipped", report.Skipped,
			"missing_plan_links", report.MissingPlanLinks,
			"dropped_steps", report.DroppedSteps,
		)
	}
	return snap, report, nil
}

func wrapTable(table string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("refdata: read %s: %w", table, err)
}
