package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ratedesk/internal/app/refdata"
	"ratedesk/internal/domain/shared/daterange"
)

type ReferenceStore struct {
	pool *pgxpool.Pool
}

func NewReferenceStore(pool *pgxpool.Pool) *ReferenceStore {
	return &ReferenceStore{pool: pool}
}

func (s *ReferenceStore) Partners(ctx context.Context) ([]refdata.PartnerRow, error) {
	return queryAll(ctx, s.pool, "partners", `
		SELECT id, name FROM partners ORDER BY name
	`, func(rows pgx.CollectableRow) (refdata.PartnerRow, error) {
		var r refdata.PartnerRow
		err := rows.Scan(&r.ID, &r.Name)
		return r, err
	})
}

func (s *ReferenceStore) Plans(ctx context.Context) ([]refdata.PlanRow, error) {
	return queryAll(ctx, s.pool, "plans", `
		SELECT id, code, description FROM plans ORDER BY code
	`, func(rows pgx.CollectableRow) (refdata.PlanRow, error) {
		var r refdata.PlanRow
		err := rows.Scan(&r.ID, &r.Code, &r.Description)
		return r, err
	})
}

func (s *ReferenceStore) Categories(ctx context.Context) ([]refdata.CategoryRow, error) {
	return queryAll(ctx, s.pool, "categories", `
		SELECT id, name FROM categories ORDER BY name
	`, func(rows pgx.CollectableRow) (refdata.CategoryRow, error) {
		var r refdata.CategoryRow
		err := rows.Scan(&r.ID, &r.Name)
		return r, err
	})
}

func (s *ReferenceStore) PartnerPlans(ctx context.Context) ([]refdata.PartnerPlanRow, error) {
	return queryAll(ctx, s.pool, "partner_plans", `
		SELECT partner_id, plan_id FROM partner_plans ORDER BY partner_id, plan_id
	`, func(rows pgx.CollectableRow) (refdata.PartnerPlanRow, error) {
		var r refdata.PartnerPlanRow
		err := rows.Scan(&r.PartnerID, &r.PlanID)
		return r, err
	})
}

func (s *ReferenceStore) DailyBaseRates(ctx context.Context) ([]refdata.DailyBaseRateRow, error) {
	return queryAll(ctx, s.pool, "daily_base_rates", `
		SELECT date, ota_rate::float8, travco_rate::float8 FROM daily_base_rates ORDER BY date
	`, scanDailyRate)
}

func (s *ReferenceStore) CategoryRules(ctx context.Context) ([]refdata.CategoryRuleRow, error) {
	return queryAll(ctx, s.pool, "category_rules", `
		SELECT id, category_id, base_source, formula_type, formula_multiplier::float8, formula_offset::float8
		FROM category_rules
		ORDER BY id
	`, func(rows pgx.CollectableRow) (refdata.CategoryRuleRow, error) {
		var r refdata.CategoryRuleRow
		err := rows.Scan(&r.ID, &r.CategoryID, &r.BaseSource, &r.FormulaType, &r.FormulaMultiplier, &r.FormulaOffset)
		return r, err
	})
}

func (s *ReferenceStore) PlanRules(ctx context.Context) ([]refdata.PlanRuleRow, error) {
	return queryAll(ctx, s.pool, "plan_rules", `
		SELECT id, plan_id, base_source, steps FROM plan_rules ORDER BY id
	`, func(rows pgx.CollectableRow) (refdata.PlanRuleRow, error) {
		var r refdata.PlanRuleRow
		var steps []byte
		err := rows.Scan(&r.ID, &r.PlanID, &r.BaseSource, &steps)
		r.Steps = steps
		return r, err
	})
}

func (s *ReferenceStore) PartnerAdjustments(ctx context.Context) ([]refdata.PartnerAdjustmentRow, error) {
	return queryAll(ctx, s.pool, "partner_adjustments", `
		SELECT id, partner_id, description, ui_control, adjustment_type, adjustment_value,
		       default_checked, associated_plan_filter
		FROM partner_adjustments
		ORDER BY partner_id, id
	`, func(rows pgx.CollectableRow) (refdata.PartnerAdjustmentRow, error) {
		var r refdata.PartnerAdjustmentRow
		err := rows.Scan(&r.ID, &r.PartnerID, &r.Description, &r.UIControl, &r.AdjustmentType,
			&r.AdjustmentValue, &r.DefaultChecked, &r.AssociatedPlanFilter)
		return r, err
	})
}

func (s *ReferenceStore) DailyBaseRate(ctx context.Context, date time.Time) (refdata.DailyBaseRateRow, bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, ota_rate::float8, travco_rate::float8 FROM daily_base_rates WHERE date = $1
	`, daterange.Day(date))
	if err != nil {
		return refdata.DailyBaseRateRow{}, false, err
	}
	row, err := pgx.CollectExactlyOneRow(rows, scanDailyRate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return refdata.DailyBaseRateRow{}, false, nil
		}
		return refdata.DailyBaseRateRow{}, false, err
	}
	return row, true, nil
}

func scanDailyRate(rows pgx.CollectableRow) (refdata.DailyBaseRateRow, error) {
	var (
		r   refdata.DailyBaseRateRow
		day time.Time
	)
	if err := rows.Scan(&day, &r.OTARate, &r.TravcoRate); err != nil {
		return r, err
	}
	r.Date = daterange.DateKey(day)
	return r, nil
}

func queryAll[T any](ctx context.Context, pool *pgxpool.Pool, table, sql string, scan pgx.RowToFunc[T]) ([]T, error) {
	rows, err := pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("postgres: query %s: %w", table, err)
	}
	out, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, fmt.Errorf("postgres: read %s: %w", table, err)
	}
	return out, nil
}

var _ refdata.Store = (*ReferenceStore)(nil)
