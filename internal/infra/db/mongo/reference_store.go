package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ratedesk/internal/app/refdata"
	"ratedesk/internal/domain/shared/daterange"
)

const (
	colPartners           = "partners"
	colPlans              = "plans"
	colCategories         = "categories"
	colPartnerPlans       = "partner_plans"
	colDailyBaseRates     = "daily_base_rates"
	colCategoryRules      = "category_rules"
	colPlanRules          = "plan_rules"
	colPartnerAdjustments = "partner_adjustments"
)

// ReferenceStore reads the reference tables from one collection each.
type ReferenceStore struct {
	db     *mongo.Database
	logger *slog.Logger
}

func NewReferenceStore(db *mongo.Database, logger *slog.Logger) *ReferenceStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rates := db.Collection(colDailyBaseRates)
	_, _ = rates.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return &ReferenceStore{db: db, logger: logger}
}

func (s *ReferenceStore) Partners(ctx context.Context) ([]refdata.PartnerRow, error) {
	docs, err := findAll[partnerDocument](ctx, s.db.Collection(colPartners), bson.D{{Key: "name", Value: 1}})
	if err != nil {
		return nil, err
	}
	out := make([]refdata.PartnerRow, 0, len(docs))
	for _, d := range docs {
		out = append(out, refdata.PartnerRow{ID: d.ID, Name: d.Name})
	}
	return out, nil
}

func (s *ReferenceStore) Plans(ctx context.Context) ([]refdata.PlanRow, error) {
	docs, err := findAll[planDocument](ctx, s.db.Collection(colPlans), bson.D{{Key: "code", Value: 1}})
	if err != nil {
		return nil, err
	}
	out := make([]refdata.PlanRow, 0, len(docs))
	for _, d := range docs {
		out = append(out, refdata.PlanRow{ID: d.ID, Code: d.Code, Description: d.Description})
	}
	return out, nil
}

func (s *ReferenceStore) Categories(ctx context.Context) ([]refdata.CategoryRow, error) {
	docs, err := findAll[categoryDocument](ctx, s.db.Collection(colCategories), bson.D{{Key: "name", Value: 1}})
	if err != nil {
		return nil, err
	}
	out := make([]refdata.CategoryRow, 0, len(docs))
	for _, d := range docs {
		out = append(out, refdata.CategoryRow{ID: d.ID, Name: d.Name})
	}
	return out, nil
}

func (s *ReferenceStore) PartnerPlans(ctx context.Context) ([]refdata.PartnerPlanRow, error) {
	docs, err := findAll[partnerPlanDocument](ctx, s.db.Collection(colPartnerPlans), nil)
	if err != nil {
		return nil, err
	}
	out := make([]refdata.PartnerPlanRow, 0, len(docs))
	for _, d := range docs {
		out = append(out, refdata.PartnerPlanRow{PartnerID: d.PartnerID, PlanID: d.PlanID})
	}
	return out, nil
}

func (s *ReferenceStore) DailyBaseRates(ctx context.Context) ([]refdata.DailyBaseRateRow, error) {
	docs, err := findAll[dailyBaseRateDocument](ctx, s.db.Collection(colDailyBaseRates), bson.D{{Key: "date", Value: 1}})
	if err != nil {
		return nil, err
	}
	out := make([]refdata.DailyBaseRateRow, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.row())
	}
	return out, nil
}

func (s *ReferenceStore) CategoryRules(ctx context.Context) ([]refdata.CategoryRuleRow, error) {
	docs, err := findAll[categoryRuleDocument](ctx, s.db.Collection(colCategoryRules), bson.D{{Key: "_id", Value: 1}})
	if err != nil {
		return nil, err
	}
	out := make([]refdata.CategoryRuleRow, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.row())
	}
	return out, nil
}

func (s *ReferenceStore) PlanRules(ctx context.Context) ([]refdata.PlanRuleRow, error) {
	docs, err := findAll[planRuleDocument](ctx, s.db.Collection(colPlanRules), bson.D{{Key: "_id", Value: 1}})
	if err != nil {
		return nil, err
	}
	out := make([]refdata.PlanRuleRow, 0, len(docs))
	for _, d := range docs {
		row, err := d.row()
		if err != nil {
			s.logger.Warn("skipping plan rule with unreadable steps", "id", d.ID, "error", err)
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *ReferenceStore) PartnerAdjustments(ctx context.Context) ([]refdata.PartnerAdjustmentRow, error) {
	docs, err := findAll[partnerAdjustmentDocument](ctx, s.db.Collection(colPartnerAdjustments), bson.D{{Key: "_id", Value: 1}})
	if err != nil {
		return nil, err
	}
	out := make([]refdata.PartnerAdjustmentRow, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.row())
	}
	return out, nil
}

// DailyBaseRate matches the day stored either as a YYYY-MM-DD string or as a date.
func (s *ReferenceStore) DailyBaseRate(ctx context.Context, date time.Time) (refdata.DailyBaseRateRow, bool, error) {
	day := daterange.Day(date)
	filter := bson.M{"$or": bson.A{
		bson.M{"date": daterange.DateKey(day)},
		bson.M{"date": day},
	}}
	var doc dailyBaseRateDocument
	err := s.db.Collection(colDailyBaseRates).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return refdata.DailyBaseRateRow{}, false, nil
		}
		return refdata.DailyBaseRateRow{}, false, err
	}
	return doc.row(), true, nil
}

func findAll[T any](ctx context.Context, col *mongo.Collection, sort bson.D) ([]T, error) {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	cur, err := col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find %s: %w", col.Name(), err)
	}
	var docs []T
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode %s: %w", col.Name(), err)
	}
	return docs, nil
}

var _ refdata.Store = (*ReferenceStore)(nil)
