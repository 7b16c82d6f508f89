package mongo

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"ratedesk/internal/app/refdata"
	"ratedesk/internal/domain/shared/daterange"
)

// Reference documents decode loosely typed fields into bson.RawValue; the conversion helpers
// below turn them into the shapes refdata ingestion validates.

type partnerDocument struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

type planDocument struct {
	ID          string  `bson:"_id"`
	Code        string  `bson:"code"`
	Description *string `bson:"description"`
}

type categoryDocument struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

type partnerPlanDocument struct {
	PartnerID string `bson:"partner_id"`
	PlanID    string `bson:"plan_id"`
}

type dailyBaseRateDocument struct {
	Date       bson.RawValue `bson:"date"`
	OTARate    bson.RawValue `bson:"ota_rate"`
	TravcoRate bson.RawValue `bson:"travco_rate"`
}

func (d dailyBaseRateDocument) row() refdata.DailyBaseRateRow {
	return refdata.DailyBaseRateRow{
		Date:       dateString(d.Date),
		OTARate:    rateValue(d.OTARate),
		TravcoRate: rateValue(d.TravcoRate),
	}
}

type categoryRuleDocument struct {
	ID                string        `bson:"_id"`
	CategoryID        string        `bson:"category_id"`
	BaseSource        string        `bson:"base_source"`
	FormulaType       string        `bson:"formula_type"`
	FormulaMultiplier bson.RawValue `bson:"formula_multiplier"`
	FormulaOffset     bson.RawValue `bson:"formula_offset"`
}

func (d categoryRuleDocument) row() refdata.CategoryRuleRow {
	return refdata.CategoryRuleRow{
		ID:                d.ID,
		CategoryID:        d.CategoryID,
		BaseSource:        d.BaseSource,
		FormulaType:       d.FormulaType,
		FormulaMultiplier: rateValue(d.FormulaMultiplier),
		FormulaOffset:     rateValue(d.FormulaOffset),
	}
}

type planRuleDocument struct {
	ID         string        `bson:"_id"`
	PlanID     string        `bson:"plan_id"`
	BaseSource string        `bson:"base_source"`
	Steps      bson.RawValue `bson:"steps"`
}

func (d planRuleDocument) row() (refdata.PlanRuleRow, error) {
	steps, err := stepsJSON(d.Steps)
	if err != nil {
		return refdata.PlanRuleRow{}, fmt.Errorf("plan rule %s: %w", d.ID, err)
	}
	return refdata.PlanRuleRow{ID: d.ID, PlanID: d.PlanID, BaseSource: d.BaseSource, Steps: steps}, nil
}

type partnerAdjustmentDocument struct {
	ID                   string        `bson:"_id"`
	PartnerID            string        `bson:"partner_id"`
	Description          string        `bson:"description"`
	UIControl            string        `bson:"ui_control"`
	AdjustmentType       string        `bson:"adjustment_type"`
	AdjustmentValue      bson.RawValue `bson:"adjustment_value"`
	DefaultChecked       bool          `bson:"default_checked"`
	AssociatedPlanFilter *string       `bson:"associated_plan_filter"`
}

func (d partnerAdjustmentDocument) row() refdata.PartnerAdjustmentRow {
	return refdata.PartnerAdjustmentRow{
		ID:                   d.ID,
		PartnerID:            d.PartnerID,
		Description:          d.Description,
		UIControl:            d.UIControl,
		AdjustmentType:       d.AdjustmentType,
		AdjustmentValue:      textValue(d.AdjustmentValue),
		DefaultChecked:       d.DefaultChecked,
		AssociatedPlanFilter: d.AssociatedPlanFilter,
	}
}

func absent(v bson.RawValue) bool {
	return v.Type == 0 || v.Type == bsontype.Null || v.Type == bsontype.Undefined
}

// rateValue returns nil for absent values and NaN for values that are present but not numeric,
// so ingestion reports them instead of silently treating them as missing.
func rateValue(v bson.RawValue) *float64 {
	if absent(v) {
		return nil
	}
	var f float64
	switch v.Type {
	case bsontype.Double:
		f = v.Double()
	case bsontype.Int32:
		f = float64(v.Int32())
	case bsontype.Int64:
		f = float64(v.Int64())
	case bsontype.Decimal128:
		parsed, err := strconv.ParseFloat(v.Decimal128().String(), 64)
		if err != nil {
			f = math.NaN()
		} else {
			f = parsed
		}
	case bsontype.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.StringValue()), 64)
		if err != nil {
			f = math.NaN()
		} else {
			f = parsed
		}
	default:
		f = math.NaN()
	}
	return &f
}

func textValue(v bson.RawValue) *string {
	if absent(v) {
		return nil
	}
	var s string
	switch v.Type {
	case bsontype.String:
		s = v.StringValue()
	case bsontype.Double:
		s = strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case bsontype.Int32:
		s = strconv.FormatInt(int64(v.Int32()), 10)
	case bsontype.Int64:
		s = strconv.FormatInt(v.Int64(), 10)
	case bsontype.Decimal128:
		s = v.Decimal128().String()
	default:
		s = v.String()
	}
	return &s
}

func dateString(v bson.RawValue) string {
	switch v.Type {
	case bsontype.String:
		return v.StringValue()
	case bsontype.DateTime:
		return daterange.DateKey(v.Time())
	case bsontype.Timestamp:
		sec, _ := v.Timestamp()
		return daterange.DateKey(time.Unix(int64(sec), 0).UTC())
	default:
		return ""
	}
}

// stepsJSON converts the stored steps field to one of the JSON shapes rules.ParseSteps accepts.
func stepsJSON(v bson.RawValue) (json.RawMessage, error) {
	if absent(v) {
		return nil, nil
	}
	switch v.Type {
	case bsontype.String:
		return json.Marshal(v.StringValue())
	case bsontype.Array:
		var steps []bson.M
		if err := v.Unmarshal(&steps); err != nil {
			return nil, err
		}
		return json.Marshal(steps)
	case bsontype.EmbeddedDocument:
		var doc bson.M
		if err := v.Unmarshal(&doc); err != nil {
			return nil, err
		}
		return json.Marshal(doc)
	default:
		return nil, fmt.Errorf("unsupported steps type %s", v.Type)
	}
}
