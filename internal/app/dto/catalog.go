package dto

import "ratedesk/internal/domain/catalog"

type Partner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Plan struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Adjustment struct {
	ID             string  `json:"id"`
	PartnerID      string  `json:"partnerId"`
	Description    string  `json:"description"`
	UIControl      string  `json:"uiControl"`
	Type           string  `json:"type"`
	Value          *string `json:"value"`
	DefaultChecked bool    `json:"defaultChecked"`
	PlanFilter     string  `json:"planFilter,omitempty"`
}

type PartnerList struct {
	Items []Partner `json:"items"`
}

type PlanList struct {
	Items []Plan `json:"items"`
}

type CategoryList struct {
	Items []Category `json:"items"`
}

type AdjustmentList struct {
	Items []Adjustment `json:"items"`
}

func MapPartners(list []catalog.Partner) PartnerList {
	out := PartnerList{Items: make([]Partner, 0, len(list))}
	for _, p := range list {
		out.Items = append(out.Items, Partner{ID: string(p.ID), Name: p.Name})
	}
	return out
}

func MapPlans(list []catalog.Plan) PlanList {
	out := PlanList{Items: make([]Plan, 0, len(list))}
	for _, p := range list {
		out.Items = append(out.Items, Plan{ID: string(p.ID), Code: p.Code, Description: p.Description})
	}
	return out
}

func MapCategories(list []catalog.Category) CategoryList {
	out := CategoryList{Items: make([]Category, 0, len(list))}
	for _, c := range list {
		out.Items = append(out.Items, Category{ID: string(c.ID), Name: c.Name})
	}
	return out
}

func MapAdjustments(list []catalog.Adjustment) AdjustmentList {
	out := AdjustmentList{Items: make([]Adjustment, 0, len(list))}
	for _, a := range list {
		item := Adjustment{
			ID:             string(a.ID),
			PartnerID:      string(a.PartnerID),
			Description:    a.Description,
			UIControl:      a.UIControl,
			Type:           string(a.Kind),
			DefaultChecked: a.DefaultChecked,
			PlanFilter:     string(a.PlanFilter),
		}
		if a.HasValue {
			v := a.Value.String()
			item.Value = &v
		}
		out.Items = append(out.Items, item)
	}
	return out
}
