package dto

import "ratedesk/internal/app/refdata"

type ReferenceReload struct {
	Stats            refdata.Stats  `json:"stats"`
	Skipped          map[string]int `json:"skipped,omitempty"`
	MissingPlanLinks int            `json:"missingPlanLinks"`
	DroppedSteps     int            `json:"droppedSteps"`
}

func MapReload(s *refdata.Snapshot, r refdata.Report) ReferenceReload {
	out := ReferenceReload{Skipped: r.Skipped, MissingPlanLinks: r.MissingPlanLinks, DroppedSteps: r.DroppedSteps}
	if s != nil {
		out.Stats = s.Stats()
	}
	return out
}
