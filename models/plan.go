package models

// PlanEntry is one planned organize operation.
type PlanEntry struct {
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Category    Category `json:"category"`
	Reason      string   `json:"reason"`
}

// OrganizePlan is built by a preview and consumed by an execute.
type OrganizePlan struct {
	Status  Status      `json:"status"`
	Entries []PlanEntry `json:"entries"`
}

// CountByCategory tallies the plan per category.
func (p *OrganizePlan) CountByCategory() map[Category]int {
	counts := make(map[Category]int)
	for _, e := range p.Entries {
		counts[e.Category]++
	}
	return counts
}
