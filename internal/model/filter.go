package model

// FilterReport summarizes a cohort filtering pass: how many samples came
// in, how many the exclusion lists removed, and how many survived.
type FilterReport struct {
	OriginalCount  int            `json:"original_count"`
	ExclusionCount int            `json:"exclusion_count"`
	FinalCount     int            `json:"final_count"`
	ByReason       map[string]int `json:"by_reason,omitempty"`
	OutputPath     string         `json:"output_path"`
}

// Removed is the number of samples the filtering pass dropped.
func (r FilterReport) Removed() int { return r.OriginalCount - r.FinalCount }
