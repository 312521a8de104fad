package models

// ItemOutcome is the result of applying an action to a single item
type ItemOutcome struct {
	ItemID string `json:"item_id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// ActionResult is the aggregated outcome a handler returns for one job
type ActionResult struct {
	Success        bool                   `json:"success"`
	ProcessedCount int                    `json:"processed_count"`
	FailedCount    int                    `json:"failed_count"`
	Errors         []string               `json:"errors"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

// NewActionResult folds item outcomes into an ActionResult.
// Success is true only when no item failed.
func NewActionResult(outcomes []ItemOutcome) *ActionResult {
	r := &ActionResult{Errors: []string{}}
	for _, o := range outcomes {
		if o.OK {
			r.ProcessedCount++
			continue
		}
		r.FailedCount++
		r.Errors = append(r.Errors, o.Error)
	}
	r.Success = r.FailedCount == 0
	return r
}
