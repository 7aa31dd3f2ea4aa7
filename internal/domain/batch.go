package domain

// BatchOperation names the mutation applied by a batch request.
type BatchOperation string

const (
	BatchDelete  BatchOperation = "delete"
	BatchEnable  BatchOperation = "enable"
	BatchDisable BatchOperation = "disable"
	BatchUpdate  BatchOperation = "update"
)

// Valid reports whether op is one the backend understands.
func (op BatchOperation) Valid() bool {
	switch op {
	case BatchDelete, BatchEnable, BatchDisable, BatchUpdate:
		return true
	}
	return false
}

// BatchRequest is the body of POST /api/targets/batch.
type BatchRequest struct {
	Operation BatchOperation `json:"operation"`
	TargetIDs []int64        `json:"target_ids"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// BatchResult reports how a batch request was applied.
// MissingIDs lists requested ids that did not exist.
type BatchResult struct {
	Message       string  `json:"message"`
	AffectedCount int     `json:"affected_count"`
	MissingIDs    []int64 `json:"missing_ids,omitempty"`
}

// Statistics summarises the target inventory.
type Statistics struct {
	Total    int            `json:"total"`
	Enabled  int            `json:"enabled"`
	Disabled int            `json:"disabled"`
	ByStatus map[string]int `json:"by_status"`
	ByType   map[string]int `json:"by_type"`
	ByRegion map[string]int `json:"by_region"`
}

// SDGroup is one entry of a Prometheus HTTP service discovery response.
type SDGroup struct {
	Targets []string          `json:"targets"`
	Labels  map[string]string `json:"labels"`
}
