package engine

// Progress statuses passed to a ProgressFunc.
const (
	StatusRunning = "running"
	StatusDone    = "done"
)

// ProgressFunc is called synchronously before and after each operation. step
// is 1-based.
type ProgressFunc func(step, total int, op, status string)

// Progress is the JSON form of one progress event.
type Progress struct {
	Step   int    `json:"step"`
	Total  int    `json:"total"`
	Op     string `json:"op"`
	Status string `json:"status"`
}
