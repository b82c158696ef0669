package queue

import "time"

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusReview marks failures that will not succeed on retry and need
	// manual attention (bad input file, bad configuration).
	StatusReview Status = "review"
)

var allStatuses = []Status{
	StatusPending,
	StatusAnalyzing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ValidStatus reports whether a string names a known status.
func ValidStatus(value string) bool {
	_, ok := statusSet[Status(value)]
	return ok
}

// DaemonStopReason is the error message set when items are reset due to
// daemon shutdown.
const DaemonStopReason = "Daemon stopped"

// Item represents a queued track persisted in SQLite.
type Item struct {
	ID         int64
	SourcePath string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	// Attempts counts analysis claims, successful or not.
	Attempts     int
	ErrorMessage string
	// ResultJSON holds the serialized analysis result once completed.
	ResultJSON    string
	CorrelationID string

	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
}

// Done reports whether the item has reached a terminal state.
func (i *Item) Done() bool {
	return i.Status == StatusCompleted || i.Status == StatusFailed || i.Status == StatusReview
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total     int
	Pending   int
	Analyzing int
	Failed    int
	Review    int
	Completed int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}
