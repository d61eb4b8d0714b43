package runs

import "time"

// Kind identifies which analysis produced a run.
type Kind string

const (
	KindISC   Kind = "isc"
	KindStats Kind = "stats"
)

// Status represents the lifecycle of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one analysis invocation persisted for reproducibility.
type Run struct {
	ID                  string
	Kind                Kind
	Study               string
	Stimulus            string
	Segment             string
	ParamsJSON          string
	Status              Status
	ErrorMessage        string
	RespondentsTotal    int
	RespondentsExcluded int
	RowsProduced        int
	ResultPath          string
	CreatedAt           time.Time
	FinishedAt          *time.Time
}

// Warning is a non-fatal advisory attached to a run.
type Warning struct {
	RunID   string
	Stage   string
	Message string
}

// HealthSummary aggregates run counts per lifecycle state.
type HealthSummary struct {
	Total     int
	Running   int
	Completed int
	Failed    int
}
