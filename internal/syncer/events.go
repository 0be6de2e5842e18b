package syncer

// EventType labels an event on the sync progress stream.
type EventType string

const (
	// EventStart opens the stream with the pass counts.
	EventStart EventType = "start"

	// EventProgress reports one file's outcome during embedding.
	EventProgress EventType = "progress"

	// EventComplete terminates a successful pass.
	EventComplete EventType = "complete"

	// EventError terminates an aborted pass.
	EventError EventType = "error"
)

// ProgressStatus is the outcome of one file within a batch.
type ProgressStatus string

const (
	ProgressCompleted ProgressStatus = "completed"
	ProgressError     ProgressStatus = "error"
)

// StartEvent carries the counts computed by the diff step.
type StartEvent struct {
	TotalRemoteFiles int `json:"totalRemoteFiles"`
	ToEmbed          int `json:"toEmbedCount"`
	Existing         int `json:"existingCount"`
}

// ProgressEvent reports one per-file outcome. A status of ProgressError
// means that file was skipped; it never aborts the pass.
type ProgressEvent struct {
	Current  int            `json:"current"`
	Total    int            `json:"total"`
	FileName string         `json:"fileName"`
	Status   ProgressStatus `json:"status"`
	Err      error          `json:"-"`
}

// CompleteEvent carries the final counts of a successful pass.
type CompleteEvent struct {
	TotalRecords int `json:"totalRecords"`
	Processed    int `json:"processedCount"`
	Preserved    int `json:"preservedCount"`
}

// Event is one entry on the ordered sync progress stream. Exactly one
// terminal event (Complete or Error) is emitted per pass, after which the
// stream is closed; consumers must not expect anything after it.
type Event struct {
	Type     EventType
	Start    *StartEvent
	Progress *ProgressEvent
	Complete *CompleteEvent
	Err      error
}
