// Package snapshot defines the embedding store document persisted to Drive.
//
// The snapshot is a single JSON file holding every embedding record for one
// account. Its field names are a compatibility surface: readers written
// against this schema must keep working across releases, so a payload that
// parses as JSON but is missing required fields is rejected rather than
// coerced.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FormatVersion is the current snapshot schema version.
const FormatVersion = 1

// ErrMalformed is returned when a snapshot payload does not match the
// expected schema.
var ErrMalformed = errors.New("malformed snapshot")

// Snapshot is the persisted embedding store for one Drive account.
type Snapshot struct {
	FormatVersion int           `json:"formatVersion"`
	GeneratedAt   string        `json:"generatedAt"`
	TotalFiles    int           `json:"totalFiles"`
	Records       []Record      `json:"records"`
	ModelMetadata ModelMetadata `json:"modelMetadata"`
}

// ModelMetadata identifies the embedding model a snapshot was built with.
type ModelMetadata struct {
	ModelID         string `json:"modelId"`
	VectorDimension int    `json:"vectorDimension"`
}

// Record holds one file's extracted text, vector, and metadata.
type Record struct {
	FileID     string         `json:"fileId"`
	FileName   string         `json:"fileName"`
	Content    string         `json:"content"`
	Vector     []float32      `json:"vector"`
	MimeType   string         `json:"mimeType"`
	SourceLink string         `json:"sourceLink,omitempty"`
	Metadata   RecordMetadata `json:"metadata"`
}

// RecordMetadata carries per-record bookkeeping fields.
type RecordMetadata struct {
	Size         int64  `json:"size,omitempty"`
	ModifiedTime string `json:"modifiedTime"`
	EmbeddedAt   string `json:"embeddedAt"`
	ContentHash  string `json:"contentHash,omitempty"`
}

// New creates a snapshot over the given records, stamping generation time
// and model metadata. The vector dimension is taken from the records
// themselves (0 when the record set is empty).
func New(records []Record, totalFiles int, modelID string) *Snapshot {
	dim := 0
	if len(records) > 0 {
		dim = len(records[0].Vector)
	}

	return &Snapshot{
		FormatVersion: FormatVersion,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		TotalFiles:    totalFiles,
		Records:       records,
		ModelMetadata: ModelMetadata{
			ModelID:         modelID,
			VectorDimension: dim,
		},
	}
}

// Parse decodes and validates a snapshot payload. A structurally wrong but
// syntactically valid payload fails with ErrMalformed.
func Parse(data []byte) (*Snapshot, error) {
	// Decode into a raw map first so absent fields can be told apart from
	// zero values.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	for _, field := range []string{"formatVersion", "generatedAt", "records", "modelMetadata"} {
		if _, ok := raw[field]; !ok {
			return nil, fmt.Errorf("%w: missing field %q", ErrMalformed, field)
		}
	}

	var meta map[string]json.RawMessage
	if err := json.Unmarshal(raw["modelMetadata"], &meta); err != nil {
		return nil, fmt.Errorf("%w: modelMetadata is not an object", ErrMalformed)
	}
	for _, field := range []string{"modelId", "vectorDimension"} {
		if _, ok := meta[field]; !ok {
			return nil, fmt.Errorf("%w: missing field modelMetadata.%q", ErrMalformed, field)
		}
	}

	// records must be a JSON array, not merely present.
	var records []json.RawMessage
	if err := json.Unmarshal(raw["records"], &records); err != nil {
		return nil, fmt.Errorf("%w: records is not an array", ErrMalformed)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if snap.Records == nil {
		snap.Records = []Record{}
	}

	return &snap, nil
}

// Encode marshals the snapshot for persistence. Record order is preserved.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Index returns the records keyed by file ID. When duplicates exist the
// last record wins, matching the delete-then-insert merge discipline.
func (s *Snapshot) Index() map[string]Record {
	idx := make(map[string]Record, len(s.Records))
	for _, r := range s.Records {
		idx[r.FileID] = r
	}
	return idx
}

// Dimension returns the vector dimension recorded in the model metadata.
func (s *Snapshot) Dimension() int {
	return s.ModelMetadata.VectorDimension
}
