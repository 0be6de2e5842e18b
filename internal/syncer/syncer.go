// Package syncer reconciles the remote file listing against the persisted
// embedding snapshot: it computes which files changed, embeds them in
// bounded-concurrency batches, and writes the merged snapshot back.
//
// Sync cost is proportional to the number of files changed since the last
// pass, not to the total file count: unchanged files are preserved as-is
// and their content is never re-fetched or re-embedded.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/drivechat/drivechat/internal/drive"
	"github.com/drivechat/drivechat/internal/embeddings"
	"github.com/drivechat/drivechat/internal/snapshot"
)

// RemoteStore is the Drive surface the orchestrator depends on.
type RemoteStore interface {
	ListFiles(ctx context.Context) ([]drive.File, error)
	FetchContent(ctx context.Context, f drive.File) string
	FindSnapshot(ctx context.Context) (*drive.File, error)
	ReadSnapshot(ctx context.Context, fileID string) (*snapshot.Snapshot, error)
	WriteSnapshot(ctx context.Context, snap *snapshot.Snapshot, existingID string) (string, error)
}

// Embedder turns one fetched file into an embedding record.
type Embedder interface {
	EmbedFile(ctx context.Context, f embeddings.FileInput) (*snapshot.Record, error)
	ModelName() string
}

// Options tunes a sync pass.
type Options struct {
	// BatchSize bounds how many files are embedded concurrently.
	BatchSize int

	// BatchDelay is the pause between batches, respecting backend rate limits.
	BatchDelay time.Duration

	// Force re-embeds every remote file regardless of the diff.
	Force bool
}

// DefaultOptions returns the standard sync tuning.
func DefaultOptions() Options {
	return Options{
		BatchSize:  5,
		BatchDelay: time.Second,
	}
}

// Orchestrator drives one sync pass from listing through persisting.
type Orchestrator struct {
	store RemoteStore
	gen   Embedder
	opts  Options
}

// New creates an Orchestrator.
func New(store RemoteStore, gen Embedder, opts Options) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	return &Orchestrator{
		store: store,
		gen:   gen,
		opts:  opts,
	}
}

// Plan computes the delta without embedding anything.
type Plan struct {
	TotalRemoteFiles int
	ToEmbed          []drive.File
	Preserved        int
	SnapshotExists   bool
}

// Plan lists remote files, loads the snapshot if present, and returns what
// a sync pass would do.
func (o *Orchestrator) Plan(ctx context.Context) (*Plan, error) {
	files, snap, snapFile, err := o.load(ctx)
	if err != nil {
		return nil, err
	}

	var existing []snapshot.Record
	if snap != nil {
		existing = snap.Records
	}
	toEmbed, preserved := diff(files, existing, o.opts.Force)

	return &Plan{
		TotalRemoteFiles: len(files),
		ToEmbed:          toEmbed,
		Preserved:        len(preserved),
		SnapshotExists:   snapFile != nil,
	}, nil
}

// Run executes one full sync pass, publishing the ordered event stream.
// The returned channel receives one start event, zero or more progress
// events, and exactly one terminal complete or error event, then closes.
func (o *Orchestrator) Run(ctx context.Context) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		o.run(ctx, events)
	}()
	return events
}

// load performs the Listing state: remote listing plus snapshot lookup.
// An absent snapshot is the normal first-run state; only transport and
// parse failures are errors.
func (o *Orchestrator) load(ctx context.Context) ([]drive.File, *snapshot.Snapshot, *drive.File, error) {
	files, err := o.store.ListFiles(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	snapFile, err := o.store.FindSnapshot(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	var snap *snapshot.Snapshot
	if snapFile != nil {
		snap, err = o.store.ReadSnapshot(ctx, snapFile.ID)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return files, snap, snapFile, nil
}

func (o *Orchestrator) run(ctx context.Context, events chan<- Event) {
	// Listing. Failures here abort the pass: nothing has been persisted.
	files, snap, snapFile, err := o.load(ctx)
	if err != nil {
		events <- Event{Type: EventError, Err: err}
		return
	}

	existingID := ""
	var existing []snapshot.Record
	if snapFile != nil {
		existingID = snapFile.ID
	}
	if snap != nil {
		existing = snap.Records
	}

	// Diffing.
	toEmbed, preserved := diff(files, existing, o.opts.Force)
	log.Debug("Computed sync delta",
		"remote", len(files),
		"toEmbed", len(toEmbed),
		"preserved", len(preserved),
	)

	events <- Event{Type: EventStart, Start: &StartEvent{
		TotalRemoteFiles: len(files),
		ToEmbed:          len(toEmbed),
		Existing:         len(existing),
	}}

	// Embedding. The accumulating record set is local to this pass and
	// threaded through each batch step; merging happens only after a
	// batch has fully settled, so no lock is needed.
	acc := newRecordSet(preserved)
	processed := 0
	current := 0

	for start := 0; start < len(toEmbed); start += o.opts.BatchSize {
		end := start + o.opts.BatchSize
		if end > len(toEmbed) {
			end = len(toEmbed)
		}
		batch := toEmbed[start:end]

		results := o.embedBatch(ctx, batch)

		// Merge and report. Every per-file outcome becomes a progress
		// event; a failed file is skipped, never fatal.
		for i, r := range results {
			current++
			if r.err != nil {
				events <- Event{Type: EventProgress, Progress: &ProgressEvent{
					Current:  current,
					Total:    len(toEmbed),
					FileName: batch[i].Name,
					Status:   ProgressError,
					Err:      r.err,
				}}
				continue
			}
			acc.upsert(*r.rec)
			processed++
			events <- Event{Type: EventProgress, Progress: &ProgressEvent{
				Current:  current,
				Total:    len(toEmbed),
				FileName: batch[i].Name,
				Status:   ProgressCompleted,
			}}
		}

		if end < len(toEmbed) && o.opts.BatchDelay > 0 {
			select {
			case <-time.After(o.opts.BatchDelay):
			case <-ctx.Done():
				events <- Event{Type: EventError, Err: ctx.Err()}
				return
			}
		}
	}

	// Persisting: one atomic full overwrite at the end, or nothing.
	final := snapshot.New(acc.list(), len(files), o.gen.ModelName())
	if _, err := o.store.WriteSnapshot(ctx, final, existingID); err != nil {
		events <- Event{Type: EventError, Err: err}
		return
	}

	events <- Event{Type: EventComplete, Complete: &CompleteEvent{
		TotalRecords: len(final.Records),
		Processed:    processed,
		Preserved:    len(preserved),
	}}
}

type batchResult struct {
	rec *snapshot.Record
	err error
}

// embedBatch fetches and embeds every file in the batch concurrently and
// waits for all of them to settle. One file's failure never cancels its
// siblings; outcomes are collected, not short-circuited.
func (o *Orchestrator) embedBatch(ctx context.Context, batch []drive.File) []batchResult {
	results := make([]batchResult, len(batch))

	var wg sync.WaitGroup
	for i, f := range batch {
		wg.Add(1)
		go func(i int, f drive.File) {
			defer wg.Done()

			content := o.store.FetchContent(ctx, f)
			rec, err := o.gen.EmbedFile(ctx, embeddings.FileInput{
				ID:           f.ID,
				Name:         f.Name,
				MimeType:     f.MimeType,
				ModifiedTime: f.ModifiedTime,
				SourceLink:   f.WebViewLink,
				Size:         f.Size,
				Content:      content,
			})
			results[i] = batchResult{rec: rec, err: err}
		}(i, f)
	}
	wg.Wait()

	return results
}

// diff splits the remote listing into files needing (re-)embedding and
// existing records to preserve. A file needs embedding iff it has no
// record or its record's modifiedTime differs from the remote one by
// exact string inequality. Records whose file vanished remotely are
// preserved as well: stale entries persist until superseded by fileId.
func diff(remote []drive.File, existing []snapshot.Record, force bool) ([]drive.File, []snapshot.Record) {
	byID := make(map[string]snapshot.Record, len(existing))
	for _, rec := range existing {
		byID[rec.FileID] = rec
	}

	var toEmbed []drive.File
	stale := make(map[string]bool, len(remote))
	for _, f := range remote {
		rec, ok := byID[f.ID]
		if force || !ok || rec.Metadata.ModifiedTime != f.ModifiedTime {
			toEmbed = append(toEmbed, f)
			stale[f.ID] = true
		}
	}

	var preserved []snapshot.Record
	for _, rec := range existing {
		if !stale[rec.FileID] {
			preserved = append(preserved, rec)
		}
	}

	return toEmbed, preserved
}

// recordSet is the accumulating result set for one pass: preserved records
// plus newly embedded ones, unique by file ID with insertion order kept.
type recordSet struct {
	order []string
	byID  map[string]snapshot.Record
}

func newRecordSet(initial []snapshot.Record) *recordSet {
	s := &recordSet{byID: make(map[string]snapshot.Record, len(initial))}
	for _, rec := range initial {
		s.upsert(rec)
	}
	return s
}

// upsert replaces any prior record with the same file ID (delete-then-
// insert), so the set never holds duplicates.
func (s *recordSet) upsert(rec snapshot.Record) {
	if _, ok := s.byID[rec.FileID]; !ok {
		s.order = append(s.order, rec.FileID)
	}
	s.byID[rec.FileID] = rec
}

func (s *recordSet) list() []snapshot.Record {
	out := make([]snapshot.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
