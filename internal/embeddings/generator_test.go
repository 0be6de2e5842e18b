package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService is an in-memory embedding backend for tests.
type fakeService struct {
	dimensions int
	tokens     int              // reported per call
	failOn     map[string]error // substring of input -> error
	calls      []string
}

func newFakeService(dims int) *fakeService {
	return &fakeService{dimensions: dims, failOn: map[string]error{}}
}

func (f *fakeService) Embed(ctx context.Context, text string) ([]float32, Usage, error) {
	f.calls = append(f.calls, text)
	for substr, err := range f.failOn {
		if strings.Contains(text, substr) {
			return nil, Usage{}, err
		}
	}
	vec := make([]float32, f.dimensions)
	for i := range vec {
		vec[i] = float32(len(text)%(i+2)) + 0.5
	}
	return vec, Usage{Tokens: f.tokens}, nil
}

func (f *fakeService) EmbedQuery(ctx context.Context, text string) ([]float32, Usage, error) {
	return f.Embed(ctx, text)
}

func (f *fakeService) Dimensions() int    { return f.dimensions }
func (f *fakeService) Provider() Provider { return ProviderOpenAI }
func (f *fakeService) ModelName() string  { return "fake-model" }

var _ Service = (*fakeService)(nil)

// TestEmbedTextEmptyInput tests blank input failure.
func TestEmbedTextEmptyInput(t *testing.T) {
	gen := NewGenerator(newFakeService(4))

	for _, text := range []string{"", "   ", "\n\t "} {
		_, _, err := gen.EmbedText(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyInput, "input %q", text)
	}
}

// TestEmbedTextReportsUsage tests token usage flows through from the backend.
func TestEmbedTextReportsUsage(t *testing.T) {
	svc := newFakeService(4)
	svc.tokens = 37
	gen := NewGenerator(svc)

	vec, usage, err := gen.EmbedText(context.Background(), "some document text")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, 37, usage.Tokens)
}

// TestEmbedTextBackendErrorPrefix tests the stable wrapping of upstream failures.
func TestEmbedTextBackendErrorPrefix(t *testing.T) {
	svc := newFakeService(4)
	upstream := errors.New("rate limited")
	svc.failOn["doomed"] = upstream

	gen := NewGenerator(svc)

	_, _, err := gen.EmbedText(context.Background(), "doomed text")
	require.Error(t, err)
	assert.ErrorIs(t, err, upstream)
	assert.True(t, strings.HasPrefix(err.Error(), BackendErrorPrefix))
}

// TestEmbedTextTruncatesBeforeBackendCall tests the truncation budget is
// applied before the model sees the text.
func TestEmbedTextTruncatesBeforeBackendCall(t *testing.T) {
	svc := newFakeService(4)
	gen := NewGenerator(svc, WithMaxChars(100))

	long := strings.Repeat("x", 500)
	_, _, err := gen.EmbedText(context.Background(), long)
	require.NoError(t, err)

	require.Len(t, svc.calls, 1)
	assert.LessOrEqual(t, len(svc.calls[0]), 100)
}

// TestTruncate tests the word-boundary truncation policy.
func TestTruncate(t *testing.T) {
	t.Run("short text untouched", func(t *testing.T) {
		assert.Equal(t, "hello world", Truncate("hello world", 100))
	})

	t.Run("boundary within last tenth is preferred", func(t *testing.T) {
		// Boundary at index 96 of a 100-char window (>= 90) wins.
		text := strings.Repeat("a", 96) + " " + strings.Repeat("b", 50)
		got := Truncate(text, 100)
		assert.Equal(t, strings.Repeat("a", 96), got)
	})

	t.Run("distant boundary gets the hard cut", func(t *testing.T) {
		// Only boundary is at index 10, well before the last tenth.
		text := "shortword " + strings.Repeat("c", 200)
		got := Truncate(text, 100)
		assert.Len(t, got, 100)
	})

	t.Run("no boundary gets the hard cut", func(t *testing.T) {
		text := strings.Repeat("d", 300)
		got := Truncate(text, 100)
		assert.Equal(t, strings.Repeat("d", 100), got)
	})
}

// TestEmbedFile tests record assembly for a single file.
func TestEmbedFile(t *testing.T) {
	gen := NewGenerator(newFakeService(4))

	rec, err := gen.EmbedFile(context.Background(), FileInput{
		ID:           "file-1",
		Name:         "notes.txt",
		MimeType:     "text/plain",
		ModifiedTime: "2025-06-01T10:00:00Z",
		SourceLink:   "https://drive.example/file-1",
		Size:         42,
		Content:      "some meeting notes",
	})
	require.NoError(t, err)

	assert.Equal(t, "file-1", rec.FileID)
	assert.Equal(t, "notes.txt", rec.FileName)
	assert.Equal(t, "some meeting notes", rec.Content)
	assert.Len(t, rec.Vector, 4)
	assert.Equal(t, "text/plain", rec.MimeType)
	assert.Equal(t, "https://drive.example/file-1", rec.SourceLink)
	assert.Equal(t, int64(42), rec.Metadata.Size)
	// modifiedTime is copied from the listing, not re-stamped
	assert.Equal(t, "2025-06-01T10:00:00Z", rec.Metadata.ModifiedTime)
	assert.NotEmpty(t, rec.Metadata.EmbeddedAt)
	assert.Len(t, rec.Metadata.ContentHash, 16)
}

// TestEmbedBatchPartialFailure tests that one file's failure never aborts
// the batch and is reported as an error notification.
func TestEmbedBatchPartialFailure(t *testing.T) {
	svc := newFakeService(4)
	svc.failOn["second"] = errors.New("backend exploded")
	gen := NewGenerator(svc)

	files := []FileInput{
		{ID: "1", Name: "first.txt", MimeType: "text/plain", Content: "first file body"},
		{ID: "2", Name: "second.txt", MimeType: "text/plain", Content: "second file body"},
	}

	var events []BatchProgress
	records := gen.EmbedBatch(context.Background(), files, func(p BatchProgress) {
		events = append(events, p)
	})

	require.Len(t, records, 1)
	assert.Equal(t, "1", records[0].FileID)

	var errEvents []BatchProgress
	for _, e := range events {
		if e.Status == StatusError {
			errEvents = append(errEvents, e)
		}
	}
	require.Len(t, errEvents, 1)
	assert.Equal(t, "second.txt", errEvents[0].FileName)
	assert.Error(t, errEvents[0].Err)
}

// TestEmbedBatchSkipsBlankContent tests blank files are omitted without
// progress noise.
func TestEmbedBatchSkipsBlankContent(t *testing.T) {
	gen := NewGenerator(newFakeService(4))

	files := []FileInput{
		{ID: "1", Name: "empty.txt", MimeType: "text/plain", Content: "   "},
		{ID: "2", Name: "real.txt", MimeType: "text/plain", Content: "actual content"},
	}

	var events []BatchProgress
	records := gen.EmbedBatch(context.Background(), files, func(p BatchProgress) {
		events = append(events, p)
	})

	require.Len(t, records, 1)
	assert.Equal(t, "2", records[0].FileID)

	for _, e := range events {
		// The blank file is never mentioned: not an error, just omitted.
		if e.Status != StatusComplete {
			assert.NotEqual(t, "empty.txt", e.FileName)
		}
	}
}

// TestEmbedBatchProgressSequence tests notification ordering and the
// terminal event.
func TestEmbedBatchProgressSequence(t *testing.T) {
	gen := NewGenerator(newFakeService(4))

	files := []FileInput{
		{ID: "1", Name: "a.txt", MimeType: "text/plain", Content: "aaa"},
		{ID: "2", Name: "b.txt", MimeType: "text/plain", Content: "bbb"},
	}

	var events []BatchProgress
	gen.EmbedBatch(context.Background(), files, func(p BatchProgress) {
		events = append(events, p)
	})

	require.Len(t, events, 5)
	assert.Equal(t, StatusProcessing, events[0].Status)
	assert.Equal(t, "a.txt", events[0].FileName)
	assert.Equal(t, StatusCompleted, events[1].Status)
	assert.Equal(t, StatusProcessing, events[2].Status)
	assert.Equal(t, "b.txt", events[2].FileName)
	assert.Equal(t, StatusCompleted, events[3].Status)

	terminal := events[4]
	assert.Equal(t, StatusComplete, terminal.Status)
	// The terminal notification references the last file processed.
	assert.Equal(t, "b.txt", terminal.FileName)
}

// TestEmbedBatchEmpty tests an empty batch emits only the terminal event.
func TestEmbedBatchEmpty(t *testing.T) {
	gen := NewGenerator(newFakeService(4))

	var events []BatchProgress
	records := gen.EmbedBatch(context.Background(), nil, func(p BatchProgress) {
		events = append(events, p)
	})

	assert.Empty(t, records)
	require.Len(t, events, 1)
	assert.Equal(t, StatusComplete, events[0].Status)
}

// TestEmbedBatchWithoutCallback tests a nil progress function is fine.
func TestEmbedBatchWithoutCallback(t *testing.T) {
	gen := NewGenerator(newFakeService(4))

	records := gen.EmbedBatch(context.Background(), []FileInput{
		{ID: "1", Name: "a.txt", MimeType: "text/plain", Content: "aaa"},
	}, nil)

	assert.Len(t, records, 1)
}

func ExampleTruncate() {
	fmt.Println(Truncate("the quick brown fox", 10))
	// Output: the quick
}
