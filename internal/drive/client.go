// Package drive adapts the Google Drive API to the sync and retrieval
// pipeline: file listings, content fetches, and the persisted embedding
// snapshot.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/drivechat/drivechat/internal/snapshot"
)

// DefaultSnapshotName is the well-known name of the embedding store file
// in the user's Drive.
const DefaultSnapshotName = "drivechat-embeddings.json"

const listPageSize = 1000

const listFields = "nextPageToken, files(id, name, mimeType, size, modifiedTime, webViewLink, parents)"

// File is one remote file from a Drive listing. Listings are enumerated
// fresh on every sync pass and never cached.
type File struct {
	ID           string
	Name         string
	MimeType     string
	Size         int64
	ModifiedTime string
	WebViewLink  string
	Parents      []string
}

// Options configures the Drive client.
type Options struct {
	// AccessToken is the OAuth2 bearer token for the user's account.
	AccessToken string

	// SnapshotName overrides the well-known snapshot file name.
	SnapshotName string

	// IgnorePatterns are gitignore-style patterns excluding files by name.
	IgnorePatterns []string
}

// Client wraps the Drive API for listing, content fetch, and snapshot I/O.
type Client struct {
	svc          *gdrive.Service
	snapshotName string
	ignore       *gitignore.GitIgnore
}

// New creates a Drive client authenticated with the given bearer token.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.AccessToken == "" {
		return nil, fmt.Errorf("drive access token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AccessToken})
	svc, err := gdrive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	name := opts.SnapshotName
	if name == "" {
		name = DefaultSnapshotName
	}

	var ignore *gitignore.GitIgnore
	if len(opts.IgnorePatterns) > 0 {
		ignore = gitignore.CompileIgnoreLines(opts.IgnorePatterns...)
	}

	return &Client{
		svc:          svc,
		snapshotName: name,
		ignore:       ignore,
	}, nil
}

// ListFiles enumerates every embeddable file in the account, following
// pagination to exhaustion. A failure on any page aborts the whole call;
// partial listings are never returned.
func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	var files []File
	pageToken := ""

	for {
		call := c.svc.Files.List().
			Q(buildListQuery()).
			PageSize(listPageSize).
			Fields(googleapi.Field(listFields)).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list remote files: %w", err)
		}

		for _, f := range page.Files {
			if c.excluded(f.Name) {
				continue
			}
			files = append(files, File{
				ID:           f.Id,
				Name:         f.Name,
				MimeType:     f.MimeType,
				Size:         f.Size,
				ModifiedTime: f.ModifiedTime,
				WebViewLink:  f.WebViewLink,
				Parents:      f.Parents,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	log.Debug("Listed remote files", "count", len(files))
	return files, nil
}

// excluded reports whether a listed file should be dropped: the snapshot
// itself, and anything matching a configured ignore pattern.
func (c *Client) excluded(name string) bool {
	if name == c.snapshotName {
		return true
	}
	if c.ignore != nil && c.ignore.MatchesPath(name) {
		log.Debug("Ignoring file by pattern", "name", name)
		return true
	}
	return false
}

// FetchContent downloads a file's content as text. Workspace-native types
// are exported as plain text or CSV; everything else is fetched raw.
// Fetching is best-effort: any failure yields an empty string so a single
// unreadable file is skipped upstream instead of failing the pass.
func (c *Client) FetchContent(ctx context.Context, f File) string {
	var body []byte

	op := func() error {
		var resp *http.Response
		var err error

		if exportMime := exportMimeFor(f.MimeType); exportMime != "" {
			resp, err = c.svc.Files.Export(f.ID, exportMime).Context(ctx).Download()
		} else {
			resp, err = c.svc.Files.Get(f.ID).Context(ctx).Download()
		}
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		log.Warn("Failed to fetch file content", "name", f.Name, "error", err)
		return ""
	}

	return string(body)
}

// FindSnapshot locates the embedding snapshot file by its well-known name.
// Returns nil when no snapshot exists yet, which is the normal first-run
// state, not an error.
func (c *Client) FindSnapshot(ctx context.Context) (*File, error) {
	query := fmt.Sprintf("name = '%s' and trashed = false", c.snapshotName)

	page, err := c.svc.Files.List().
		Q(query).
		PageSize(1).
		Fields(googleapi.Field("files(id, name, mimeType, size, modifiedTime)")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search for snapshot: %w", err)
	}

	if len(page.Files) == 0 {
		return nil, nil
	}

	f := page.Files[0]
	return &File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Size:         f.Size,
		ModifiedTime: f.ModifiedTime,
	}, nil
}

// ReadSnapshot downloads and validates the snapshot with the given file ID.
func (c *Client) ReadSnapshot(ctx context.Context, fileID string) (*snapshot.Snapshot, error) {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download snapshot: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot body: %w", err)
	}

	return snapshot.Parse(data)
}

// WriteSnapshot persists the snapshot as a full overwrite. With an existing
// file ID the file is updated in place; otherwise a new file is created.
// The snapshot is a singleton, never a history of versions.
func (c *Client) WriteSnapshot(ctx context.Context, snap *snapshot.Snapshot, existingID string) (string, error) {
	data, err := snap.Encode()
	if err != nil {
		return "", err
	}

	if existingID != "" {
		f, err := c.svc.Files.Update(existingID, &gdrive.File{}).
			Media(bytes.NewReader(data), googleapi.ContentType("application/json")).
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("failed to update snapshot: %w", err)
		}
		log.Debug("Updated snapshot", "id", f.Id, "records", len(snap.Records))
		return f.Id, nil
	}

	f, err := c.svc.Files.Create(&gdrive.File{
		Name:     c.snapshotName,
		MimeType: "application/json",
	}).
		Media(bytes.NewReader(data), googleapi.ContentType("application/json")).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot: %w", err)
	}
	log.Debug("Created snapshot", "id", f.Id, "records", len(snap.Records))
	return f.Id, nil
}
