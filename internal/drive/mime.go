package drive

import "strings"

// Google workspace types have no raw bytes and must be exported as text.
const (
	mimeGoogleDoc          = "application/vnd.google-apps.document"
	mimeGoogleSheet        = "application/vnd.google-apps.spreadsheet"
	mimeGooglePresentation = "application/vnd.google-apps.presentation"
)

// allowedMimeTypes is the fixed allow-list of file types worth embedding.
// Files of any other type are excluded from listings entirely.
var allowedMimeTypes = []string{
	// Plain text and markup
	"text/plain",
	"text/markdown",
	"text/x-markdown",
	"text/csv",
	"text/html",

	// Documents
	"application/pdf",
	"application/json",
	"application/rtf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",

	// Source code
	"text/javascript",
	"application/javascript",
	"text/x-python",
	"text/x-go",
	"text/x-java-source",
	"text/x-c",
	"application/xml",

	// Google workspace
	mimeGoogleDoc,
	mimeGoogleSheet,
	mimeGooglePresentation,
}

// exportMimeFor returns the export MIME type for a workspace-native file,
// or empty when the file has raw bytes and can be downloaded directly.
func exportMimeFor(mimeType string) string {
	switch mimeType {
	case mimeGoogleDoc, mimeGooglePresentation:
		return "text/plain"
	case mimeGoogleSheet:
		return "text/csv"
	default:
		return ""
	}
}

// buildListQuery builds the Drive search query restricting a listing to
// non-trashed files of allowed MIME types.
func buildListQuery() string {
	clauses := make([]string, len(allowedMimeTypes))
	for i, m := range allowedMimeTypes {
		clauses[i] = "mimeType = '" + m + "'"
	}
	return "trashed = false and (" + strings.Join(clauses, " or ") + ")"
}
