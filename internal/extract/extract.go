// Package extract converts raw fetched file content into plain text
// suitable for embedding.
package extract

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Func converts raw file content of the given MIME type into plain text.
// An empty result means the file has no extractable text and is skipped
// by the embedding pipeline.
type Func func(mimeType, raw string) string

var (
	stripPolicy = bluemonday.StrictPolicy()
	whitespace  = regexp.MustCompile(`[ \t]{2,}`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
)

// Text is the default extractor. Plain-text formats pass through, HTML is
// stripped to its text content, and types with no text representation
// yield an empty string.
func Text(mimeType, raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	base := mimeType
	if i := strings.Index(base, ";"); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}

	switch {
	case base == "text/html", base == "application/xhtml+xml":
		return collapse(stripPolicy.Sanitize(raw))
	case strings.HasPrefix(base, "text/"):
		return raw
	case base == "application/json",
		base == "application/javascript",
		base == "application/xml",
		base == "application/x-yaml":
		return raw
	default:
		// Binary formats (PDF, office documents) carry no text we can
		// decode here. Google workspace types never reach this path:
		// they are exported as text upstream.
		return ""
	}
}

// collapse tidies stripped HTML: squeeze runs of spaces and blank lines.
func collapse(s string) string {
	s = whitespace.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
