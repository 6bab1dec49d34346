// Package preview implements the preview generation pipeline: claiming queued jobs,
// scanning the downloaded original, producing watermarked artifacts per input kind,
// and publishing them.
package preview

import (
	"fmt"
	"strings"
)

// Kind is the closed set of processing branches.
type Kind string

const (
	KindPDF            Kind = "pdf"
	KindVideo          Kind = "video"
	KindImage          Kind = "image"
	KindConvertThenPDF Kind = "office"
)

// ResolveKind picks the branch for a declared MIME type. Matching is by substring
// and case-insensitive; anything unrecognised is converted to PDF first.
func ResolveKind(mimeType string) Kind {
	m := strings.ToLower(mimeType)
	switch {
	case strings.Contains(m, "pdf"):
		return KindPDF
	case strings.Contains(m, "video"):
		return KindVideo
	case strings.Contains(m, "image"):
		return KindImage
	default:
		return KindConvertThenPDF
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPDF, KindVideo, KindImage, KindConvertThenPDF:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// errUnknownKind guards the dispatch switch against a Kind built outside ResolveKind.
func errUnknownKind(k Kind) error {
	return fmt.Errorf("unknown preview kind %q", string(k))
}
