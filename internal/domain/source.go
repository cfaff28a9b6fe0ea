package domain

import "fmt"

// Source selects which live providers back a retrieval request.
type Source string

const (
	// SourceSocial fetches from the social-post search provider only.
	SourceSocial Source = "social"
	// SourceWeb fetches from the web-search provider only.
	SourceWeb Source = "web"
	// SourceBoth fetches from both providers.
	SourceBoth Source = "both"
)

// ParseSource parses a source-selection string; empty defaults to both.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceSocial, SourceWeb, SourceBoth:
		return Source(s), nil
	case "":
		return SourceBoth, nil
	default:
		return "", fmt.Errorf("unknown source %q", s)
	}
}

// IncludesSocial reports whether the social provider participates.
func (s Source) IncludesSocial() bool { return s == SourceSocial || s == SourceBoth }

// IncludesWeb reports whether the web provider participates.
func (s Source) IncludesWeb() bool { return s == SourceWeb || s == SourceBoth }
