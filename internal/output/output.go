// Package output renders session listings for the operator CLI.
package output

import (
	"fmt"
	"strings"

	"github.com/ledgerkeep/ledgerkeep/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// SessionList is the render input: a user's active sessions plus the id of
// the caller's own session (may be empty).
type SessionList struct {
	UserID    string               `json:"user_id"`
	Sessions  []core.SessionRecord `json:"sessions"`
	CurrentID string               `json:"current_session_id,omitempty"`
}

// Formatter renders session listings.
type Formatter interface {
	FormatSessions(list SessionList) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

func currentMarker(record core.SessionRecord, currentID string) string {
	if currentID != "" && record.SessionID == currentID {
		return "*"
	}
	return ""
}
