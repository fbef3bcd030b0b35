package output

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter renders session listings as a markdown table.
type MarkdownFormatter struct{}

// FormatSessions renders a session listing as Markdown.
func (f *MarkdownFormatter) FormatSessions(list SessionList) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Sessions for %s\n\n", escapeMarkdownCell(list.UserID)))
	sb.WriteString("| Current | Session ID | Device | Created | Last Active |\n")
	sb.WriteString("|---------|------------|--------|---------|-------------|\n")

	for _, record := range list.Sessions {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			currentMarker(record, list.CurrentID),
			escapeMarkdownCell(record.SessionID),
			escapeMarkdownCell(string(record.DeviceInfo)),
			record.CreatedAt.UTC().Format(time.RFC3339),
			record.LastActive.UTC().Format(time.RFC3339),
		))
	}

	sb.WriteString(fmt.Sprintf("\n**Active**: %d\n", len(list.Sessions)))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
