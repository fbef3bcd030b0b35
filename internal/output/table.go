package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders session listings as an ASCII table.
type TableFormatter struct{}

// FormatSessions renders a session listing as a table.
func (f *TableFormatter) FormatSessions(list SessionList) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Sessions for %s", list.UserID)
	t.AppendHeader(table.Row{"", "Session ID", "Device", "Created", "Last Active"})

	for _, record := range list.Sessions {
		t.AppendRow(table.Row{
			currentMarker(record, list.CurrentID),
			record.SessionID,
			string(record.DeviceInfo),
			record.CreatedAt.UTC().Format(time.RFC3339),
			record.LastActive.UTC().Format(time.RFC3339),
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d active", len(list.Sessions))})

	return t.Render(), nil
}
