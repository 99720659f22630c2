// Package report renders defect listings as CSV for export into
// spreadsheets and handover documents.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sitedesk/punchlist/internal/storage"
	"github.com/sitedesk/punchlist/internal/types"
)

var csvHeader = []string{
	"number", "title", "status", "priority", "location",
	"reporter", "assignee", "due_date", "created_at", "closed_at",
}

// WriteCSV streams the defects matching filter to w as CSV, resolving
// status, priority, and user references to readable names. Dangling
// references degrade to "unknown" rather than failing the export.
func WriteCSV(ctx context.Context, store storage.Storage, filter types.DefectFilter, w io.Writer) (int, error) {
	defects, err := store.SearchDefects(ctx, filter)
	if err != nil {
		return 0, err
	}

	statuses := map[int64]string{}
	if all, err := store.ListStatuses(ctx); err == nil {
		for _, st := range all {
			statuses[st.ID] = st.DisplayName
		}
	}
	priorities := map[int64]string{}
	if all, err := store.ListPriorities(ctx); err == nil {
		for _, p := range all {
			priorities[p.ID] = p.DisplayName
		}
	}
	users := map[int64]string{}
	userName := func(id int64) string {
		if name, ok := users[id]; ok {
			return name
		}
		name := "unknown"
		if u, err := store.GetUser(ctx, id); err == nil {
			name = u.DisplayName()
		}
		users[id] = name
		return name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	for _, d := range defects {
		assignee := ""
		if d.AssigneeID != nil {
			assignee = userName(*d.AssigneeID)
		}
		record := []string{
			d.Number,
			d.Title,
			lookupName(statuses, d.StatusID),
			lookupName(priorities, d.PriorityID),
			d.Location,
			userName(d.ReporterID),
			assignee,
			formatTime(d.DueDate),
			d.CreatedAt.UTC().Format(time.RFC3339),
			formatTime(d.ClosedAt),
		}
		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("write csv record %s: %w", d.Number, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	return len(defects), nil
}

func lookupName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok {
		return name
	}
	return "unknown " + strconv.FormatInt(id, 10)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
