package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/sitedesk/punchlist/internal/types"
)

func init() {
	if os.Getenv("NO_COLOR") != "" || termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

var (
	numberStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	statusStyles = map[types.StatusName]lipgloss.Style{
		types.StatusOpen:       lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		types.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		types.StatusReview:     lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		types.StatusResolved:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		types.StatusClosed:     lipgloss.NewStyle().Faint(true),
		types.StatusRejected:   lipgloss.NewStyle().Faint(true).Strikethrough(true),
	}

	priorityStyles = map[string]lipgloss.Style{
		"low":      lipgloss.NewStyle().Faint(true),
		"medium":   lipgloss.NewStyle(),
		"high":     lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"critical": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
	}
)

func renderStatus(st *types.StatusDef) string {
	if style, ok := statusStyles[st.Name]; ok {
		return style.Render(st.DisplayName)
	}
	return st.DisplayName
}

func renderPriority(p *types.Priority) string {
	if style, ok := priorityStyles[p.Name]; ok {
		return style.Render(p.DisplayName)
	}
	return p.DisplayName
}

// FatalError prints a styled error and exits non-zero.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("Error:"), fmt.Sprintf(format, args...))
	os.Exit(1)
}

func outputJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		FatalError("failed to encode JSON: %v", err)
	}
}

// catalogNames caches the status and priority catalogs for display.
type catalogNames struct {
	statuses   map[int64]*types.StatusDef
	priorities map[int64]*types.Priority
}

func loadCatalogs(ctx context.Context) *catalogNames {
	c := &catalogNames{
		statuses:   map[int64]*types.StatusDef{},
		priorities: map[int64]*types.Priority{},
	}
	if all, err := store.ListStatuses(ctx); err == nil {
		for _, st := range all {
			c.statuses[st.ID] = st
		}
	}
	if all, err := store.ListPriorities(ctx); err == nil {
		for _, p := range all {
			c.priorities[p.ID] = p
		}
	}
	return c
}

func (c *catalogNames) status(id int64) string {
	if st, ok := c.statuses[id]; ok {
		return renderStatus(st)
	}
	return fmt.Sprintf("status %d", id)
}

func (c *catalogNames) priority(id int64) string {
	if p, ok := c.priorities[id]; ok {
		return renderPriority(p)
	}
	return fmt.Sprintf("priority %d", id)
}

func userDisplay(ctx context.Context, id int64) string {
	u, err := store.GetUser(ctx, id)
	if err != nil {
		return fmt.Sprintf("user %d", id)
	}
	return u.DisplayName()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

// printDefectLine renders one defect as a list row.
func printDefectLine(ctx context.Context, c *catalogNames, d *types.Defect) {
	assignee := "-"
	if d.AssigneeID != nil {
		assignee = userDisplay(ctx, *d.AssigneeID)
	}
	fmt.Printf("%s  %-14s %-10s %-16s %s\n",
		numberStyle.Render(d.Number),
		c.status(d.StatusID),
		c.priority(d.PriorityID),
		assignee,
		d.Title,
	)
}
