package session

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"museum/roster"
	"museum/solver"
)

var (
	colorTitle   = lipgloss.Color("#2CD7C7")
	colorBorder  = lipgloss.Color("#16858E")
	colorMuted   = lipgloss.Color("#2C4A54")
	colorWarning = lipgloss.Color("#F4D03F")
)

// view renders rosters and solutions for one writer. Styles come from a
// renderer bound to that writer so colors are dropped when it is not a
// terminal.
type view struct {
	title  lipgloss.Style
	header lipgloss.Style
	muted  lipgloss.Style
	warn   lipgloss.Style
	border lipgloss.Style
}

func newView(out io.Writer) *view {
	r := lipgloss.NewRenderer(out)
	return &view{
		title:  r.NewStyle().Bold(true).Foreground(colorTitle),
		header: r.NewStyle().Bold(true).Padding(0, 1),
		muted:  r.NewStyle().Foreground(colorMuted),
		warn:   r.NewStyle().Foreground(colorWarning),
		border: r.NewStyle().Foreground(colorBorder),
	}
}

func (v *view) table(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(v.border).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return v.header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func (v *view) roster(r *roster.Roster) string {
	var b strings.Builder

	members := r.Members()
	fmt.Fprintln(&b, v.title.Render(fmt.Sprintf("Members (%d)", len(members))))
	if len(members) == 0 {
		fmt.Fprintln(&b, v.muted.Render("  none"))
	} else {
		t := v.table("Name", "Time", "Value", "Popularity")
		for _, m := range members {
			t.Row(m.Name, itoa(m.Attribute.Time), itoa(m.Attribute.Value), itoa(m.Attribute.Popularity))
		}
		fmt.Fprintln(&b, t.Render())
	}

	zones := r.Zones()
	fmt.Fprintln(&b, v.title.Render(fmt.Sprintf("Zones (%d)", len(zones))))
	if len(zones) == 0 {
		fmt.Fprintln(&b, v.muted.Render("  none"))
	} else {
		t := v.table("Name", "Level", "Base", "Sub level", "Requirement", "Scaler")
		for _, z := range zones {
			t.Row(z.Name, itoa(z.Level), z.Base.String(), z.SubLevel.String(),
				z.Requirement.String(), itoa(z.Scaler)+"%")
		}
		fmt.Fprintln(&b, t.Render())
	}

	if len(members) < 3*len(zones) {
		fmt.Fprintln(&b, v.warn.Render(fmt.Sprintf(
			"%d members cannot staff %d zones; only %d will be filled",
			len(members), len(zones), len(members)/3)))
	}
	return b.String()
}

func (v *view) solution(sol *solver.Solution) string {
	var b strings.Builder

	fmt.Fprintln(&b, v.title.Render("Assignment"))
	t := v.table("Zone", "Members", "Total", "Requirement", "Cost")
	for _, a := range sol.Assignments {
		members := a.Members[:]
		names := make([]string, len(members))
		for i, m := range members {
			names[i] = m.Name
		}
		t.Row(a.Zone.Name, strings.Join(names, ", "),
			a.Zone.Detail(members).String(), a.Zone.Requirement.String(),
			a.Zone.Cost(members).String())
	}
	fmt.Fprintln(&b, t.Render())

	fmt.Fprintf(&b, "total: %s\n", sol.Cost)
	fmt.Fprintln(&b, v.muted.Render(fmt.Sprintf("states %d, memo hits %d, subsets %d",
		sol.Stats.States, sol.Stats.MemoHits, sol.Stats.Subsets)))
	return b.String()
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// WriteSolution renders sol to w as the solve command shows it.
func WriteSolution(w io.Writer, sol *solver.Solution) error {
	_, err := io.WriteString(w, newView(w).solution(sol))
	return err
}
