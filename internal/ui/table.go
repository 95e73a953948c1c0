package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vietdv277/tierctl/internal/provision"
	"github.com/vietdv277/tierctl/pkg/types"
)

// cell is one styled table value
type cell struct {
	text  string
	style lipgloss.Style
}

// table is a box table with fixed column widths
type table struct {
	headers []string
	widths  []int
	rows    [][]cell
}

func (t *table) add(cells ...cell) {
	t.rows = append(t.rows, cells)
}

func (t *table) border(sb *strings.Builder, left, mid, right string) {
	sb.WriteString(BorderStyle.Render(left))
	for i, w := range t.widths {
		sb.WriteString(BorderStyle.Render(strings.Repeat(Horizontal, w+2)))
		if i < len(t.widths)-1 {
			sb.WriteString(BorderStyle.Render(mid))
		}
	}
	sb.WriteString(BorderStyle.Render(right))
	sb.WriteString("\n")
}

func (t *table) render() string {
	var sb strings.Builder

	t.border(&sb, TopLeft, TopT, TopRight)

	sb.WriteString(BorderStyle.Render(Vertical))
	for i, h := range t.headers {
		sb.WriteString(HeaderStyle.Render(" " + padRight(h, t.widths[i]) + " "))
		sb.WriteString(BorderStyle.Render(Vertical))
	}
	sb.WriteString("\n")

	t.border(&sb, LeftT, Cross, RightT)

	for _, row := range t.rows {
		sb.WriteString(BorderStyle.Render(Vertical))
		for i, c := range row {
			sb.WriteString(c.style.Render(" " + padRight(c.text, t.widths[i]) + " "))
			sb.WriteString(BorderStyle.Render(Vertical))
		}
		sb.WriteString("\n")
	}

	t.border(&sb, BottomLeft, BottomT, BottomRight)

	return sb.String()
}

func outcome(created bool) cell {
	if created {
		return cell{"● created", CreatedStyle}
	}
	return cell{"○ reused", ReusedStyle}
}

// PrintManifest prints the resources of a run in a styled box table
// followed by a summary line
func PrintManifest(w io.Writer, m *provision.Manifest) {
	t := &table{
		headers: []string{"Kind", "Name", "ID", "Outcome"},
		widths:  []int{18, 34, 40, 10},
	}
	for _, r := range m.Resources {
		t.add(
			cell{string(r.Kind), KindStyle},
			cell{r.Name, NameStyle},
			cell{formatOptional(r.ID), IDStyle},
			outcome(r.Created),
		)
	}

	fmt.Fprint(w, t.render())
	fmt.Fprintln(w, manifestSummary(m))
}

func manifestSummary(m *provision.Manifest) string {
	created := len(m.Created())
	summary := fmt.Sprintf("  %d resources (%s, %s)", len(m.Resources),
		CreatedStyle.Render(fmt.Sprintf("%d created", created)),
		ReusedStyle.Render(fmt.Sprintf("%d reused", len(m.Resources)-created)))

	switch {
	case m.Error != "" && m.RolledBack:
		summary += "  " + FailedStyle.Render("failed, rolled back: "+m.Error)
	case m.Error != "":
		summary += "  " + FailedStyle.Render("failed: "+m.Error)
	case m.LoadBalancerDNS != "":
		summary += "  " + NameStyle.Render("http://"+m.LoadBalancerDNS)
	}
	return summary
}

// PrintInstances prints instances in a styled box table
func PrintInstances(w io.Writer, instances []types.Instance) {
	t := &table{
		headers: []string{"ID", "Name", "Private IP", "Public IP", "State", "Type"},
		widths:  []int{21, 34, 15, 15, 11, 10},
	}
	for _, inst := range instances {
		t.add(
			cell{inst.ID, IDStyle},
			cell{inst.Name, NameStyle},
			cell{formatOptional(inst.PrivateIP), KindStyle},
			cell{formatOptional(inst.PublicIP), KindStyle},
			stateCell(inst.State),
			cell{inst.Type, MutedStyle},
		)
	}

	fmt.Fprint(w, t.render())
	fmt.Fprintf(w, "  %d instances\n", len(instances))
}

func stateCell(state string) cell {
	switch state {
	case "running":
		return cell{"● " + state, CreatedStyle}
	case "pending", "stopping", "shutting-down":
		return cell{"◐ " + state, IDStyle}
	default:
		return cell{"○ " + state, ReusedStyle}
	}
}

// PrintProfiles prints AWS profiles, marking the active one
func PrintProfiles(w io.Writer, profiles []types.AWSProfile, active string) {
	t := &table{
		headers: []string{"", "Profile", "Region", "Source"},
		widths:  []int{1, 30, 16, 12},
	}
	for _, p := range profiles {
		mark, style := " ", NameStyle
		if p.Name == active {
			mark, style = "*", CreatedStyle
		}
		t.add(
			cell{mark, style},
			cell{p.Name, style},
			cell{formatOptional(p.Region), KindStyle},
			cell{string(p.Source), MutedStyle},
		)
	}

	fmt.Fprint(w, t.render())
	fmt.Fprintf(w, "  %d profiles\n", len(profiles))
}
