package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ethpandaops/suiscope/tableview"
	"github.com/ethpandaops/suiscope/utils"
)

// Color palette.
const (
	ColorHeader = lipgloss.Color("229")
	ColorAccent = lipgloss.Color("57")
	ColorMuted  = lipgloss.Color("241")
	ColorError  = lipgloss.Color("196")
	ColorBorder = lipgloss.Color("240")
)

const (
	placeholderCell = "..."
	columnGap       = 2
	maxCellWidth    = 48
	truncateSuffix  = "…"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	errorStyle  = lipgloss.NewStyle().Foreground(ColorError)
	pageStyle   = lipgloss.NewStyle().Foreground(ColorHeader).Background(ColorAccent).Padding(0, 1)
)

// RenderView renders a table view as plain terminal text. Relative times are
// computed against now.
func RenderView(view *tableview.View, now time.Time) string {
	if view == nil {
		return ""
	}

	headings, rows := viewCells(view, now)
	widths := columnWidths(headings, rows)

	var sb strings.Builder
	sb.WriteString(renderLine(headings, widths, headerStyle))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render(strings.Repeat("─", totalWidth(widths))))
	sb.WriteString("\n")

	rowStyle := lipgloss.NewStyle()
	if view.Table == nil {
		rowStyle = mutedStyle
	}
	for _, row := range rows {
		sb.WriteString(renderLine(row, widths, rowStyle))
		sb.WriteString("\n")
	}

	if footer := RenderFooter(view.Footer); footer != "" {
		sb.WriteString("\n")
		sb.WriteString(footer)
	}
	return sb.String()
}

// RenderFooter renders the count, pagination state and page size line.
func RenderFooter(footer *tableview.Footer) string {
	if footer == nil {
		return ""
	}

	parts := []string{}
	if footer.Count != nil {
		parts = append(parts, fmt.Sprintf("%v %v", utils.FormatNumber(*footer.Count), footer.Label))
	} else {
		parts = append(parts, footer.Label)
	}
	if footer.Pagination != nil {
		parts = append(parts, pageStyle.Render(fmt.Sprintf("Page %d", footer.Pagination.PageIndex)))
	}
	parts = append(parts, mutedStyle.Render(fmt.Sprintf("%d per page %v", footer.Limit, formatLimitOptions(footer))))

	line := strings.Join(parts, "  ")
	if footer.Error != "" {
		line += "\n" + errorStyle.Render(fmt.Sprintf("could not load %v: %v", footer.Label, footer.Error))
	}
	return line
}

func formatLimitOptions(footer *tableview.Footer) string {
	options := make([]string, 0, len(footer.LimitOptions))
	for _, option := range footer.LimitOptions {
		if option == footer.Limit {
			options = append(options, fmt.Sprintf("[%d]", option))
		} else {
			options = append(options, fmt.Sprintf("%d", option))
		}
	}
	return "(" + strings.Join(options, " ") + ")"
}

func viewCells(view *tableview.View, now time.Time) ([]string, [][]string) {
	if view.Table != nil {
		headings := make([]string, len(view.Table.Columns))
		for i, column := range view.Table.Columns {
			headings[i] = column.Header
		}
		rows := make([][]string, len(view.Table.Rows))
		for r, row := range view.Table.Rows {
			cells := make([]string, len(view.Table.Columns))
			for i, column := range view.Table.Columns {
				cells[i] = truncate(utils.FormatCellText(row[column.AccessorKey], now))
			}
			rows[r] = cells
		}
		return headings, rows
	}

	if view.Placeholder == nil {
		return nil, nil
	}
	headings := view.Placeholder.Headings
	rows := make([][]string, view.Placeholder.RowCount)
	for r := range rows {
		cells := make([]string, len(headings))
		for i := range cells {
			cells[i] = placeholderCell
		}
		rows[r] = cells
	}
	return headings, rows
}

func columnWidths(headings []string, rows [][]string) []int {
	widths := make([]int, len(headings))
	for i, heading := range headings {
		widths[i] = lipgloss.Width(heading)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func totalWidth(widths []int) int {
	total := 0
	for _, w := range widths {
		total += w
	}
	if len(widths) > 1 {
		total += columnGap * (len(widths) - 1)
	}
	return total
}

func renderLine(cells []string, widths []int, style lipgloss.Style) string {
	rendered := make([]string, len(cells))
	for i, cell := range cells {
		rendered[i] = style.Width(widths[i]).Render(cell)
	}
	return strings.TrimRight(strings.Join(rendered, strings.Repeat(" ", columnGap)), " ")
}

func truncate(s string) string {
	if lipgloss.Width(s) <= maxCellWidth {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxCellWidth-1]) + truncateSuffix
}
