package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type column struct {
	header string
	right  bool
}

// renderTable draws rows under columns with an optional caption. Terminals
// get rounded borders and a bold header; pipes get plain ASCII.
func renderTable(columns []column, rows [][]string, caption string, tty bool) string {
	if len(columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	style := table.StyleDefault
	if tty {
		style = table.StyleRounded
		style.Color.Header = text.Colors{text.Bold}
	}
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.header
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft}
		if col.right {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, cells := range rows {
		row := make(table.Row, len(columns))
		for i := range row {
			row[i] = ""
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		tw.AppendRow(row)
	}
	if caption != "" {
		tw.SetCaption("%s", caption)
	}
	return tw.Render()
}
