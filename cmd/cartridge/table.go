package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column is one table column; numeric columns align right.
type column struct {
	title   string
	numeric bool
}

// renderTable draws rows under cols in the rounded style. Short rows are
// padded with empty cells; footer may be nil.
func renderTable(cols []column, rows [][]string, footer []string) string {
	if len(cols) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make([]string, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, col := range cols {
		header[i] = col.title
		align := text.AlignLeft
		if col.numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft, AlignFooter: align}
	}
	tw.SetColumnConfigs(configs)

	tw.AppendHeader(cells(header, len(cols)))
	for _, row := range rows {
		tw.AppendRow(cells(row, len(cols)))
	}
	if footer != nil {
		tw.AppendFooter(cells(footer, len(cols)))
	}
	return tw.Render()
}

func cells(values []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(values) {
			row[i] = values[i]
		}
	}
	return row
}
