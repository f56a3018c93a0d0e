package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableView is a titled grid rendered with go-pretty. Rows shorter than the
// header are padded.
type tableView struct {
	title   string
	headers []string
	aligns  []columnAlignment
	rows    [][]string
}

func (v *tableView) add(cells ...string) {
	v.rows = append(v.rows, cells)
}

func (v tableView) render() string {
	columns := len(v.headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if v.title != "" {
		tw.SetTitle(v.title)
	}

	header := make(table.Row, columns)
	for i, h := range v.headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range v.rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(v.aligns) && v.aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    60,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
