package main

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"mediasort/internal/media"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

var recordHeaders = []string{"ID", "Source", "Type", "Category", "Tag", "Rating", "Res", "Size", "State", "Count", "Destination"}

var recordAligns = []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft}

func recordRows(records []media.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rating := ""
		if rec.Rating > 0 {
			rating = strconv.Itoa(rec.Rating)
		}
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			rec.SourceName,
			rec.Type,
			rec.Category,
			rec.Tag,
			rating,
			rec.Resolution,
			humanize.IBytes(uint64(max(rec.Size, 0))),
			recordStatus(rec),
			strconv.FormatInt(rec.Count, 10),
			rec.DestinationFile(),
		})
	}
	return rows
}

func recordStatus(rec media.Record) string {
	switch {
	case rec.Processed:
		return "processed"
	case rec.Deleted:
		return "deleted"
	case rec.Skipped:
		return "skipped"
	default:
		return "pending"
	}
}
