package main

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"contentflow/internal/common"
	"contentflow/internal/reconcile"
)

const captionWidth = 40

func renderItems(items []reconcile.LocalItem) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "ID", "Kind", "Status", "Caption", "Scheduled", "Updated", "Preview"})

	for _, li := range items {
		tw.AppendRow(table.Row{
			li.Order,
			li.ID,
			li.Kind,
			li.Status,
			text.Trim(li.Caption, captionWidth),
			formatTime(li.ScheduledDate),
			li.UpdatedAt.Local().Format("2006-01-02 15:04:05.000"),
			previewLabel(li.Preview),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	tw.SetCaption("%d item(s)", len(items))
	return tw.Render()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func previewLabel(p *reconcile.Preview) string {
	if p == nil {
		return "-"
	}
	return p.ContentType + " " + strconv.Itoa(len(p.Data)) + "B"
}

func renderItem(it common.Item) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendRows([]table.Row{
		{"ID", it.ID},
		{"Scope", it.Scope},
		{"Kind", it.Kind},
		{"Status", it.Status},
		{"Order", it.Order},
		{"Caption", it.Caption},
		{"Media", it.MediaRef},
		{"Scheduled", formatTime(it.ScheduledDate)},
		{"Updated", it.UpdatedAt.Local().Format(time.RFC3339Nano)},
	})
	if it.RejectionReason != nil {
		tw.AppendRow(table.Row{"Rejected", *it.RejectionReason})
	}
	return tw.Render()
}
