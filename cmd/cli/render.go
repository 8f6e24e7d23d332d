package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gosuri/uitable"

	"github.com/quka-ai/daybook/pkg/types"
)

const maxTitleWidth = 40

func renderEntries(w io.Writer, entries []types.Entry, loc *time.Location) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no entries")
		return
	}

	tbl := uitable.New()
	tbl.MaxColWidth = maxTitleWidth
	tbl.AddRow("ID", "DATE", "TYPE", "TITLE", "TAGS")
	for _, e := range entries {
		tbl.AddRow(e.ID, e.DateTime(loc).Format("2006-01-02 15:04"), e.Type, e.Title, strings.Join(e.Tags, ","))
	}
	fmt.Fprintln(w, tbl)
}

func renderEntry(w io.Writer, e types.Entry, loc *time.Location) {
	tbl := uitable.New()
	tbl.Wrap = true
	tbl.AddRow("ID:", e.ID)
	tbl.AddRow("Date:", e.DateTime(loc).Format("Monday, January 2, 2006 15:04"))
	tbl.AddRow("Title:", e.Title)
	tbl.AddRow("Type:", e.Type)
	if len(e.Tags) > 0 {
		tbl.AddRow("Tags:", strings.Join(e.Tags, ", "))
	}
	if e.MediaURL != "" {
		tbl.AddRow("Media:", e.MediaURL)
	}
	if e.Summary != "" {
		tbl.AddRow("Summary:", e.Summary)
	}
	if e.Content != "" {
		tbl.AddRow("Content:", e.Content)
	}
	fmt.Fprintln(w, tbl)
}
