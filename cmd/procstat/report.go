package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/reugn/procstat"
)

// report summarizes a finished session.
type report struct {
	path         string
	pid          int
	processState procstat.State
	samplerState procstat.State
	reason       stopReason
	samples      int
	rows         int
	output       string
	elapsed      time.Duration
	errorLog     []string
}

func writeReport(w io.Writer, r report) {
	if len(r.errorLog) > 0 {
		l := list.NewWriter()
		l.SetStyle(list.StyleConnectedLight)
		for _, msg := range r.errorLog {
			l.AppendItem(msg)
		}
		fmt.Fprintln(w, "Errors:")
		fmt.Fprintln(w, l.Render())
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"Process", r.path},
		{"PID", r.pid},
		{"Process state", r.processState},
		{"Sampling state", r.samplerState},
		{"Finished by", r.reason},
		{"Samples", r.samples},
		{"Rows written", r.rows},
		{"Output", r.output},
		{"Elapsed", r.elapsed.Round(time.Millisecond)},
	})
	t.Render()
}
