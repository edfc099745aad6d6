package main

import (
	"fmt"
	"os"
	"strings"

	clamd "github.com/clammyhq/clamd-client-go"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// prettyOutput reports whether stdout is a terminal worth drawing tables on.
func prettyOutput() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderVerdicts formats scan verdicts as a table (pretty) or tab-separated
// lines (pipelines), followed by a summary line.
func renderVerdicts(outcome *clamd.ScanOutcome, pretty bool) string {
	rows := make([][]string, 0, len(outcome.Verdicts))
	found, errored := 0, 0
	for _, v := range outcome.Verdicts {
		rows = append(rows, []string{v.Path, string(v.Status), v.Detail})
		switch v.Status {
		case clamd.StatusFound:
			found++
		case clamd.StatusError:
			errored++
		}
	}

	var b strings.Builder
	if pretty {
		b.WriteString(renderTable([]string{"PATH", "STATUS", "DETAIL"}, rows))
	} else {
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}
	fmt.Fprintf(&b, "scanned: %d  infected: %d  errors: %d", len(outcome.Verdicts), found, errored)
	return b.String()
}

// renderStats formats the daemon counters.
func renderStats(stats *clamd.Stats, pretty bool) string {
	rows := make([][]string, 0, len(stats.Fields))
	for _, f := range stats.Fields {
		rows = append(rows, []string{f.Key, f.Value})
	}

	if !pretty {
		var b strings.Builder
		for i, row := range rows {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(row[0] + "\t" + row[1])
		}
		return b.String()
	}
	return strings.TrimRight(renderTable([]string{"KEY", "VALUE"}, rows), "\n")
}

func renderTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range header {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render() + "\n"
}

// verdictDocument is the JSON shape for one verdict.
type verdictDocument struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type outcomeJSON struct {
	Verdicts []verdictDocument `json:"verdicts"`
	AnyFound bool              `json:"any_found"`
	AnyError bool              `json:"any_error"`
}

func outcomeDocument(outcome *clamd.ScanOutcome) outcomeJSON {
	doc := outcomeJSON{
		Verdicts: make([]verdictDocument, 0, len(outcome.Verdicts)),
		AnyFound: outcome.AnyFound(),
		AnyError: outcome.AnyError(),
	}
	for _, v := range outcome.Verdicts {
		doc.Verdicts = append(doc.Verdicts, verdictDocument{
			Path:   v.Path,
			Status: string(v.Status),
			Detail: v.Detail,
		})
	}
	return doc
}

func statsDocument(stats *clamd.Stats) map[string]string {
	doc := make(map[string]string, len(stats.Fields))
	for _, f := range stats.Fields {
		doc[f.Key] = f.Value
	}
	return doc
}
