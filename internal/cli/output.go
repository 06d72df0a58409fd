package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// WriteOutput writes v as JSON, or as the table built by render.
func WriteOutput(w io.Writer, v any, format OutputFormat, render func(table.Writer)) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, v)
	case FormatText:
		t := newTable(w)
		render(t)
		t.Render()
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// keyValues renders a two-column table.
func keyValues(pairs ...string) func(table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"Field", "Value"})
		for i := 0; i+1 < len(pairs); i += 2 {
			t.AppendRow(table.Row{pairs[i], pairs[i+1]})
		}
	}
}

func intOrDash(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

func strOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
