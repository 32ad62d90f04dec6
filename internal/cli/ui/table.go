package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/metamodel/runtime/metadata"
)

// Table is a column-aligned text table
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// TableOptions configures table behavior
type TableOptions struct {
	NoColor bool
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, headers []string, opts *TableOptions) *Table {
	noColor := false
	if opts != nil {
		noColor = opts.NoColor
	}

	return &Table{
		writer:  w,
		headers: headers,
		rows:    make([][]string, 0),
		noColor: noColor,
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render renders the table to the writer
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Render header
	bold := color.New(color.Bold, color.FgCyan)
	if t.noColor {
		bold.DisableColor()
	}
	for i, header := range t.headers {
		bold.Fprint(t.writer, padRight(header, widths[i]))
		if i < len(t.headers)-1 {
			fmt.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	// Render separator
	gray := color.New(color.FgHiBlack)
	if t.noColor {
		gray.DisableColor()
	}
	for i, width := range widths {
		gray.Fprint(t.writer, strings.Repeat("─", width))
		if i < len(widths)-1 {
			gray.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	// Render rows
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprint(t.writer, padRight(cell, widths[i]))
				if i < len(row)-1 {
					fmt.Fprint(t.writer, "  ")
				}
			}
		}
		fmt.Fprintln(t.writer)
	}
}

// padRight pads a string with spaces on the right to reach the target width
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// KeyValueTable renders a simple key-value table (2 columns)
type KeyValueTable struct {
	writer  io.Writer
	rows    []kvRow
	noColor bool
}

type kvRow struct {
	key   string
	value string
}

// NewKeyValueTable creates a new key-value table
func NewKeyValueTable(w io.Writer, noColor bool) *KeyValueTable {
	return &KeyValueTable{
		writer:  w,
		rows:    make([]kvRow, 0),
		noColor: noColor,
	}
}

// AddRow adds a key-value pair to the table
func (t *KeyValueTable) AddRow(key, value string) {
	t.rows = append(t.rows, kvRow{key: key, value: value})
}

// Render renders the key-value table
func (t *KeyValueTable) Render() {
	if len(t.rows) == 0 {
		return
	}

	// Calculate max key width
	maxKeyWidth := 0
	for _, row := range t.rows {
		if len(row.key) > maxKeyWidth {
			maxKeyWidth = len(row.key)
		}
	}

	// Render rows
	cyan := color.New(color.FgCyan)
	if t.noColor {
		cyan.DisableColor()
	}
	for _, row := range t.rows {
		cyan.Fprint(t.writer, padRight(row.key+":", maxKeyWidth+1))
		fmt.Fprintf(t.writer, " %s\n", row.value)
	}
}

// Divider renders a horizontal divider line
func Divider(w io.Writer, width int, noColor bool) {
	if width == 0 {
		width = 80
	}

	gray := color.New(color.FgHiBlack)
	if noColor {
		gray.DisableColor()
	}
	gray.Fprintln(w, strings.Repeat("─", width))
}

// Header renders a styled header
func Header(w io.Writer, title string, noColor bool) {
	bold := color.New(color.Bold, color.FgCyan)
	if noColor {
		bold.DisableColor()
	}
	bold.Fprintln(w, title)
	Divider(w, len(title), noColor)
}

// RenderTypes prints one row per published type
func RenderTypes(w io.Writer, types []metadata.TypeMetadata, noColor bool) {
	table := NewTable(w, []string{"Logical ID", "Type", "Members", "References"}, &TableOptions{NoColor: noColor})
	for _, t := range types {
		table.AddRow(
			t.LogicalID,
			t.Type,
			fmt.Sprintf("%d", len(t.Members)),
			strings.Join(t.References, ", "),
		)
	}
	table.Render()
}

// RenderType prints the type-level capabilities of t followed by a member
// table
func RenderType(w io.Writer, t metadata.TypeMetadata, noColor bool) {
	Header(w, t.DisplayName, noColor)

	kv := NewKeyValueTable(w, noColor)
	kv.AddRow("Logical ID", t.LogicalID)
	kv.AddRow("Type", t.Type)
	kv.AddRow("State", t.State)
	for _, c := range t.Capabilities {
		kv.AddRow(c.Kind, c.Value)
	}
	if len(t.References) > 0 {
		kv.AddRow("References", strings.Join(t.References, ", "))
	}
	kv.Render()

	if len(t.Members) == 0 {
		return
	}
	fmt.Fprintln(w)

	table := NewTable(w, []string{"Member", "Kind", "Type", "Capabilities"}, &TableOptions{NoColor: noColor})
	for _, m := range t.Members {
		typ := m.Type
		if len(m.Params) > 0 {
			typ = fmt.Sprintf("(%s) %s", strings.Join(m.Params, ", "), m.Type)
		}
		table.AddRow(m.Name, m.Kind, strings.TrimSpace(typ), capabilitySummary(m.Capabilities))
	}
	table.Render()
}

func capabilitySummary(caps []metadata.CapabilityMetadata) string {
	parts := make([]string, 0, len(caps))
	for _, c := range caps {
		if c.Value == "" {
			parts = append(parts, c.Kind)
			continue
		}
		parts = append(parts, c.Kind+"="+c.Value)
	}
	return strings.Join(parts, ", ")
}
