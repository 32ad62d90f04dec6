package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/runtime/metadata"
)

// Formatter is an interface for formatting output
type Formatter interface {
	Format(data interface{}) error
}

// TableFormatter formats output as human-readable tables
type TableFormatter struct {
	writer  io.Writer
	noColor bool
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer, noColor bool) *TableFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &TableFormatter{writer: w, noColor: noColor}
}

// Format formats data as a table
func (f *TableFormatter) Format(data interface{}) error {
	switch v := data.(type) {
	case []metadata.TypeMetadata:
		if len(v) == 0 {
			fmt.Fprintln(f.writer, "No types found.")
			return nil
		}
		ui.RenderTypes(f.writer, v, f.noColor)
	case *metadata.TypeMetadata:
		ui.RenderType(f.writer, *v, f.noColor)
	case *DependencyReport:
		f.formatDependencies(v)
	case string:
		fmt.Fprintln(f.writer, v)
	default:
		return fmt.Errorf("cannot format %T as a table", data)
	}
	return nil
}

func (f *TableFormatter) formatDependencies(r *DependencyReport) {
	title := fmt.Sprintf("Dependencies of %s", r.ID)
	if r.Reverse {
		title = fmt.Sprintf("Types referencing %s", r.ID)
	}
	ui.Header(f.writer, title, f.noColor)

	if len(r.Graph.Edges) == 0 {
		fmt.Fprintln(f.writer, "No dependencies.")
		return
	}

	table := ui.NewTable(f.writer, []string{"From", "To", "Relationship", "Member"}, &ui.TableOptions{NoColor: f.noColor})
	for _, e := range r.Graph.Edges {
		table.AddRow(e.From, e.To, e.Relationship, e.Member)
	}
	table.Render()
	fmt.Fprintf(f.writer, "\nMaximum depth: %d\n", r.Depth)
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &JSONFormatter{writer: w}
}

// Format formats data as JSON
func (f *JSONFormatter) Format(data interface{}) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// GetFormatter returns the appropriate formatter based on the format parameter
func GetFormatter(format string, writer io.Writer, noColor bool) (Formatter, error) {
	if writer == nil {
		writer = os.Stdout
	}
	switch strings.ToLower(format) {
	case "json":
		return NewJSONFormatter(writer), nil
	case "table":
		return NewTableFormatter(writer, noColor), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, table)", format)
	}
}
