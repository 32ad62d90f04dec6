package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/metamodel/internal/cli/config"
	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/runtime/metadata"
)

// introspectOptions holds the flags shared by every introspect subcommand
type introspectOptions struct {
	*globalOptions
	format  string
	exclude []string
}

// NewIntrospectCommand creates the introspect command group
func NewIntrospectCommand(global *globalOptions) *cobra.Command {
	opts := &introspectOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Build the metamodel and query it",
		Long: `Build the metamodel of the sample domain and query it.

Every subcommand runs a full build first: seed types are introspected, the
types they reference are discovered wave by wave, capabilities are detected
stage by stage, and the whole model is validated before anything is
published. A build that fails prints every problem it found.

This is useful for:
  • Checking which capabilities a type ended up with
  • Debugging logical id clashes and facet conflicts
  • Exporting a snapshot for other tools`,
		Example: `  # List all types in the metamodel
  metamodel introspect types

  # View a type by logical id
  metamodel introspect type crm.Customer

  # Find the logical id of a Go type
  metamodel introspect id domain.Order

  # Show what a type references, two levels deep
  metamodel introspect deps sales.Order --depth 2

  # Output in JSON format for tooling
  metamodel introspect types --format json

  # Serve the metamodel over HTTP
  metamodel introspect serve`,
	}

	cmd.PersistentFlags().StringVar(&opts.format, "format", "table", "Output format: json or table")
	cmd.PersistentFlags().StringSliceVar(&opts.exclude, "exclude", nil, "Exclude programming model entries carrying these markers (default from config)")

	cmd.AddCommand(newIntrospectTypesCommand(opts))
	cmd.AddCommand(newIntrospectTypeCommand(opts))
	cmd.AddCommand(newIntrospectIDCommand(opts))
	cmd.AddCommand(newIntrospectDepsCommand(opts))
	cmd.AddCommand(newIntrospectExportCommand(opts))
	cmd.AddCommand(newIntrospectServeCommand(opts))

	return cmd
}

// prepare loads the configuration, applies --exclude and builds the
// metamodel into the registry
func (o *introspectOptions) prepare(cmd *cobra.Command) (*config.Config, Formatter, error) {
	formatter, err := GetFormatter(o.format, cmd.OutOrStdout(), o.noColor || color.NoColor)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	o.applyExclude(cmd, cfg)

	logger, err := o.logger(cfg, false)
	if err != nil {
		return nil, nil, err
	}
	if _, err := buildWithSpinner(cmd, engineOptions(cfg, logger), o.noColor); err != nil {
		return nil, nil, err
	}
	return cfg, formatter, nil
}

func (o *introspectOptions) applyExclude(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("exclude") {
		cfg.Metamodel.ExcludeMarkers = o.exclude
	}
}

// newIntrospectTypesCommand creates the 'introspect types' command
func newIntrospectTypesCommand(opts *introspectOptions) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List all types in the metamodel",
		Long: `List all types in the metamodel.

Shows each type's logical id, Go type, member count and the logical ids it
references. Use 'introspect type <id>' for the capabilities of one type.`,
		Example: `  # List all types
  metamodel introspect types

  # List the types of one namespace
  metamodel introspect types --pattern "sales.*"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, formatter, err := opts.prepare(cmd)
			if err != nil {
				return err
			}

			var types []metadata.TypeMetadata
			if pattern != "" {
				types = metadata.QueryTypesByPattern(pattern)
			} else {
				types = metadata.QueryTypes()
			}
			if types == nil {
				types = []metadata.TypeMetadata{}
			}
			return formatter.Format(types)
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "Filter by logical id pattern (* matches anything)")

	return cmd
}

// newIntrospectTypeCommand creates the 'introspect type' command
func newIntrospectTypeCommand(opts *introspectOptions) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "type [id]",
		Short: "Show detailed information about a specific type",
		Long: `Show detailed information about a specific type.

The id is a logical id (crm.Customer) or a Go type name (domain.Customer).
Displays every type-level capability followed by the members and the
capabilities detected on each. With --interactive and no id, the type is
picked from a list.`,
		Example: `  # View details of the customer type
  metamodel introspect type crm.Customer

  # View details in JSON format
  metamodel introspect type crm.Customer --format json

  # Pick the type from a list
  metamodel introspect type -i`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !interactive {
				return fmt.Errorf("type id required\n\nUsage: metamodel introspect type <id>")
			}

			_, formatter, err := opts.prepare(cmd)
			if err != nil {
				return err
			}

			ids := metadata.QueryLogicalIDs()
			var id string
			if len(args) > 0 {
				id = args[0]
			} else if id, err = askType(ids); err != nil {
				return err
			}

			tm, err := lookupType(cmd, id, ids, opts.noColor)
			if err != nil {
				return err
			}
			return formatter.Format(tm)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Pick the type from a list")

	return cmd
}

// askType prompts for one of ids
var askType = func(ids []string) (string, error) {
	if len(ids) == 0 {
		return "", errors.New("no types registered")
	}

	var id string
	prompt := &survey.Select{
		Message:  "Select a type:",
		Options:  ids,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &id); err != nil {
		return "", err
	}
	return id, nil
}

// newIntrospectIDCommand creates the 'introspect id' command
func newIntrospectIDCommand(opts *introspectOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "id <go-type>",
		Short: "Show the logical id of a Go type",
		Long: `Show the logical id of a Go type.

The Go type is written the way reflect prints it, e.g. domain.Order.`,
		Example: `  # Logical id of the order type
  metamodel introspect id domain.Order`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, formatter, err := opts.prepare(cmd)
			if err != nil {
				return err
			}

			types := metadata.QueryTypes()
			goTypes := make([]string, len(types))
			for i, t := range types {
				goTypes[i] = t.Type
			}

			tm, err := lookupType(cmd, args[0], goTypes, opts.noColor)
			if err != nil {
				return err
			}
			if tm.LogicalID == "" {
				return fmt.Errorf("type %s has no logical id", tm.Type)
			}
			return formatter.Format(tm.LogicalID)
		},
	}
}

// newIntrospectDepsCommand creates the 'introspect deps' command
func newIntrospectDepsCommand(opts *introspectOptions) *cobra.Command {
	var depOpts metadata.DependencyOptions

	cmd := &cobra.Command{
		Use:   "deps <id>",
		Short: "Show the types a type references",
		Long: `Show the types a type references.

Follows reference edges (properties, collections and action signatures)
from the given type. With --reverse, shows the types that reference it
instead.`,
		Example: `  # Everything the order type reaches
  metamodel introspect deps sales.Order

  # Types that reference customers
  metamodel introspect deps crm.Customer --reverse

  # Only collection edges, one level deep
  metamodel introspect deps sales.Order --depth 1 --type collection`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, formatter, err := opts.prepare(cmd)
			if err != nil {
				return err
			}

			tm, err := lookupType(cmd, args[0], metadata.QueryLogicalIDs(), opts.noColor)
			if err != nil {
				return err
			}
			report, err := dependencyReport(tm, depOpts)
			if err != nil {
				return err
			}
			return formatter.Format(report)
		},
	}

	cmd.Flags().IntVar(&depOpts.Depth, "depth", 0, "Traversal depth (0 = unlimited)")
	cmd.Flags().BoolVar(&depOpts.Reverse, "reverse", false, "Show types referencing this one")
	cmd.Flags().StringSliceVar(&depOpts.Types, "type", nil, "Filter by relationship: property, collection or action")

	return cmd
}

// DependencyReport is the output of 'introspect deps'
type DependencyReport struct {
	ID      string                    `json:"id"`
	Reverse bool                      `json:"reverse"`
	Depth   int                       `json:"depth"`
	Graph   *metadata.DependencyGraph `json:"graph"`
}

func dependencyReport(tm *metadata.TypeMetadata, opts metadata.DependencyOptions) (*DependencyReport, error) {
	id := tm.LogicalID
	if id == "" {
		id = tm.Type
	}
	graph, err := metadata.QueryDependencies(id, opts)
	if err != nil {
		return nil, err
	}
	depth, err := metadata.GetDependencyDepth(id)
	if err != nil {
		return nil, err
	}
	return &DependencyReport{ID: id, Reverse: opts.Reverse, Depth: depth, Graph: graph}, nil
}

// newIntrospectExportCommand creates the 'introspect export' command
func newIntrospectExportCommand(opts *introspectOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the metamodel snapshot as JSON",
		Long: `Write the metamodel snapshot as JSON.

The snapshot holds every type with its capabilities and members plus the
reference graph. It is written to metamodel.snapshot from the config
(build/metamodel.json by default) unless --output says otherwise; use
--output - for stdout.`,
		Example: `  # Export to the configured path
  metamodel introspect export

  # Export to stdout
  metamodel introspect export --output -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.prepare(cmd)
			if err != nil {
				return err
			}

			data, err := metadata.Marshal(metadata.GetMetadata())
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = cfg.Metamodel.Snapshot
			}
			if path == "-" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create snapshot directory: %w", err)
			}
			if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			ui.WriteSuccess(cmd.ErrOrStderr(), fmt.Sprintf("Snapshot written to %s", path), opts.noColor)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (- for stdout)")

	return cmd
}

// lookupType resolves id through the registry. A miss prints a
// did-you-mean report built from candidates.
func lookupType(cmd *cobra.Command, id string, candidates []string, noColor bool) (*metadata.TypeMetadata, error) {
	tm, err := metadata.QueryType(id)
	if err == nil {
		return tm, nil
	}
	if !errors.Is(err, metadata.ErrTypeNotFound) {
		return nil, err
	}

	suggestions := ui.FindSimilar(id, candidates, nil)
	fmt.Fprint(cmd.ErrOrStderr(), ui.TypeNotFoundError(id, suggestions, noColor))
	return nil, errReported
}
