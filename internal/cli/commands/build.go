package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/examples/domain"
	"github.com/conduit-lang/metamodel/internal/cli/config"
	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/internal/metamodel/engine"
	"github.com/conduit-lang/metamodel/internal/metamodel/failure"
	"github.com/conduit-lang/metamodel/runtime/metadata"
)

const buildMessage = "Building metamodel"

// loadConfig reads --config when given, metamodel.yml otherwise. A bad
// configuration is reported on stderr.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFile(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), nil, o.noColor))
		return nil, errReported
	}
	return cfg, nil
}

// logger returns the configured logger, or a no-op one unless force or
// --verbose asks for output
func (o *globalOptions) logger(cfg *config.Config, force bool) (*zap.Logger, error) {
	if !force && !o.verbose {
		return zap.NewNop(), nil
	}
	logger, err := cfg.Log.Logger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func engineOptions(cfg *config.Config, logger *zap.Logger) engine.Options {
	return engine.Options{
		Logger:      logger,
		Filter:      cfg.Metamodel.Filter(),
		Parallelism: cfg.Metamodel.Parallelism,
		ValueTypes:  cfg.Metamodel.ValueTypes,
	}
}

// buildAndRegister builds the sample domain and registers its snapshot for
// queries
func buildAndRegister(eng *engine.Engine) error {
	if _, err := eng.Build(domain.Seeds()...); err != nil {
		return err
	}
	snap, err := eng.Snapshot()
	if err != nil {
		return err
	}
	return metadata.Register(snap)
}

// buildWithSpinner builds and registers the metamodel, showing discovery
// progress on stderr. A failed build prints the failure report.
func buildWithSpinner(cmd *cobra.Command, opts engine.Options, noColor bool) (*engine.Engine, error) {
	var eng *engine.Engine
	err := ui.WithSpinner(cmd.ErrOrStderr(), buildMessage, noColor, func(s *ui.Spinner) error {
		opts.Observer = s.WaveReporter(buildMessage)
		eng = engine.New(opts)
		return buildAndRegister(eng)
	})
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.BuildFailedError(failureLines(err), noColor))
		return nil, errReported
	}
	return eng, nil
}

// failureLines renders a build error as one line per failure
func failureLines(err error) []string {
	var buildErr *failure.BuildError
	if errors.As(err, &buildErr) {
		return buildErr.Lines()
	}
	return []string{err.Error()}
}
