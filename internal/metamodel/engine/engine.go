// Package engine wires the default programming model, a node cache and the
// loader into one build. It is the entry point the CLI and the query server
// use; tests and embedders that need a custom model can pass their own
// installer.
package engine

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/metamodel/cache"
	"github.com/conduit-lang/metamodel/internal/metamodel/facets"
	"github.com/conduit-lang/metamodel/internal/metamodel/introspect"
	"github.com/conduit-lang/metamodel/internal/metamodel/loader"
	"github.com/conduit-lang/metamodel/internal/metamodel/programming"
	"github.com/conduit-lang/metamodel/runtime/metadata"
)

// ErrNotBuilt is returned by Snapshot before a successful Build
var ErrNotBuilt = errors.New("metamodel has not been built")

// Installer registers strategies, validators and post-processors
type Installer func(b *programming.Builder) error

// Options configures an Engine
type Options struct {
	Logger *zap.Logger

	// Filter selects programming model entries by marker; nil keeps all
	Filter programming.Filter

	// Parallelism bounds concurrent introspection within a wave
	Parallelism int

	// ValueTypes lists qualified struct type names treated as values
	ValueTypes []string

	// Install defaults to facets.Install
	Install Installer

	// Observer is told about each discovery wave
	Observer loader.WaveObserver
}

// Engine owns one cache and builds it at most once
type Engine struct {
	opts  Options
	cache *cache.Cache

	built  atomic.Bool
	mu     sync.Mutex
	report *loader.Report
}

// New creates an engine with an empty cache
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Install == nil {
		opts.Install = facets.Install
	}
	return &Engine{opts: opts, cache: cache.New()}
}

// Cache returns the cache the engine builds into
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

// Build finalizes the programming model and runs the loader over seeds.
// A failed build leaves the cache rejected; its error is returned as is.
// An engine builds once; later calls return loader.ErrAlreadyBuilt.
func (e *Engine) Build(seeds ...reflect.Type) (*loader.Report, error) {
	if !e.built.CompareAndSwap(false, true) {
		return nil, loader.ErrAlreadyBuilt
	}

	ctx := programming.NewContext(e.opts.Logger, e.cache)
	b := programming.NewBuilder(ctx)
	if err := e.opts.Install(b); err != nil {
		e.cache.Reject(err)
		return nil, err
	}
	model, err := b.Finalize(e.opts.Filter)
	if err != nil {
		e.cache.Reject(err)
		return nil, err
	}

	traverser := introspect.NewReflectTraverser().WithValueNames(e.opts.ValueTypes...)
	l := loader.New(model, ctx, e.cache,
		loader.WithParallelism(e.opts.Parallelism),
		loader.WithTraverser(traverser),
		loader.WithWaveObserver(e.opts.Observer),
	)

	report, err := l.Build(seeds...)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.report = report
	e.mu.Unlock()
	return report, nil
}

// Report returns the report of the successful build, or nil
func (e *Engine) Report() *loader.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.report
}

// Snapshot renders the published metamodel
func (e *Engine) Snapshot() (*metadata.Metadata, error) {
	report := e.Report()
	if report == nil {
		if err := e.cache.Failure(); err != nil {
			return nil, err
		}
		return nil, ErrNotBuilt
	}
	return metadata.FromCache(e.cache, report.BuildID)
}

// Close drops every node and the index, returning the cache to the
// uninitialized state
func (e *Engine) Close() {
	e.mu.Lock()
	e.report = nil
	e.mu.Unlock()
	e.cache.Clear()
}
