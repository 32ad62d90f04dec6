// Package loader builds a metamodel from a seed set of types.
//
// Discovery runs in waves until a fixpoint: every type of a wave is inserted
// into the cache as a bare node before any of them is introspected, so a
// cyclic reference back into the wave (or an earlier one) finds the cached
// node instead of recursing. Once no undiscovered types remain, validators
// run over every node, post-processors augment the result and the
// logical-id index is published. Any failure rejects the whole build.
package loader

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/metamodel/internal/metamodel/cache"
	"github.com/conduit-lang/metamodel/internal/metamodel/failure"
	"github.com/conduit-lang/metamodel/internal/metamodel/introspect"
	"github.com/conduit-lang/metamodel/internal/metamodel/node"
	"github.com/conduit-lang/metamodel/internal/metamodel/programming"
)

// ErrAlreadyBuilt is returned when Build is called a second time
var ErrAlreadyBuilt = errors.New("metamodel already built")

// DuplicateLogicalIDTemplate is the failure reported for a contested
// logical id
const DuplicateLogicalIDTemplate = "logical id '${logicalId}' is claimed by more than one type: ${types}"

// Report summarizes a successful build
type Report struct {
	BuildID  uuid.UUID
	Types    int
	Waves    int
	Duration time.Duration
}

// Option configures a Loader
type Option func(*Loader)

// WithParallelism bounds how many nodes of one wave are introspected at
// once. Values below one mean sequential introspection.
func WithParallelism(n int) Option {
	return func(l *Loader) {
		if n < 1 {
			n = 1
		}
		l.parallelism = n
	}
}

// WithIntrospector replaces the structural introspector
func WithIntrospector(i *introspect.Introspector) Option {
	return func(l *Loader) {
		if i != nil {
			l.introspector = i
		}
	}
}

// WithTraverser replaces the referenced-type traverser
func WithTraverser(t introspect.Traverser) Option {
	return func(l *Loader) {
		if t != nil {
			l.traverser = t
		}
	}
}

// WaveObserver is told about every discovery wave before its nodes are
// introspected
type WaveObserver func(wave, size int)

// WithWaveObserver registers fn to be called once per discovery wave
func WithWaveObserver(fn WaveObserver) Option {
	return func(l *Loader) {
		l.observer = fn
	}
}

// Loader runs one build against a finalized programming model
type Loader struct {
	model        *programming.Model
	ctx          *programming.Context
	cache        *cache.Cache
	introspector *introspect.Introspector
	traverser    introspect.Traverser
	parallelism  int
	observer     WaveObserver

	built atomic.Bool
}

// New creates a loader. When the context has no node lookup, the cache is
// used.
func New(model *programming.Model, ctx *programming.Context, c *cache.Cache, opts ...Option) *Loader {
	if ctx == nil {
		ctx = programming.NewContext(nil, c)
	}
	if ctx.Nodes == nil {
		ctx.Nodes = c
	}
	l := &Loader{
		model:        model,
		ctx:          ctx,
		cache:        c,
		introspector: introspect.NewIntrospector(),
		traverser:    introspect.NewReflectTraverser(),
		parallelism:  1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cache returns the cache the loader populates
func (l *Loader) Cache() *cache.Cache {
	return l.cache
}

// Build discovers, validates and indexes every type reachable from seeds.
// It runs once per loader. On failure the cache is rejected and the error
// is either a *failure.BuildError (validation), a *introspect.ReferenceError
// (unresolvable reference) or a wrapped strategy or post-processor error.
func (l *Loader) Build(seeds ...reflect.Type) (*Report, error) {
	if !l.built.CompareAndSwap(false, true) {
		return nil, ErrAlreadyBuilt
	}

	start := time.Now()
	buildID := uuid.New()
	logger := l.ctx.Logger.With(zap.String("build_id", buildID.String()))
	logger.Info("metamodel build started", zap.Int("seeds", len(seeds)))

	frontier, err := normalize(seeds)
	if err != nil {
		return nil, l.reject(logger, err)
	}

	waves, err := l.discover(logger, frontier)
	if err != nil {
		return nil, l.reject(logger, err)
	}

	nodes := l.cache.Nodes()

	failures := l.validate(nodes)
	if failures.HasFailures() {
		buildErr := failure.NewBuildError(buildID, failures)
		return nil, l.reject(logger, buildErr)
	}
	for _, n := range nodes {
		n.SetState(node.StateValidated)
	}
	logger.Debug("metamodel validated", zap.Int("types", len(nodes)))

	if err := l.postProcess(nodes); err != nil {
		return nil, l.reject(logger, err)
	}

	// post-processors may have touched logical ids, so the index is
	// rebuilt and checked again before it is exposed
	index, duplicates := buildIndex(nodes)
	if len(duplicates) > 0 {
		c := failure.NewCollector()
		c.Append(duplicates...)
		return nil, l.reject(logger, failure.NewBuildError(buildID, c))
	}
	if err := l.cache.Publish(index); err != nil {
		return nil, l.reject(logger, err)
	}
	for _, n := range nodes {
		n.SetState(node.StateIndexed)
	}

	report := &Report{
		BuildID:  buildID,
		Types:    len(nodes),
		Waves:    waves,
		Duration: time.Since(start),
	}
	logger.Info("metamodel published",
		zap.Int("types", report.Types),
		zap.Int("logical_ids", len(index)),
		zap.Int("waves", report.Waves),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func normalize(types []reflect.Type) ([]reflect.Type, error) {
	out := make([]reflect.Type, 0, len(types))
	seen := make(map[reflect.Type]bool, len(types))
	for _, t := range types {
		st, err := introspect.SeedType(t)
		if err != nil {
			return nil, err
		}
		if seen[st] {
			continue
		}
		seen[st] = true
		out = append(out, st)
	}
	return out, nil
}

// discover runs waves until the frontier is empty and returns the number of
// waves that introspected at least one node
func (l *Loader) discover(logger *zap.Logger, frontier []reflect.Type) (int, error) {
	waves := 0
	for len(frontier) > 0 {
		var wave []*node.Node
		for _, t := range frontier {
			if n, created := l.cache.LoadOrCreate(t); created {
				wave = append(wave, n)
			}
		}
		if len(wave) == 0 {
			break
		}
		waves++
		logger.Debug("discovery wave",
			zap.Int("wave", waves),
			zap.Int("frontier", len(wave)),
		)
		if l.observer != nil {
			l.observer(waves, len(wave))
		}

		g := new(errgroup.Group)
		g.SetLimit(l.parallelism)
		for _, n := range wave {
			n := n
			g.Go(func() error {
				return l.introspect(n)
			})
		}
		if err := g.Wait(); err != nil {
			return waves, err
		}

		next, err := l.nextFrontier(wave)
		if err != nil {
			return waves, err
		}
		frontier = next
	}
	return waves, nil
}

func (l *Loader) introspect(n *node.Node) error {
	members, err := l.introspector.Members(n.Type())
	if err != nil {
		return err
	}
	if err := n.SetMembers(members); err != nil {
		return err
	}

	for _, s := range l.model.Strategies() {
		if err := s.Process(programming.NewProcessContext(l.ctx, n, nil, s)); err != nil {
			return fmt.Errorf("strategy %s on %s: %w", programming.NameOf(s), n.Name(), err)
		}
		for _, m := range members {
			if err := s.Process(programming.NewProcessContext(l.ctx, n, m, s)); err != nil {
				return fmt.Errorf("strategy %s on %s: %w", programming.NameOf(s), m.ID(), err)
			}
		}
	}
	n.SetState(node.StateFaceted)

	refs, err := l.traverser.ReferencedTypes(n)
	if err != nil {
		return err
	}
	n.SetReferences(refs)
	return nil
}

// nextFrontier collects referenced types not yet cached, in wave order
func (l *Loader) nextFrontier(wave []*node.Node) ([]reflect.Type, error) {
	var next []reflect.Type
	seen := make(map[reflect.Type]bool)
	for _, n := range wave {
		for _, ref := range n.References() {
			t, err := introspect.SeedType(ref)
			if err != nil {
				return nil, &introspect.ReferenceError{
					Type:   n.Type(),
					Reason: fmt.Sprintf("referenced type %v is not a named struct", ref),
				}
			}
			if seen[t] || l.cache.Contains(t) {
				continue
			}
			seen[t] = true
			next = append(next, t)
		}
	}
	return next, nil
}

// validate runs every validator over every node. Nodes are sealed for the
// duration, so a validator that installs a capability panics. They are
// reopened for post-processing only when validation passes.
func (l *Loader) validate(nodes []*node.Node) *failure.Collector {
	for _, n := range nodes {
		n.Seal()
	}

	collector := failure.NewCollector()
	for _, v := range l.model.Validators() {
		for _, n := range nodes {
			v.Validate(n, collector)
		}
	}
	_, duplicates := buildIndex(nodes)
	collector.Append(duplicates...)

	if !collector.HasFailures() {
		for _, n := range nodes {
			n.Unseal()
		}
	}
	return collector
}

func (l *Loader) postProcess(nodes []*node.Node) error {
	for _, p := range l.model.PostProcessors() {
		for _, n := range nodes {
			if err := p.PostProcess(programming.NewProcessContext(l.ctx, n, nil, p)); err != nil {
				return fmt.Errorf("post-processor %s on %s: %w", programming.NameOf(p), n.Name(), err)
			}
			for _, m := range n.Members() {
				if err := p.PostProcess(programming.NewProcessContext(l.ctx, n, m, p)); err != nil {
					return fmt.Errorf("post-processor %s on %s: %w", programming.NameOf(p), m.ID(), err)
				}
			}
		}
	}
	for _, n := range nodes {
		n.Seal()
	}
	return nil
}

// buildIndex maps logical ids to nodes. A contested id yields one failure
// naming every claimant.
func buildIndex(nodes []*node.Node) (map[string]*node.Node, []failure.Failure) {
	claims := make(map[string][]*node.Node)
	var ids []string
	for _, n := range nodes {
		id, ok := n.LogicalID()
		if !ok {
			continue
		}
		if _, seen := claims[id]; !seen {
			ids = append(ids, id)
		}
		claims[id] = append(claims[id], n)
	}

	index := make(map[string]*node.Node, len(claims))
	var failures []failure.Failure
	for _, id := range ids {
		claimants := claims[id]
		if len(claimants) == 1 {
			index[id] = claimants[0]
			continue
		}
		names := make([]string, len(claimants))
		for i, n := range claimants {
			names[i] = n.Name()
		}
		sort.Strings(names)
		failures = append(failures, failure.New(DuplicateLogicalIDTemplate, failure.Vars{
			"logicalId": id,
			"types":     strings.Join(names, ", "),
		}))
	}
	return index, failures
}

// reject marks every node rejected and read-only and fails the cache
func (l *Loader) reject(logger *zap.Logger, err error) error {
	for _, n := range l.cache.Nodes() {
		n.SetState(node.StateRejected)
		n.Seal()
	}
	l.cache.Reject(err)

	var buildErr *failure.BuildError
	if errors.As(err, &buildErr) {
		logger.Error("metamodel build failed",
			zap.Int("failures", len(buildErr.Failures)),
			zap.Strings("report", buildErr.Lines()),
		)
	} else {
		logger.Error("metamodel build failed", zap.Error(err))
	}
	return err
}
