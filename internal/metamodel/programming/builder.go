// Package programming holds the programming model: the staged, ordered
// collection of detection strategies, validators and post-processors used
// to build the metamodel.
//
// A Builder is mutable during setup. Finalize applies a marker filter,
// gives refiners one chance to contribute validators, sorts every list by
// stage then registration order, and returns the frozen Model. The Model
// has no mutators; the Builder rejects every change after Finalize.
package programming

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrAlreadyFinalized is returned when the builder is changed after Finalize
	ErrAlreadyFinalized = errors.New("programming model already finalized")
	// ErrNotFinalized is returned when the model is read before Finalize
	ErrNotFinalized = errors.New("programming model not yet initialized")
)

type entry[T any] struct {
	stage    Stage
	seq      int
	instance T
	markers  MarkerSet
}

// Builder collects entries during setup
type Builder struct {
	mu  sync.Mutex
	ctx *Context

	strategies     []entry[Strategy]
	validators     []entry[Validator]
	postProcessors []entry[PostProcessor]

	seq        int
	finalizing bool
	model      *Model
}

// NewBuilder creates a builder that hands ctx to context-aware entries
func NewBuilder(ctx *Context) *Builder {
	if ctx == nil {
		ctx = NewContext(nil, nil)
	}
	return &Builder{ctx: ctx}
}

// AddStrategy registers a detection strategy
func (b *Builder) AddStrategy(stage Stage, s Strategy, markers ...Marker) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(stage, s); err != nil {
		return err
	}
	b.strategies = add(b, b.strategies, stage, s, markers)
	return nil
}

// AddValidator registers a validator
func (b *Builder) AddValidator(stage Stage, v Validator, markers ...Marker) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(stage, v); err != nil {
		return err
	}
	b.validators = add(b, b.validators, stage, v, markers)
	return nil
}

// AddPostProcessor registers a post-processor
func (b *Builder) AddPostProcessor(stage Stage, p PostProcessor, markers ...Marker) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(stage, p); err != nil {
		return err
	}
	b.postProcessors = add(b, b.postProcessors, stage, p, markers)
	return nil
}

func (b *Builder) checkOpen(stage Stage, instance any) error {
	if b.model != nil || b.finalizing {
		return fmt.Errorf("%w: cannot register %s", ErrAlreadyFinalized, NameOf(instance))
	}
	return checkEntry(stage, instance)
}

func checkEntry(stage Stage, instance any) error {
	if instance == nil || reflect.ValueOf(instance).Kind() == reflect.Ptr && reflect.ValueOf(instance).IsNil() {
		return fmt.Errorf("cannot register nil entry at stage %s", stage)
	}
	if !stage.Valid() {
		return fmt.Errorf("cannot register %s: unknown stage %s", NameOf(instance), stage)
	}
	return nil
}

// add appends an entry unless the same instance is already registered at
// the same stage. Re-registration is a no-op.
func add[T any](b *Builder, list []entry[T], stage Stage, instance T, markers []Marker) []entry[T] {
	for _, e := range list {
		if e.stage == stage && sameInstance(e.instance, instance) {
			b.ctx.Logger.Warn("ignoring duplicate registration",
				zap.String("entry", NameOf(instance)),
				zap.Stringer("stage", stage))
			return list
		}
	}

	if aware, ok := any(instance).(ContextAware); ok {
		aware.SetMetamodelContext(b.ctx)
	}

	b.seq++
	return append(list, entry[T]{
		stage:    stage,
		seq:      b.seq,
		instance: instance,
		markers:  NewMarkerSet(markers...),
	})
}

func sameInstance(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

// Finalize freezes the builder into a Model. filter decides which entries
// survive; nil keeps everything. Finalize can be called once.
func (b *Builder) Finalize(filter Filter) (*Model, error) {
	b.mu.Lock()
	if b.model != nil || b.finalizing {
		b.mu.Unlock()
		return nil, ErrAlreadyFinalized
	}
	if filter == nil {
		filter = IncludeAll
	}
	b.finalizing = true
	strategies := selectEntries(b.strategies, filter)
	b.mu.Unlock()

	// Refiners are consulted once per instance, in registration order,
	// without the lock held. They may only add validators, so nothing they
	// add is consulted.
	byRegistration := make([]entry[Strategy], len(strategies))
	copy(byRegistration, strategies)
	sort.SliceStable(byRegistration, func(i, j int) bool {
		return byRegistration[i].seq < byRegistration[j].seq
	})
	registrar := &refinementRegistrar{b: b}
	var consulted []Strategy
	for _, e := range byRegistration {
		refiner, ok := e.instance.(Refiner)
		if !ok || consultedAlready(consulted, e.instance) {
			continue
		}
		consulted = append(consulted, e.instance)
		refiner.RefineModel(registrar)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	registrar.closed = true

	// A failed refinement leaves the builder unusable: finalizing stays set.
	if registrar.err != nil {
		return nil, fmt.Errorf("refining programming model: %w", registrar.err)
	}

	b.model = &Model{
		strategies:     strategies,
		validators:     selectEntries(b.validators, filter),
		postProcessors: selectEntries(b.postProcessors, filter),
	}
	b.finalizing = false

	b.ctx.Logger.Debug("programming model finalized",
		zap.Int("strategies", len(b.model.strategies)),
		zap.Int("validators", len(b.model.validators)),
		zap.Int("post_processors", len(b.model.postProcessors)))

	return b.model, nil
}

// Model returns the frozen model, or ErrNotFinalized before Finalize
func (b *Builder) Model() (*Model, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.model == nil {
		return nil, ErrNotFinalized
	}
	return b.model, nil
}

func consultedAlready(consulted []Strategy, s Strategy) bool {
	for _, c := range consulted {
		if sameInstance(c, s) {
			return true
		}
	}
	return false
}

// refinementRegistrar adds validators during the refinement pass of
// Finalize. It is closed once the pass ends; refiners that keep it get
// ErrAlreadyFinalized.
type refinementRegistrar struct {
	b      *Builder
	err    error
	closed bool
}

func (r *refinementRegistrar) AddValidator(stage Stage, v Validator, markers ...Marker) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()

	if r.closed {
		return fmt.Errorf("%w: cannot register %s", ErrAlreadyFinalized, NameOf(v))
	}

	if err := checkEntry(stage, v); err != nil {
		if r.err == nil {
			r.err = err
		}
		return err
	}
	r.b.validators = add(r.b, r.b.validators, stage, v, markers)
	return nil
}

// selectEntries filters then stable-sorts by stage and registration order
func selectEntries[T any](list []entry[T], filter Filter) []entry[T] {
	out := make([]entry[T], 0, len(list))
	for _, e := range list {
		if filter(e.markers) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].stage != out[j].stage {
			return out[i].stage < out[j].stage
		}
		return out[i].seq < out[j].seq
	})
	return out
}
