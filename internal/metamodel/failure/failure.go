// Package failure collects global validation failures raised while building
// the metamodel. Failures are gathered exhaustively and reported together.
package failure

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Vars holds the named variables substituted into a failure template
type Vars map[string]string

// Failure describes one violated global invariant. Template placeholders use
// ${name} syntax, e.g. "${type}#${member}: mandatory member is hidden".
type Failure struct {
	Template string
	Vars     Vars
}

// New creates a failure
func New(template string, vars Vars) Failure {
	return Failure{Template: template, Vars: vars}
}

// Message returns the template with every known variable substituted
func (f Failure) Message() string {
	if len(f.Vars) == 0 {
		return f.Template
	}

	pairs := make([]string, 0, len(f.Vars)*2)
	for _, name := range f.names() {
		pairs = append(pairs, "${"+name+"}", f.Vars[name])
	}
	return strings.NewReplacer(pairs...).Replace(f.Template)
}

// Error implements the error interface
func (f Failure) Error() string {
	return f.Message()
}

func (f Failure) names() []string {
	names := make([]string, 0, len(f.Vars))
	for name := range f.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collector accumulates failures. It is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	failures []Failure
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Add records a failure
func (c *Collector) Add(template string, vars Vars) {
	c.Append(New(template, vars))
}

// Append records already built failures
func (c *Collector) Append(failures ...Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, failures...)
}

// Len returns the number of recorded failures
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.failures)
}

// HasFailures returns true if at least one failure was recorded
func (c *Collector) HasFailures() bool {
	return c.Len() > 0
}

// Failures returns a copy of the recorded failures in insertion order
func (c *Collector) Failures() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Failure, len(c.failures))
	copy(out, c.failures)
	return out
}

// BuildError is returned when a metamodel build is rejected. It carries
// every failure found by the build.
type BuildError struct {
	BuildID  uuid.UUID
	Failures []Failure
}

// NewBuildError creates a build error from the collector's contents
func NewBuildError(buildID uuid.UUID, c *Collector) *BuildError {
	return &BuildError{BuildID: buildID, Failures: c.Failures()}
}

// Error implements the error interface
func (e *BuildError) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("metamodel validation failed: %s", e.Failures[0].Message())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "metamodel validation failed with %d errors:", len(e.Failures))
	for _, f := range e.Failures {
		b.WriteString("\n  - ")
		b.WriteString(f.Message())
	}
	return b.String()
}

// Unwrap exposes each failure to errors.Is and errors.As
func (e *BuildError) Unwrap() []error {
	var combined error
	for _, f := range e.Failures {
		combined = multierr.Append(combined, f)
	}
	return multierr.Errors(combined)
}

// Lines returns the rendered failure messages, one per failure
func (e *BuildError) Lines() []string {
	lines := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		lines[i] = f.Message()
	}
	return lines
}
