package capability

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrSealed is the panic value raised when a capability is installed on a
// sealed holder. Holders are sealed while validators run.
var ErrSealed = errors.New("capability holder is sealed")

// Capability is a typed unit of behavior attached to a node or member
type Capability interface {
	Kind() Kind
}

type entry struct {
	capability  Capability
	installedBy string
}

// Holder stores the live capabilities of one node or member, keyed by kind.
// The zero value is ready to use.
type Holder struct {
	mu      sync.RWMutex
	entries map[Kind]entry
	sealed  bool
}

// Install attaches c, replacing any capability of the same kind. Earlier
// writes are discarded, never merged.
func (h *Holder) Install(c Capability, installedBy string) {
	if c == nil {
		return
	}
	if !c.Kind().Valid() {
		panic(fmt.Sprintf("capability: invalid kind %d", c.Kind()))
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sealed {
		panic(fmt.Errorf("%w: cannot install %s", ErrSealed, c.Kind()))
	}
	if h.entries == nil {
		h.entries = make(map[Kind]entry)
	}
	h.entries[c.Kind()] = entry{capability: c, installedBy: installedBy}
}

// Remove drops the capability of the given kind, if present
func (h *Holder) Remove(k Kind) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sealed {
		panic(fmt.Errorf("%w: cannot remove %s", ErrSealed, k))
	}
	delete(h.entries, k)
}

// Capability returns the live capability of kind k
func (h *Holder) Capability(k Kind) (Capability, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	e, ok := h.entries[k]
	return e.capability, ok
}

// Has reports whether a capability of kind k is installed
func (h *Holder) Has(k Kind) bool {
	_, ok := h.Capability(k)
	return ok
}

// InstalledBy names the strategy that wrote the live capability of kind k
func (h *Holder) InstalledBy(k Kind) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.entries[k].installedBy
}

// Kinds returns the installed kinds in ascending order
func (h *Holder) Kinds() []Kind {
	h.mu.RLock()
	defer h.mu.RUnlock()

	kinds := make([]Kind, 0, len(h.entries))
	for k := range h.entries {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Len returns the number of installed capabilities
func (h *Holder) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Seal makes the holder read-only
func (h *Holder) Seal() {
	h.mu.Lock()
	h.sealed = true
	h.mu.Unlock()
}

// Unseal reopens the holder for a post-processing pass
func (h *Holder) Unseal() {
	h.mu.Lock()
	h.sealed = false
	h.mu.Unlock()
}

// Sealed reports whether the holder is read-only
func (h *Holder) Sealed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sealed
}

// Lookup returns the live capability of kind k as its concrete type T
func Lookup[T Capability](h *Holder, k Kind) (T, bool) {
	var zero T
	c, ok := h.Capability(k)
	if !ok {
		return zero, false
	}
	typed, ok := c.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
