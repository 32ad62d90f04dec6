package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// ErrNotInitialized is returned by queries before a snapshot is registered
	ErrNotInitialized = errors.New("registry not initialized")
	// ErrTypeNotFound is returned when no type matches the query
	ErrTypeNotFound = errors.New("type not found")
)

// Registry holds a loaded snapshot for introspection queries.
// The registry provides fast indexed access with sub-millisecond query times.
type Registry struct {
	mu       sync.RWMutex
	metadata *Metadata

	// Pre-computed indexes for fast queries (built at registration)
	typesByID     map[string]*TypeMetadata
	typesByGoType map[string]*TypeMetadata
	referencedBy  map[string][]string // logical id -> referencing logical ids

	// Query result cache (snapshots never change once registered)
	cache      map[string]interface{}
	cacheMutex sync.RWMutex

	// initialized is only written under mu, so readers need no lock
	initialized atomic.Bool
}

// Global registry instance
var globalRegistry = newRegistry()

func newRegistry() *Registry {
	return &Registry{
		typesByID:     make(map[string]*TypeMetadata),
		typesByGoType: make(map[string]*TypeMetadata),
		referencedBy:  make(map[string][]string),
		cache:         make(map[string]interface{}),
	}
}

// RegisterMetadata decodes a JSON snapshot into the global registry
func RegisterMetadata(data []byte) error {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return Register(&meta)
}

// Register loads a snapshot into the global registry, replacing any
// earlier one, and builds its indexes
func Register(meta *Metadata) error {
	if meta == nil {
		return fmt.Errorf("metadata is nil")
	}

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	globalRegistry.reset()
	globalRegistry.metadata = meta
	if meta.Dependencies.Nodes == nil {
		meta.Dependencies.Nodes = make(map[string]*DependencyNode)
	}
	globalRegistry.buildIndexes()
	globalRegistry.initialized.Store(true)
	return nil
}

// buildIndexes builds all pre-computed indexes for fast queries
func (r *Registry) buildIndexes() {
	for i := range r.metadata.Types {
		tm := &r.metadata.Types[i]
		r.typesByGoType[tm.Type] = tm
		if tm.LogicalID != "" {
			r.typesByID[tm.LogicalID] = tm
		}
		from := tm.LogicalID
		if from == "" {
			from = tm.Type
		}
		for _, ref := range tm.References {
			r.referencedBy[ref] = append(r.referencedBy[ref], from)
		}
	}
	for id := range r.referencedBy {
		sort.Strings(r.referencedBy[id])
	}
}

// ready reports whether a snapshot is registered
func (r *Registry) ready() error {
	if !r.initialized.Load() {
		return ErrNotInitialized
	}
	return nil
}

func (r *Registry) reset() {
	r.metadata = nil
	r.typesByID = make(map[string]*TypeMetadata)
	r.typesByGoType = make(map[string]*TypeMetadata)
	r.referencedBy = make(map[string][]string)
	r.cacheMutex.Lock()
	r.cache = make(map[string]interface{})
	r.cacheMutex.Unlock()
	r.initialized.Store(false)
}

// GetMetadata returns the registered snapshot, or nil
func GetMetadata() *Metadata {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return globalRegistry.metadata
}

// QueryTypes returns every registered type.
// Returns a copy to prevent external mutation.
func QueryTypes() []TypeMetadata {
	meta := GetMetadata()
	if meta == nil {
		return nil
	}
	types := make([]TypeMetadata, len(meta.Types))
	copy(types, meta.Types)
	return types
}

// QueryType finds a type by logical id, falling back to its Go type name
func QueryType(id string) (*TypeMetadata, error) {
	if err := globalRegistry.ready(); err != nil {
		return nil, err
	}

	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	tm, ok := globalRegistry.typesByID[id]
	if !ok {
		tm, ok = globalRegistry.typesByGoType[id]
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, id)
	}
	// Return a copy to prevent external mutation
	tmCopy := *tm
	return &tmCopy, nil
}

// QueryLogicalIDs returns every registered logical id in sorted order
func QueryLogicalIDs() []string {
	if globalRegistry.ready() != nil {
		return nil
	}

	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	ids := make([]string, 0, len(globalRegistry.typesByID))
	for id := range globalRegistry.typesByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// QueryReferencesTo returns the types that reference id
func QueryReferencesTo(id string) []string {
	if globalRegistry.ready() != nil {
		return nil
	}

	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	refs := globalRegistry.referencedBy[id]
	out := make([]string, len(refs))
	copy(out, refs)
	return out
}

// QueryTypesByPattern searches types whose logical id matches a pattern.
// Pattern supports wildcards: "*" matches any characters.
func QueryTypesByPattern(pattern string) []TypeMetadata {
	if globalRegistry.ready() != nil {
		return nil
	}

	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	// Check cache first
	cacheKey := "pattern:" + pattern
	if cached := globalRegistry.getCached(cacheKey); cached != nil {
		return cached.([]TypeMetadata)
	}

	result := make([]TypeMetadata, 0)
	for _, tm := range globalRegistry.metadata.Types {
		if matchPattern(tm.LogicalID, pattern) {
			result = append(result, tm)
		}
	}

	globalRegistry.setCached(cacheKey, result)
	return result
}

// Reset clears the registry (used for testing).
func Reset() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.reset()
}

// getCached retrieves a value from the cache
func (r *Registry) getCached(key string) interface{} {
	r.cacheMutex.RLock()
	defer r.cacheMutex.RUnlock()
	return r.cache[key]
}

// setCached stores a value in the cache
func (r *Registry) setCached(key string, value interface{}) {
	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()
	r.cache[key] = value
}

// matchPattern matches a string against a pattern with wildcards
func matchPattern(s, pattern string) bool {
	// Exact match
	if pattern == s {
		return true
	}

	// Wildcard match
	if pattern == "*" {
		return true
	}

	// Prefix match (pattern ends with *)
	if strings.HasSuffix(pattern, "*") && !strings.Contains(strings.TrimSuffix(pattern, "*"), "*") {
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "*"))
	}

	// Suffix match (pattern starts with *)
	if strings.HasPrefix(pattern, "*") && !strings.Contains(strings.TrimPrefix(pattern, "*"), "*") {
		return strings.HasSuffix(s, strings.TrimPrefix(pattern, "*"))
	}

	// Contains match (pattern has * in the middle)
	if parts := strings.Split(pattern, "*"); len(parts) == 2 {
		return strings.HasPrefix(s, parts[0]) && strings.HasSuffix(s, parts[1]) &&
			len(s) >= len(parts[0])+len(parts[1])
	}

	return false
}
