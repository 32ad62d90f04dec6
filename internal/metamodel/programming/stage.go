package programming

import (
	"fmt"
	"sort"
	"strings"
)

// Stage is the processing order of a registered entry. Entries run sorted by
// stage, then by registration order within a stage.
type Stage int

const (
	StageFallbackDefaults Stage = iota
	StageAfterFallbackDefaults
	StageObjectNaming
	StageMemberModelling
	StageMandatorySupport
	StageLayout
	StageRefinement

	stageCount
)

// String returns the string representation of the stage
func (s Stage) String() string {
	switch s {
	case StageFallbackDefaults:
		return "fallback_defaults"
	case StageAfterFallbackDefaults:
		return "after_fallback_defaults"
	case StageObjectNaming:
		return "object_naming"
	case StageMemberModelling:
		return "member_modelling"
	case StageMandatorySupport:
		return "mandatory_support"
	case StageLayout:
		return "layout"
	case StageRefinement:
		return "refinement"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Valid reports whether s is a known stage
func (s Stage) Valid() bool {
	return s >= 0 && s < stageCount
}

// Marker tags an entry for conditional inclusion
type Marker string

const (
	MarkerDeprecated Marker = "deprecated"
	MarkerIncubating Marker = "incubating"
)

// MarkerSet is an immutable, sorted set of markers
type MarkerSet struct {
	markers []Marker
}

// NewMarkerSet builds a set, dropping duplicates and empty markers
func NewMarkerSet(markers ...Marker) MarkerSet {
	seen := make(map[Marker]bool, len(markers))
	out := make([]Marker, 0, len(markers))
	for _, m := range markers {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return MarkerSet{markers: out}
}

// Has reports whether m is in the set
func (s MarkerSet) Has(m Marker) bool {
	for _, x := range s.markers {
		if x == m {
			return true
		}
	}
	return false
}

// Markers returns the markers in sorted order
func (s MarkerSet) Markers() []Marker {
	out := make([]Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

// Len returns the number of markers
func (s MarkerSet) Len() int {
	return len(s.markers)
}

// String returns a comma separated list of markers
func (s MarkerSet) String() string {
	parts := make([]string, len(s.markers))
	for i, m := range s.markers {
		parts[i] = string(m)
	}
	return strings.Join(parts, ",")
}

// Filter decides whether an entry with the given markers survives finalize
type Filter func(MarkerSet) bool

// IncludeAll keeps every entry
func IncludeAll(MarkerSet) bool { return true }

// ExcludeMarkers drops every entry carrying any of the given markers
func ExcludeMarkers(markers ...Marker) Filter {
	excluded := NewMarkerSet(markers...)
	return func(s MarkerSet) bool {
		for _, m := range s.markers {
			if excluded.Has(m) {
				return false
			}
		}
		return true
	}
}
