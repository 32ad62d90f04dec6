package programming

// EntryInfo describes one frozen entry for diagnostics
type EntryInfo struct {
	Name    string
	Stage   Stage
	Markers MarkerSet
}

// Model is the frozen programming model. It is read-only and safe for
// concurrent use.
type Model struct {
	strategies     []entry[Strategy]
	validators     []entry[Validator]
	postProcessors []entry[PostProcessor]
}

// Strategies returns the detection strategies in execution order
func (m *Model) Strategies() []Strategy {
	return instances(m.strategies)
}

// Validators returns the validators in execution order
func (m *Model) Validators() []Validator {
	return instances(m.validators)
}

// PostProcessors returns the post-processors in execution order
func (m *Model) PostProcessors() []PostProcessor {
	return instances(m.postProcessors)
}

// StrategyInfo describes the strategies in execution order
func (m *Model) StrategyInfo() []EntryInfo {
	return infos(m.strategies)
}

// ValidatorInfo describes the validators in execution order
func (m *Model) ValidatorInfo() []EntryInfo {
	return infos(m.validators)
}

// PostProcessorInfo describes the post-processors in execution order
func (m *Model) PostProcessorInfo() []EntryInfo {
	return infos(m.postProcessors)
}

func instances[T any](list []entry[T]) []T {
	out := make([]T, len(list))
	for i, e := range list {
		out[i] = e.instance
	}
	return out
}

func infos[T any](list []entry[T]) []EntryInfo {
	out := make([]EntryInfo, len(list))
	for i, e := range list {
		out[i] = EntryInfo{Name: NameOf(e.instance), Stage: e.stage, Markers: e.markers}
	}
	return out
}
