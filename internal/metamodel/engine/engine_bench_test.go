package engine

import (
	"testing"

	"github.com/conduit-lang/metamodel/examples/domain"
)

func benchmarkBuild(b *testing.B, parallelism int) {
	seeds := domain.Seeds()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		eng := New(Options{Parallelism: parallelism})
		if _, err := eng.Build(seeds...); err != nil {
			b.Fatal(err)
		}
		eng.Close()
	}
}

// BenchmarkBuild measures a full build of the example domain
func BenchmarkBuild(b *testing.B) {
	benchmarkBuild(b, 1)
}

func BenchmarkBuild_Parallel4(b *testing.B) {
	benchmarkBuild(b, 4)
}

// BenchmarkSnapshot measures describing a published cache
func BenchmarkSnapshot(b *testing.B) {
	eng := New(Options{})
	if _, err := eng.Build(domain.Seeds()...); err != nil {
		b.Fatal(err)
	}
	defer eng.Close()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := eng.Snapshot(); err != nil {
			b.Fatal(err)
		}
	}
}
