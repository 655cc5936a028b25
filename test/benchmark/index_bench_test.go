package benchmark

import (
	"fmt"
	"testing"

	"github.com/xxng1/searchpilot/internal/catalog"
	"github.com/xxng1/searchpilot/internal/indexer"
	"github.com/xxng1/searchpilot/internal/indexer/index"
)

func strPtr(s string) *string { return &s }

func benchItem(id int64) *catalog.Item {
	return &catalog.Item{
		ID:          id,
		Title:       fmt.Sprintf("wireless keyboard model %d", id),
		Description: strPtr("compact mechanical keyboard with wireless connectivity and long battery life"),
		Category:    strPtr("전자제품"),
		Tags:        strPtr("keyboard,wireless,mechanical"),
		Popularity:  id % 100,
	}
}

// BenchmarkTextIndexAdd measures per-item insert throughput into the
// inverted index.
func BenchmarkTextIndexAdd(b *testing.B) {
	ix := index.New()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ix.Add(benchItem(int64(i + 1)))
	}
}

// BenchmarkTextIndexSearch measures lookup latency over 10 000 items.
func BenchmarkTextIndexSearch(b *testing.B) {
	ix := index.New()
	for i := 0; i < 10000; i++ {
		ix.Add(benchItem(int64(i + 1)))
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		matches := ix.Search([]string{"wireless", "keyboard"})
		_ = matches
	}
}

// BenchmarkEnginePut measures full engine indexing throughput at various
// pre-loaded corpus sizes.
func BenchmarkEnginePut(b *testing.B) {
	sizes := []int{0, 10000, 100000}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("preloaded_%d", size), func(b *testing.B) {
			e := indexer.New()
			for i := 0; i < size; i++ {
				if err := e.Put(benchItem(int64(i + 1))); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := e.Put(benchItem(int64(size + i + 1))); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkEngineCandidates measures match evaluation over a 10 000 item
// corpus.
func BenchmarkEngineCandidates(b *testing.B) {
	e := indexer.New()
	for i := 0; i < 10000; i++ {
		if err := e.Put(benchItem(int64(i + 1))); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cands := e.Candidates([]string{"wireless", "keyboard"})
		_ = cands
	}
}

// BenchmarkEngineCandidatesParallel measures concurrent read throughput.
func BenchmarkEngineCandidatesParallel(b *testing.B) {
	e := indexer.New()
	for i := 0; i < 10000; i++ {
		if err := e.Put(benchItem(int64(i + 1))); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			cands := e.Candidates([]string{"wireless"})
			_ = cands
		}
	})
}

// BenchmarkEngineSuggest measures prefix completion latency.
func BenchmarkEngineSuggest(b *testing.B) {
	e := indexer.New()
	for i := 0; i < 10000; i++ {
		if err := e.Put(benchItem(int64(i + 1))); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out := e.Suggest("wir", 10)
		_ = out
	}
}

// BenchmarkEngineRebuild measures a full derived-index rebuild.
func BenchmarkEngineRebuild(b *testing.B) {
	e := indexer.New()
	for i := 0; i < 10000; i++ {
		if err := e.Put(benchItem(int64(i + 1))); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Rebuild()
	}
}
