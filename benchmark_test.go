package datakit_test

import (
	"testing"

	"github.com/gobeaver/datakit"
	"github.com/gobeaver/datakit/collect"

	_ "github.com/gobeaver/datakit/adapter/memory"
)

// benchTree builds a 64x64x16 cube for slicing benchmarks.
func benchTree(b *testing.B) *datakit.Node {
	b.Helper()
	cube := make([][][]float64, 64)
	for i := range cube {
		cube[i] = make([][]float64, 64)
		for j := range cube[i] {
			row := make([]float64, 16)
			for k := range row {
				row[k] = float64(i*64*16 + j*16 + k)
			}
			cube[i][j] = row
		}
	}

	repo, err := datakit.NewRepository(
		datakit.WithConfig(&datakit.Config{WatchEnabled: false}),
	)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { repo.Close() })

	root, err := repo.AttachMemory("bench", map[string]any{"cube": cube})
	if err != nil {
		b.Fatal(err)
	}
	node := root.Children()[0]
	if err := node.Open(); err != nil {
		b.Fatal(err)
	}
	return node
}

func BenchmarkReadSlicePlane(b *testing.B) {
	node := benchTree(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := node.ReadSlice(map[int]int{0: i % 64}, []int{2, 1}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCollectorMaterialize(b *testing.B) {
	node := benchTree(b)
	c := collect.NewCollector()
	if err := c.Select(node, 2); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.SetFixedIndex(0, i%64); err != nil {
			b.Fatal(err)
		}
		if _, _, err := c.Materialize(); err != nil {
			b.Fatal(err)
		}
	}
}
