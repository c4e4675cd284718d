package datakit_test

import (
	"fmt"

	"github.com/gobeaver/datakit"
	"github.com/gobeaver/datakit/collect"

	_ "github.com/gobeaver/datakit/adapter/memory"
)

func ExampleRepository_AttachMemory() {
	repo, _ := datakit.NewRepository(
		datakit.WithConfig(&datakit.Config{WatchEnabled: false}),
	)
	defer repo.Close()

	// Wrap a programmatically built tree; it is open right away.
	root, _ := repo.AttachMemory("synthetic", map[string]any{
		"temperature": [][]float64{{21.5, 20.1}, {19.8, 22.3}},
		"metadata": map[string]any{
			"station": "north ridge",
		},
	})

	for _, child := range root.Children() {
		fmt.Println(child.PathString(), child.Kind())
	}
	// Output:
	// /synthetic/metadata group
	// /synthetic/temperature array
}

func ExampleCollector() {
	repo, _ := datakit.NewRepository(
		datakit.WithConfig(&datakit.Config{WatchEnabled: false}),
	)
	defer repo.Close()

	root, _ := repo.AttachMemory("run", map[string]any{
		"samples": [][]float64{{1, 2, 3}, {4, 5, 6}},
	})
	node := root.Children()[0]
	_ = node.Open()

	// Show the array in a one-axis inspector: the last dimension becomes
	// the axis, the first is fixed at index 0.
	c := collect.NewCollector()
	_ = c.Select(node, 1)
	_ = c.SetFixedIndex(0, 1)

	out, expr, _ := c.Materialize()
	fmt.Println(expr, out.Data)
	// Output:
	// [1, :] [4 5 6]
}
