package memory

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gobeaver/datakit"
)

func sample() map[string]any {
	return map[string]any{
		"velocity": [][]float32{{1, 2}, {3, 4}, {5, 6}},
		"label":    "wind tunnel",
		"nested": map[string]any{
			"counts": []int{7, 8, 9},
		},
	}
}

func TestAttachRoot(t *testing.T) {
	a := New()
	h, kids, err := a.AttachRoot(sample())
	if err != nil {
		t.Fatalf("AttachRoot() error = %v", err)
	}
	if h == nil {
		t.Fatal("AttachRoot() returned nil handle")
	}

	// Sorted name order.
	names := make([]string, len(kids))
	for i, kid := range kids {
		names[i] = kid.Name
	}
	if !reflect.DeepEqual(names, []string{"label", "nested", "velocity"}) {
		t.Errorf("child names = %v", names)
	}

	byName := map[string]datakit.ChildDescriptor{}
	for _, kid := range kids {
		byName[kid.Name] = kid
	}
	if kid := byName["velocity"]; kid.Kind != datakit.KindArray ||
		!reflect.DeepEqual(kid.Shape, []int{3, 2}) || kid.DType != "float32" {
		t.Errorf("velocity descriptor = %+v", kid)
	}
	if kid := byName["label"]; kid.Kind != datakit.KindScalar || len(kid.Shape) != 0 {
		t.Errorf("label descriptor = %+v", kid)
	}
	if kid := byName["nested"]; kid.Kind != datakit.KindGroup || kid.ChildCount != 1 {
		t.Errorf("nested descriptor = %+v", kid)
	}
}

func TestOpenRootAlwaysFails(t *testing.T) {
	a := New()
	if _, _, err := a.OpenRoot("/anywhere"); !errors.Is(err, datakit.ErrAdapterOpen) {
		t.Errorf("OpenRoot() error = %v, want ErrAdapterOpen", err)
	}
	if a.Probe([]byte("anything")) {
		t.Error("Probe() = true, memory adapter must never claim content")
	}
}

func TestListChildren(t *testing.T) {
	a := New()
	h, _, err := a.AttachRoot(sample())
	if err != nil {
		t.Fatalf("AttachRoot() error = %v", err)
	}

	kids, err := a.ListChildren(h, []string{"nested"})
	if err != nil {
		t.Fatalf("ListChildren(nested) error = %v", err)
	}
	if len(kids) != 1 || kids[0].Name != "counts" {
		t.Errorf("nested children = %v", kids)
	}

	// Leaves report no children.
	kids, err = a.ListChildren(h, []string{"velocity"})
	if err != nil {
		t.Fatalf("ListChildren(velocity) error = %v", err)
	}
	if len(kids) != 0 {
		t.Errorf("leaf children = %v", kids)
	}

	if _, err := a.ListChildren(h, []string{"missing"}); !errors.Is(err, datakit.ErrNotReadable) {
		t.Errorf("ListChildren(missing) error = %v, want ErrNotReadable", err)
	}
}

func TestMaterialize(t *testing.T) {
	a := New()
	h, _, err := a.AttachRoot(sample())
	if err != nil {
		t.Fatalf("AttachRoot() error = %v", err)
	}

	out, err := a.Materialize(h, []string{"velocity"}, map[int]int{0: 1}, []int{1})
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if !reflect.DeepEqual(out.Shape, []int{2}) {
		t.Fatalf("Shape = %v", out.Shape)
	}
	if !reflect.DeepEqual(out.Data, []float32{3, 4}) {
		t.Errorf("Data = %v", out.Data)
	}

	out, err = a.Materialize(h, []string{"nested", "counts"}, nil, []int{0})
	if err != nil {
		t.Fatalf("Materialize(counts) error = %v", err)
	}
	if !reflect.DeepEqual(out.Data, []int{7, 8, 9}) {
		t.Errorf("counts Data = %v", out.Data)
	}

	if _, err := a.Materialize(h, []string{"nested"}, nil, nil); !errors.Is(err, datakit.ErrNotReadable) {
		t.Errorf("Materialize(group) error = %v, want ErrNotReadable", err)
	}
}

func TestRepositoryIntegration(t *testing.T) {
	repo, err := datakit.NewRepository(datakit.WithConfig(&datakit.Config{WatchEnabled: false}))
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	defer repo.Close()

	root, err := repo.AttachMemory("synthetic", sample())
	if err != nil {
		t.Fatalf("AttachMemory() error = %v", err)
	}
	if !root.IsOpen() {
		t.Fatal("memory root not open after attach")
	}

	var velocity *datakit.Node
	for _, child := range root.Children() {
		if child.Name() == "velocity" {
			velocity = child
		}
	}
	if velocity == nil {
		t.Fatal("no velocity child")
	}
	if err := velocity.Open(); err != nil {
		t.Fatalf("Open(velocity) error = %v", err)
	}
	out, err := velocity.ReadSlice(map[int]int{0: 2}, []int{1})
	if err != nil {
		t.Fatalf("ReadSlice() error = %v", err)
	}
	if !reflect.DeepEqual(out.Data, []float32{5, 6}) {
		t.Errorf("Data = %v", out.Data)
	}
}
