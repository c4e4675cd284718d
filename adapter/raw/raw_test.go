package raw

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gobeaver/datakit"
)

func writeRaw(t *testing.T, name string, values any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, values); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewRejectsUnknownType(t *testing.T) {
	if _, err := New("complex128"); !errors.Is(err, datakit.ErrNotSupported) {
		t.Errorf("New() error = %v, want ErrNotSupported", err)
	}
	if _, err := New(""); err == nil {
		t.Error("New(\"\") succeeded")
	}
}

func TestOpenRootShape(t *testing.T) {
	a, err := New("float32")
	if err != nil {
		t.Fatal(err)
	}
	path := writeRaw(t, "samples.bin", []float32{1.5, 2.5, 3.5, 4.5})

	h, kids, err := a.OpenRoot(path)
	if err != nil {
		t.Fatalf("OpenRoot() error = %v", err)
	}
	defer a.CloseRoot(h)

	if len(kids) != 1 || kids[0].Name != "data" {
		t.Fatalf("children = %v", kids)
	}
	if !reflect.DeepEqual(kids[0].Shape, []int{4}) || kids[0].DType != "float32" {
		t.Errorf("descriptor = %+v", kids[0])
	}
}

func TestOpenRootIgnoresTrailingPartialElement(t *testing.T) {
	a, err := New("uint32")
	if err != nil {
		t.Fatal(err)
	}
	// 10 bytes is two uint32 elements plus two stray bytes.
	path := writeRaw(t, "odd.bin", []byte{1, 0, 0, 0, 2, 0, 0, 0, 9, 9})

	h, kids, err := a.OpenRoot(path)
	if err != nil {
		t.Fatalf("OpenRoot() error = %v", err)
	}
	defer a.CloseRoot(h)
	if !reflect.DeepEqual(kids[0].Shape, []int{2}) {
		t.Errorf("Shape = %v, want [2]", kids[0].Shape)
	}
}

func TestMaterialize(t *testing.T) {
	a, err := New("int16")
	if err != nil {
		t.Fatal(err)
	}
	path := writeRaw(t, "counts.bin", []int16{10, -20, 30})

	h, _, err := a.OpenRoot(path)
	if err != nil {
		t.Fatalf("OpenRoot() error = %v", err)
	}
	defer a.CloseRoot(h)

	t.Run("whole vector", func(t *testing.T) {
		out, err := a.Materialize(h, []string{"data"}, nil, []int{0})
		if err != nil {
			t.Fatalf("Materialize() error = %v", err)
		}
		if !reflect.DeepEqual(out.Data, []int16{10, -20, 30}) {
			t.Errorf("Data = %v", out.Data)
		}
	})

	t.Run("single element", func(t *testing.T) {
		out, err := a.Materialize(h, []string{"data"}, map[int]int{0: 1}, nil)
		if err != nil {
			t.Fatalf("Materialize() error = %v", err)
		}
		if len(out.Shape) != 0 {
			t.Errorf("Shape = %v, want rank 0", out.Shape)
		}
		if !reflect.DeepEqual(out.Data, []int16{-20}) {
			t.Errorf("Data = %v", out.Data)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		if _, err := a.Materialize(h, []string{"data"}, map[int]int{0: 3}, nil); err == nil {
			t.Error("Materialize() succeeded with index past the end")
		}
	})

	t.Run("unknown identity", func(t *testing.T) {
		if _, err := a.Materialize(h, []string{"other"}, nil, []int{0}); !errors.Is(err, datakit.ErrNotReadable) {
			t.Errorf("error = %v, want ErrNotReadable", err)
		}
	})
}

func TestElementCount(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		elemSize int
		want     int
	}{
		{name: "exact fit", size: 16, elemSize: 4, want: 4},
		{name: "trailing partial element", size: 10, elemSize: 4, want: 2},
		{name: "empty", size: 0, elemSize: 8, want: 0},
		// Sizes past 2 GiB must not go through 32-bit arithmetic.
		{name: "large file", size: 1<<31 + 8, elemSize: 8, want: 1<<28 + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := elementCount(tt.size, tt.elemSize)
			if err != nil {
				t.Fatalf("elementCount(%d, %d) error = %v", tt.size, tt.elemSize, err)
			}
			if got != tt.want {
				t.Errorf("elementCount(%d, %d) = %d, want %d", tt.size, tt.elemSize, got, tt.want)
			}
		})
	}
}

func TestEmptyFile(t *testing.T) {
	a, err := New("float64")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	h, kids, err := a.OpenRoot(path)
	if err != nil {
		t.Fatalf("OpenRoot() error = %v", err)
	}
	defer a.CloseRoot(h)
	if !reflect.DeepEqual(kids[0].Shape, []int{0}) {
		t.Errorf("Shape = %v, want [0]", kids[0].Shape)
	}

	out, err := a.Materialize(h, []string{"data"}, nil, []int{0})
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if !reflect.DeepEqual(out.Shape, []int{0}) {
		t.Errorf("Shape = %v, want [0]", out.Shape)
	}
}
