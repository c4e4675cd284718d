package table

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gobeaver/datakit"
)

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewRejectsBadDelimiter(t *testing.T) {
	if _, err := New("", true); !errors.Is(err, datakit.ErrNotSupported) {
		t.Errorf("New(\"\") error = %v, want ErrNotSupported", err)
	}
	if _, err := New("ab", true); err == nil {
		t.Error("New(\"ab\") succeeded")
	}
}

func TestOpenRootColumns(t *testing.T) {
	a, err := New(",", true)
	if err != nil {
		t.Fatal(err)
	}
	path := writeTable(t, "time,temp,site\n0,20.5,north\n60,21.0,south\n120,19.8,north\n")

	h, kids, err := a.OpenRoot(path)
	if err != nil {
		t.Fatalf("OpenRoot() error = %v", err)
	}
	defer a.CloseRoot(h)

	if len(kids) != 3 {
		t.Fatalf("len(children) = %d, want 3", len(kids))
	}
	names := []string{kids[0].Name, kids[1].Name, kids[2].Name}
	if !reflect.DeepEqual(names, []string{"time", "temp", "site"}) {
		t.Errorf("column names = %v", names)
	}
	for _, kid := range kids {
		if kid.Kind != datakit.KindArray || !reflect.DeepEqual(kid.Shape, []int{3}) {
			t.Errorf("descriptor %s = %+v", kid.Name, kid)
		}
		if !reflect.DeepEqual(kid.DimNames, []string{"row"}) {
			t.Errorf("%s DimNames = %v", kid.Name, kid.DimNames)
		}
	}
	if kids[0].DType != "float64" || kids[1].DType != "float64" || kids[2].DType != "string" {
		t.Errorf("dtypes = %s %s %s", kids[0].DType, kids[1].DType, kids[2].DType)
	}
}

func TestHeaderlessNames(t *testing.T) {
	a, err := New(",", false)
	if err != nil {
		t.Fatal(err)
	}
	path := writeTable(t, "1,2\n3,4\n")

	h, kids, err := a.OpenRoot(path)
	if err != nil {
		t.Fatalf("OpenRoot() error = %v", err)
	}
	defer a.CloseRoot(h)

	if len(kids) != 2 || kids[0].Name != "column-0" || kids[1].Name != "column-1" {
		t.Errorf("children = %v", kids)
	}
	if !reflect.DeepEqual(kids[0].Shape, []int{2}) {
		t.Errorf("Shape = %v", kids[0].Shape)
	}
}

func TestMaterialize(t *testing.T) {
	a, err := New(",", true)
	if err != nil {
		t.Fatal(err)
	}
	path := writeTable(t, "time,site\n0,north\n60,south\n")

	h, _, err := a.OpenRoot(path)
	if err != nil {
		t.Fatalf("OpenRoot() error = %v", err)
	}
	defer a.CloseRoot(h)

	out, err := a.Materialize(h, []string{"time"}, nil, []int{0})
	if err != nil {
		t.Fatalf("Materialize(time) error = %v", err)
	}
	if !reflect.DeepEqual(out.Data, []float64{0, 60}) {
		t.Errorf("time Data = %v", out.Data)
	}

	out, err = a.Materialize(h, []string{"site"}, map[int]int{0: 1}, nil)
	if err != nil {
		t.Fatalf("Materialize(site) error = %v", err)
	}
	if !reflect.DeepEqual(out.Data, []string{"south"}) {
		t.Errorf("site Data = %v", out.Data)
	}

	if _, err := a.Materialize(h, []string{"missing"}, nil, []int{0}); !errors.Is(err, datakit.ErrNotReadable) {
		t.Errorf("Materialize(missing) error = %v, want ErrNotReadable", err)
	}
}

func TestTabDelimiter(t *testing.T) {
	a, err := New("\t", true)
	if err != nil {
		t.Fatal(err)
	}
	path := writeTable(t, "a\tb\n1\t2\n")

	h, kids, err := a.OpenRoot(path)
	if err != nil {
		t.Fatalf("OpenRoot() error = %v", err)
	}
	defer a.CloseRoot(h)
	if len(kids) != 2 || kids[0].Name != "a" {
		t.Errorf("children = %v", kids)
	}
}

func TestDuplicateHeaderNames(t *testing.T) {
	a, err := New(",", true)
	if err != nil {
		t.Fatal(err)
	}
	path := writeTable(t, "value,value,value\n1,2,x\n3,4,y\n")

	h, kids, err := a.OpenRoot(path)
	if err != nil {
		t.Fatalf("OpenRoot() error = %v", err)
	}
	defer a.CloseRoot(h)

	names := []string{kids[0].Name, kids[1].Name, kids[2].Name}
	if !reflect.DeepEqual(names, []string{"value", "value-1", "value-2"}) {
		t.Fatalf("column names = %v", names)
	}

	// Every column stays readable under its suffixed name.
	out, err := a.Materialize(h, []string{"value-1"}, nil, []int{0})
	if err != nil {
		t.Fatalf("Materialize(value-1) error = %v", err)
	}
	if !reflect.DeepEqual(out.Data, []float64{2, 4}) {
		t.Errorf("value-1 Data = %v", out.Data)
	}

	out, err = a.Materialize(h, []string{"value-2"}, nil, []int{0})
	if err != nil {
		t.Fatalf("Materialize(value-2) error = %v", err)
	}
	if !reflect.DeepEqual(out.Data, []string{"x", "y"}) {
		t.Errorf("value-2 Data = %v", out.Data)
	}
}

func TestRaggedRowsForceStringColumn(t *testing.T) {
	a, err := New(",", true)
	if err != nil {
		t.Fatal(err)
	}
	path := writeTable(t, "a,b\n1,2\n3\n")

	h, kids, err := a.OpenRoot(path)
	if err != nil {
		t.Fatalf("OpenRoot() error = %v", err)
	}
	defer a.CloseRoot(h)

	// Column b misses a cell in row two, so it cannot stay numeric.
	if kids[1].DType != "string" {
		t.Errorf("b DType = %s, want string", kids[1].DType)
	}
	if kids[0].DType != "float64" {
		t.Errorf("a DType = %s, want float64", kids[0].DType)
	}
}
