// Package table adapts delimited text files (CSV and friends) to the
// repository node contract. Each column becomes a one-dimensional child
// array named after its header cell, typed float64 when every cell parses
// as a number and string otherwise. The row dimension is named "row".
package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gobeaver/datakit"
	"github.com/gobeaver/datakit/slab"
)

// Adapter reads delimited text files column-wise.
type Adapter struct {
	delimiter rune
	header    bool
}

// New creates a table adapter. delimiter must be a single rune; header
// controls whether the first record supplies column names.
func New(delimiter string, header bool) (*Adapter, error) {
	runes := []rune(delimiter)
	if len(runes) != 1 {
		return nil, fmt.Errorf("%w: table delimiter %q", datakit.ErrNotSupported, delimiter)
	}
	return &Adapter{delimiter: runes[0], header: header}, nil
}

// column is one fully parsed table column.
type column struct {
	name    string
	numeric bool
	floats  []float64
	strs    []string
}

// handle holds the parsed table. Delimited files have no random access
// worth preserving, so the whole table is read at open time.
type handle struct {
	columns []column
	rows    int
}

// Name implements datakit.Adapter
func (a *Adapter) Name() string { return "csv" }

// Probe implements datakit.Adapter. Text tables have no magic bytes.
func (a *Adapter) Probe([]byte) bool { return false }

// OpenRoot implements datakit.Adapter
func (a *Adapter) OpenRoot(path string) (datakit.RootHandle, []datakit.ChildDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = a.delimiter
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", datakit.ErrAdapterOpen, err)
	}

	h := a.parse(records)
	return h, a.children(h), nil
}

// parse splits the records into typed columns. Ragged rows pad with empty
// cells, which forces the affected column to string.
func (a *Adapter) parse(records [][]string) *handle {
	var names []string
	if a.header && len(records) > 0 {
		names = records[0]
		records = records[1:]
	}

	width := len(names)
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}

	h := &handle{rows: len(records)}
	used := make(map[string]bool, width)
	for c := 0; c < width; c++ {
		col := column{numeric: true}
		if c < len(names) && strings.TrimSpace(names[c]) != "" {
			col.name = strings.TrimSpace(names[c])
		} else {
			col.name = "column-" + strconv.Itoa(c)
		}
		// Repeated header cells get a numeric suffix so that every column
		// stays addressable by name.
		if used[col.name] {
			base := col.name
			for i := 1; used[col.name]; i++ {
				col.name = base + "-" + strconv.Itoa(i)
			}
		}
		used[col.name] = true

		col.strs = make([]string, len(records))
		for i, rec := range records {
			var cell string
			if c < len(rec) {
				cell = strings.TrimSpace(rec[c])
			}
			col.strs[i] = cell
			if col.numeric {
				if _, err := strconv.ParseFloat(cell, 64); err != nil {
					col.numeric = false
				}
			}
		}
		if col.numeric {
			col.floats = make([]float64, len(records))
			for i, cell := range col.strs {
				col.floats[i], _ = strconv.ParseFloat(cell, 64)
			}
			col.strs = nil
		}
		h.columns = append(h.columns, col)
	}
	return h
}

// ListChildren implements datakit.Adapter
func (a *Adapter) ListChildren(rh datakit.RootHandle, identity []string) ([]datakit.ChildDescriptor, error) {
	h, ok := rh.(*handle)
	if !ok {
		return nil, fmt.Errorf("%w: bad handle %T", datakit.ErrAdapterOpen, rh)
	}
	if len(identity) == 0 {
		return a.children(h), nil
	}
	return nil, nil
}

func (a *Adapter) children(h *handle) []datakit.ChildDescriptor {
	kids := make([]datakit.ChildDescriptor, 0, len(h.columns))
	for _, col := range h.columns {
		dtype := "string"
		if col.numeric {
			dtype = "float64"
		}
		kids = append(kids, datakit.ChildDescriptor{
			Name:     col.name,
			Kind:     datakit.KindArray,
			Shape:    []int{h.rows},
			DType:    dtype,
			DimNames: []string{"row"},
		})
	}
	return kids
}

// Materialize implements datakit.Adapter
func (a *Adapter) Materialize(rh datakit.RootHandle, identity []string, fixed map[int]int, axes []int) (slab.Slab, error) {
	h, ok := rh.(*handle)
	if !ok {
		return slab.Slab{}, fmt.Errorf("%w: bad handle %T", datakit.ErrAdapterOpen, rh)
	}
	if len(identity) != 1 {
		return slab.Slab{}, fmt.Errorf("%w: %v", datakit.ErrNotReadable, identity)
	}
	for _, col := range h.columns {
		if col.name != identity[0] {
			continue
		}
		var full slab.Slab
		var err error
		if col.numeric {
			full, err = slab.New([]int{h.rows}, col.floats)
		} else {
			full, err = slab.New([]int{h.rows}, col.strs)
		}
		if err != nil {
			return slab.Slab{}, err
		}
		return slab.Gather(full, fixed, axes)
	}
	return slab.Slab{}, fmt.Errorf("%w: no column %q", datakit.ErrNotReadable, identity[0])
}

// CloseRoot implements datakit.Adapter
func (a *Adapter) CloseRoot(rh datakit.RootHandle) error {
	if _, ok := rh.(*handle); !ok {
		return fmt.Errorf("%w: bad handle %T", datakit.ErrAdapterOpen, rh)
	}
	return nil
}

var _ datakit.Adapter = (*Adapter)(nil)
