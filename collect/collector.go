// Package collect implements the dimension-to-axis slicing engine: given an
// array of arbitrary rank and an inspector showing 0, 1 or 2 axes, it
// decides which source dimensions are free (mapped to an inspector axis) and
// which are fixed (collapsed to a scalar index), and recomputes the concrete
// slice whenever the user changes an index, remaps an axis, or selects a
// different array.
package collect

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gobeaver/datakit"
	"github.com/gobeaver/datakit/slab"
)

// MaxInspectorRank is the highest number of visualization axes supported.
const MaxInspectorRank = 2

// ErrNotBound is returned by operations that require a selected array.
var ErrNotBound = errors.New("no array selected")

// Source is the slice of the repository node contract the collector needs.
// *datakit.Node satisfies it; tests substitute fakes.
type Source interface {
	Name() string
	PathString() string
	Unit() string
	Shape() []int
	DimensionNames() []string
	ReadSlice(fixed map[int]int, axes []int) (slab.Slab, error)
}

// Collector maps the dimensions of the currently selected array onto
// inspector axes and fixed indices. It has two observable states: unbound
// (no array selected) and bound. The partition invariant holds in every
// bound state: each source dimension is either assigned to exactly one axis
// or carries exactly one fixed index.
//
// The collector holds slicing policy only; the single point where it touches
// backend data is Materialize, which delegates to the source's ReadSlice.
type Collector struct {
	src    Source
	shape  []int
	dims   []string
	rank   int   // inspector rank
	axes   []int // axis position -> source dimension, len == rank
	fixed  map[int]int
	labels []string
}

// NewCollector returns an unbound collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Bound reports whether an array is currently selected.
func (c *Collector) Bound() bool { return c.src != nil }

// Select binds the collector to a source array and computes the default
// axis assignment for an inspector with inspectorRank axes. Any previous
// binding is discarded. Fixed indices default to 0 for every non-assigned
// dimension, including zero-length ones (see Materialize for the policy on
// those).
func (c *Collector) Select(src Source, inspectorRank int) error {
	if src == nil {
		return ErrNotBound
	}
	if inspectorRank < 0 || inspectorRank > MaxInspectorRank {
		return fmt.Errorf("%w: inspector rank %d", datakit.ErrInvalidSliceRequest, inspectorRank)
	}
	shape := src.Shape()
	if inspectorRank > len(shape) {
		return fmt.Errorf("%w: inspector rank %d exceeds array rank %d",
			datakit.ErrInvalidSliceRequest, inspectorRank, len(shape))
	}

	axes := defaultAxes(shape, inspectorRank)

	onAxis := make(map[int]bool, len(axes))
	for _, dim := range axes {
		onAxis[dim] = true
	}
	fixed := make(map[int]int)
	for dim := range shape {
		if !onAxis[dim] {
			fixed[dim] = 0
		}
	}

	c.src = src
	c.shape = shape
	c.dims = src.DimensionNames()
	c.rank = inspectorRank
	c.axes = axes
	c.fixed = fixed
	return nil
}

// defaultAxes picks the source dimensions that become inspector axes.
//
// Informative dimensions (length > 1) are preferred as candidates; when
// there are fewer informative dimensions than axes to fill, every dimension
// is a candidate so that each axis still gets one, degenerate length-1 axes
// included. The last `rank` candidates in source order become the axes, with
// the highest source index (the fastest-varying dimension in row-major
// storage) mapped to the first inspector axis. Trailing dimensions are where
// conventional layouts put the plottable ones (e.g. [time, lat, lon]), so
// this default minimizes remapping for the common case.
func defaultAxes(shape []int, rank int) []int {
	candidates := make([]int, 0, len(shape))
	for dim, length := range shape {
		if length > 1 {
			candidates = append(candidates, dim)
		}
	}
	if len(candidates) < rank {
		candidates = candidates[:0]
		for dim := range shape {
			candidates = append(candidates, dim)
		}
	}

	tail := candidates[len(candidates)-rank:]
	axes := make([]int, rank)
	for i, dim := range tail {
		axes[rank-1-i] = dim
	}
	return axes
}

// Clear unbinds the collector.
func (c *Collector) Clear() {
	*c = Collector{labels: c.labels}
}

// Source returns the currently bound source, or nil.
func (c *Collector) Source() Source { return c.src }

// InspectorRank returns the number of inspector axes of the current binding.
func (c *Collector) InspectorRank() int { return c.rank }

// AxisAssignment returns the source dimension index per inspector axis.
func (c *Collector) AxisAssignment() []int {
	return append([]int(nil), c.axes...)
}

// FixedIndices returns a copy of the fixed index per non-assigned dimension.
func (c *Collector) FixedIndices() map[int]int {
	out := make(map[int]int, len(c.fixed))
	for dim, idx := range c.fixed {
		out[dim] = idx
	}
	return out
}

// DimensionName returns the name of a source dimension, falling back to a
// positional placeholder ("dim-0", "dim-1", ...) when the adapter supplied
// no label.
func (c *Collector) DimensionName(dim int) string {
	if dim >= 0 && dim < len(c.dims) && c.dims[dim] != "" {
		return c.dims[dim]
	}
	return "dim-" + strconv.Itoa(dim)
}

// Reassign maps the inspector axis at axisPos to a different source
// dimension. Whichever assignment currently owns newDim takes over the
// axis's old dimension: another axis swaps outright, while a fixed
// dimension becomes the new axis target and the old axis dimension becomes
// fixed at index 0. The partition invariant is preserved either way.
func (c *Collector) Reassign(axisPos, newDim int) error {
	if !c.Bound() {
		return ErrNotBound
	}
	if axisPos < 0 || axisPos >= c.rank {
		return fmt.Errorf("%w: axis position %d", datakit.ErrInvalidDimension, axisPos)
	}
	if newDim < 0 || newDim >= len(c.shape) {
		return fmt.Errorf("%w: dimension %d", datakit.ErrInvalidDimension, newDim)
	}

	oldDim := c.axes[axisPos]
	if oldDim == newDim {
		return nil
	}

	for pos, dim := range c.axes {
		if dim == newDim {
			c.axes[pos] = oldDim
			c.axes[axisPos] = newDim
			return nil
		}
	}

	delete(c.fixed, newDim)
	c.fixed[oldDim] = 0
	c.axes[axisPos] = newDim
	return nil
}

// SetFixedIndex sets the scalar index of a fixed dimension. A zero-length
// dimension rejects every value, since no valid index exists.
func (c *Collector) SetFixedIndex(dim, value int) error {
	if !c.Bound() {
		return ErrNotBound
	}
	if _, ok := c.fixed[dim]; !ok {
		return fmt.Errorf("%w: dimension %d is not fixed", datakit.ErrInvalidDimension, dim)
	}
	if value < 0 || value >= c.shape[dim] {
		return fmt.Errorf("%w: index %d for dimension %d of length %d",
			datakit.ErrIndexOutOfRange, value, dim, c.shape[dim])
	}
	c.fixed[dim] = value
	return nil
}

// Materialize reads the currently selected slice from the source and
// returns it together with the human-readable slice expression (e.g.
// "[360, :]") for title templating.
//
// While a zero-length dimension is fixed, no valid index exists for it and
// Materialize fails with ErrInvalidSliceRequest; reassigning that dimension
// to an axis makes the selection readable again (yielding an empty result).
func (c *Collector) Materialize() (slab.Slab, string, error) {
	if !c.Bound() {
		return slab.Slab{}, "", ErrNotBound
	}
	for dim := range c.fixed {
		if c.shape[dim] == 0 {
			return slab.Slab{}, "", fmt.Errorf("%w: dimension %d has length 0 and is fixed",
				datakit.ErrInvalidSliceRequest, dim)
		}
	}

	out, err := c.src.ReadSlice(c.FixedIndices(), c.AxisAssignment())
	if err != nil {
		return slab.Slab{}, "", err
	}
	return out, c.SliceExpr(), nil
}

// SliceExpr returns the slice expression in source dimension order: fixed
// dimensions show their index, axis dimensions a colon. Returns "" when
// unbound.
func (c *Collector) SliceExpr() string {
	if !c.Bound() {
		return ""
	}
	parts := make([]string, len(c.shape))
	for dim := range c.shape {
		if idx, ok := c.fixed[dim]; ok {
			parts[dim] = strconv.Itoa(idx)
		} else {
			parts[dim] = ":"
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// SetAxisLabels overrides the inspector axis labels used in Info keys.
// Defaults are "axis0", "axis1".
func (c *Collector) SetAxisLabels(labels ...string) {
	c.labels = labels
}

// Info returns a string map for external title/label templating: the node
// name, path, file name, unit (with and without parentheses), the slice
// expression, and one "<label>-dim" entry per inspector axis holding the
// mapped dimension name. All values are empty strings when unbound.
func (c *Collector) Info() map[string]string {
	info := map[string]string{
		"name": "", "path": "", "file-name": "", "dir-name": "", "base-name": "",
		"unit": "", "raw-unit": "", "slices": "",
	}
	if !c.Bound() {
		return info
	}

	info["name"] = c.src.Name()
	info["path"] = c.src.PathString()
	info["slices"] = c.SliceExpr()
	if unit := c.src.Unit(); unit != "" {
		info["unit"] = "(" + unit + ")"
		info["raw-unit"] = unit
	}
	if fp, ok := c.src.(interface{ FilePath() string }); ok {
		info["file-name"] = fp.FilePath()
		info["dir-name"] = filepath.Dir(fp.FilePath())
		info["base-name"] = filepath.Base(fp.FilePath())
	}

	for pos, dim := range c.axes {
		label := "axis" + strconv.Itoa(pos)
		if pos < len(c.labels) && c.labels[pos] != "" {
			label = strings.ToLower(c.labels[pos])
		}
		info[label+"-dim"] = c.DimensionName(dim)
	}
	return info
}

// FixedDimensions returns the fixed dimension indices in ascending order,
// for building index-selection controls deterministically.
func (c *Collector) FixedDimensions() []int {
	dims := make([]int, 0, len(c.fixed))
	for dim := range c.fixed {
		dims = append(dims, dim)
	}
	sort.Ints(dims)
	return dims
}
