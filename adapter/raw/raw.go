// Package raw adapts flat binary files: the file is presented as a single
// one-dimensional array of a configured element type (DATAKIT_RAW_DTYPE,
// little-endian), with any trailing partial element ignored. It is the
// fallback for instrument dumps and other headerless formats.
package raw

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/gobeaver/datakit"
	"github.com/gobeaver/datakit/slab"
)

// elemSizes maps supported element type names to their encoded width.
var elemSizes = map[string]int{
	"uint8":   1,
	"int8":    1,
	"uint16":  2,
	"int16":   2,
	"uint32":  4,
	"int32":   4,
	"uint64":  8,
	"int64":   8,
	"float32": 4,
	"float64": 8,
}

// Adapter reads flat binary files as 1-D arrays.
type Adapter struct {
	dtype    string
	elemSize int
}

// New creates a raw adapter for the given element type name.
func New(dtype string) (*Adapter, error) {
	size, ok := elemSizes[dtype]
	if !ok {
		return nil, fmt.Errorf("%w: raw element type %q", datakit.ErrNotSupported, dtype)
	}
	return &Adapter{dtype: dtype, elemSize: size}, nil
}

// handle keeps the file open for bounded ReadAt access.
type handle struct {
	f     *os.File
	count int
}

// Name implements datakit.Adapter
func (a *Adapter) Name() string { return "raw" }

// Probe implements datakit.Adapter. Raw files have no magic bytes, so the
// adapter is reachable only by glob or explicit override.
func (a *Adapter) Probe([]byte) bool { return false }

// OpenRoot implements datakit.Adapter
func (a *Adapter) OpenRoot(path string) (datakit.RootHandle, []datakit.ChildDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	count, err := elementCount(info.Size(), a.elemSize)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	h := &handle{f: f, count: count}
	return h, a.children(h), nil
}

// elementCount derives the number of whole elements in a file of the given
// byte size. The division happens in int64 so that large files are counted
// correctly even where int is 32 bits; a count that does not fit in int is
// rejected rather than silently truncated.
func elementCount(size int64, elemSize int) (int, error) {
	count := size / int64(elemSize)
	if count > int64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d elements exceed the addressable range", datakit.ErrNotSupported, count)
	}
	return int(count), nil
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
	return []datakit.ChildDescriptor{{
		Name:  "data",
		Kind:  datakit.KindArray,
		Shape: []int{h.count},
		DType: a.dtype,
	}}
}

// Materialize implements datakit.Adapter
func (a *Adapter) Materialize(rh datakit.RootHandle, identity []string, fixed map[int]int, axes []int) (slab.Slab, error) {
	h, ok := rh.(*handle)
	if !ok {
		return slab.Slab{}, fmt.Errorf("%w: bad handle %T", datakit.ErrAdapterOpen, rh)
	}
	if len(identity) != 1 || identity[0] != "data" {
		return slab.Slab{}, fmt.Errorf("%w: %v", datakit.ErrNotReadable, identity)
	}
	if len(axes)+len(fixed) != 1 {
		return slab.Slab{}, fmt.Errorf("%w: one dimension, %d axes and %d fixed",
			slab.ErrBadGather, len(axes), len(fixed))
	}

	if idx, ok := fixed[0]; ok {
		if idx < 0 || idx >= h.count {
			return slab.Slab{}, fmt.Errorf("%w: index %d of %d", slab.ErrOutOfRange, idx, h.count)
		}
		data, err := a.read(h, idx, 1)
		if err != nil {
			return slab.Slab{}, err
		}
		return slab.New([]int{}, data)
	}
	if len(axes) != 1 || axes[0] != 0 {
		return slab.Slab{}, fmt.Errorf("%w: axes %v", slab.ErrBadGather, axes)
	}
	data, err := a.read(h, 0, h.count)
	if err != nil {
		return slab.Slab{}, err
	}
	return slab.New([]int{h.count}, data)
}

// read decodes count elements starting at element offset begin.
func (a *Adapter) read(h *handle, begin, count int) (any, error) {
	buf := make([]byte, count*a.elemSize)
	if count > 0 {
		if _, err := h.f.ReadAt(buf, int64(begin)*int64(a.elemSize)); err != nil {
			return nil, err
		}
	}

	r := bytes.NewReader(buf)
	var (
		out any
		err error
	)
	switch a.dtype {
	case "uint8":
		v := make([]uint8, count)
		err = binary.Read(r, binary.LittleEndian, v)
		out = v
	case "int8":
		v := make([]int8, count)
		err = binary.Read(r, binary.LittleEndian, v)
		out = v
	case "uint16":
		v := make([]uint16, count)
		err = binary.Read(r, binary.LittleEndian, v)
		out = v
	case "int16":
		v := make([]int16, count)
		err = binary.Read(r, binary.LittleEndian, v)
		out = v
	case "uint32":
		v := make([]uint32, count)
		err = binary.Read(r, binary.LittleEndian, v)
		out = v
	case "int32":
		v := make([]int32, count)
		err = binary.Read(r, binary.LittleEndian, v)
		out = v
	case "uint64":
		v := make([]uint64, count)
		err = binary.Read(r, binary.LittleEndian, v)
		out = v
	case "int64":
		v := make([]int64, count)
		err = binary.Read(r, binary.LittleEndian, v)
		out = v
	case "float32":
		v := make([]float32, count)
		err = binary.Read(r, binary.LittleEndian, v)
		out = v
	case "float64":
		v := make([]float64, count)
		err = binary.Read(r, binary.LittleEndian, v)
		out = v
	default:
		return nil, fmt.Errorf("%w: raw element type %q", datakit.ErrNotSupported, a.dtype)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CloseRoot implements datakit.Adapter
func (a *Adapter) CloseRoot(rh datakit.RootHandle) error {
	h, ok := rh.(*handle)
	if !ok {
		return fmt.Errorf("%w: bad handle %T", datakit.ErrAdapterOpen, rh)
	}
	return h.f.Close()
}

var _ datakit.Adapter = (*Adapter)(nil)
