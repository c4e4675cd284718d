// Package slab implements the rectangular-slice arithmetic shared by all
// format adapters: flattening nested slices into a row-major buffer, and
// gathering an arbitrary permutation/subset of dimensions out of one.
//
// The package works on reflect values so that adapters stay agnostic of the
// element type; slices handed to the visualization layer are small by
// construction (bounded by the requested axes), so reflection overhead is
// not a concern here.
package slab

import (
	"errors"
	"fmt"
	"reflect"
)

// Common slab errors
var (
	ErrNotSlice   = errors.New("data is not a slice")
	ErrRagged     = errors.New("nested data is ragged")
	ErrShapeData  = errors.New("shape does not match data length")
	ErrBadGather  = errors.New("invalid gather request")
	ErrOutOfRange = errors.New("index out of range")
)

// Slab is a dense row-major n-dimensional array. Data always holds a flat
// slice whose length equals Size(Shape); an empty Shape denotes a scalar
// stored as a one-element slice.
type Slab struct {
	DType string // Go name of the element type, e.g. "float64"
	Shape []int
	Data  any
}

// Size returns the number of elements implied by shape.
// The empty shape (a scalar) has size 1.
func Size(shape []int) int {
	n := 1
	for _, dim := range shape {
		n *= dim
	}
	return n
}

// Strides returns the row-major strides for shape.
func Strides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

// New wraps a flat slice into a Slab, validating that data is a slice whose
// length matches the shape.
func New(shape []int, data any) (Slab, error) {
	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Slice {
		return Slab{}, fmt.Errorf("%w: %T", ErrNotSlice, data)
	}
	for _, dim := range shape {
		if dim < 0 {
			return Slab{}, fmt.Errorf("%w: negative dimension %d", ErrShapeData, dim)
		}
	}
	if rv.Len() != Size(shape) {
		return Slab{}, fmt.Errorf("%w: shape %v wants %d elements, data has %d",
			ErrShapeData, shape, Size(shape), rv.Len())
	}
	return Slab{
		DType: rv.Type().Elem().String(),
		Shape: append([]int(nil), shape...),
		Data:  data,
	}, nil
}

// ShapeOf reports the shape and element type name of a scalar or nested
// slice value without flattening it. Useful for building metadata
// descriptors where copying the data would defeat lazy loading.
func ShapeOf(v any) ([]int, string, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, "", fmt.Errorf("%w: nil value", ErrNotSlice)
	}
	shape := walkShape(rv)
	elemType := rv.Type()
	for elemType.Kind() == reflect.Slice {
		elemType = elemType.Elem()
	}
	return shape, elemType.String(), nil
}

// walkShape derives the shape by following first elements. A zero-length
// dimension ends the descent by value; the remaining rank is recovered from
// the static element type, with all deeper dimensions zero.
func walkShape(rv reflect.Value) []int {
	shape := []int{}
	for rv.Kind() == reflect.Slice {
		shape = append(shape, rv.Len())
		if rv.Len() == 0 {
			for t := rv.Type().Elem(); t.Kind() == reflect.Slice; t = t.Elem() {
				shape = append(shape, 0)
			}
			break
		}
		rv = rv.Index(0)
	}
	return shape
}

// FromNested converts a scalar or (possibly nested) slice value into a Slab.
// Nested slices must be rectangular. A scalar value becomes a rank-0 slab
// holding a one-element flat slice.
//
// A zero-length dimension ends the descent by value; the remaining rank is
// recovered from the static element type, with all deeper dimensions zero.
func FromNested(v any) (Slab, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return Slab{}, fmt.Errorf("%w: nil value", ErrNotSlice)
	}

	shape := walkShape(rv)

	elemType := rv.Type()
	for elemType.Kind() == reflect.Slice {
		elemType = elemType.Elem()
	}

	total := Size(shape)
	flat := reflect.MakeSlice(reflect.SliceOf(elemType), 0, total)

	if len(shape) == 0 {
		flat = reflect.Append(flat, rv)
	} else if total > 0 {
		var err error
		flat, err = flatten(rv, shape, 0, flat)
		if err != nil {
			return Slab{}, err
		}
	}

	return Slab{
		DType: elemType.String(),
		Shape: shape,
		Data:  flat.Interface(),
	}, nil
}

func flatten(rv reflect.Value, shape []int, depth int, flat reflect.Value) (reflect.Value, error) {
	if rv.Len() != shape[depth] {
		return flat, fmt.Errorf("%w: length %d at depth %d, want %d",
			ErrRagged, rv.Len(), depth, shape[depth])
	}
	last := depth == len(shape)-1
	for i := 0; i < rv.Len(); i++ {
		if last {
			flat = reflect.Append(flat, rv.Index(i))
			continue
		}
		var err error
		flat, err = flatten(rv.Index(i), shape, depth+1, flat)
		if err != nil {
			return flat, err
		}
	}
	return flat, nil
}

// Gather extracts a rectangular slice from src. Every source dimension must
// appear either in axes (kept whole, in the requested output order) or as a
// key in fixed (collapsed to a single position); the two sets must partition
// the dimension range exactly.
//
// The result has shape [src.Shape[a] for a in axes]. Gathering all of a
// zero-length axis yields an empty, valid slab. Gathering a rank-0 source
// with no axes and no fixed indices returns the single value.
func Gather(src Slab, fixed map[int]int, axes []int) (Slab, error) {
	rank := len(src.Shape)
	if len(axes)+len(fixed) != rank {
		return Slab{}, fmt.Errorf("%w: %d axes + %d fixed != rank %d",
			ErrBadGather, len(axes), len(fixed), rank)
	}
	seen := make([]bool, rank)
	for _, a := range axes {
		if a < 0 || a >= rank || seen[a] {
			return Slab{}, fmt.Errorf("%w: axis %d", ErrBadGather, a)
		}
		seen[a] = true
	}
	for dim, idx := range fixed {
		if dim < 0 || dim >= rank || seen[dim] {
			return Slab{}, fmt.Errorf("%w: fixed dimension %d", ErrBadGather, dim)
		}
		seen[dim] = true
		if idx < 0 || idx >= src.Shape[dim] {
			return Slab{}, fmt.Errorf("%w: index %d for dimension %d of length %d",
				ErrOutOfRange, idx, dim, src.Shape[dim])
		}
	}

	rv := reflect.ValueOf(src.Data)
	if rv.Kind() != reflect.Slice {
		return Slab{}, fmt.Errorf("%w: %T", ErrNotSlice, src.Data)
	}
	if rv.Len() != Size(src.Shape) {
		return Slab{}, fmt.Errorf("%w: shape %v, data length %d", ErrShapeData, src.Shape, rv.Len())
	}

	outShape := make([]int, len(axes))
	for i, a := range axes {
		outShape[i] = src.Shape[a]
	}
	total := Size(outShape)

	strides := Strides(src.Shape)
	base := 0
	for dim, idx := range fixed {
		base += idx * strides[dim]
	}

	out := reflect.MakeSlice(rv.Type(), total, total)
	coords := make([]int, len(axes))
	for i := 0; i < total; i++ {
		offset := base
		for pos, a := range axes {
			offset += coords[pos] * strides[a]
		}
		out.Index(i).Set(rv.Index(offset))

		// Advance the output odometer, innermost axis last.
		for pos := len(coords) - 1; pos >= 0; pos-- {
			coords[pos]++
			if coords[pos] < outShape[pos] {
				break
			}
			coords[pos] = 0
		}
	}

	return Slab{DType: src.DType, Shape: outShape, Data: out.Interface()}, nil
}
