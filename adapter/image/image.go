// Package image adapts raster images (PNG, JPEG, GIF) to the repository
// node contract. Grayscale images appear as a [height, width] uint8 array,
// everything else as [height, width, 4] RGBA. Opening a root reads only the
// image header; pixels are decoded on the first materialize and cached in
// the root handle.
package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gobeaver/datakit"
	"github.com/gobeaver/datakit/slab"
)

// Magic prefixes of the supported formats.
var magics = [][]byte{
	[]byte("\x89PNG\r\n\x1a\n"),
	{0xff, 0xd8, 0xff},
	[]byte("GIF87a"),
	[]byte("GIF89a"),
}

// Adapter reads raster images as pixel arrays.
type Adapter struct{}

// New creates an image adapter.
func New() *Adapter {
	return &Adapter{}
}

// handle caches decode results. pixels stays nil until first materialize.
type handle struct {
	path   string
	width  int
	height int
	gray   bool
	pixels slab.Slab
	loaded bool
}

// Name implements datakit.Adapter
func (a *Adapter) Name() string { return "image" }

// Probe implements datakit.Adapter
func (a *Adapter) Probe(prefix []byte) bool {
	for _, magic := range magics {
		if bytes.HasPrefix(prefix, magic) {
			return true
		}
	}
	return false
}

// OpenRoot implements datakit.Adapter
func (a *Adapter) OpenRoot(path string) (datakit.RootHandle, []datakit.ChildDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", datakit.ErrAdapterOpen, err)
	}

	h := &handle{
		path:   path,
		width:  cfg.Width,
		height: cfg.Height,
		gray:   cfg.ColorModel == color.GrayModel,
	}
	return h, a.children(h), nil
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
	if h.gray {
		return []datakit.ChildDescriptor{{
			Name:     "data",
			Kind:     datakit.KindArray,
			Shape:    []int{h.height, h.width},
			DType:    "uint8",
			DimNames: []string{"y", "x"},
		}}
	}
	return []datakit.ChildDescriptor{{
		Name:     "data",
		Kind:     datakit.KindArray,
		Shape:    []int{h.height, h.width, 4},
		DType:    "uint8",
		DimNames: []string{"y", "x", "channel"},
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
	if err := a.load(h); err != nil {
		return slab.Slab{}, err
	}
	return slab.Gather(h.pixels, fixed, axes)
}

// load decodes the image once and caches the flat pixel buffer.
func (a *Adapter) load(h *handle) error {
	if h.loaded {
		return nil
	}

	f, err := os.Open(h.path)
	if err != nil {
		return err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("%w: %v", datakit.ErrNotReadable, err)
	}
	bounds := img.Bounds()

	if h.gray {
		dst := image.NewGray(bounds)
		draw.Draw(dst, bounds, img, bounds.Min, draw.Src)
		h.pixels, err = slab.New([]int{bounds.Dy(), bounds.Dx()}, dst.Pix)
	} else {
		dst := image.NewRGBA(bounds)
		draw.Draw(dst, bounds, img, bounds.Min, draw.Src)
		h.pixels, err = slab.New([]int{bounds.Dy(), bounds.Dx(), 4}, dst.Pix)
	}
	if err != nil {
		return err
	}
	h.loaded = true
	return nil
}

// CloseRoot implements datakit.Adapter. Drops the pixel cache.
func (a *Adapter) CloseRoot(rh datakit.RootHandle) error {
	h, ok := rh.(*handle)
	if !ok {
		return fmt.Errorf("%w: bad handle %T", datakit.ErrAdapterOpen, rh)
	}
	h.pixels = slab.Slab{}
	h.loaded = false
	return nil
}

var _ datakit.Adapter = (*Adapter)(nil)
