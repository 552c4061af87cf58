// Package grid tiles snapshots into a single contact sheet.
//
// Every image is scaled to the same width, keeping its aspect ratio, and
// padded right and bottom. Cells are as tall as the tallest scaled image plus
// padding; each image sits at the top-left of its cell and any space below a
// shorter image shows the background. Nothing is cropped.
package grid

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/entrhq/routeshot/pkg/config"
	"github.com/entrhq/routeshot/pkg/logging"
)

// CompositionError reports an input or output that broke composition.
// Snapshots already on disk are not affected.
type CompositionError struct {
	Path string
	Err  error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("compose grid (%s): %v", e.Path, e.Err)
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

// Composer builds contact sheets.
type Composer struct {
	cfg        config.GridConfig
	background color.RGBA
	log        logging.Leveled
}

// NewComposer creates a composer from grid settings
func NewComposer(cfg config.GridConfig, log logging.Leveled) (*Composer, error) {
	bg := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if cfg.Background != "" {
		var err error
		if bg, err = config.ParseHexColor(cfg.Background); err != nil {
			return nil, fmt.Errorf("invalid grid background: %w", err)
		}
	}
	if cfg.TargetWidth <= 0 {
		return nil, fmt.Errorf("grid target width must be positive")
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Composer{cfg: cfg, background: bg, log: log}, nil
}

// Compose tiles the images at paths, in order, into a PNG at dest. An empty
// list is a no-op: nothing is written and the returned layout is nil.
func (c *Composer) Compose(paths []string, dest string) (*Layout, error) {
	if len(paths) == 0 {
		c.log.Debugf("no snapshots to compose")
		return nil, nil
	}

	scaled := make([]image.Image, 0, len(paths))
	tallest := 0
	for _, p := range paths {
		img, err := c.load(p)
		if err != nil {
			return nil, err
		}
		if h := img.Bounds().Dy(); h > tallest {
			tallest = h
		}
		scaled = append(scaled, img)
	}

	layout := NewLayout(len(scaled), c.cfg.Columns, c.cfg.TargetWidth+c.cfg.Padding, tallest+c.cfg.Padding)
	canvas := image.NewRGBA(layout.Bounds())
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)

	for i, img := range scaled {
		at := layout.Cell(i)
		draw.Draw(canvas, img.Bounds().Add(at), img, image.Point{}, draw.Over)
	}

	if err := writePNG(dest, canvas); err != nil {
		return nil, &CompositionError{Path: dest, Err: err}
	}

	c.log.Infof("grid %dx%d (%d cells) written to %s", layout.Columns, layout.Rows, layout.Count, dest)
	return &layout, nil
}

// load decodes an image and scales it to the target width
func (c *Composer) load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &CompositionError{Path: path, Err: err}
	}
	defer f.Close()

	src, format, err := image.Decode(f)
	if err != nil {
		return nil, &CompositionError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	c.log.Debugf("decoded %s (%s, %dx%d)", filepath.Base(path), format, src.Bounds().Dx(), src.Bounds().Dy())

	return scaleToWidth(src, c.cfg.TargetWidth), nil
}

// scaleToWidth resizes src to width w, preserving aspect ratio. The result is
// anchored at the origin.
func scaleToWidth(src image.Image, w int) image.Image {
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return image.NewRGBA(image.Rect(0, 0, w, 1))
	}

	h := (sb.Dy()*w + sb.Dx()/2) / sb.Dx()
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
	return dst
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
