package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/couchcryptid/vissr-imagery-service/internal/domain"
)

// Options controls the deterministic rendering transform.
type Options struct {
	// VMin and VMax clip the Celsius display range.
	VMin float64
	VMax float64

	// VerticalStretch corrects the non-square VISSR scan pixels by scaling
	// the data grid's vertical axis with linear interpolation.
	VerticalStretch float64

	// HorizontalStretch, when not 1.0, resizes the rendered raster
	// horizontally with a high-quality filter. It operates on the colored
	// image, not the data grid.
	HorizontalStretch float64

	// FontPath points at a TTF file for annotations. When empty or
	// unreadable a built-in bitmap face is used instead.
	FontPath string
	FontSize float64

	// Attribution is the bottom-left overlay text.
	Attribution string
}

// DefaultOptions returns the production rendering parameters.
func DefaultOptions() Options {
	return Options{
		VMin:              -100,
		VMax:              40,
		VerticalStretch:   1.35,
		HorizontalStretch: 1.0,
		FontSize:          28,
		Attribution:       "Data: Chiba University CEReS GMS-5/GOES-9 archive",
	}
}

// RenderedImage is the terminal artifact: a chrome-free color-mapped raster
// with two burned-in annotations.
type RenderedImage struct {
	Image       *image.RGBA
	Caption     string
	Attribution string
}

// EncodeJPEG compresses the raster for sharing.
func (ri *RenderedImage) EncodeJPEG(quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, ri.Image, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: encode jpeg: %v", domain.ErrRender, err)
	}
	return buf.Bytes(), nil
}

// redText is the attribution overlay color.
var redText = color.RGBA{R: 0xff, A: 0xff}

// Renderer turns temperature grids into false-color imagery.
type Renderer struct {
	opts   Options
	cmap   Colormap
	face   font.Face
	logger *slog.Logger
}

// New creates a Renderer. The preferred font is loaded once here; failure
// to load it degrades to the built-in face rather than erroring.
func New(opts Options, logger *slog.Logger) *Renderer {
	return &Renderer{
		opts:   opts,
		cmap:   NewColormap(IRColorStops, opts.VMin, opts.VMax),
		face:   loadFace(opts, logger),
		logger: logger,
	}
}

func loadFace(opts Options, logger *slog.Logger) font.Face {
	if opts.FontPath == "" {
		return basicfont.Face7x13
	}
	b, err := os.ReadFile(opts.FontPath)
	if err != nil {
		logger.Warn("annotation font unavailable, using built-in face",
			"path", opts.FontPath, "error", err)
		return basicfont.Face7x13
	}
	ft, err := opentype.Parse(b)
	if err != nil {
		logger.Warn("annotation font unparsable, using built-in face",
			"path", opts.FontPath, "error", err)
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    opts.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		logger.Warn("annotation face construction failed, using built-in face",
			"path", opts.FontPath, "error", err)
		return basicfont.Face7x13
	}
	return face
}

// Render converts a kelvin grid to an annotated false-color raster.
func (r *Renderer) Render(grid *domain.TemperatureGrid, sat domain.Satellite, req domain.Request) (*RenderedImage, error) {
	if grid == nil || grid.Width < 1 || grid.Height < 1 {
		return nil, fmt.Errorf("%w: empty temperature grid", domain.ErrRender)
	}

	img := r.colorize(grid)

	if r.opts.HorizontalStretch != 1.0 {
		img = stretchHorizontal(img, r.opts.HorizontalStretch)
	}

	caption := fmt.Sprintf("%s Data for %04d-%02d-%02d at %02d:00 UTC",
		sat, req.Year, req.Month, req.Day, req.Hour)
	r.annotate(img, caption, r.opts.Attribution)

	return &RenderedImage{
		Image:       img,
		Caption:     caption,
		Attribution: r.opts.Attribution,
	}, nil
}

// colorize maps the grid through the ramp, applying the Celsius conversion
// and the vertical linear-interpolation stretch in one pass over output rows.
func (r *Renderer) colorize(grid *domain.TemperatureGrid) *image.RGBA {
	outH := grid.Height
	if r.opts.VerticalStretch != 1.0 {
		outH = int(float64(grid.Height)*r.opts.VerticalStretch + 0.5)
		if outH < 1 {
			outH = 1
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, grid.Width, outH))
	for y := 0; y < outH; y++ {
		// Source row position with endpoints aligned, matching linear
		// (order-1) resampling of the data grid.
		srcY := 0.0
		if outH > 1 {
			srcY = float64(y) * float64(grid.Height-1) / float64(outH-1)
		}
		y0 := int(srcY)
		y1 := y0 + 1
		if y1 > grid.Height-1 {
			y1 = grid.Height - 1
		}
		frac := srcY - float64(y0)

		for x := 0; x < grid.Width; x++ {
			kelvin := float64(grid.At(x, y0))*(1-frac) + float64(grid.At(x, y1))*frac
			c := r.cmap.Map(kelvin - domain.KelvinOffset)
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// stretchHorizontal resizes the rendered raster with Catmull-Rom filtering.
func stretchHorizontal(img *image.RGBA, factor float64) *image.RGBA {
	w := int(float64(img.Bounds().Dx())*factor + 0.5)
	if w < 1 {
		w = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, img.Bounds().Dy()))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// annotate burns the caption (top-left, white) and attribution
// (bottom-left, red) into the raster.
func (r *Renderer) annotate(img *image.RGBA, caption, attribution string) {
	metrics := r.face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()

	drawText(img, r.face, caption, 10, 10+ascent, image.White)
	if attribution != "" {
		y := img.Bounds().Dy() - 10 - descent
		drawText(img, r.face, attribution, 10, y, image.NewUniform(redText))
	}
}

func drawText(img *image.RGBA, face font.Face, text string, x, y int, src image.Image) {
	d := font.Drawer{
		Dst:  img,
		Src:  src,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
