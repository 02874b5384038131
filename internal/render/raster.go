package render

import (
	"bytes"
	"image/jpeg"
	"math"

	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"
	"golang.org/x/image/font"

	"github.com/didzislauva/osmplot/internal/geo"
)

const (
	defaultWidthPx     = 1024
	defaultJPEGQuality = 90

	// Line widths and font sizes are specified at this surface width
	// and scaled with the actual output size.
	referenceWidthPx = 1024.0
)

// EncodeOptions control the raster and PDF encoders.
type EncodeOptions struct {
	// WidthPx is the raster width in pixels. Zero means 1024. The
	// height follows from the map's aspect ratio.
	WidthPx int
	// JPEGQuality is 1..100. Zero means 90.
	JPEGQuality int
	// FontPath points to a TTF for raster labels. Empty keeps the
	// built-in bitmap face.
	FontPath string
}

// EncodeRaster draws the finished map into a raster image. Supported
// formats are "png", "jpg" and "jpeg".
func EncodeRaster(m *Map, format string, opts EncodeOptions) ([]byte, error) {
	if m.phase != phaseDone {
		return nil, eris.Errorf("render: encode before annotate")
	}
	switch format {
	case "png", "jpg", "jpeg":
	default:
		return nil, eris.Errorf("render: unsupported raster format %q", format)
	}

	w := opts.WidthPx
	if w <= 0 {
		w = defaultWidthPx
	}
	h := int(math.Round(float64(w) * m.Aspect()))
	if h < 1 {
		h = 1
	}
	scale := float64(w) / referenceWidthPx

	ops := m.Ops()
	faces, err := loadFaces(opts.FontPath, ops, scale)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	for _, op := range ops {
		rasterOp(dc, m.BBox(), op, float64(w), float64(h), scale, faces)
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		if err := dc.EncodePNG(&buf); err != nil {
			return nil, eris.Wrap(err, "render: encode png")
		}
	default:
		q := opts.JPEGQuality
		if q <= 0 || q > 100 {
			q = defaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: q}); err != nil {
			return nil, eris.Wrap(err, "render: encode jpeg")
		}
	}
	return buf.Bytes(), nil
}

// loadFaces loads the TTF once per distinct label size. With no font
// path the context's built-in bitmap face is used for every label.
func loadFaces(path string, ops []Op, scale float64) (map[float64]font.Face, error) {
	if path == "" {
		return nil, nil
	}
	faces := make(map[float64]font.Face)
	for _, op := range ops {
		if op.Kind != KindText {
			continue
		}
		size := op.Size * scale
		if _, ok := faces[size]; ok {
			continue
		}
		f, err := gg.LoadFontFace(path, size)
		if err != nil {
			return nil, eris.Wrapf(err, "render: load font %s", path)
		}
		faces[size] = f
	}
	return faces, nil
}

// rasterOp draws one operation in pixel space, y flipped so north is up.
func rasterOp(dc *gg.Context, b geo.BBox, op Op, w, h, scale float64, faces map[float64]font.Face) {
	toPx := func(x, y float64) (float64, float64) {
		if op.Space == SpaceData {
			x = (x - b.West) / b.Width()
			y = (y - b.South) / b.Height()
		}
		return x * w, h - y*h
	}

	if op.Kind == KindText {
		if f, ok := faces[op.Size*scale]; ok {
			dc.SetFontFace(f)
		}
		dc.SetRGB(0, 0, 0)
		x, y := toPx(op.Coords[0], op.Coords[1])
		dc.DrawStringAnchored(op.Text, x, y, op.AnchorX, 0.5)
		return
	}

	for i := 0; i+1 < len(op.Coords); i += 2 {
		x, y := toPx(op.Coords[i], op.Coords[i+1])
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	if op.Closed {
		dc.ClosePath()
	}

	st := op.Style
	switch op.Kind {
	case KindFill:
		r, g, bl := hexRGB(st.Color)
		dc.SetRGBA(r, g, bl, st.alpha())
		if st.EdgeWidth > 0 {
			dc.FillPreserve()
			er, eg, eb := hexRGB(st.EdgeColor)
			dc.SetRGBA(er, eg, eb, 1)
			dc.SetLineWidth(st.EdgeWidth * scale)
			dc.Stroke()
		} else {
			dc.Fill()
		}
	case KindStroke:
		r, g, bl := hexRGB(st.Color)
		dc.SetRGBA(r, g, bl, 1)
		dc.SetLineWidth(st.LineWidth * scale)
		if st.Dashed {
			dc.SetDash(6*scale, 4*scale)
		} else {
			dc.SetDash()
		}
		dc.Stroke()
	}
}
