package render

import (
	"bytes"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"

	"github.com/didzislauva/osmplot/internal/geo"
)

// pdfPageWidthMM is the fixed page width. The page height follows from
// the map's aspect ratio.
const pdfPageWidthMM = 200.0

// EncodePDF draws the finished map into a single-page PDF document.
// The page is a fixed 200 mm wide and labels use the built-in
// Helvetica, so the raster encode options do not apply here.
func EncodePDF(m *Map) ([]byte, error) {
	if m.phase != phaseDone {
		return nil, eris.Errorf("render: encode before annotate")
	}

	pageW := pdfPageWidthMM
	pageH := pageW * m.Aspect()
	if pageH < 1 {
		pageH = 1
	}
	scale := pageW / referenceWidthPx

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetTitle(m.Title(), true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	for _, op := range m.Ops() {
		pdfOp(pdf, m.BBox(), op, pageW, pageH, scale)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, eris.Wrap(err, "render: encode pdf")
	}
	return buf.Bytes(), nil
}

// pdfOp draws one operation in page millimeters, y flipped so north is
// up.
func pdfOp(pdf *fpdf.Fpdf, b geo.BBox, op Op, pageW, pageH, scale float64) {
	toMM := func(x, y float64) (float64, float64) {
		if op.Space == SpaceData {
			x = (x - b.West) / b.Width()
			y = (y - b.South) / b.Height()
		}
		return x * pageW, pageH - y*pageH
	}

	st := op.Style
	switch op.Kind {
	case KindFill:
		pts := make([]fpdf.PointType, 0, len(op.Coords)/2)
		for i := 0; i+1 < len(op.Coords); i += 2 {
			x, y := toMM(op.Coords[i], op.Coords[i+1])
			pts = append(pts, fpdf.PointType{X: x, Y: y})
		}
		r, g, bl := hexRGB255(st.Color)
		pdf.SetFillColor(r, g, bl)
		pdf.SetAlpha(st.alpha(), "Normal")
		styleStr := "F"
		if st.EdgeWidth > 0 {
			er, eg, eb := hexRGB255(st.EdgeColor)
			pdf.SetDrawColor(er, eg, eb)
			pdf.SetLineWidth(st.EdgeWidth * scale)
			styleStr = "FD"
		}
		pdf.Polygon(pts, styleStr)
		pdf.SetAlpha(1, "Normal")
	case KindStroke:
		r, g, bl := hexRGB255(st.Color)
		pdf.SetDrawColor(r, g, bl)
		pdf.SetLineWidth(st.LineWidth * scale)
		if st.Dashed {
			pdf.SetDashPattern([]float64{6 * scale, 4 * scale}, 0)
		} else {
			pdf.SetDashPattern([]float64{}, 0)
		}
		for i := 0; i+1 < len(op.Coords); i += 2 {
			x, y := toMM(op.Coords[i], op.Coords[i+1])
			if i == 0 {
				pdf.MoveTo(x, y)
			} else {
				pdf.LineTo(x, y)
			}
		}
		if op.Closed {
			pdf.ClosePath()
		}
		pdf.DrawPath("D")
	case KindText:
		fontStyle := ""
		if op.Bold {
			fontStyle = "B"
		}
		pdf.SetFont("Helvetica", fontStyle, op.Size)
		pdf.SetTextColor(0, 0, 0)
		x, y := toMM(op.Coords[0], op.Coords[1])
		x -= pdf.GetStringWidth(op.Text) * op.AnchorX
		pdf.Text(x, y, op.Text)
	}
}
