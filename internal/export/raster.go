package export

import (
	"image"
	"image/draw"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"git.home.luguber.info/inful/manyvis/internal/diagram"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// FaceSource provides font faces at a pixel size.
type FaceSource interface {
	Face(size float64) text.Face
}

// Rasterize draws tree into a width×height image. The viewBox is mapped
// onto the image with a uniform scale.
func Rasterize(tree *Tree, fonts FaceSource, width, height int, scale float64) (*image.RGBA, error) {
	dc := gg.NewContext(width, height)
	defer func() { _ = dc.Close() }()
	dc.ClearWithColor(gg.White)
	dc.Scale(scale, scale)
	dc.Translate(-tree.ViewBox.X, -tree.ViewBox.Y)

	r := &rasterizer{
		dc:    dc,
		fonts: fonts,
		scale: scale,
		vb:    tree.ViewBox,
		faces: make(map[float64]text.Face),
	}
	for _, el := range tree.Elements {
		if err := r.draw(el); err != nil {
			return nil, err
		}
	}

	img := dc.Image()
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, nil
}

type rasterizer struct {
	dc    *gg.Context
	fonts FaceSource
	scale float64
	vb    diagram.ViewBox
	faces map[float64]text.Face
	// clips are the polygons currently in effect, innermost last.
	clips [][]diagram.Point
}

func (r *rasterizer) draw(el *Element) error {
	if len(el.Clip) > 0 {
		r.dc.Push()
		defer r.dc.Pop()
		r.path(el.Clip)
		r.dc.Clip()
		r.clips = append(r.clips, el.Clip)
		defer func() { r.clips = r.clips[:len(r.clips)-1] }()
	}

	var err error
	switch el.Kind {
	case KindRect:
		r.dc.DrawRectangle(el.X, el.Y, el.Width, el.Height)
		err = r.paint(el.Style, true)
	case KindLine:
		r.dc.MoveTo(el.X1, el.Y1)
		r.dc.LineTo(el.X2, el.Y2)
		err = r.paint(el.Style, false)
	case KindPolygon:
		r.path(el.Points)
		err = r.paint(el.Style, true)
	case KindText:
		r.text(el)
	}
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRaster, "failed to draw element").
			WithContext("element", el.ID).
			Build()
	}

	for _, child := range el.Children {
		if err := r.draw(child); err != nil {
			return err
		}
	}
	return nil
}

func (r *rasterizer) path(points []diagram.Point) {
	for i, p := range points {
		if i == 0 {
			r.dc.MoveTo(p.X, p.Y)
			continue
		}
		r.dc.LineTo(p.X, p.Y)
	}
	r.dc.ClosePath()
}

// paint fills then strokes the current path. The path is consumed by the
// first operation, so a shape that needs both is traced again.
func (r *rasterizer) paint(s Style, fillable bool) error {
	fill := fillable && visible(s.Fill)
	stroke := visible(s.Stroke) && s.StrokeWidth > 0
	switch {
	case fill && stroke:
		r.dc.SetHexColor(s.Fill)
		if err := r.dc.FillPreserve(); err != nil {
			return err
		}
		return r.stroke(s)
	case fill:
		r.dc.SetHexColor(s.Fill)
		return r.dc.Fill()
	case stroke:
		return r.stroke(s)
	default:
		r.dc.ClearPath()
		return nil
	}
}

func (r *rasterizer) stroke(s Style) error {
	r.dc.SetHexColor(s.Stroke)
	r.dc.SetLineWidth(s.StrokeWidth * r.scale)
	return r.dc.Stroke()
}

// text is drawn in device space: the glyph rasteriser does not follow the
// context transform, so the face is sized for the scale instead.
func (r *rasterizer) text(el *Element) {
	if !visible(el.Style.Fill) || el.Text == "" {
		return
	}
	if !r.insideClips(diagram.Point{X: el.X, Y: el.Y}) {
		return
	}
	x := (el.X - r.vb.X) * r.scale
	y := (el.Y - r.vb.Y) * r.scale

	r.dc.SetFont(r.face(el.Style.FontSize * r.scale))
	r.dc.SetHexColor(el.Style.Fill)
	r.dc.DrawStringAnchored(el.Text, x, y, anchor(el.Style.TextAnchor), 0)
}

func (r *rasterizer) face(size float64) text.Face {
	if f, ok := r.faces[size]; ok {
		return f
	}
	f := r.fonts.Face(size)
	r.faces[size] = f
	return f
}

func (r *rasterizer) insideClips(p diagram.Point) bool {
	for _, clip := range r.clips {
		if !contains(clip, p) {
			return false
		}
	}
	return true
}

func visible(paint string) bool {
	return paint != "" && paint != "none"
}

func anchor(a string) float64 {
	switch a {
	case "middle":
		return 0.5
	case "end":
		return 1
	default:
		return 0
	}
}

// contains is the even-odd point in polygon test.
func contains(poly []diagram.Point, p diagram.Point) bool {
	in := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}
