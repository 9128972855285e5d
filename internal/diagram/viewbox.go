package diagram

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// ViewBox is the logical coordinate rectangle the diagram is framed within.
type ViewBox struct {
	X, Y, Width, Height float64
}

func (v ViewBox) String() string {
	return strings.Join([]string{num(v.X), num(v.Y), num(v.Width), num(v.Height)}, " ")
}

// Swap replaces the rectangle and returns the previous one so the caller
// can hand it back to RestoreFrom.
func (v *ViewBox) Swap(x, y, width, height float64) ViewBox {
	prev := *v
	*v = ViewBox{X: x, Y: y, Width: width, Height: height}
	return prev
}

// RestoreFrom puts back a rectangle previously returned by Swap.
func (v *ViewBox) RestoreFrom(prev ViewBox) {
	*v = prev
}

// Point is a coordinate in viewBox space.
type Point struct {
	X, Y float64
}

// ParsePoints reads a polygon in the "x y, x y, ..." clip path form. The
// SVG points form "x,y x,y ..." is accepted too. At least three finite
// points are required.
func ParsePoints(s string) ([]Point, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields)%2 != 0 {
		return nil, invalidPoints(s, fmt.Errorf("odd number of coordinates (%d)", len(fields)))
	}
	points := make([]Point, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, invalidPoints(s, err)
		}
		y, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, invalidPoints(s, err)
		}
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return nil, invalidPoints(s, fmt.Errorf("non-finite coordinate in %q %q", fields[i], fields[i+1]))
		}
		points = append(points, Point{X: x, Y: y})
	}
	if len(points) < 3 {
		return nil, invalidPoints(s, fmt.Errorf("need at least 3 points, got %d", len(points)))
	}
	return points, nil
}

// FormatPoints renders points in the SVG polygon "points" syntax.
func FormatPoints(points []Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = num(p.X) + "," + num(p.Y)
	}
	return strings.Join(parts, " ")
}

// FormatClipPath renders points in the "x y, x y" clip path syntax.
func FormatClipPath(points []Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = num(p.X) + " " + num(p.Y)
	}
	return strings.Join(parts, ", ")
}

func invalidPoints(raw string, cause error) error {
	return ferrors.WrapError(cause, ferrors.CategoryValidation, "invalid clip path").
		WithContext("clip_path", raw).
		Build()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
