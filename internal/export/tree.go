package export

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/manyvis/internal/diagram"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// Kind is the shape of a render tree element.
type Kind int

const (
	KindGroup Kind = iota
	KindRect
	KindLine
	KindPolygon
	KindText
)

// Style holds the presentation attributes after inheritance.
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
	FontSize    float64
	TextAnchor  string
}

var rootStyle = Style{
	Fill:        "#000000",
	Stroke:      "none",
	StrokeWidth: 1,
	FontSize:    16,
	TextAnchor:  "start",
}

// Element is one drawable node of the render tree.
type Element struct {
	Kind  Kind
	ID    string
	Style Style
	// Clip is the polygon the element and its children are clipped to.
	Clip []diagram.Point

	X, Y, Width, Height float64
	X1, Y1, X2, Y2      float64
	Points              []diagram.Point
	Text                string

	Children []*Element
}

// Tree is an SVG document reduced to what the rasteriser draws.
type Tree struct {
	ViewBox  diagram.ViewBox
	Elements []*Element
}

type svgNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []svgNode  `xml:",any"`
}

func (n *svgNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func treeError(message string, cause error) error {
	b := ferrors.RasterError(message)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b.Build()
}

// ParseTree decodes SVG text produced by the diagram package.
func ParseTree(svg string) (*Tree, error) {
	var root svgNode
	if err := xml.Unmarshal([]byte(svg), &root); err != nil {
		return nil, treeError("Could not generate intermediate SVG", err)
	}
	if root.XMLName.Local != "svg" {
		return nil, treeError(fmt.Sprintf("unexpected root element %q", root.XMLName.Local), nil)
	}

	raw, _ := root.attr("viewBox")
	vb, err := parseViewBox(raw)
	if err != nil {
		return nil, err
	}

	clips := make(map[string][]diagram.Point)
	for i := range root.Children {
		if root.Children[i].XMLName.Local == "defs" {
			if err := collectClipPaths(&root.Children[i], clips); err != nil {
				return nil, err
			}
		}
	}

	p := treeParser{clips: clips}
	tree := &Tree{ViewBox: vb}
	for i := range root.Children {
		el, err := p.element(&root.Children[i], rootStyle)
		if err != nil {
			return nil, err
		}
		if el != nil {
			tree.Elements = append(tree.Elements, el)
		}
	}
	return tree, nil
}

func parseViewBox(raw string) (diagram.ViewBox, error) {
	fields := strings.Fields(raw)
	if len(fields) != 4 {
		return diagram.ViewBox{}, treeError(fmt.Sprintf("invalid viewBox %q", raw), nil)
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return diagram.ViewBox{}, treeError(fmt.Sprintf("invalid viewBox %q", raw), err)
		}
		v[i] = n
	}
	return diagram.ViewBox{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func collectClipPaths(defs *svgNode, into map[string][]diagram.Point) error {
	for _, cp := range defs.Children {
		if cp.XMLName.Local != "clipPath" {
			continue
		}
		id, _ := cp.attr("id")
		for _, shape := range cp.Children {
			if shape.XMLName.Local != "polygon" {
				continue
			}
			raw, _ := shape.attr("points")
			points, err := parsePolygon(raw)
			if err != nil {
				return err
			}
			into[id] = points
		}
	}
	return nil
}

// parsePolygon reads the SVG "x,y x,y" points syntax.
func parsePolygon(raw string) ([]diagram.Point, error) {
	var points []diagram.Point
	for _, pair := range strings.Fields(raw) {
		xs, ys, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, treeError(fmt.Sprintf("invalid polygon point %q", pair), nil)
		}
		x, errX := strconv.ParseFloat(xs, 64)
		y, errY := strconv.ParseFloat(ys, 64)
		if errX != nil || errY != nil {
			return nil, treeError(fmt.Sprintf("invalid polygon point %q", pair), nil)
		}
		points = append(points, diagram.Point{X: x, Y: y})
	}
	return points, nil
}

type treeParser struct {
	clips map[string][]diagram.Point
}

func (p treeParser) element(n *svgNode, inherited Style) (*Element, error) {
	var kind Kind
	switch n.XMLName.Local {
	case "g":
		kind = KindGroup
	case "rect":
		kind = KindRect
	case "line":
		kind = KindLine
	case "polygon":
		kind = KindPolygon
	case "text":
		kind = KindText
	default:
		// defs and anything else are not drawn.
		return nil, nil
	}

	style, err := applyStyle(n, inherited)
	if err != nil {
		return nil, err
	}
	el := &Element{Kind: kind, Style: style}
	el.ID, _ = n.attr("id")

	if ref, ok := n.attr("clip-path"); ok {
		id := strings.TrimSuffix(strings.TrimPrefix(ref, "url(#"), ")")
		clip, found := p.clips[id]
		if !found {
			return nil, treeError(fmt.Sprintf("unknown clip path %q", ref), nil)
		}
		el.Clip = clip
	}

	nums := numbers{n: n}
	switch kind {
	case KindRect:
		el.X, el.Y, el.Width, el.Height = nums.get("x"), nums.get("y"), nums.get("width"), nums.get("height")
	case KindLine:
		el.X1, el.Y1, el.X2, el.Y2 = nums.get("x1"), nums.get("y1"), nums.get("x2"), nums.get("y2")
	case KindPolygon:
		raw, _ := n.attr("points")
		if el.Points, err = parsePolygon(raw); err != nil {
			return nil, err
		}
	case KindText:
		el.X, el.Y = nums.get("x"), nums.get("y")
		el.Text = n.Text
	}
	if nums.err != nil {
		return nil, nums.err
	}

	for i := range n.Children {
		child, err := p.element(&n.Children[i], style)
		if err != nil {
			return nil, err
		}
		if child != nil {
			el.Children = append(el.Children, child)
		}
	}
	return el, nil
}

func applyStyle(n *svgNode, s Style) (Style, error) {
	if v, ok := n.attr("fill"); ok {
		s.Fill = v
	}
	if v, ok := n.attr("stroke"); ok {
		s.Stroke = v
	}
	if v, ok := n.attr("text-anchor"); ok {
		s.TextAnchor = v
	}
	nums := numbers{n: n}
	if _, ok := n.attr("stroke-width"); ok {
		s.StrokeWidth = nums.get("stroke-width")
	}
	if _, ok := n.attr("font-size"); ok {
		s.FontSize = nums.get("font-size")
	}
	return s, nums.err
}

// numbers reads float attributes, keeping the first failure.
type numbers struct {
	n   *svgNode
	err error
}

func (r *numbers) get(name string) float64 {
	raw, ok := r.n.attr(name)
	if !ok || r.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.err = treeError(fmt.Sprintf("invalid %s on <%s>", name, r.n.XMLName.Local), err)
		return 0
	}
	return v
}
