package diagram

import (
	"strconv"

	"git.home.luguber.info/inful/manyvis/internal/manycore"
)

// Grid geometry in viewBox units.
const (
	CoreSide      = 100.0
	RouterSide    = 40.0
	RouterGap     = 10.0
	Spacing       = 200.0
	Margin        = 30.0
	LineHeight    = 18.0
	channelOffset = 5.0
	textInset     = 5.0
)

const (
	coreFill      = "#e8e8e8"
	routerFill    = "#ffffff"
	outlineColour = "#000000"
	textColour    = "#000000"
	highlight     = "#d32f2f"
	fontFamily    = "Go Mono"
)

type rect struct {
	X, Y, W, H float64
}

func (r rect) node(id string) *node {
	n := el("rect")
	if id != "" {
		n.set("id", id)
	}
	return n.set("x", num(r.X)).set("y", num(r.Y)).set("width", num(r.W)).set("height", num(r.H))
}

type segment struct {
	From, To Point
}

func (s segment) mid() Point {
	return Point{X: (s.From.X + s.To.X) / 2, Y: (s.From.Y + s.To.Y) / 2}
}

type layout struct {
	rows, columns int
}

func (l layout) coreRect(id int) rect {
	row, col := id/l.columns, id%l.columns
	return rect{
		X: Margin + float64(col)*Spacing,
		Y: Margin + RouterSide + RouterGap + float64(row)*Spacing,
		W: CoreSide,
		H: CoreSide,
	}
}

func (l layout) routerRect(id int) rect {
	c := l.coreRect(id)
	return rect{X: c.X + CoreSide + RouterGap, Y: c.Y - RouterSide - RouterGap, W: RouterSide, H: RouterSide}
}

func (l layout) routerCentre(id int) Point {
	r := l.routerRect(id)
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// channel returns the line drawn for the channel leaving id towards dir.
// The two channels between a pair of routers are offset to either side.
func (l layout) channel(id, to int, dir manycore.Direction) segment {
	from, dest := l.routerCentre(id), l.routerCentre(to)
	var dx, dy float64
	switch dir {
	case manycore.East:
		dy = -channelOffset
	case manycore.West:
		dy = channelOffset
	case manycore.South:
		dx = channelOffset
	case manycore.North:
		dx = -channelOffset
	}
	return segment{
		From: Point{X: from.X + dx, Y: from.Y + dy},
		To:   Point{X: dest.X + dx, Y: dest.Y + dy},
	}
}

func (l layout) bounds() ViewBox {
	last := l.coreRect(l.rows*l.columns - 1)
	return ViewBox{
		X:      0,
		Y:      0,
		Width:  last.X + CoreSide + RouterGap + RouterSide + Margin,
		Height: last.Y + CoreSide + Margin,
	}
}

func channelID(core int, dir manycore.Direction) string {
	return "ch" + strconv.Itoa(core) + "-" + string(dir)
}
