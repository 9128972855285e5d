package diagram

import (
	"math"
	"sort"
	"strconv"
	"strings"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/manycore"
)

const (
	infoPrefix     = "information-"
	fillPrefix     = "fill-"
	overridePrefix = "fill-overrides-"
)

const (
	groupCore    = "core"
	groupRouter  = "router"
	groupChannel = "channel"
)

// layerSpec is everything a configurable layer is derived from. Equal specs
// produce identical layers.
type layerSpec struct {
	group     string
	attr      string
	arg       ItemArgument
	overrides string
}

func layerID(group, attr string, arg ItemArgument) string {
	name := strings.TrimPrefix(attr, "@")
	if arg.Type == ArgFill {
		return fillPrefix + group + "-" + name
	}
	return infoPrefix + group + "-" + name
}

func invalidConfiguration(message, where string) *ferrors.ErrorBuilder {
	return ferrors.ValidationError(message).WithContext("configuration", where)
}

// specs validates cfg against the attributes derived from sys and returns
// the layers it enables keyed by layer id.
func specs(sys *manycore.System, attrs *manycore.ConfigurableAttributes, cfg Configuration) (map[string]layerSpec, error) {
	out := make(map[string]layerSpec)
	groups := []struct {
		name  string
		items ItemConfiguration
	}{
		{groupCore, cfg.CoreConfig},
		{groupRouter, cfg.RouterConfig},
		{groupChannel, cfg.ChannelConfig},
	}
	for _, g := range groups {
		available, _ := attrs.Group(g.name)
		fills := 0
		for _, key := range sortedKeys(g.items) {
			arg := g.items[key]
			where := g.name + "." + key
			attr, ok := available[key]
			if !ok {
				return nil, invalidConfiguration("unknown attribute", where).Build()
			}
			if err := checkArgument(g.name, attr.Type, arg, attrs, where); err != nil {
				return nil, err
			}
			if arg.Type == ArgBoolean && !arg.Value {
				continue
			}
			if arg.Type == ArgFill {
				fills++
				if fills > 1 {
					return nil, invalidConfiguration("only one fill per group", where).Build()
				}
			}
			out[layerID(g.name, key, arg)] = layerSpec{group: g.name, attr: key, arg: arg}
		}
	}

	for _, o := range []struct {
		group string
		fills map[string]string
	}{{groupCore, cfg.CoreFills}, {groupRouter, cfg.RouterFills}} {
		if len(o.fills) == 0 {
			continue
		}
		var parts []string
		for _, key := range sortedKeys(o.fills) {
			where := o.group + "Fills." + key
			id, err := strconv.Atoi(key)
			if err != nil {
				return nil, invalidConfiguration("invalid fill override id", where).Build()
			}
			if _, ok := sys.Core(id); !ok {
				return nil, invalidConfiguration("fill override for unknown element", where).Build()
			}
			if !validColour(o.fills[key]) {
				return nil, invalidConfiguration("invalid colour", where).Build()
			}
			parts = append(parts, key+"="+o.fills[key])
		}
		out[overridePrefix+o.group] = layerSpec{group: o.group, overrides: strings.Join(parts, ";")}
	}
	return out, nil
}

func checkArgument(group string, attrType manycore.AttributeType, arg ItemArgument, attrs *manycore.ConfigurableAttributes, where string) error {
	mismatch := func() error {
		return invalidConfiguration("argument type does not fit attribute", where).
			WithContext("type", string(arg.Type)).
			WithContext("attribute_type", string(attrType)).
			Build()
	}
	switch arg.Type {
	case ArgText:
		switch attrType {
		case manycore.AttributeNumber, manycore.AttributeText, manycore.AttributeBoolean:
		default:
			return mismatch()
		}
		if arg.Colour != "" && !validColour(arg.Colour) {
			return invalidConfiguration("invalid colour", where).Build()
		}
	case ArgColouredText, ArgFill:
		if attrType != manycore.AttributeNumber {
			return mismatch()
		}
		if arg.Type == ArgFill && group == groupChannel {
			return invalidConfiguration("channels cannot be filled", where).Build()
		}
		if err := checkColourScale(arg, where); err != nil {
			return err
		}
	case ArgBoolean:
		if attrType != manycore.AttributeBoolean {
			return mismatch()
		}
	case ArgCoordinates:
		if attrType != manycore.AttributeCoordinates {
			return mismatch()
		}
		if arg.Orientation != OrientationTop && arg.Orientation != OrientationBottom {
			return invalidConfiguration("invalid coordinates orientation", where).Build()
		}
	case ArgRouting:
		if attrType != manycore.AttributeRouting {
			return mismatch()
		}
		known := false
		for _, a := range attrs.Algorithms {
			known = known || a == arg.Algorithm
		}
		if !known {
			return invalidConfiguration("unknown routing algorithm", where).
				WithContext("algorithm", arg.Algorithm).
				Build()
		}
		if arg.LoadConfiguration != LoadPercentage && arg.LoadConfiguration != LoadFraction {
			return invalidConfiguration("invalid load configuration", where).Build()
		}
		if err := checkColourScale(arg, where); err != nil {
			return err
		}
	default:
		return invalidConfiguration("unknown argument type", where).
			WithContext("type", string(arg.Type)).
			Build()
	}
	return nil
}

func checkColourScale(arg ItemArgument, where string) error {
	for i, b := range arg.Bounds {
		if math.IsNaN(b) || math.IsInf(b, 0) || (i > 0 && b < arg.Bounds[i-1]) {
			return invalidConfiguration("colour bounds must be finite and ascending", where).Build()
		}
	}
	for _, c := range arg.Colours {
		if !validColour(c) {
			return invalidConfiguration("invalid colour", where).Build()
		}
	}
	return nil
}

// build renders the layer for spec. The line a text layer occupies is the
// attribute's position among its group's keys, so enabling one layer never
// moves another.
func (d *Diagram) build(sys *manycore.System, attrs *manycore.ConfigurableAttributes, id string, spec layerSpec) (*node, error) {
	layer := el("g", "id", id)
	if spec.overrides != "" {
		d.buildOverrides(sys, layer, spec)
		return layer, nil
	}

	available, _ := attrs.Group(spec.group)
	line := 0
	for i, k := range sortedKeys(available) {
		if k == spec.attr {
			line = i
		}
	}

	switch spec.arg.Type {
	case ArgFill:
		layer.set("stroke", outlineColour).set("stroke-width", "1")
	case ArgBoolean:
		layer.set("fill", "none").set("stroke", highlight).set("stroke-width", "3")
	case ArgText:
		if spec.arg.Colour != "" {
			layer.set("fill", spec.arg.Colour)
		}
	}

	if spec.arg.Type == ArgRouting {
		return layer, d.buildRouting(sys, layer, spec.arg)
	}

	for _, c := range sys.Cores.Core {
		switch spec.group {
		case groupCore:
			value, ok := c.Attributes()[spec.attr]
			if spec.arg.Type == ArgCoordinates {
				value, ok = d.coordinates(c.ID, spec.arg.Orientation), true
			}
			if !ok {
				continue
			}
			r := d.layout.coreRect(c.ID)
			layer.add(d.element(spec.arg, value, r, Point{X: r.X + textInset, Y: r.Y + LineHeight*float64(line+1)}, ""))
		case groupRouter:
			value, ok := c.Router.Attributes()[spec.attr]
			if !ok {
				continue
			}
			r := d.layout.routerRect(c.ID)
			layer.add(d.element(spec.arg, value, r, Point{X: r.X + RouterSide + textInset, Y: r.Y + LineHeight*float64(line+1)}, ""))
		case groupChannel:
			for _, ch := range c.Channels.Channel {
				value, ok := ch.Attributes()[spec.attr]
				if !ok {
					continue
				}
				to, ok := sys.Neighbour(c.ID, ch.Direction)
				if !ok {
					continue
				}
				seg := d.layout.channel(c.ID, to, ch.Direction)
				at, anchor := channelTextPosition(seg, ch.Direction, line)
				if spec.arg.Type == ArgBoolean {
					if value == "true" {
						layer.add(el("line", "x1", num(seg.From.X), "y1", num(seg.From.Y), "x2", num(seg.To.X), "y2", num(seg.To.Y)))
					}
					continue
				}
				layer.add(d.element(spec.arg, value, rect{}, at, anchor))
			}
		}
	}
	return layer, nil
}

// element draws one core/router/channel entry of a layer, or nothing.
func (d *Diagram) element(arg ItemArgument, value string, box rect, at Point, anchor string) *node {
	var n *node
	switch arg.Type {
	case ArgFill:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil
		}
		n = box.node("").set("fill", colourFor(v, arg.Bounds, arg.Colours))
	case ArgBoolean:
		if value != "true" {
			return nil
		}
		n = box.node("")
	case ArgColouredText:
		n = text(at.X, at.Y, label(arg.Display, value))
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			n.set("fill", colourFor(v, arg.Bounds, arg.Colours))
		}
	default:
		n = text(at.X, at.Y, label(arg.Display, value))
	}
	if anchor != "" {
		n.set("text-anchor", anchor)
	}
	return n
}

func (d *Diagram) buildRouting(sys *manycore.System, layer *node, arg ItemArgument) error {
	loads, err := sys.ChannelLoads(arg.Algorithm)
	if err != nil {
		return err
	}
	for _, c := range sys.Cores.Core {
		for _, ch := range c.Channels.Channel {
			to, ok := sys.Neighbour(c.ID, ch.Direction)
			if !ok || ch.Bandwidth == 0 {
				continue
			}
			load := loads[manycore.ChannelKey{Core: c.ID, Direction: ch.Direction}]
			percentage := load / ch.Bandwidth * 100
			value := num(math.Round(percentage)) + "%"
			if arg.LoadConfiguration == LoadFraction {
				value = num(load) + "/" + num(ch.Bandwidth)
			}
			seg := d.layout.channel(c.ID, to, ch.Direction)
			at, anchor := channelTextPosition(seg, ch.Direction, 0)
			n := text(at.X, at.Y, label(arg.Display, value)).set("fill", colourFor(percentage, arg.Bounds, arg.Colours))
			if anchor != "" {
				n.set("text-anchor", anchor)
			}
			layer.add(n)
		}
	}
	return nil
}

func (d *Diagram) buildOverrides(sys *manycore.System, layer *node, spec layerSpec) {
	layer.set("stroke", outlineColour).set("stroke-width", "1")
	for _, entry := range strings.Split(spec.overrides, ";") {
		key, colour, _ := strings.Cut(entry, "=")
		id, _ := strconv.Atoi(key)
		if _, ok := sys.Core(id); !ok {
			continue
		}
		box := d.layout.coreRect(id)
		if spec.group == groupRouter {
			box = d.layout.routerRect(id)
		}
		layer.add(box.node("").set("fill", colour))
	}
}

func (d *Diagram) coordinates(id int, orientation string) string {
	row, col := id/d.layout.columns, id%d.layout.columns
	if orientation == OrientationBottom {
		row = d.layout.rows - 1 - row
	}
	return "(" + strconv.Itoa(col) + "," + strconv.Itoa(row) + ")"
}

// channelTextPosition places the line-th label of a channel beside it, on
// the side matching the channel's offset.
func channelTextPosition(seg segment, dir manycore.Direction, line int) (Point, string) {
	m := seg.mid()
	step := LineHeight * float64(line)
	switch dir {
	case manycore.East:
		return Point{X: m.X, Y: m.Y - textInset - step}, "middle"
	case manycore.West:
		return Point{X: m.X, Y: m.Y + LineHeight + step}, "middle"
	case manycore.South:
		return Point{X: m.X + textInset, Y: m.Y + step}, ""
	default:
		return Point{X: m.X - textInset, Y: m.Y + step}, "end"
	}
}

func label(display, value string) string {
	if display == "" {
		return value
	}
	return display + ": " + value
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
