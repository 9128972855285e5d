package diagram

import (
	"sort"
	"strconv"
	"strings"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/manycore"
)

// Diagram is the vector representation of a system: fixed base geometry,
// configurable layers, a mutable viewport and an optional transient clip.
type Diagram struct {
	source *manycore.System
	layout layout

	bounds  ViewBox
	viewBox ViewBox
	clip    []Point

	cores, routers, channels, tasks *node

	configuration Configuration
	args          map[string]layerSpec
	layers        map[string]*node
	base          BaseConfiguration
}

// New lays out sys with no configurable layers enabled.
func New(sys *manycore.System) (*Diagram, error) {
	if sys == nil {
		return nil, ferrors.NotLoaded("Load a system before generating a render.").Build()
	}
	l := layout{rows: sys.Rows, columns: sys.Columns}
	d := &Diagram{
		source: sys,
		layout: l,
		bounds: l.bounds(),
		args:   make(map[string]layerSpec),
		layers: make(map[string]*node),
		base:   DefaultBaseConfiguration(),
	}
	d.viewBox = d.bounds

	d.cores = el("g", "id", "cores", "fill", coreFill, "stroke", outlineColour, "stroke-width", "1")
	d.routers = el("g", "id", "routers", "fill", routerFill, "stroke", outlineColour, "stroke-width", "1")
	d.channels = el("g", "id", "channels", "fill", "none", "stroke", outlineColour, "stroke-width", "2")
	d.tasks = el("g", "id", "tasks", "fill", textColour, "text-anchor", "middle")

	for _, c := range sys.Cores.Core {
		d.cores.add(l.coreRect(c.ID).node(manycore.CoreGroupID(c.ID)))
		d.routers.add(l.routerRect(c.ID).node(manycore.RouterGroupID(c.ID)))
		for _, ch := range c.Channels.Channel {
			to, ok := sys.Neighbour(c.ID, ch.Direction)
			if !ok {
				continue
			}
			seg := l.channel(c.ID, to, ch.Direction)
			d.channels.add(el("line",
				"id", channelID(c.ID, ch.Direction),
				"x1", num(seg.From.X), "y1", num(seg.From.Y),
				"x2", num(seg.To.X), "y2", num(seg.To.Y),
			))
		}
		if c.AllocatedTask != nil {
			r := l.coreRect(c.ID)
			d.tasks.add(text(r.X+CoreSide/2, r.Y+CoreSide-2*textInset, "T"+strconv.Itoa(*c.AllocatedTask)))
		}
	}
	d.applyFont()
	return d, nil
}

// Source is the system the diagram was generated from.
func (d *Diagram) Source() *manycore.System { return d.source }

// Viewport exposes the mutable viewport for Swap/RestoreFrom.
func (d *Diagram) Viewport() *ViewBox { return &d.viewBox }

// Bounds is the full extent of the laid-out grid.
func (d *Diagram) Bounds() ViewBox { return d.bounds }

// Configuration is the configuration last applied.
func (d *Diagram) Configuration() Configuration { return d.configuration }

// BaseConfiguration is the base configuration last applied.
func (d *Diagram) BaseConfiguration() BaseConfiguration {
	out := make(BaseConfiguration, len(d.base))
	for k, v := range d.base {
		out[k] = v
	}
	return out
}

// Layers lists the enabled configurable layer ids in document order.
func (d *Diagram) Layers() []string { return d.layerOrder() }

// SetFreeformClip injects a clip polygon applied to the whole content.
func (d *Diagram) SetFreeformClip(points []Point) {
	d.clip = append([]Point(nil), points...)
}

// ClearFreeformClip removes any injected clip polygon.
func (d *Diagram) ClearFreeformClip() {
	d.clip = nil
}

// HasClip reports whether a clip polygon is injected.
func (d *Diagram) HasClip() bool { return len(d.clip) > 0 }

func (d *Diagram) fontSize() string { return num(d.base[FontSizeKey]) }

func (d *Diagram) applyFont() {
	d.tasks.set("font-size", d.fontSize()).set("font-family", fontFamily)
}

func (d *Diagram) informationGroup() *node {
	return el("g", "id", "information", "fill", textColour, "font-size", d.fontSize(), "font-family", fontFamily)
}

func isFillLayer(id string) bool { return strings.HasPrefix(id, fillPrefix) }

// layerOrder sorts fills first (attribute fills before overrides so manual
// overrides paint last), then information layers by id.
func (d *Diagram) layerOrder() []string {
	ids := make([]string, 0, len(d.layers))
	for id := range d.layers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ri, rj := layerRank(ids[i]), layerRank(ids[j])
		if ri != rj {
			return ri < rj
		}
		return ids[i] < ids[j]
	})
	return ids
}

func layerRank(id string) int {
	switch {
	case strings.HasPrefix(id, overridePrefix):
		return 1
	case isFillLayer(id):
		return 0
	default:
		return 2
	}
}
