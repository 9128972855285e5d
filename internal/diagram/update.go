package diagram

import (
	"maps"
	"sort"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/manycore"
)

// UpdateResult describes what an update changed so a client holding the
// previous SVG can patch it instead of reloading.
type UpdateResult struct {
	Added             []string          `json:"added"`
	Removed           []string          `json:"removed"`
	Fragments         map[string]string `json:"fragments"`
	BaseConfiguration BaseConfiguration `json:"baseConfiguration"`
	FontSize          string            `json:"fontSize"`
	ViewBox           string            `json:"viewBox"`
}

// Update applies a complete configuration. The caller must hold the system
// and diagram locks. Every toggle is checked against the attributes derived
// from sys; on any error the diagram is left untouched. Only layers whose
// arguments changed are rebuilt; geometry and viewport are not touched.
func (d *Diagram) Update(sys *manycore.System, cfg Configuration, base BaseConfiguration) (*UpdateResult, error) {
	if sys == nil {
		return nil, ferrors.NotLoaded("Load a system before generating a render.").Build()
	}
	resolved, err := ResolveBase(base)
	if err != nil {
		return nil, err
	}
	attrs := sys.ConfigurableAttributes()
	wanted, err := specs(sys, attrs, cfg)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{
		Added:     []string{},
		Removed:   []string{},
		Fragments: make(map[string]string),
	}
	built := make(map[string]*node)
	for _, id := range sortedKeys(wanted) {
		spec := wanted[id]
		old, existed := d.args[id]
		if existed && old == spec {
			continue
		}
		layer, err := d.build(sys, attrs, id, spec)
		if err != nil {
			return nil, err
		}
		frag, err := fragment(layer)
		if err != nil {
			return nil, err
		}
		built[id] = layer
		result.Added = append(result.Added, id)
		result.Fragments[id] = frag
		if existed {
			result.Removed = append(result.Removed, id)
		}
	}
	for id := range d.args {
		if _, keep := wanted[id]; !keep {
			result.Removed = append(result.Removed, id)
		}
	}
	sort.Strings(result.Removed)

	// Commit: nothing below can fail.
	for _, id := range result.Removed {
		delete(d.layers, id)
		delete(d.args, id)
	}
	for id, layer := range built {
		d.layers[id] = layer
		d.args[id] = wanted[id]
	}
	d.configuration = cloneConfiguration(cfg)
	d.base = resolved
	d.applyFont()

	result.BaseConfiguration = d.BaseConfiguration()
	result.FontSize = d.fontSize()
	result.ViewBox = d.viewBox.String()
	return result, nil
}

func cloneConfiguration(cfg Configuration) Configuration {
	return Configuration{
		CoreConfig:    maps.Clone(cfg.CoreConfig),
		RouterConfig:  maps.Clone(cfg.RouterConfig),
		ChannelConfig: maps.Clone(cfg.ChannelConfig),
		CoreFills:     maps.Clone(cfg.CoreFills),
		RouterFills:   maps.Clone(cfg.RouterFills),
	}
}
