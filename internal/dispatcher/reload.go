package dispatcher

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/manyvis/internal/diagram"
	"git.home.luguber.info/inful/manyvis/internal/logfields"
	"git.home.luguber.info/inful/manyvis/internal/manycore"
	"git.home.luguber.info/inful/manyvis/internal/state"
)

const reloadMode = state.Blocking

// Reload reparses path after it changed on disk and regenerates the
// diagram. The previous configuration is re-applied when it still fits the
// new system; otherwise the diagram comes back with base layers only.
//
// Unlike the other triggers Reload waits for the locks: the file change
// will not be reported again, so giving up would keep the stale system
// loaded until the next write.
func (d *Dispatcher) Reload(ctx context.Context, path string) {
	d.trigger(ctx, "reload", func(ctx context.Context) error {
		sys, err := d.parser.ParseFile(path)
		if err != nil {
			return err
		}
		var content string
		err = d.store.WithSystemAndDiagram(ctx, reloadMode, func(slot *state.Slot[*manycore.System], dia *state.Slot[*diagram.Diagram]) error {
			fresh, err := diagram.New(sys)
			if err != nil {
				return err
			}
			if previous, ok := dia.Get(); ok {
				if _, err := fresh.Update(sys, previous.Configuration(), previous.BaseConfiguration()); err != nil {
					slog.Warn("Dropping configuration that no longer fits the system", logfields.Path(path), logfields.Error(err))
				}
			}
			if content, err = fresh.String(); err != nil {
				return err
			}
			slot.Replace(sys)
			dia.Replace(fresh)
			return nil
		})
		if err != nil {
			return err
		}
		slog.Info("Reloaded system", logfields.Path(path))
		d.emit(EventSystemReloaded, "Successfully parsed file", d.diagramPayload(content))
		return nil
	})
}
