package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/manyvis/internal/diagram"
	"git.home.luguber.info/inful/manyvis/internal/export"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/logfields"
	"git.home.luguber.info/inful/manyvis/internal/state"
)

// Trigger names accepted by RunTrigger.
const (
	TriggerExportSystemText    = "export_system_text"
	TriggerExportConfiguration = "export_configuration"
	TriggerLoadConfiguration   = "load_configuration"
	TriggerExportDiagram       = "export_diagram"
)

// RunTrigger starts the named trigger. Its outcome is reported as events.
func (d *Dispatcher) RunTrigger(ctx context.Context, name string, req ExportRequest) error {
	switch name {
	case TriggerExportSystemText:
		d.TriggerExportSystemText(ctx)
	case TriggerExportConfiguration:
		d.TriggerExportConfiguration(ctx)
	case TriggerLoadConfiguration:
		d.TriggerLoadConfiguration(ctx)
	case TriggerExportDiagram:
		d.TriggerExportDiagram(ctx, req)
	default:
		return ferrors.ValidationError(fmt.Sprintf("unknown trigger %q", name)).
			WithContext("trigger", name).
			Build()
	}
	return nil
}

// TriggerExportSystemText writes the system XML to a picked path.
func (d *Dispatcher) TriggerExportSystemText(ctx context.Context) {
	d.trigger(ctx, TriggerExportSystemText, func(ctx context.Context) error {
		text, err := d.systemText(ctx, state.NonBlocking)
		if err != nil {
			return err
		}
		path, err := d.savePath(ctx, export.SystemFilter)
		if err != nil || path == "" {
			return err
		}
		if _, err := export.WriteFile(path, export.SystemFilter.Extension, []byte(text)); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryIO, fmt.Sprintf("Could not write XML to disk: %v", errors.Unwrap(err))).Build()
		}
		d.emit(EventOK, "Successfully exported XML.", nil)
		return nil
	})
}

// TriggerExportConfiguration emits the diagram's current configuration so
// the client can hand it back to StoreConfiguration.
func (d *Dispatcher) TriggerExportConfiguration(ctx context.Context) {
	d.trigger(ctx, TriggerExportConfiguration, func(ctx context.Context) error {
		var whole diagram.WholeConfiguration
		err := d.store.WithDiagram(ctx, state.NonBlocking, func(dia *state.Slot[*diagram.Diagram]) error {
			current, ok := dia.Get()
			if !ok {
				return notLoaded(msgMustLoad)
			}
			whole = diagram.WholeConfiguration{
				BaseConfiguration: current.BaseConfiguration(),
				Configuration:     current.Configuration(),
			}
			return nil
		})
		if err != nil {
			return err
		}
		d.emit(EventExportConfig, "", whole)
		return nil
	})
}

// TriggerLoadConfiguration reads a configuration from a picked path and
// emits its original bytes.
func (d *Dispatcher) TriggerLoadConfiguration(ctx context.Context) {
	d.trigger(ctx, TriggerLoadConfiguration, func(ctx context.Context) error {
		raw, err := d.loadConfiguration(ctx, state.NonBlocking)
		if err != nil || raw == nil {
			return err
		}
		d.emit(EventLoadConfig, "", json.RawMessage(raw))
		return nil
	})
}

// TriggerExportDiagram renders the diagram, releases every lock, then asks
// where to write it. Nothing is written when rendering fails.
func (d *Dispatcher) TriggerExportDiagram(ctx context.Context, req ExportRequest) {
	d.trigger(ctx, TriggerExportDiagram, func(ctx context.Context) error {
		artifact, err := d.render(ctx, state.NonBlocking, req)
		if err != nil {
			return err
		}
		path, err := d.savePath(ctx, artifact.Mode.Filter())
		if err != nil {
			return err
		}
		if path == "" {
			slog.Debug("Export cancelled", logfields.Command(TriggerExportDiagram))
			return nil
		}
		written, err := export.WriteArtifact(path, artifact)
		if err != nil {
			return err
		}
		slog.Info("Exported diagram", logfields.Path(written), logfields.Mode(string(artifact.Mode)), logfields.Bytes(len(artifact.Data)))
		d.emit(EventOK, artifact.Mode.SuccessMessage(), nil)
		return nil
	})
}
