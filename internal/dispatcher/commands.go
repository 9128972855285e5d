package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/manyvis/internal/diagram"
	"git.home.luguber.info/inful/manyvis/internal/export"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/logfields"
	"git.home.luguber.info/inful/manyvis/internal/manycore"
	"git.home.luguber.info/inful/manyvis/internal/state"
)

// Parse loads the system at path, replacing the current one. The diagram
// is left as it is until the next GetDiagram.
func (d *Dispatcher) Parse(ctx context.Context, path string) Result {
	return d.run(ctx, "parse", func(ctx context.Context) (Result, error) {
		sys, err := d.parser.ParseFile(path)
		if err != nil {
			return Result{}, err
		}
		err = d.store.WithSystem(ctx, state.Blocking, func(slot *state.Slot[*manycore.System]) error {
			slot.Replace(sys)
			return nil
		})
		if err != nil {
			return Result{}, err
		}
		slog.Info("Parsed system", logfields.Path(path), slog.Int("rows", sys.Rows), slog.Int("columns", sys.Columns))
		if d.onParse != nil {
			d.onParse(path)
		}
		return success("Successfully parsed file", nil), nil
	})
}

// GetDiagram regenerates the diagram from the loaded system with no
// configurable layers and returns it.
func (d *Dispatcher) GetDiagram(ctx context.Context) Result {
	return d.run(ctx, "get_diagram", func(ctx context.Context) (Result, error) {
		var content string
		err := d.store.WithSystemAndDiagram(ctx, state.Blocking, func(sys *state.Slot[*manycore.System], dia *state.Slot[*diagram.Diagram]) error {
			s, ok := sys.Get()
			if !ok {
				return notLoaded(msgLoadFirst)
			}
			var err error
			content, err = regenerate(s, dia)
			return err
		})
		if err != nil {
			return Result{}, err
		}
		return success(msgGeneratedOK, d.diagramPayload(content)), nil
	})
}

// regenerate builds a fresh diagram for s and stores it in dia.
func regenerate(s *manycore.System, dia *state.Slot[*diagram.Diagram]) (string, error) {
	fresh, err := diagram.New(s)
	if err != nil {
		return "", err
	}
	content, err := fresh.String()
	if err != nil {
		return "", err
	}
	dia.Replace(fresh)
	return content, nil
}

// UpdateDiagram applies a complete configuration to the diagram.
func (d *Dispatcher) UpdateDiagram(ctx context.Context, cfg diagram.Configuration, base diagram.BaseConfiguration) Result {
	return d.run(ctx, "update_diagram", func(ctx context.Context) (Result, error) {
		var update *diagram.UpdateResult
		err := d.store.WithSystemAndDiagram(ctx, state.Blocking, func(sys *state.Slot[*manycore.System], dia *state.Slot[*diagram.Diagram]) error {
			s, ok := sys.Get()
			if !ok {
				return notLoaded(msgLoadFirst)
			}
			current, ok := dia.Get()
			if !ok || current.Source() != s {
				// The system was replaced since the diagram was generated.
				fresh, err := diagram.New(s)
				if err != nil {
					return err
				}
				if update, err = fresh.Update(s, cfg, base); err != nil {
					return err
				}
				dia.Replace(fresh)
				return nil
			}
			var err error
			update, err = current.Update(s, cfg, base)
			return err
		})
		if err != nil {
			return Result{}, err
		}
		for _, id := range update.Added {
			slog.Debug("Layer added", logfields.Layer(id))
		}
		for _, id := range update.Removed {
			slog.Debug("Layer removed", logfields.Layer(id))
		}
		return success(msgGeneratedOK, update), nil
	})
}

// GetAttributes lists what a configuration may toggle for the loaded system.
func (d *Dispatcher) GetAttributes(ctx context.Context) Result {
	return d.run(ctx, "get_attributes", func(ctx context.Context) (Result, error) {
		var attrs *manycore.ConfigurableAttributes
		err := d.store.WithSystem(ctx, state.Blocking, func(slot *state.Slot[*manycore.System]) error {
			s, ok := slot.Get()
			if !ok {
				return notLoaded(msgLoadFirst)
			}
			attrs = s.ConfigurableAttributes()
			return nil
		})
		if err != nil {
			return Result{}, err
		}
		return success("Ok", attrs), nil
	})
}

// GetBaseConfiguration describes the diagram-wide settings and their ranges.
func (d *Dispatcher) GetBaseConfiguration(ctx context.Context) Result {
	return d.run(ctx, "get_base_configuration", func(context.Context) (Result, error) {
		return success("Successfully retrieved base configurable attributes.", diagram.ConfigurableBaseConfiguration()), nil
	})
}

// GetInfo returns every attribute of a core ("c<id>") or router ("r<id>").
func (d *Dispatcher) GetInfo(ctx context.Context, groupID string) Result {
	return d.run(ctx, "get_info", func(ctx context.Context) (Result, error) {
		var info map[string]string
		err := d.store.WithSystem(ctx, state.Blocking, func(slot *state.Slot[*manycore.System]) error {
			s, ok := slot.Get()
			if !ok {
				return notLoaded(msgMustLoad)
			}
			var err error
			info, err = s.Info(groupID)
			return err
		})
		if err != nil {
			return Result{}, err
		}
		slog.Debug("Retrieved element attributes", logfields.GroupID(groupID), slog.Int("attributes", len(info)))
		return success("Successfully retrieved attributes", info), nil
	})
}

// InitiateEdit runs the external editor round trip and returns the
// regenerated diagram.
func (d *Dispatcher) InitiateEdit(ctx context.Context) Result {
	return d.run(ctx, "initiate_edit", func(ctx context.Context) (Result, error) {
		if d.editor == nil {
			return Result{}, ferrors.ExternalToolUnavailable("Editing is not available.").Build()
		}
		res, err := d.editor.Edit(ctx)
		if err != nil {
			return Result{}, err
		}
		return success(msgGeneratedOK, d.diagramPayload(res.Content)), nil
	})
}

// ExportSystemText returns the canonical XML of the loaded system.
func (d *Dispatcher) ExportSystemText(ctx context.Context) Result {
	return d.run(ctx, "export_system_text", func(ctx context.Context) (Result, error) {
		text, err := d.systemText(ctx, state.Blocking)
		if err != nil {
			return Result{}, err
		}
		return success("Successfully exported XML.", text), nil
	})
}

func (d *Dispatcher) systemText(ctx context.Context, mode state.Mode) (string, error) {
	var text string
	err := d.store.WithSystem(ctx, mode, func(slot *state.Slot[*manycore.System]) error {
		s, ok := slot.Get()
		if !ok {
			return notLoaded(msgMustLoad)
		}
		var err error
		text, err = d.pipeline.ExportSystemText(s)
		return err
	})
	return text, err
}

// ExportRequest selects what ExportDiagram renders.
type ExportRequest struct {
	Clip *export.ClipRegion `json:"clipRegion,omitempty"`
	Mode export.RenderMode  `json:"mode"`
	// Scale defaults to the configured export scale when nil.
	Scale *float64 `json:"scale,omitempty"`
}

// ExportDiagram renders the current diagram and returns the artifact.
func (d *Dispatcher) ExportDiagram(ctx context.Context, req ExportRequest) Result {
	return d.run(ctx, "export_diagram", func(ctx context.Context) (Result, error) {
		artifact, err := d.render(ctx, state.Blocking, req)
		if err != nil {
			return Result{}, err
		}
		return success(artifact.Mode.SuccessMessage(), artifact), nil
	})
}

// render holds the diagram, and the font for rasters, only while producing
// the artifact bytes.
func (d *Dispatcher) render(ctx context.Context, mode state.Mode, req ExportRequest) (export.Artifact, error) {
	m, err := export.ParseRenderMode(string(req.Mode))
	if err != nil {
		return export.Artifact{}, err
	}
	req.Mode = m
	scale := d.defaultScale
	if req.Scale != nil {
		scale = *req.Scale
	}
	var artifact export.Artifact
	produce := func(dia *state.Slot[*diagram.Diagram], font *state.FontResource) error {
		current, ok := dia.Get()
		if !ok {
			return notLoaded(msgMustLoad)
		}
		var fonts export.FaceSource
		if font != nil {
			fonts = font
		}
		var err error
		artifact, err = d.pipeline.Render(req.Mode, current, req.Clip, fonts, scale)
		return err
	}

	switch req.Mode {
	case export.ModeSVG:
		err = d.store.WithDiagram(ctx, mode, func(dia *state.Slot[*diagram.Diagram]) error {
			return produce(dia, nil)
		})
	case export.ModePNG:
		err = d.store.WithDiagramAndFont(ctx, mode, produce)
	}
	if err != nil {
		return export.Artifact{}, err
	}
	d.recorder.ObserveExportBytes(string(artifact.Mode), len(artifact.Data))
	return artifact, nil
}

// StoreConfiguration writes a whole configuration document to the picked
// path. The bytes are written exactly as given.
func (d *Dispatcher) StoreConfiguration(ctx context.Context, raw []byte) Result {
	return d.run(ctx, "store_configuration", func(ctx context.Context) (Result, error) {
		if _, err := diagram.ParseWholeConfiguration(raw); err != nil {
			return Result{}, err
		}
		path, err := d.savePath(ctx, export.ConfigurationFilter)
		if err != nil {
			return Result{}, err
		}
		if path == "" {
			return success(msgCancelled, nil), nil
		}
		written, err := export.WriteFile(path, export.ConfigurationFilter.Extension, raw)
		if err != nil {
			return Result{}, ferrors.WrapError(err, ferrors.CategoryIO, fmt.Sprintf("Could not store configuration: %v", errors.Unwrap(err))).Build()
		}
		return success("Successfully exported configuration.", written), nil
	})
}

// LoadConfiguration reads and validates a configuration document from the
// picked path and returns its original bytes.
func (d *Dispatcher) LoadConfiguration(ctx context.Context) Result {
	return d.run(ctx, "load_configuration", func(ctx context.Context) (Result, error) {
		raw, err := d.loadConfiguration(ctx, state.Blocking)
		if err != nil {
			return Result{}, err
		}
		if raw == nil {
			return success(msgCancelled, nil), nil
		}
		return success("Successfully loaded configuration.", json.RawMessage(raw)), nil
	})
}

func (d *Dispatcher) loadConfiguration(ctx context.Context, mode state.Mode) ([]byte, error) {
	if err := d.requireDiagram(ctx, mode); err != nil {
		return nil, err
	}
	path, err := d.openPath(ctx, export.ConfigurationFilter)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryIO, fmt.Sprintf("Could not open configuration file: %v", err)).
			WithContext("path", path).
			Build()
	}
	if _, err := diagram.ParseWholeConfiguration(raw); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, fmt.Sprintf("Could not process provided configuration: %v", err)).
			WithContext("path", path).
			Build()
	}
	return raw, nil
}

func (d *Dispatcher) requireDiagram(ctx context.Context, mode state.Mode) error {
	return d.store.WithDiagram(ctx, mode, func(dia *state.Slot[*diagram.Diagram]) error {
		if _, ok := dia.Get(); !ok {
			return notLoaded(msgMustLoad)
		}
		return nil
	})
}

// filePicker prefers a picker carried by ctx over the configured one.
func (d *Dispatcher) filePicker(ctx context.Context) (export.FilePicker, error) {
	if p, ok := export.PickerFromContext(ctx); ok {
		return p, nil
	}
	if d.picker == nil {
		return nil, ferrors.ExternalToolUnavailable("No file picker is available.").Build()
	}
	return d.picker, nil
}

func (d *Dispatcher) savePath(ctx context.Context, filter export.Filter) (string, error) {
	p, err := d.filePicker(ctx)
	if err != nil {
		return "", err
	}
	return p.SavePath(ctx, filter)
}

func (d *Dispatcher) openPath(ctx context.Context, filter export.Filter) (string, error) {
	p, err := d.filePicker(ctx)
	if err != nil {
		return "", err
	}
	return p.OpenPath(ctx, filter)
}
