package commands

import (
	"fmt"
	"math"
	"os"

	"git.home.luguber.info/inful/manyvis/internal/diagram"
	"git.home.luguber.info/inful/manyvis/internal/dispatcher"
	"git.home.luguber.info/inful/manyvis/internal/export"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// RenderCmd implements the 'render' command.
type RenderCmd struct {
	System        string  `arg:"" type:"existingfile" help:"System description file"`
	Output        string  `short:"o" help:"Output file; the extension follows the mode" default:"diagram"`
	Mode          string  `short:"m" help:"Output format (svg or png)" default:"svg"`
	Scale         float64 `short:"s" help:"Raster scale; the configured default when unset"`
	Configuration string  `name:"configuration" type:"existingfile" help:"Stored configuration to apply before rendering"`
	Clip          string  `help:"Clip polygon as 'x y, x y, ...' (or SVG 'x,y x,y ...') in diagram coordinates"`
}

func (r *RenderCmd) Run(g *Global, _ *CLI) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	mode, err := export.ParseRenderMode(r.Mode)
	if err != nil {
		return err
	}
	req := dispatcher.ExportRequest{Mode: mode}
	if r.Scale != 0 {
		req.Scale = &r.Scale
	}
	if r.Clip != "" {
		if req.Clip, err = ClipFromPolygon(r.Clip); err != nil {
			return err
		}
	}

	ctx, cancel := commandContext()
	defer cancel()
	sess, err := newSession(cfg, nil)
	if err != nil {
		return err
	}
	if err := sess.load(ctx, r.System); err != nil {
		return err
	}
	if r.Configuration != "" {
		raw, err := os.ReadFile(r.Configuration)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryIO, fmt.Sprintf("Could not open configuration file: %v", err)).Build()
		}
		whole, err := diagram.ParseWholeConfiguration(raw)
		if err != nil {
			return err
		}
		if err := check(sess.dispatcher.UpdateDiagram(ctx, whole.Configuration, whole.BaseConfiguration)); err != nil {
			return err
		}
	}

	res := sess.dispatcher.ExportDiagram(ctx, req)
	if err := check(res); err != nil {
		return err
	}
	written, err := export.WriteArtifact(r.Output, res.Payload.(export.Artifact))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(g.Out, written)
	return nil
}

// ClipFromPolygon builds a clip region whose rectangle is the bounding box
// of the polygon.
func ClipFromPolygon(polygon string) (*export.ClipRegion, error) {
	points, err := diagram.ParsePoints(polygon)
	if err != nil {
		return nil, err
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return &export.ClipRegion{
		ClipPath: diagram.FormatClipPath(points),
		X:        minX,
		Y:        minY,
		Width:    maxX - minX,
		Height:   maxY - minY,
	}, nil
}
