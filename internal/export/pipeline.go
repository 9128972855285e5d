package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math"

	"git.home.luguber.info/inful/manyvis/internal/diagram"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/logfields"
	"git.home.luguber.info/inful/manyvis/internal/manycore"
)

// DefaultMaxPixels bounds a raster allocation at 64 Mpx (256 MiB RGBA).
const DefaultMaxPixels = 1 << 26

// Pipeline renders exports. It holds no diagram state; callers pass the
// diagram in while holding its lock.
type Pipeline struct {
	MaxPixels int
}

// NewPipeline creates a pipeline; maxPixels <= 0 selects DefaultMaxPixels.
func NewPipeline(maxPixels int) *Pipeline {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Pipeline{MaxPixels: maxPixels}
}

func notLoaded() error {
	return ferrors.NotLoaded("You must load a system first.").Build()
}

// WriteVector serialises d to w, framed by clip when given. The viewport
// and clip polygon are restored even when serialisation fails.
func (p *Pipeline) WriteVector(w io.Writer, d *diagram.Diagram, clip *ClipRegion) error {
	if d == nil {
		return notLoaded()
	}
	if clip != nil {
		points, err := clip.Validate()
		if err != nil {
			return err
		}
		prev := d.Viewport().Swap(clip.X, clip.Y, clip.Width, clip.Height)
		d.SetFreeformClip(points)
		defer func() {
			d.Viewport().RestoreFrom(prev)
			d.ClearFreeformClip()
		}()
	}
	if err := d.Serialize(w); err != nil {
		if ferrors.IsClassified(err) {
			return err
		}
		return ferrors.WrapError(err, ferrors.CategorySerialization, "Could not generate intermediate SVG").Build()
	}
	return nil
}

// ExportVector returns d as SVG text.
func (p *Pipeline) ExportVector(d *diagram.Diagram, clip *ClipRegion) (string, error) {
	var buf bytes.Buffer
	if err := p.WriteVector(&buf, d, clip); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExportRaster renders d to pixels. The target is ceil(W*scale) by
// ceil(H*scale), W and H being the clip rectangle or the full viewport.
func (p *Pipeline) ExportRaster(d *diagram.Diagram, clip *ClipRegion, fonts FaceSource, scale float64) (*image.RGBA, error) {
	if err := checkScale(scale); err != nil {
		return nil, err
	}
	svg, err := p.ExportVector(d, clip)
	if err != nil {
		return nil, err
	}
	tree, err := ParseTree(svg)
	if err != nil {
		return nil, err
	}
	width, height, err := p.TargetSize(tree.ViewBox.Width, tree.ViewBox.Height, scale)
	if err != nil {
		return nil, err
	}
	slog.Debug("Rasterising diagram", logfields.Scale(scale), "width", width, "height", height)
	return Rasterize(tree, fonts, width, height, scale)
}

// TargetSize computes the raster dimensions for a w×h viewBox.
func (p *Pipeline) TargetSize(w, h, scale float64) (int, int, error) {
	if err := checkScale(scale); err != nil {
		return 0, 0, err
	}
	fw, fh := math.Ceil(w*scale), math.Ceil(h*scale)
	if !(fw >= 1) || !(fh >= 1) || math.IsInf(fw, 0) || math.IsInf(fh, 0) {
		return 0, 0, ferrors.RasterError("Could not allocate memory to generate PNG").
			WithContext("width", fw).
			WithContext("height", fh).
			Build()
	}
	limit := p.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if fw*fh > float64(limit) {
		return 0, 0, ferrors.RasterError("Could not allocate memory to generate PNG").
			WithContext("width", fw).
			WithContext("height", fh).
			WithContext("max_pixels", limit).
			Build()
	}
	return int(fw), int(fh), nil
}

func checkScale(scale float64) error {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return ferrors.RasterError(fmt.Sprintf("invalid scale %v", scale)).
			WithContext("scale", scale).
			Build()
	}
	return nil
}

// ExportSystemText returns the canonical XML of sys.
func (p *Pipeline) ExportSystemText(sys *manycore.System) (string, error) {
	data, err := manycore.MarshalIndent(sys)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Render produces the artifact for mode.
func (p *Pipeline) Render(mode RenderMode, d *diagram.Diagram, clip *ClipRegion, fonts FaceSource, scale float64) (Artifact, error) {
	switch mode {
	case ModeSVG:
		svg, err := p.ExportVector(d, clip)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Mode: mode, Extension: mode.Extension(), Data: []byte(svg)}, nil
	case ModePNG:
		img, err := p.ExportRaster(d, clip, fonts, scale)
		if err != nil {
			return Artifact{}, err
		}
		data, err := EncodePNG(img)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Mode: mode, Extension: mode.Extension(), Data: data}, nil
	default:
		return Artifact{}, ferrors.ValidationError(fmt.Sprintf("unknown render mode %q", mode)).Build()
	}
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRaster, "failed to encode PNG").Build()
	}
	return buf.Bytes(), nil
}
