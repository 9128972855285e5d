package export

import (
	"math"

	"git.home.luguber.info/inful/manyvis/internal/diagram"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// ClipRegion restricts an export to a rectangle of the viewBox and a
// freeform polygon inside it.
type ClipRegion struct {
	ClipPath string  `json:"clipPath"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// Validate checks the rectangle and parses the polygon.
func (c *ClipRegion) Validate() ([]diagram.Point, error) {
	for name, v := range map[string]float64{"x": c.X, "y": c.Y, "width": c.Width, "height": c.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ferrors.ValidationError("clip region must use finite numbers").
				WithContext("field", name).
				Build()
		}
	}
	if c.Width < 0 || c.Height < 0 {
		return nil, ferrors.ValidationError("clip region size must not be negative").
			WithContext("width", c.Width).
			WithContext("height", c.Height).
			Build()
	}
	return diagram.ParsePoints(c.ClipPath)
}
