package export

import "git.home.luguber.info/inful/manyvis/internal/foundation/normalization"

// RenderMode selects the diagram artifact format.
type RenderMode string

const (
	ModeSVG RenderMode = "SVG"
	ModePNG RenderMode = "PNG"
)

var renderModes = normalization.New("render mode", map[string]RenderMode{
	"svg": ModeSVG,
	"png": ModePNG,
}, ModeSVG)

// ParseRenderMode accepts "svg" or "png" in any case.
func ParseRenderMode(s string) (RenderMode, error) {
	return renderModes.Parse(s)
}

// Extension is the file extension written for the mode, without the dot.
func (m RenderMode) Extension() string {
	switch m {
	case ModePNG:
		return "png"
	default:
		return "svg"
	}
}

// Filter describes the file type for save dialogs.
func (m RenderMode) Filter() Filter {
	switch m {
	case ModePNG:
		return Filter{Name: "Portable Network Graphics (PNG)", Extension: "png"}
	default:
		return Filter{Name: "Scalable Vector Graphics (SVG)", Extension: "svg"}
	}
}

// SuccessMessage is reported once the artifact has been written.
func (m RenderMode) SuccessMessage() string {
	return "Successfully exported " + string(m)
}

// Artifact is a rendered export ready to be written.
type Artifact struct {
	Mode      RenderMode `json:"mode"`
	Extension string     `json:"extension"`
	Data      []byte     `json:"data"`
}
