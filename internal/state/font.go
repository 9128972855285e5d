package state

import (
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gomono"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// FontResource is the parsed bundled font used to rasterise diagram text.
// It is immutable after construction.
type FontResource struct {
	source *text.FontSource
}

// LoadFont parses TTF/OTF data into a FontResource.
func LoadFont(data []byte) (*FontResource, error) {
	source, err := text.NewFontSource(data)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "failed to load font").Build()
	}
	return &FontResource{source: source}, nil
}

// DefaultFont loads the bundled Go Mono font.
func DefaultFont() (*FontResource, error) {
	return LoadFont(gomono.TTF)
}

// Face returns a face of the given pixel size.
func (f *FontResource) Face(size float64) text.Face {
	return f.source.Face(size)
}

// Name is the family name embedded in the font.
func (f *FontResource) Name() string {
	return f.source.Name()
}
