package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// Filter describes a file type offered by a picker.
type Filter struct {
	Name      string
	Extension string
}

// Filters for the non-diagram artifacts.
var (
	SystemFilter        = Filter{Name: "ManyCore XML", Extension: "xml"}
	ConfigurationFilter = Filter{Name: "ManyCore Visualiser Configuration", Extension: "json"}
)

// FilePicker asks where to save or what to open. An empty path with a nil
// error means the user cancelled.
type FilePicker interface {
	SavePath(ctx context.Context, filter Filter) (string, error)
	OpenPath(ctx context.Context, filter Filter) (string, error)
}

// FixedPath is a FilePicker that always answers with Path.
type FixedPath struct {
	Path string
}

func (f FixedPath) SavePath(context.Context, Filter) (string, error) { return f.Path, nil }
func (f FixedPath) OpenPath(context.Context, Filter) (string, error) { return f.Path, nil }

type pickerKey struct{}

// ContextWithPicker attaches a picker that takes precedence over the one a
// command was configured with.
func ContextWithPicker(ctx context.Context, p FilePicker) context.Context {
	return context.WithValue(ctx, pickerKey{}, p)
}

// PickerFromContext returns the picker attached with ContextWithPicker.
func PickerFromContext(ctx context.Context) (FilePicker, bool) {
	p, ok := ctx.Value(pickerKey{}).(FilePicker)
	return p, ok && p != nil
}

// WithExtension replaces any extension on path with ext.
func WithExtension(path, ext string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + "." + strings.TrimPrefix(ext, ".")
}

// WriteFile writes data to path after forcing the extension, and returns
// the path actually written.
func WriteFile(path, ext string, data []byte) (string, error) {
	target := WithExtension(path, ext)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryIO, "Could not write to disk").
			WithContext("path", target).
			Build()
	}
	return target, nil
}

// WriteArtifact writes a rendered artifact to path.
func WriteArtifact(path string, a Artifact) (string, error) {
	return WriteFile(path, a.Extension, a.Data)
}
