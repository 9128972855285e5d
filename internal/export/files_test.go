package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

func TestWithExtension(t *testing.T) {
	tests := []struct {
		path, ext, want string
	}{
		{"out", "png", "out.png"},
		{"out.svg", "png", "out.png"},
		{"dir/out.tar.gz", ".json", "dir/out.tar.json"},
		{"system.XML", "xml", "system.xml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WithExtension(tt.path, tt.ext))
	}
}

func TestWriteArtifact(t *testing.T) {
	dir := t.TempDir()
	written, err := WriteArtifact(filepath.Join(dir, "render.txt"), Artifact{Mode: ModeSVG, Extension: "svg", Data: []byte("<svg/>")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "render.svg"), written)

	data, err := os.ReadFile(written)
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(data))
}

func TestWriteFile_Failure(t *testing.T) {
	_, err := WriteFile(filepath.Join(t.TempDir(), "missing", "out"), "xml", []byte("x"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryIO))
}

func TestFixedPath(t *testing.T) {
	var picker FilePicker = FixedPath{Path: "/tmp/x.json"}
	p, err := picker.SavePath(t.Context(), ConfigurationFilter)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.json", p)
}

func TestPickerFromContext(t *testing.T) {
	_, ok := PickerFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithPicker(context.Background(), FixedPath{Path: "/tmp/out.svg"})
	p, ok := PickerFromContext(ctx)
	require.True(t, ok)
	path, err := p.SavePath(ctx, SystemFilter)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out.svg", path)
}
