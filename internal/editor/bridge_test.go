package editor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/manyvis/internal/diagram"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/manycore"
	"git.home.luguber.info/inful/manyvis/internal/state"
)

type fixedResolver struct {
	cmd Command
	err error
}

func (f fixedResolver) Resolve(context.Context) (Command, error) { return f.cmd, f.err }

type loaded struct {
	store   *state.Store
	system  *manycore.System
	diagram *diagram.Diagram
}

func newLoadedStore(t *testing.T) loaded {
	t.Helper()
	store, err := state.NewStore()
	require.NoError(t, err)
	sys, err := manycore.ParseFile("testdata/system_2x2.xml")
	require.NoError(t, err)
	d, err := diagram.New(sys)
	require.NoError(t, err)
	require.NoError(t, store.WithSystemAndDiagram(t.Context(), state.Blocking, func(s *state.Slot[*manycore.System], dd *state.Slot[*diagram.Diagram]) error {
		s.Replace(sys)
		dd.Replace(d)
		return nil
	}))
	return loaded{store: store, system: sys, diagram: d}
}

func current(t *testing.T, store *state.Store) (*manycore.System, *diagram.Diagram) {
	t.Helper()
	var (
		sys *manycore.System
		d   *diagram.Diagram
	)
	require.NoError(t, store.WithSystemAndDiagram(t.Context(), state.NonBlocking, func(s *state.Slot[*manycore.System], dd *state.Slot[*diagram.Diagram]) error {
		sys, _ = s.Get()
		d, _ = dd.Get()
		return nil
	}))
	return sys, d
}

func newBridge(t *testing.T, store *state.Store, run Runner) (*Bridge, *[]Phase) {
	t.Helper()
	b := NewBridge(store, fixedResolver{cmd: Command{Path: "fake-editor", Args: []string{"-w"}}}, t.TempDir())
	b.Run = run
	var phases []Phase
	b.OnPhase = func(p Phase) { phases = append(phases, p) }
	return b, &phases
}

// rewrite returns a runner that edits the file with fn.
func rewrite(fn func(string) string) Runner {
	return func(_ context.Context, _ Command, file string) error {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		return os.WriteFile(file, []byte(fn(string(data))), 0o600)
	}
}

func assertTempDirEmpty(t *testing.T, b *Bridge) {
	t.Helper()
	entries, err := os.ReadDir(b.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEdit_Commits(t *testing.T) {
	l := newLoadedStore(t)
	var seen string
	b, phases := newBridge(t, l.store, func(ctx context.Context, cmd Command, file string) error {
		seen = file
		assert.Equal(t, ".xml", filepath.Ext(file))
		return rewrite(func(s string) string {
			return strings.Replace(s, `routingAlgo="RowFirst"`, `routingAlgo="ColumnFirst"`, 1)
		})(ctx, cmd, file)
	})

	res, err := b.Edit(t.Context())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "ColumnFirst", res.System.RoutingAlgo)
	assert.True(t, strings.HasPrefix(res.Content, "<svg"))

	sys, d := current(t, l.store)
	assert.Same(t, res.System, sys)
	assert.NotSame(t, l.diagram, d)
	assert.Same(t, sys, d.Source())

	assert.Equal(t, []Phase{PhaseIdle, PhaseSerialized, PhaseEditing, PhaseReparsing, PhaseCommitted}, *phases)
	assert.Equal(t, b.TempDir, filepath.Dir(seen))
	assertTempDirEmpty(t, b)
}

func TestEdit_RollsBack(t *testing.T) {
	tests := []struct {
		name     string
		run      Runner
		resolver Resolver
		category ferrors.ErrorCategory
	}{
		{
			name:     "editor fails",
			run:      func(context.Context, Command, string) error { return errors.New("exit status 1") },
			category: ferrors.CategoryExternalTool,
		},
		{
			name:     "edit does not parse",
			run:      rewrite(func(string) string { return "<ManycoreSystem" }),
			category: ferrors.CategoryValidation,
		},
		{
			name:     "edit does not validate",
			run:      rewrite(func(s string) string { return strings.Replace(s, `rows="2"`, `rows="3"`, 1) }),
			category: ferrors.CategoryValidation,
		},
		{
			name:     "no editor",
			run:      func(context.Context, Command, string) error { return errors.New("editor must not run") },
			resolver: fixedResolver{err: ferrors.ExternalToolUnavailable("Could not find a supported text editor.").Build()},
			category: ferrors.CategoryExternalTool,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLoadedStore(t)
			b, phases := newBridge(t, l.store, tt.run)
			if tt.resolver != nil {
				b.Resolver = tt.resolver
			}

			res, err := b.Edit(t.Context())
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, ferrors.HasCategory(err, tt.category), "got %v", err)

			sys, d := current(t, l.store)
			assert.Same(t, l.system, sys)
			assert.Same(t, l.diagram, d)
			assert.Equal(t, PhaseRolledBack, (*phases)[len(*phases)-1])
			assertTempDirEmpty(t, b)
		})
	}
}

func TestEdit_SystemReplacedWhileEditing(t *testing.T) {
	l := newLoadedStore(t)
	var reparsed *manycore.System
	b, phases := newBridge(t, l.store, func(ctx context.Context, cmd Command, file string) error {
		var err error
		reparsed, err = manycore.ParseFile("testdata/system_2x2.xml")
		if err != nil {
			return err
		}
		if err := l.store.WithSystem(ctx, state.Blocking, func(s *state.Slot[*manycore.System]) error {
			s.Replace(reparsed)
			return nil
		}); err != nil {
			return err
		}
		return rewrite(func(s string) string {
			return strings.Replace(s, `routingAlgo="RowFirst"`, `routingAlgo="ColumnFirst"`, 1)
		})(ctx, cmd, file)
	})

	res, err := b.Edit(t.Context())
	require.Error(t, err)
	assert.Nil(t, res)
	c, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryLockContention, c.Category())
	assert.Equal(t, ferrors.RetryUserAction, c.RetryStrategy())

	sys, d := current(t, l.store)
	assert.Same(t, reparsed, sys)
	assert.Equal(t, "RowFirst", sys.RoutingAlgo)
	assert.Same(t, l.diagram, d)
	assert.Equal(t, PhaseRolledBack, (*phases)[len(*phases)-1])
	assertTempDirEmpty(t, b)
}

func TestEdit_NotLoaded(t *testing.T) {
	store, err := state.NewStore()
	require.NoError(t, err)
	b, _ := newBridge(t, store, func(context.Context, Command, string) error { return nil })

	_, err = b.Edit(t.Context())
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotLoaded))
	assertTempDirEmpty(t, b)
}

func TestEdit_NoLockHeldWhileEditing(t *testing.T) {
	l := newLoadedStore(t)
	b, _ := newBridge(t, l.store, func(ctx context.Context, _ Command, _ string) error {
		return l.store.WithAll(ctx, state.NonBlocking, func(*state.Slot[*manycore.System], *state.Slot[*diagram.Diagram], *state.FontResource) error {
			return nil
		})
	})

	_, err := b.Edit(t.Context())
	require.NoError(t, err)
}

func TestEdit_Cancelled(t *testing.T) {
	l := newLoadedStore(t)
	ctx, cancel := context.WithCancel(t.Context())
	b, _ := newBridge(t, l.store, func(ctx context.Context, _ Command, _ string) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})

	_, err := b.Edit(ctx)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryExternalTool))
	assert.ErrorIs(t, err, context.Canceled)

	sys, _ := current(t, l.store)
	assert.Same(t, l.system, sys)
	assertTempDirEmpty(t, b)
}

func TestEdit_ExternalProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake editor is a shell script")
	}
	bin := t.TempDir()
	script := "#!/bin/sh\nfor last; do :; done\nsed 's/routingAlgo=\"RowFirst\"/routingAlgo=\"ColumnFirst\"/' \"$last\" > \"$last.tmp\" && mv \"$last.tmp\" \"$last\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(bin, "fake-editor"), []byte(script), 0o755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	l := newLoadedStore(t)
	resolver := NewPathResolver("fake-editor -w")
	resolver.Candidates = nil
	b := NewBridge(l.store, resolver, t.TempDir())

	res, err := b.Edit(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "ColumnFirst", res.System.RoutingAlgo)
	assertTempDirEmpty(t, b)
}

func TestEdit_ExternalProcessFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake editor is a shell script")
	}
	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, "broken-editor"), []byte("#!/bin/sh\nexit 3\n"), 0o755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	l := newLoadedStore(t)
	resolver := NewPathResolver("broken-editor")
	resolver.Candidates = nil
	b := NewBridge(l.store, resolver, t.TempDir())

	_, err := b.Edit(t.Context())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryExternalTool))
	sys, _ := current(t, l.store)
	assert.Same(t, l.system, sys)
	assertTempDirEmpty(t, b)
}
