package editor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/manyvis/internal/diagram"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/logfields"
	"git.home.luguber.info/inful/manyvis/internal/manycore"
	"git.home.luguber.info/inful/manyvis/internal/state"
)

// Phase is a step of the edit round trip.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSerialized Phase = "serialized"
	PhaseEditing    Phase = "editing"
	PhaseReparsing  Phase = "reparsing"
	PhaseCommitted  Phase = "committed"
	PhaseRolledBack Phase = "rolled_back"
)

// Runner launches cmd on file and waits for it to exit.
type Runner func(ctx context.Context, cmd Command, file string) error

// Bridge runs the edit round trip against a store.
type Bridge struct {
	Store    *state.Store
	Parser   manycore.Parser
	Resolver Resolver
	// TempDir holds the temporary copy; empty means os.TempDir().
	TempDir string
	// Regenerate builds the diagram for a committed system.
	Regenerate func(*manycore.System) (*diagram.Diagram, error)
	Run        Runner
	// OnPhase observes every transition.
	OnPhase func(Phase)
}

// NewBridge wires the default parser, regeneration and process runner.
func NewBridge(store *state.Store, resolver Resolver, tempDir string) *Bridge {
	return &Bridge{
		Store:      store,
		Parser:     manycore.FileParser{},
		Resolver:   resolver,
		TempDir:    tempDir,
		Regenerate: diagram.New,
		Run:        RunEditor,
	}
}

// Result is the committed system and its regenerated diagram as SVG.
type Result struct {
	System  *manycore.System
	Content string
}

func (b *Bridge) enter(p Phase) {
	slog.Debug("Edit phase", logfields.Phase(string(p)))
	if b.OnPhase != nil {
		b.OnPhase(p)
	}
}

// Edit serialises the loaded system, waits for the editor, then commits
// the edited system or leaves the prior state untouched. Cancelling ctx
// kills the editor and rolls back.
func (b *Bridge) Edit(ctx context.Context) (res *Result, err error) {
	b.enter(PhaseIdle)
	defer func() {
		if err != nil {
			b.enter(PhaseRolledBack)
			slog.Info("Edit rolled back", logfields.Error(err))
		}
	}()

	base, data, err := b.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	path, err := b.writeTemp(data)
	if err != nil {
		return nil, err
	}
	defer removeTemp(path)
	b.enter(PhaseSerialized)

	cmd, err := b.Resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	b.enter(PhaseEditing)
	slog.Info("Waiting for editor", logfields.Editor(cmd.String()), logfields.Path(path))
	run := b.Run
	if run == nil {
		run = RunEditor
	}
	if err := run(ctx, cmd, path); err != nil {
		return nil, editorFailed(ctx, cmd, err)
	}

	b.enter(PhaseReparsing)
	edited, err := b.Parser.ParseFile(path)
	if err != nil {
		return nil, err
	}

	res, err = b.commit(ctx, base, edited)
	if err != nil {
		return nil, err
	}
	b.enter(PhaseCommitted)
	return res, nil
}

// snapshot serialises the loaded system under the system lock only and
// returns the system it read.
func (b *Bridge) snapshot(ctx context.Context) (*manycore.System, []byte, error) {
	var (
		base *manycore.System
		data []byte
	)
	err := b.Store.WithSystem(ctx, state.Blocking, func(slot *state.Slot[*manycore.System]) error {
		sys, ok := slot.Get()
		if !ok {
			return ferrors.NotLoaded("You must load a system first.").Build()
		}
		var err error
		data, err = manycore.MarshalIndent(sys)
		base = sys
		return err
	})
	return base, data, err
}

func (b *Bridge) writeTemp(data []byte) (string, error) {
	dir := b.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, uuid.New().String()+".xml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryIO, "Could not write temporary file").
			WithContext("path", path).
			Build()
	}
	return path, nil
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("Failed to remove temporary file", logfields.Path(path), logfields.Error(err))
	}
}

// commit swaps in the edited system unless another parse or reload replaced
// base while the editor was open.
func (b *Bridge) commit(ctx context.Context, base, edited *manycore.System) (*Result, error) {
	regenerate := b.Regenerate
	if regenerate == nil {
		regenerate = diagram.New
	}
	var res *Result
	err := b.Store.WithSystemAndDiagram(ctx, state.Blocking, func(sys *state.Slot[*manycore.System], dia *state.Slot[*diagram.Diagram]) error {
		if loaded, _ := sys.Get(); loaded != base {
			return ferrors.LockContention("The system changed while it was being edited. The edit was discarded.").
				WithRetry(ferrors.RetryUserAction).
				Build()
		}
		d, err := regenerate(edited)
		if err != nil {
			return err
		}
		content, err := d.String()
		if err != nil {
			return err
		}
		sys.Replace(edited)
		dia.Replace(d)
		res = &Result{System: edited, Content: content}
		return nil
	})
	return res, err
}

func editorFailed(ctx context.Context, cmd Command, err error) error {
	b := ferrors.WrapError(err, ferrors.CategoryExternalTool, "The editor did not exit successfully.").
		WithRetry(ferrors.RetryUserAction).
		WithContext("editor", cmd.String())
	if ctx.Err() != nil {
		b = ferrors.WrapError(ctx.Err(), ferrors.CategoryExternalTool, "Editing was cancelled.").
			WithContext("editor", cmd.String())
	}
	return b.Build()
}

// RunEditor starts the editor directly, without a shell, and waits.
func RunEditor(ctx context.Context, cmd Command, file string) error {
	// #nosec G204 -- the binary comes from the resolver's LookPath result
	c := exec.CommandContext(ctx, cmd.Path, append(append([]string(nil), cmd.Args...), file)...)
	var stderr bytes.Buffer
	c.Stderr = &stderr
	err := c.Run()
	if err != nil {
		slog.Warn("Editor exited with an error",
			logfields.Editor(cmd.String()),
			logfields.Error(err),
			slog.String("stderr", strings.TrimSpace(stderr.String())))
	}
	return err
}
