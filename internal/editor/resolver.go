package editor

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/logfields"
)

// Command is a resolved editor invocation. The file path is appended to
// Args when it runs.
type Command struct {
	Path string
	Args []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Resolver finds the editor to launch.
type Resolver interface {
	Resolve(ctx context.Context) (Command, error)
}

// PathResolver picks the first candidate whose binary is on PATH. An
// override is probed before the platform list.
type PathResolver struct {
	Override   string
	Candidates []string
	LookPath   func(file string) (string, error)
}

// NewPathResolver uses the platform candidates and exec.LookPath.
func NewPathResolver(override string) *PathResolver {
	return &PathResolver{
		Override:   override,
		Candidates: platformEditors,
		LookPath:   exec.LookPath,
	}
}

// Resolve returns the first usable editor.
func (r *PathResolver) Resolve(ctx context.Context) (Command, error) {
	lookPath := r.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	candidates := r.Candidates
	if r.Override != "" {
		candidates = append([]string{r.Override}, candidates...)
	}
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return Command{}, err
		}
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		path, err := lookPath(fields[0])
		if err != nil {
			if i == 0 && r.Override != "" {
				slog.Warn("Ignoring editor override that is not on PATH", logfields.Editor(candidate), logfields.Error(err))
			}
			continue
		}
		slog.Debug("Resolved editor", logfields.Editor(candidate), logfields.Path(path))
		return Command{Path: path, Args: fields[1:]}, nil
	}
	return Command{}, ferrors.ExternalToolUnavailable("Could not find a supported text editor.").
		WithContext("candidates", strings.Join(candidates, ", ")).
		Build()
}
