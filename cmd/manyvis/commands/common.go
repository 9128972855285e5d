package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/manyvis/internal/config"
	"git.home.luguber.info/inful/manyvis/internal/dispatcher"
	"git.home.luguber.info/inful/manyvis/internal/editor"
	"git.home.luguber.info/inful/manyvis/internal/export"
	"git.home.luguber.info/inful/manyvis/internal/metrics"
	"git.home.luguber.info/inful/manyvis/internal/state"
)

// Global carries what AfterApply prepared for the subcommands.
type Global struct {
	Config *config.Config
	// ConfigErr is set when the configuration file could not be loaded.
	// Commands that need it report it; init ignores it.
	ConfigErr error
	Out       io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"manyvis.yaml" env:"MANYVIS_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve      ServeCmd      `cmd:"" help:"Serve the command API and event stream over HTTP"`
	Render     RenderCmd     `cmd:"" help:"Render a system description to SVG or PNG"`
	Attributes AttributesCmd `cmd:"" help:"List the configurable attributes of a system"`
	Info       InfoCmd       `cmd:"" help:"Show every attribute of a core or router"`
	Edit       EditCmd       `cmd:"" help:"Edit a system description in an external text editor"`
	Init       InitCmd       `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; loads configuration and sets up
// logging once.
func (c *CLI) AfterApply(g *Global) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		g.ConfigErr = err
		cfg = config.Default()
	}
	g.Config = cfg
	if g.Out == nil {
		g.Out = os.Stdout
	}
	slog.SetDefault(cfg.Logging.NewLogger(os.Stderr, c.Verbose))
	return nil
}

// settings returns the loaded configuration or the error that prevented
// loading it.
func (g *Global) settings() (*config.Config, error) {
	if g.ConfigErr != nil {
		return nil, g.ConfigErr
	}
	return g.Config, nil
}

// session is one store with a dispatcher and editor bridge on top.
type session struct {
	store      *state.Store
	dispatcher *dispatcher.Dispatcher
}

func newSession(cfg *config.Config, rec metrics.Recorder, opts ...dispatcher.Option) (*session, error) {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	store, err := state.NewStore(state.WithContentionObserver(func(r state.Resource) {
		rec.IncLockContention(string(r))
	}))
	if err != nil {
		return nil, err
	}
	bridge := editor.NewBridge(store, editor.NewPathResolver(cfg.Editor.Command), cfg.Editor.TempDir)
	base := []dispatcher.Option{
		dispatcher.WithEditor(bridge),
		dispatcher.WithPipeline(export.NewPipeline(cfg.Export.MaxPixels)),
		dispatcher.WithDefaultScale(cfg.Export.DefaultScale),
		dispatcher.WithRecorder(rec),
	}
	return &session{
		store:      store,
		dispatcher: dispatcher.New(store, append(base, opts...)...),
	}, nil
}

// load parses path and generates its diagram.
func (s *session) load(ctx context.Context, path string) error {
	if err := check(s.dispatcher.Parse(ctx, path)); err != nil {
		return err
	}
	return check(s.dispatcher.GetDiagram(ctx))
}

// check turns a failed result into its error.
func check(res dispatcher.Result) error {
	if res.OK() {
		return nil
	}
	if res.Err != nil {
		return res.Err
	}
	return fmt.Errorf("%s", res.Message)
}

// commandContext is cancelled on interrupt or termination.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
