package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/manyvis/internal/export"
	"git.home.luguber.info/inful/manyvis/internal/logfields"
)

// EditCmd implements the 'edit' command.
type EditCmd struct {
	System  string `arg:"" type:"existingfile" help:"System description file"`
	Output  string `short:"o" help:"Write the edited system here instead of stdout"`
	InPlace bool   `short:"i" help:"Overwrite the input file with the edited system"`
}

func (e *EditCmd) Run(g *Global, _ *CLI) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	if e.InPlace && e.Output != "" {
		return fmt.Errorf("--in-place and --output are mutually exclusive")
	}

	ctx, cancel := commandContext()
	defer cancel()
	sess, err := newSession(cfg, nil)
	if err != nil {
		return err
	}
	if err := sess.load(ctx, e.System); err != nil {
		return err
	}
	if err := check(sess.dispatcher.InitiateEdit(ctx)); err != nil {
		return err
	}
	res := sess.dispatcher.ExportSystemText(ctx)
	if err := check(res); err != nil {
		return err
	}
	text := res.Payload.(string)

	target := e.Output
	if e.InPlace {
		target = e.System
	}
	if target == "" {
		_, err := fmt.Fprint(g.Out, text)
		return err
	}
	written, err := export.WriteFile(target, export.SystemFilter.Extension, []byte(text))
	if err != nil {
		return err
	}
	slog.Info("Wrote edited system", logfields.Path(written))
	return nil
}
