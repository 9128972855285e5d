package commands

// AttributesCmd implements the 'attributes' command.
type AttributesCmd struct {
	System string `arg:"" type:"existingfile" help:"System description file"`
	Base   bool   `help:"Also list the base settings and their ranges"`
}

func (a *AttributesCmd) Run(g *Global, _ *CLI) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	sess, err := newSession(cfg, nil)
	if err != nil {
		return err
	}
	if err := check(sess.dispatcher.Parse(ctx, a.System)); err != nil {
		return err
	}
	res := sess.dispatcher.GetAttributes(ctx)
	if err := check(res); err != nil {
		return err
	}
	if !a.Base {
		return printJSON(g.Out, res.Payload)
	}
	base := sess.dispatcher.GetBaseConfiguration(ctx)
	return printJSON(g.Out, map[string]any{
		"attributes":        res.Payload,
		"baseConfiguration": base.Payload,
	})
}

// InfoCmd implements the 'info' command.
type InfoCmd struct {
	System string `arg:"" type:"existingfile" help:"System description file"`
	Group  string `arg:"" help:"Element id: c<n> for a core, r<n> for a router"`
}

func (i *InfoCmd) Run(g *Global, _ *CLI) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	sess, err := newSession(cfg, nil)
	if err != nil {
		return err
	}
	if err := check(sess.dispatcher.Parse(ctx, i.System)); err != nil {
		return err
	}
	res := sess.dispatcher.GetInfo(ctx, i.Group)
	if err := check(res); err != nil {
		return err
	}
	return printJSON(g.Out, res.Payload)
}
