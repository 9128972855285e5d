package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/manyvis/cmd/manyvis/commands"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{}
	ctx := kong.Parse(cli,
		kong.Name("manyvis"),
		kong.Description("Visualise manycore system descriptions as SVG and PNG."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)
	if err := ctx.Run(global, cli); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, nil).HandleError(err)
	}
}
