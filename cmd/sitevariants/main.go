package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitevariants/cmd/sitevariants/commands"
	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
)

// version is set at link time.
var version = "dev"

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("sitevariants"),
		kong.Description("Build no-script and full variants of a static site into one deploy tree."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	err := ctx.Run(&commands.Global{Logger: slog.Default()}, &cli)
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
