package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/clmops/clmctl/commands"
	"github.com/clmops/clmctl/version"
)

var log = logging.Logger("clmctl")

func main() {
	app := &cli.App{
		Name:    "clmctl",
		Usage:   "CLM Vault Registry Utility",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				EnvVars: []string{"CLMCTL_CONFIG"},
				Value:   "clmctl.toml",
				Usage:   "Specify path of config file to use",
			},
			&cli.StringFlag{
				Name:        "log-level",
				EnvVars:     []string{"GOLOG_LOG_LEVEL"},
				Value:       "info",
				Usage:       "Set the default log level for all loggers to `LEVEL`",
				Destination: &commands.LogFlags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-level-named",
				EnvVars:     []string{"CLMCTL_LOG_LEVEL_NAMED"},
				Value:       "",
				Usage:       "A comma delimited list of named loggers and log levels formatted as name:level, for example 'clmctl/storage:debug'",
				Destination: &commands.LogFlags.LogLevelNamed,
			},
		},
		Before: func(cctx *cli.Context) error {
			return commands.SetupLogging(commands.LogFlags)
		},
		Commands: []*cli.Command{
			commands.CreateCmd,
			commands.AuditCmd,
			commands.ListCmd,
			commands.ConfigCmd,
			commands.LogCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
