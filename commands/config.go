package commands

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v2"

	"github.com/clmops/clmctl/config"
)

var ConfigCmd = &cli.Command{
	Name:  "config",
	Usage: "Manage the clmctl configuration",
	Subcommands: []*cli.Command{
		{
			Name:  "init",
			Usage: "Write the default config to the config path unless one exists",
			Action: func(cctx *cli.Context) error {
				path := cctx.String("config")
				if err := config.EnsureExists(path); err != nil {
					return err
				}
				log.Infow("config ready", "path", path)
				return nil
			},
		},
		{
			Name:  "dump",
			Usage: "Print the effective config",
			Action: func(cctx *cli.Context) error {
				cfg, err := config.FromFile(cctx.String("config"))
				if err != nil {
					return err
				}
				return toml.NewEncoder(os.Stdout).Encode(cfg)
			},
		},
	},
}
