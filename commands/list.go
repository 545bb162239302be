package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"github.com/clmops/clmctl/risk"
)

var ListCmd = &cli.Command{
	Name:  "list",
	Usage: "List the registry records of a chain",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "chain", Usage: "chain id", Required: true},
	},
	Action: func(cctx *cli.Context) error {
		app, err := setupApp(cctx)
		if err != nil {
			return err
		}
		defer app.Close()

		records, err := app.Catalog.Registry(cctx.String("chain")).Load(cctx.Context)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Type", "Status", "Address", "Safety"})
		for _, rec := range records {
			safety := "-"
			if card, ok := risk.Score(rec.Risks); ok {
				safety = fmt.Sprintf("%.2f", card.SafetyScore)
			}
			t.AppendRow(table.Row{rec.ID, rec.Type, rec.Status, rec.EarnContractAddress, safety})
		}
		t.Render()
		return nil
	},
}
