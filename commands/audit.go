package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"github.com/clmops/clmctl/audit"
	"github.com/clmops/clmctl/model"
)

var AuditCmd = &cli.Command{
	Name:  "audit",
	Usage: "Check risk consistency between CLMs and their paired records",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "chain",
			Usage: "limit the audit to one chain (default: every chain with a registry file)",
		},
		&cli.BoolFlag{
			Name:  "reconcile",
			Usage: "interactively repair the mismatches found",
		},
	},
	Action: func(cctx *cli.Context) error {
		app, err := setupApp(cctx)
		if err != nil {
			return err
		}
		defer app.Close()
		ctx := cctx.Context

		var chains []string
		if c := cctx.String("chain"); c != "" {
			chains = []string{c}
		} else {
			chains, err = app.Catalog.Chains()
			if err != nil {
				return err
			}
		}

		var records []model.VaultRecord
		for _, chain := range chains {
			recs, err := app.Catalog.Registry(chain).Load(ctx)
			if err != nil {
				return err
			}
			records = append(records, recs...)
		}

		checker := audit.NewChecker(app.Catalog, audit.TerminalPrompter{})
		mismatches := checker.CheckAll(records)
		if len(mismatches) == 0 {
			fmt.Printf("no mismatches across %d record(s)\n", len(records))
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"CLM", "Chain", "CLM Risks", "Record", "Bucket", "Record Risks"})
		for _, m := range mismatches {
			for _, src := range m.Sources {
				t.AppendRow(table.Row{
					m.CLM.ID,
					m.CLM.Network,
					strings.Join(m.CLMSet.ValidIDs, "\n"),
					src.Record.ID,
					src.Bucket,
					strings.Join(src.Set.AllIDs, "\n"),
				})
			}
			t.AppendSeparator()
		}
		t.Render()

		if !cctx.Bool("reconcile") {
			fmt.Println("re-run with --reconcile to repair interactively")
			return nil
		}
		return checker.Run(ctx)
	},
}
