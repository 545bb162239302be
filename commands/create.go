package commands

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/raulk/clock"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/clmops/clmctl/lens"
	"github.com/clmops/clmctl/model"
	"github.com/clmops/clmctl/risk"
	"github.com/clmops/clmctl/storage"
	"github.com/clmops/clmctl/tasks/discovery"
	"github.com/clmops/clmctl/tasks/strategy"
)

var CreateCmd = &cli.Command{
	Name:  "create",
	Usage: "Onboard a CLM vault triple (CLM + reward pool + wrapper vault) into the registry",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "chain", Usage: "chain id the contracts are deployed on", Required: true},
		&cli.StringFlag{Name: "id", Usage: "registry id for the CLM record", Required: true},
		&cli.StringFlag{Name: "name", Usage: "display name (defaults to id)"},
		&cli.StringFlag{Name: "address", Usage: "CLM vault contract address", Required: true},
		&cli.StringFlag{Name: "strategy", Usage: "CLM strategy contract address", Required: true},
		&cli.StringFlag{Name: "pool", Usage: "underlying pool token address", Required: true},
		&cli.StringFlag{Name: "token", Usage: "deposit token symbol", Required: true},
		&cli.IntFlag{Name: "decimals", Usage: "deposit token decimals", Value: 18},
		&cli.StringFlag{Name: "oracle-id", Usage: "price oracle id (defaults to id)"},
		&cli.StringFlag{Name: "platform", Usage: "platform id"},
		&cli.StringSliceFlag{Name: "asset", Usage: "underlying asset symbol (repeatable)"},
		&cli.StringSliceFlag{Name: "risk", Usage: "risk id (repeatable)"},
		&cli.StringFlag{Name: "rewardpool-factory", Usage: "reward pool factory address, used when the strategy does not expose its reward pool"},
		&cli.StringFlag{Name: "vault-factory", Usage: "wrapper vault factory address"},
	},
	Action: func(cctx *cli.Context) error {
		app, err := setupApp(cctx)
		if err != nil {
			return err
		}
		defer app.Close()
		return runCreate(cctx.Context, app, createOptsFromFlags(cctx))
	},
}

type createOpts struct {
	Chain             string
	ID                string
	Name              string
	Address           common.Address
	Strategy          common.Address
	Pool              common.Address
	Token             string
	Decimals          int
	OracleID          string
	Platform          string
	Assets            []string
	Risks             []string
	RewardPoolFactory common.Address
	VaultFactory      common.Address
}

func createOptsFromFlags(cctx *cli.Context) createOpts {
	opts := createOpts{
		Chain:    cctx.String("chain"),
		ID:       cctx.String("id"),
		Name:     cctx.String("name"),
		Address:  common.HexToAddress(cctx.String("address")),
		Strategy: common.HexToAddress(cctx.String("strategy")),
		Pool:     common.HexToAddress(cctx.String("pool")),
		Token:    cctx.String("token"),
		Decimals: cctx.Int("decimals"),
		OracleID: cctx.String("oracle-id"),
		Platform: cctx.String("platform"),
		Assets:   cctx.StringSlice("asset"),
		Risks:    cctx.StringSlice("risk"),
	}
	if opts.Name == "" {
		opts.Name = opts.ID
	}
	if opts.OracleID == "" {
		opts.OracleID = opts.ID
	}
	if s := cctx.String("rewardpool-factory"); s != "" {
		opts.RewardPoolFactory = common.HexToAddress(s)
	}
	if s := cctx.String("vault-factory"); s != "" {
		opts.VaultFactory = common.HexToAddress(s)
	}
	return opts
}

// runCreate builds the chain clients and hands the workflow off to
// createRecords.
func runCreate(ctx context.Context, app *App, opts createOpts) error {
	api, err := app.Chains.Lens(ctx, opts.Chain)
	if err != nil {
		return err
	}
	explorerClient, err := app.Chains.Explorer(opts.Chain)
	if err != nil {
		return err
	}
	scanner := discovery.NewScanner(api, explorerClient)
	return createRecords(ctx, app.Catalog, app.Clock, api, scanner, opts)
}

// createRecords assembles and commits a CLM triple: resolve the
// strategy implementation, discover the paired reward pool and wrapper
// vault, then add the records. On-chain consistency errors abort the
// whole triple before anything is written; a failed discovery only
// drops the optional paired record.
func createRecords(ctx context.Context, catalog *storage.Catalog, clk clock.Clock, api lens.API, scanner *discovery.Scanner, opts createOpts) error {
	if err := risk.Validate(opts.Risks, risk.DefaultRequired); err != nil {
		return xerrors.Errorf("risk selection rejected: %w", err)
	}

	res, err := strategy.NewResolver(api).Resolve(ctx, opts.Strategy)
	if err != nil {
		return xerrors.Errorf("resolve strategy %s: %w", opts.Strategy.Hex(), err)
	}
	log.Infow("resolved strategy",
		"strategy", opts.Strategy.Hex(),
		"implementation", res.Implementation.String(),
		"provider", res.TokenProviderID)

	rewardPool, hasRewardPool := findRewardPool(ctx, api, scanner, res, opts)
	var vault common.Address
	var hasVault bool
	if opts.VaultFactory != (common.Address{}) {
		vault, hasVault = scanner.FindPairedAddress(ctx, opts.VaultFactory, opts.Address, discovery.KindVault)
	}

	now := clk.Now().Unix()
	records := []model.VaultRecord{clmRecord(opts, res, now)}
	if hasRewardPool {
		records = append(records, pairedRecord(opts, res, model.TypeGov, rewardPool, now))
	}
	if hasVault {
		records = append(records, pairedRecord(opts, res, model.TypeStandard, vault, now))
	}

	reg := catalog.Registry(opts.Chain)
	for _, rec := range records {
		if err := reg.Add(ctx, rec); err != nil {
			return err
		}
		log.Infow("record added", "id", rec.ID, "type", rec.Type, "address", rec.EarnContractAddress)
	}

	fmt.Printf("added %d record(s) to the %s registry\n", len(records), opts.Chain)
	return nil
}

// findRewardPool prefers the strategy's own rewardPool() view when its
// type exposes one, falling back to factory-event discovery.
func findRewardPool(ctx context.Context, api lens.API, scanner *discovery.Scanner, res *strategy.Resolution, opts createOpts) (common.Address, bool) {
	if res.Config.RewardPoolMethod != "" {
		values, err := api.ReadContract(ctx, lens.Call{
			To:     opts.Strategy,
			ABI:    res.Config.RewardPoolABI,
			Method: res.Config.RewardPoolMethod,
		})
		if err == nil {
			if addr, ok := values[0].(common.Address); ok && addr != (common.Address{}) {
				return addr, true
			}
		} else {
			log.Debugw("strategy reward pool read failed, falling back to discovery",
				"strategy", opts.Strategy.Hex(), "error", err)
		}
	}
	if opts.RewardPoolFactory == (common.Address{}) {
		return common.Address{}, false
	}
	return scanner.FindPairedAddress(ctx, opts.RewardPoolFactory, opts.Address, discovery.KindRewardPool)
}

func clmRecord(opts createOpts, res *strategy.Resolution, now int64) model.VaultRecord {
	return model.VaultRecord{
		ID:                  opts.ID,
		Name:                opts.Name,
		Type:                model.TypeCowcentrated,
		Token:               opts.Token,
		TokenAddress:        opts.Pool.Hex(),
		TokenProviderID:     res.TokenProviderID,
		TokenDecimals:       opts.Decimals,
		EarnContractAddress: opts.Address.Hex(),
		Oracle:              "lps",
		OracleID:            opts.OracleID,
		Status:              model.StatusActive,
		PlatformID:          opts.Platform,
		Assets:              opts.Assets,
		Risks:               append([]string(nil), opts.Risks...),
		StrategyTypeID:      res.Implementation.TypeTag,
		Network:             opts.Chain,
		CreatedAt:           now,
	}
}

// pairedRecord derives a gov or standard record from the CLM: the
// paired record's token is the CLM itself, and provider, strategy,
// platform, asset and risk metadata are copied verbatim.
func pairedRecord(opts createOpts, res *strategy.Resolution, typ model.VaultType, addr common.Address, now int64) model.VaultRecord {
	suffix := "-rp"
	nameSuffix := " Reward Pool"
	if typ == model.TypeStandard {
		suffix = "-vault"
		nameSuffix = " Vault"
	}
	return model.VaultRecord{
		ID:                  opts.ID + suffix,
		Name:                opts.Name + nameSuffix,
		Type:                typ,
		Token:               opts.Token,
		TokenAddress:        opts.Address.Hex(),
		TokenProviderID:     res.TokenProviderID,
		TokenDecimals:       opts.Decimals,
		EarnContractAddress: addr.Hex(),
		Oracle:              "lps",
		OracleID:            opts.OracleID,
		Status:              model.StatusActive,
		PlatformID:          opts.Platform,
		Assets:              opts.Assets,
		Risks:               append([]string(nil), opts.Risks...),
		StrategyTypeID:      res.Implementation.TypeTag,
		Network:             opts.Chain,
		CreatedAt:           now,
	}
}
