package commands

import (
	"fmt"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/raulk/clock"
	"github.com/urfave/cli/v2"

	"github.com/clmops/clmctl/chain"
	"github.com/clmops/clmctl/config"
	"github.com/clmops/clmctl/storage"
	"github.com/clmops/clmctl/version"
)

var log = logging.Logger("clmctl/commands")

type LogOpts struct {
	LogLevel      string
	LogLevelNamed string
}

var LogFlags LogOpts

// SetupLogging applies the global log flags. Named overrides use the
// form system:level, comma separated.
func SetupLogging(flags LogOpts) error {
	if err := logging.SetLogLevel("*", flags.LogLevel); err != nil {
		return fmt.Errorf("set log level: %w", err)
	}

	if flags.LogLevelNamed != "" {
		for _, llname := range strings.Split(flags.LogLevelNamed, ",") {
			parts := strings.Split(llname, ":")
			if len(parts) != 2 {
				return fmt.Errorf("invalid named log level format: %q", llname)
			}
			if err := logging.SetLogLevel(parts[0], parts[1]); err != nil {
				return fmt.Errorf("set named log level %q to %q: %w", parts[0], parts[1], err)
			}
		}
	}

	log.Debugf("clmctl version:%s", version.String())
	return nil
}

// App bundles the shared application state built once per invocation:
// loaded config, the registry catalog, and the per-chain client
// resolver. All chain-keyed caches live behind these two objects.
type App struct {
	Config  *config.Conf
	Catalog *storage.Catalog
	Chains  *chain.Resolver
	Clock   clock.Clock
}

func setupApp(cctx *cli.Context) (*App, error) {
	cfg, err := config.FromFile(cctx.String("config"))
	if err != nil {
		return nil, err
	}
	regPath, err := cfg.RegistryPath()
	if err != nil {
		return nil, err
	}
	catalog, err := storage.NewCatalog(regPath)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:  cfg,
		Catalog: catalog,
		Chains:  chain.NewResolver(cfg),
		Clock:   clock.New(),
	}, nil
}

func (a *App) Close() {
	a.Chains.Close()
}
