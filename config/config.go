package config

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"
	homedir "github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"
)

// Conf is the clmctl configuration file.
type Conf struct {
	Registry RegistryConf
	Chains   map[string]ChainConf
}

type RegistryConf struct {
	// Path is the directory holding the per-chain registry files. A
	// leading ~ is expanded.
	Path string
}

// ChainConf describes one supported chain.
type ChainConf struct {
	ChainID        int64
	RPCURL         string
	ExplorerAPIURL string
	// ExplorerAPIKeyEnv names the environment variable holding the
	// explorer API key. With no key configured the explorer client
	// falls back to a much slower request rate.
	ExplorerAPIKeyEnv string
	// Multicall is the Multicall3 address, empty if the chain has none.
	Multicall string
}

func DefaultConf() *Conf {
	return &Conf{
		Registry: RegistryConf{
			Path: "~/.clmctl/registry",
		},
		Chains: map[string]ChainConf{
			"arbitrum": {
				ChainID:           42161,
				RPCURL:            "https://arb1.arbitrum.io/rpc",
				ExplorerAPIURL:    "https://api.arbiscan.io/api",
				ExplorerAPIKeyEnv: "ARBISCAN_API_KEY",
				Multicall:         "0xcA11bde05977b3631167028862bE2a173976CA11",
			},
			"base": {
				ChainID:           8453,
				RPCURL:            "https://mainnet.base.org",
				ExplorerAPIURL:    "https://api.basescan.org/api",
				ExplorerAPIKeyEnv: "BASESCAN_API_KEY",
				Multicall:         "0xcA11bde05977b3631167028862bE2a173976CA11",
			},
			"optimism": {
				ChainID:           10,
				RPCURL:            "https://mainnet.optimism.io",
				ExplorerAPIURL:    "https://api-optimistic.etherscan.io/api",
				ExplorerAPIKeyEnv: "OPTIMISTIC_ETHERSCAN_API_KEY",
				Multicall:         "0xcA11bde05977b3631167028862bE2a173976CA11",
			},
		},
	}
}

// EnsureExists writes the default config to path unless a file is
// already there.
func EnsureExists(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	c, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(c).Encode(DefaultConf()); err != nil {
		_ = c.Close()
		return xerrors.Errorf("write config: %w", err)
	}
	if err := c.Close(); err != nil {
		return xerrors.Errorf("close config: %w", err)
	}
	return nil
}

// FromFile loads config from a specified file. If the file does not
// exist defaults are assumed.
func FromFile(path string) (*Conf, error) {
	file, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
		return DefaultConf(), nil
	case err != nil:
		return nil, err
	}

	defer file.Close() //nolint:errcheck // the file is RO
	return FromReader(file, DefaultConf())
}

// FromReader loads config from a reader instance, overlaying def.
func FromReader(reader io.Reader, def *Conf) (*Conf, error) {
	cfg := *def
	if _, err := toml.NewDecoder(reader).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RegistryPath returns the registry directory with ~ expanded.
func (c *Conf) RegistryPath() (string, error) {
	path, err := homedir.Expand(c.Registry.Path)
	if err != nil {
		return "", xerrors.Errorf("expand registry path %q: %w", c.Registry.Path, err)
	}
	return path, nil
}
