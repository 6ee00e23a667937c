package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Genesis describes the initial state applied to a fresh database: the
// administrator, pre-funded accounts, and pre-issued identity tokens.
// Addresses are bech32 strings with the campus prefix.
type Genesis struct {
	Admin    string           `yaml:"admin"`
	Balances []GenesisBalance `yaml:"balances"`
	Teachers []string         `yaml:"teachers"`
	Students []string         `yaml:"students"`
}

type GenesisBalance struct {
	Address string `yaml:"address"`
	Amount  string `yaml:"amount"`
}

// LoadGenesis parses a genesis file. A missing path returns an empty
// genesis with no admin, which the daemon rejects.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	gen := &Genesis{}
	if err := yaml.Unmarshal(raw, gen); err != nil {
		return nil, fmt.Errorf("genesis: parse %s: %w", path, err)
	}
	if gen.Admin == "" {
		return nil, fmt.Errorf("genesis: %s missing admin address", path)
	}
	return gen, nil
}
