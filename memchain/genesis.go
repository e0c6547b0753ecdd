package memchain

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/bcfs/chain"
)

// Genesis describes the initial chain state.
type Genesis struct {
	Chain    string           `yaml:"chain"`
	BaseGas  uint64           `yaml:"base_gas"`
	Accounts []GenesisAccount `yaml:"accounts"`
}

// GenesisAccount is one account of a genesis file. Code is read from
// CodeFile, relative to the genesis file, or decoded from CodeHex.
type GenesisAccount struct {
	Address  chain.Address     `yaml:"address"`
	Balance  chain.Balance     `yaml:"balance"`
	CodeFile string            `yaml:"code_file,omitempty"`
	CodeHex  string            `yaml:"code_hex,omitempty"`
	Storage  map[string]string `yaml:"storage,omitempty"`
}

// LoadGenesis decodes a YAML genesis document.
func LoadGenesis(r io.Reader) (*Genesis, error) {
	var g Genesis
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("decode genesis: %w", err)
	}
	if g.Chain == "" {
		return nil, fmt.Errorf("genesis: chain name is required")
	}
	return &g, nil
}

// LoadGenesisFile reads a genesis file and builds its state, resolving
// code files relative to the genesis file's directory.
func LoadGenesisFile(path string) (*Genesis, State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	g, err := LoadGenesis(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	state, err := g.Build(filepath.Dir(path))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, state, nil
}

// Build returns the genesis state. dir is the base for relative code files.
func (g *Genesis) Build(dir string) (State, error) {
	state := make(State, len(g.Accounts))
	for i, ga := range g.Accounts {
		if _, dup := state[ga.Address]; dup {
			return nil, fmt.Errorf("account %d: duplicate address %s", i, ga.Address)
		}

		acct := &Account{
			Balance: ga.Balance,
			Storage: make(map[string][]byte, len(ga.Storage)),
		}
		for k, v := range ga.Storage {
			acct.Storage[k] = []byte(v)
		}

		switch {
		case ga.CodeFile != "" && ga.CodeHex != "":
			return nil, fmt.Errorf("account %s: code_file and code_hex are exclusive", ga.Address)
		case ga.CodeFile != "":
			p := ga.CodeFile
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
			code, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("account %s: %w", ga.Address, err)
			}
			acct.Code = code
		case ga.CodeHex != "":
			code, err := hex.DecodeString(ga.CodeHex)
			if err != nil {
				return nil, fmt.Errorf("account %s: code_hex: %w", ga.Address, err)
			}
			acct.Code = code
		}
		state[ga.Address] = acct
	}
	return state, nil
}
