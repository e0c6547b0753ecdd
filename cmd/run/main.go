package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/bcfs/bcfs"
	"github.com/wippyai/bcfs/chain"
	"github.com/wippyai/bcfs/config"
	"github.com/wippyai/bcfs/memchain"
	"github.com/wippyai/bcfs/runtime"
	"github.com/wippyai/bcfs/wasi/preview1"
)

type options struct {
	genesis     string
	state       string
	compression string
	deploy      string
	caller      string
	callee      string
	payer       string
	value       string
	input       string
	inputHex    string
	gas         uint64
	gasPrice    uint64
	logLevel    string
	metricsOut  string
	interactive bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.LoadOrDefault()

	var opts options
	flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flagSet.StringVar(&opts.genesis, "genesis", "", "genesis YAML used when no state file exists")
	flagSet.StringVar(&opts.state, "state", cfg.Snapshot.Path, "state snapshot to load and save")
	flagSet.StringVar(&opts.compression, "compression", cfg.Snapshot.Compression, "snapshot compression: none, zstd, lz4")
	flagSet.StringVar(&opts.deploy, "deploy", "", "contract wasm file to deploy")
	flagSet.StringVar(&opts.caller, "caller", "", "sender address")
	flagSet.StringVar(&opts.callee, "callee", "", "address to transact with")
	flagSet.StringVar(&opts.payer, "payer", "", "gas payer address (default: caller)")
	flagSet.StringVar(&opts.value, "value", "0", "value to transfer")
	flagSet.StringVar(&opts.input, "input", "", "transaction input")
	flagSet.StringVar(&opts.inputHex, "input-hex", "", "transaction input, hex encoded")
	flagSet.Uint64Var(&opts.gas, "gas", cfg.Chain.BaseGas, "gas limit")
	flagSet.Uint64Var(&opts.gasPrice, "gas-price", cfg.Chain.GasPrice, "gas price")
	flagSet.StringVar(&opts.logLevel, "log-level", cfg.Logging.Level, "log level")
	flagSet.StringVar(&opts.metricsOut, "metrics-out", cfg.Metrics.OutputFile, "write host call metrics to this file")
	flagSet.BoolVarP(&opts.interactive, "interactive", "i", false, "interactive mode with TUI")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	logCfg := cfg.Logging
	logCfg.Level = opts.logLevel
	logger, err := config.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()
	bcfs.SetLogger(logger.Named("bcfs"))
	memchain.SetLogger(logger.Named("memchain"))
	runtime.SetLogger(logger.Named("runtime"))

	ctx := context.Background()

	bc, err := openChain(cfg, &opts)
	if err != nil {
		return err
	}

	var reg *prometheus.Registry
	if opts.metricsOut != "" {
		reg = prometheus.NewRegistry()
	}
	rt, err := newRuntime(ctx, bc, reg)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	if opts.interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		caller, err := parseOptionalAddress(opts.caller)
		if err != nil {
			return fmt.Errorf("caller: %w", err)
		}
		err = runInteractive(bc, caller, opts.gas, opts.gasPrice)
		if err != nil {
			return err
		}
	} else if err := execute(ctx, os.Stdout, bc, &opts); err != nil {
		return err
	}

	if opts.state != "" {
		if err := saveState(bc, opts.state, opts.compression); err != nil {
			return err
		}
		logger.Debug("state saved", zap.String("path", opts.state))
	}
	if reg != nil {
		if err := prometheus.WriteToTextfile(opts.metricsOut, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// openChain restores the state file when it exists and otherwise builds
// the chain from the genesis file.
func openChain(cfg *config.Config, opts *options) (*memchain.Memchain, error) {
	if opts.state != "" {
		f, err := os.Open(opts.state)
		switch {
		case err == nil:
			defer f.Close()
			bc, err := memchain.LoadSnapshot(f)
			if err != nil {
				return nil, fmt.Errorf("load state %s: %w", opts.state, err)
			}
			return bc, nil
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("open state: %w", err)
		}
	}

	if opts.genesis == "" {
		return nil, fmt.Errorf("no state file; --genesis is required")
	}
	g, state, err := memchain.LoadGenesisFile(opts.genesis)
	if err != nil {
		return nil, fmt.Errorf("load genesis: %w", err)
	}
	baseGas := g.BaseGas
	if baseGas == 0 {
		baseGas = cfg.Chain.BaseGas
	}
	return memchain.New(g.Chain, state, baseGas), nil
}

// newRuntime creates the contract runtime for bc. Contracts see the chain
// root as /opt/<name of bc>. Host calls are counted in reg when it is set.
func newRuntime(ctx context.Context, bc *memchain.Memchain, reg *prometheus.Registry) (*runtime.Runtime, error) {
	rtOpts := []runtime.Option{runtime.WithChainName(bc.Name())}
	if reg != nil {
		rtOpts = append(rtOpts, runtime.WithMetrics(preview1.NewMetrics(reg)))
	}
	rt, err := runtime.New(ctx, rtOpts...)
	if err != nil {
		return nil, fmt.Errorf("create runtime: %w", err)
	}
	bc.SetExecutor(rt)
	return rt, nil
}

// execute deploys and/or transacts as requested and prints the receipts.
func execute(ctx context.Context, w io.Writer, bc *memchain.Memchain, opts *options) error {
	if opts.deploy == "" && opts.callee == "" {
		return nil
	}

	caller, err := chain.ParseAddress(opts.caller)
	if err != nil {
		return fmt.Errorf("caller: %w", err)
	}
	value, err := chain.ParseBalance(opts.value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}

	if opts.deploy != "" {
		code, err := os.ReadFile(opts.deploy)
		if err != nil {
			return fmt.Errorf("read contract: %w", err)
		}
		r := bc.LastBlock().Create(ctx, caller, value, code, opts.gas, opts.gasPrice)
		printReceipt(w, r)
		if r.Reverted() {
			return fmt.Errorf("deploy %s: %s", filepath.Base(opts.deploy), r.Outcome)
		}
		return nil
	}

	callee, err := chain.ParseAddress(opts.callee)
	if err != nil {
		return fmt.Errorf("callee: %w", err)
	}
	payer := caller
	if opts.payer != "" {
		if payer, err = chain.ParseAddress(opts.payer); err != nil {
			return fmt.Errorf("payer: %w", err)
		}
	}
	input := []byte(opts.input)
	if opts.inputHex != "" {
		if input, err = hex.DecodeString(opts.inputHex); err != nil {
			return fmt.Errorf("input-hex: %w", err)
		}
	}

	r := bc.LastBlock().Transact(ctx, caller, callee, payer, value, input, opts.gas, opts.gasPrice)
	printReceipt(w, r)
	return nil
}

func printReceipt(w io.Writer, r *memchain.Receipt) {
	fmt.Fprintf(w, "tx:       %s\n", r.ID)
	fmt.Fprintf(w, "outcome:  %s\n", r.Outcome)
	if !r.Contract.IsZero() {
		fmt.Fprintf(w, "contract: %s\n", r.Contract)
	}
	fmt.Fprintf(w, "gas used: %d\n", r.GasUsed)
	if len(r.Output) > 0 {
		fmt.Fprintf(w, "output:   %q\n", r.Output)
	}
	for i, ev := range r.Events {
		fmt.Fprintf(w, "event %d:  emitter=%s topics=%d data=%x\n", i, ev.Emitter, len(ev.Topics), ev.Data)
		for _, topic := range ev.Topics {
			fmt.Fprintf(w, "          %x\n", topic[:])
		}
	}
}

func saveState(bc *memchain.Memchain, path, compression string) error {
	c, err := memchain.ParseCompression(compression)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create state: %w", err)
	}
	if err := bc.SaveSnapshot(f, c); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("save state: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save state: %w", err)
	}
	return os.Rename(tmp, path)
}

func parseOptionalAddress(s string) (chain.Address, error) {
	if s == "" {
		return chain.Address{}, nil
	}
	return chain.ParseAddress(s)
}
