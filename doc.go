// Package blockchainfs runs WASI contracts against blockchain state exposed
// as a filesystem.
//
// A contract is an ordinary wasm32-wasi command. Its storage, its balance,
// the bytecode of other accounts and the event log are files under
// /opt/<chain>, and its input and output are stdin and stdout. No custom
// host ABI is needed beyond wasi_snapshot_preview1.
//
// # Architecture Overview
//
//	blockchainfs/
//	├── chain/           Addresses, balances, events and the ledger interfaces
//	├── bcfs/            The filesystem: fd table, path resolution, special files
//	├── wasi/            Errno mapping and preview1 wire types
//	│   └── preview1/    wasi_snapshot_preview1 host module on wazero
//	├── runtime/         Compiles and runs contracts, caches compiled code
//	├── memchain/        In-memory ledger with genesis files and snapshots
//	├── config/          Environment configuration and logger construction
//	├── errors/          Structured errors mapped to WASI errnos
//	└── cmd/run/         Command line runner with an interactive mode
//
// # Quick Start
//
// Run a contract on an in-memory chain:
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	bc := memchain.New("dev", genesis, 2100, memchain.WithExecutor(rt))
//	r := bc.LastBlock().Create(ctx, deployer, chain.Balance{}, code, 1_000_000, 0)
//	r = bc.LastBlock().Transact(ctx, deployer, r.Contract, deployer, chain.Balance{}, input, 1_000_000, 0)
//	fmt.Printf("%s %q\n", r.Outcome, r.Output)
//
// # Files
//
// Paths are resolved against fd 3 (/opt/<chain>) or fd 4 (the contract's
// own account directory, also reachable as "."):
//
//	/opt/<chain>/log                  write-only event log
//	/opt/<chain>/<addr>/balance       read-only, 16-byte little-endian
//	/opt/<chain>/<addr>/bytecode      read-only contract code
//	/opt/<chain>/<home>/<key>         contract storage, read-write
//
// Writes are buffered per descriptor and reach the ledger when the
// descriptor is closed or synced, or when the contract exits.
//
// # Thread Safety
//
// Runtime is safe for concurrent use. Each transaction gets its own BCFS
// instance, which serializes its own calls.
package blockchainfs
