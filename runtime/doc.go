// Package runtime executes contract WebAssembly against a pending
// transaction.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, runtime.WithChainName("oasis"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	bc := memchain.New("oasis", genesis, 2100, memchain.WithExecutor(rt))
//	receipt := bc.LastBlock().Transact(ctx, caller, contract, caller, value, input, 2100, 0)
//
// # Contracts
//
// A contract is a core module exporting "_start" and "memory". Its only
// imports may be the wasi_snapshot_preview1 functions listed by
// preview1.FunctionNames. The transaction input is on stdin, the output
// is whatever is written to stdout, and writing to stderr aborts the
// transaction with that output. Account storage is the home directory,
// the preopen named ".".
//
// Compile validates imports and caches the compiled module by the BLAKE3
// hash of its code:
//
//	mod, err := rt.Compile(ctx, code)
//	var missing *errors.MissingImportsError
//	if stderrors.As(err, &missing) {
//	    fmt.Println(missing)
//	}
//
// # Execution
//
// Each Execute call gets a fresh descriptor table and an anonymous module
// instance, so calls may run concurrently. The exit code is the one passed
// to proc_exit, or zero when _start returns. Every descriptor is flushed
// when the contract stops, so data left in buffers reaches storage, the
// output and the event log.
package runtime
