// Package preview1 serves the wasi_snapshot_preview1 import module to
// contract code, backed by the descriptor layer of one pending transaction.
//
// The host module is instantiated once per wazero runtime. Each call finds
// its transaction through the context:
//
//	host, err := preview1.Instantiate(ctx, r, preview1.WithMetrics(m))
//	...
//	s := preview1.NewSession(bcfs.New(ptx, "oasis"), ptx)
//	ctx = preview1.WithSession(ctx, s)
//	_, err = mod.ExportedFunction("_start").Call(ctx)
//
// Only the filesystem, environment and exit calls are exported. A contract
// importing anything else fails to load.
package preview1
