// Package memchain is an in-memory blockchain used to run contracts against
// bcfs outside a real ledger.
//
// A Memchain holds a list of blocks. Each transaction runs against a deep
// copy of the current state; the copy replaces the block state only when
// the transaction succeeds. Accounts run either a Go Main function or, when
// they carry code and an Executor is configured, their bytecode.
//
//	bc := memchain.New("testchain", genesis, 2100)
//	receipt := bc.LastBlock().Transact(ctx, from, to, from, value, input, 2100, 0)
//
// Chain state can be loaded from a YAML genesis file and saved to or loaded
// from compressed CBOR snapshots.
package memchain
