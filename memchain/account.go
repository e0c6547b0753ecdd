package memchain

import (
	"bytes"
	"context"
	"maps"
	"slices"

	"github.com/wippyai/bcfs/chain"
)

// Main is a Go entry point run in place of bytecode. A non-zero return
// aborts the transaction.
type Main func(ctx context.Context, ptx chain.PendingTransaction) uint16

// Executor runs contract bytecode within a pending transaction and returns
// its exit code.
type Executor interface {
	Execute(ctx context.Context, code []byte, ptx chain.PendingTransaction) (uint32, error)
}

// Account is the ledger state of one address.
type Account struct {
	Balance chain.Balance
	Code    []byte
	Storage map[string][]byte
	Nonce   uint64

	// Main overrides Code as the entry point. It is not persisted.
	Main Main
}

// Clone returns a deep copy of a.
func (a *Account) Clone() *Account {
	storage := make(map[string][]byte, len(a.Storage))
	for k, v := range a.Storage {
		storage[k] = bytes.Clone(v)
	}
	return &Account{
		Balance: a.Balance,
		Code:    bytes.Clone(a.Code),
		Storage: storage,
		Nonce:   a.Nonce,
		Main:    a.Main,
	}
}

// Get implements chain.KVStore.
func (a *Account) Get(key []byte) ([]byte, bool) {
	v, ok := a.Storage[string(key)]
	return v, ok
}

// Contains implements chain.KVStore.
func (a *Account) Contains(key []byte) bool {
	_, ok := a.Storage[string(key)]
	return ok
}

// Set implements chain.KVStoreMut.
func (a *Account) Set(key, value []byte) {
	if a.Storage == nil {
		a.Storage = make(map[string][]byte)
	}
	a.Storage[string(key)] = bytes.Clone(value)
}

// Remove implements chain.KVStoreMut.
func (a *Account) Remove(key []byte) {
	delete(a.Storage, string(key))
}

// Keys returns the storage keys in sorted order.
func (a *Account) Keys() []string {
	return slices.Sorted(maps.Keys(a.Storage))
}

// State maps addresses to accounts.
type State map[chain.Address]*Account

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := make(State, len(s))
	for addr, acct := range s {
		out[addr] = acct.Clone()
	}
	return out
}

// Addresses returns the account addresses in ascending byte order.
func (s State) Addresses() []chain.Address {
	addrs := slices.Collect(maps.Keys(s))
	slices.SortFunc(addrs, func(a, b chain.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return addrs
}
